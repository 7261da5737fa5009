package fulfillment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	billingapp "github.com/bizdocs/backend/internal/application/billing"
	"github.com/bizdocs/backend/internal/domain/billing"
	"github.com/bizdocs/backend/internal/domain/fulfillment"
	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
	"github.com/bizdocs/backend/internal/infrastructure/telemetry"
)

const orderNumberPrefix = "ORD"

// OrderService handles online order use cases
type OrderService struct {
	repo            fulfillment.OrderRepository
	publisher       shared.EventPublisher
	defaultCurrency valueobject.Currency
	retryAttempts   int
	locale          language.Tag
	logger          *zap.Logger
	now             func() time.Time
}

// NewOrderService creates a new OrderService
func NewOrderService(
	repo fulfillment.OrderRepository,
	publisher shared.EventPublisher,
	cfg billingapp.ServiceConfig,
	logger *zap.Logger,
) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = valueobject.DefaultCurrency
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.Locale == language.Und {
		cfg.Locale = language.MustParse("en-ZA")
	}
	return &OrderService{
		repo:            repo,
		publisher:       publisher,
		defaultCurrency: cfg.DefaultCurrency,
		retryAttempts:   cfg.RetryAttempts,
		locale:          cfg.Locale,
		logger:          logger.Named("order_service"),
		now:             time.Now,
	}
}

// SetClock replaces the time source
func (s *OrderService) SetClock(now func() time.Time) {
	s.now = now
}

// Create creates a pending order
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "create")
	defer span.End()

	currency := valueobject.Currency(req.Currency)
	if currency == "" {
		currency = s.defaultCurrency
	}

	order, err := fulfillment.NewOrder(billing.NewDocumentNumber(orderNumberPrefix, s.now()),
		req.CustomerName, currency, fulfillment.FulfillmentMethod(req.FulfillmentMethod), req.DeliveryAddress)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	order.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	order.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	order.Notes = req.Notes
	for _, item := range req.Items {
		if _, err := order.AddItem(item.ToRawLine()); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, order); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, order.ID.String())
	s.publish(ctx, order)
	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("fulfillment_method", string(order.FulfillmentMethod)),
	)
	resp := ToOrderResponse(order, s.locale)
	return &resp, nil
}

// GetByID returns an order by ID
func (s *OrderService) GetByID(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order, s.locale)
	return &resp, nil
}

// List returns a page of orders
func (s *OrderService) List(ctx context.Context, filter OrderListFilter) ([]OrderListResponse, int64, error) {
	orders, total, err := s.repo.FindAll(ctx, filter.toDomain())
	if err != nil {
		return nil, 0, err
	}
	return ToOrderListResponses(orders, s.locale), total, nil
}

// AddItem adds a line to a pending order
func (s *OrderService) AddItem(ctx context.Context, id uuid.UUID, req billingapp.LineItemRequest) (*OrderResponse, error) {
	return s.mutate(ctx, id, "add_item", func(o *fulfillment.Order, _ time.Time) error {
		_, err := o.AddItem(req.ToRawLine())
		return err
	})
}

// UpdateItem replaces the inputs of one line on a pending order
func (s *OrderService) UpdateItem(ctx context.Context, id, itemID uuid.UUID, req billingapp.LineItemRequest) (*OrderResponse, error) {
	return s.mutate(ctx, id, "update_item", func(o *fulfillment.Order, _ time.Time) error {
		_, err := o.UpdateItem(itemID, req.ToRawLine())
		return err
	})
}

// RemoveItem removes one line from a pending order
func (s *OrderService) RemoveItem(ctx context.Context, id, itemID uuid.UUID) (*OrderResponse, error) {
	return s.mutate(ctx, id, "remove_item", func(o *fulfillment.Order, _ time.Time) error {
		return o.RemoveItem(itemID)
	})
}

// Transition moves an order along its fulfillment path. A cancelled
// target is routed through Cancel so the reason is recorded.
func (s *OrderService) Transition(ctx context.Context, id uuid.UUID, req TransitionOrderRequest) (*OrderResponse, error) {
	target := fulfillment.OrderStatus(req.Status)
	return s.mutate(ctx, id, "transition", func(o *fulfillment.Order, now time.Time) error {
		if target == fulfillment.OrderStatusCancelled {
			return o.Cancel(req.Reason, now)
		}
		return o.TransitionTo(target, now)
	})
}

// Cancel cancels an order that has not been handed over
func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID, req billingapp.CancelRequest) (*OrderResponse, error) {
	return s.mutate(ctx, id, "cancel", func(o *fulfillment.Order, now time.Time) error {
		return o.Cancel(req.Reason, now)
	})
}

func (s *OrderService) mutate(ctx context.Context, id uuid.UUID, op string, fn func(*fulfillment.Order, time.Time) error) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", op)
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, id.String())

	for attempt := 1; ; attempt++ {
		order, err := s.repo.FindByID(ctx, id)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if err := fn(order, s.now()); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		err = s.repo.SaveWithLock(ctx, order)
		if err == nil {
			telemetry.SetAttributes(span, telemetry.SpanAttrStatus, string(order.Status))
			s.publish(ctx, order)
			resp := ToOrderResponse(order, s.locale)
			return &resp, nil
		}
		if errors.Is(err, shared.ErrConcurrencyConflict) && attempt < s.retryAttempts {
			continue
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
}

func (s *OrderService) publish(ctx context.Context, order *fulfillment.Order) {
	events := order.GetDomainEvents()
	order.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish order events",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}

package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bizdocs/backend/internal/domain/billing"
	"github.com/bizdocs/backend/internal/domain/inventory"
	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/infrastructure/telemetry"
)

const stockTakeNumberPrefix = "ST"

// StockTakingService provides application services for stock-take sessions
type StockTakingService struct {
	repo          inventory.StockTakeRepository
	publisher     shared.EventPublisher
	retryAttempts int
	logger        *zap.Logger
	now           func() time.Time
}

// NewStockTakingService creates a new StockTakingService
func NewStockTakingService(
	repo inventory.StockTakeRepository,
	publisher shared.EventPublisher,
	retryAttempts int,
	logger *zap.Logger,
) *StockTakingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retryAttempts <= 0 {
		retryAttempts = 3
	}
	return &StockTakingService{
		repo:          repo,
		publisher:     publisher,
		retryAttempts: retryAttempts,
		logger:        logger.Named("stock_taking_service"),
		now:           time.Now,
	}
}

// SetClock replaces the time source
func (s *StockTakingService) SetClock(now func() time.Time) {
	s.now = now
}

// ===================== Query Methods =====================

// GetByID retrieves a stock-take with its counts
func (s *StockTakingService) GetByID(ctx context.Context, id uuid.UUID) (*StockTakeResponse, error) {
	st, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToStockTakeResponse(st)
	return &response, nil
}

// List retrieves a paginated list of stock-takes
func (s *StockTakingService) List(ctx context.Context, filter StockTakeListFilter) ([]StockTakeListResponse, int64, error) {
	sts, total, err := s.repo.FindAll(ctx, filter.toDomain())
	if err != nil {
		return nil, 0, err
	}
	return ToStockTakeListResponses(sts), total, nil
}

// GetProgress returns counting progress and the products still to count
func (s *StockTakingService) GetProgress(ctx context.Context, id uuid.UUID) (*ProgressResponse, error) {
	st, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ProgressResponse{
		TotalItems:     len(st.Counts),
		CountedItems:   st.CountedItems(),
		Progress:       st.Progress(),
		UncountedItems: toStockCountResponses(st.UncountedItems()),
	}, nil
}

// GetVarianceSummary returns the summary frozen at completion
func (s *StockTakingService) GetVarianceSummary(ctx context.Context, id uuid.UUID) (*inventory.VarianceSummary, error) {
	st, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return st.VarianceReport()
}

// ===================== Command Methods =====================

// Create creates a draft stock-take, optionally with its product list
func (s *StockTakingService) Create(ctx context.Context, req CreateStockTakeRequest) (*StockTakeResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_take", "create")
	defer span.End()

	now := s.now()
	takeDate := now
	if req.TakeDate != nil {
		takeDate = *req.TakeDate
	}

	st, err := inventory.NewStockTake(billing.NewDocumentNumber(stockTakeNumberPrefix, now), req.Location, takeDate)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	st.Notes = req.Notes
	if err := addProducts(st, req.Products); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.repo.Create(ctx, st); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrStockTakeID, st.ID.String())
	s.publish(ctx, st)
	s.logger.Info("Stock-take created",
		zap.String("stock_take_id", st.ID.String()),
		zap.String("take_number", st.TakeNumber),
		zap.Int("products", len(st.Counts)),
	)
	response := ToStockTakeResponse(st)
	return &response, nil
}

// AddProducts adds product lines to a draft stock-take
func (s *StockTakingService) AddProducts(ctx context.Context, id uuid.UUID, req AddProductsRequest) (*StockTakeResponse, error) {
	return s.mutate(ctx, id, "add_products", func(st *inventory.StockTake, _ time.Time) error {
		return addProducts(st, req.Products)
	})
}

// RemoveProduct removes a product line from a draft stock-take
func (s *StockTakingService) RemoveProduct(ctx context.Context, id, productID uuid.UUID) (*StockTakeResponse, error) {
	return s.mutate(ctx, id, "remove_product", func(st *inventory.StockTake, _ time.Time) error {
		return st.RemoveProduct(productID)
	})
}

// Start opens counting
func (s *StockTakingService) Start(ctx context.Context, id uuid.UUID) (*StockTakeResponse, error) {
	return s.mutate(ctx, id, "start", func(st *inventory.StockTake, now time.Time) error {
		return st.Start(now)
	})
}

// RecordCount records the physical quantity of one product
func (s *StockTakingService) RecordCount(ctx context.Context, id uuid.UUID, req RecordCountRequest) (*StockTakeResponse, error) {
	return s.RecordCounts(ctx, id, RecordCountsRequest{Counts: []RecordCountRequest{req}})
}

// RecordCounts records several counts atomically; one bad count rejects all
func (s *StockTakingService) RecordCounts(ctx context.Context, id uuid.UUID, req RecordCountsRequest) (*StockTakeResponse, error) {
	return s.mutate(ctx, id, "record_counts", func(st *inventory.StockTake, now time.Time) error {
		for _, c := range req.Counts {
			if _, err := st.Count(c.ProductID, c.CountedQty, c.Remark, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// Complete closes counting and freezes the variance summary
func (s *StockTakingService) Complete(ctx context.Context, id uuid.UUID) (*StockTakeResponse, error) {
	resp, err := s.mutate(ctx, id, "complete", func(st *inventory.StockTake, now time.Time) error {
		return st.Complete(now)
	})
	if err != nil {
		return nil, err
	}
	if resp.Summary != nil {
		s.logger.Info("Stock-take completed",
			zap.String("stock_take_id", id.String()),
			zap.Int("counted_items", resp.Summary.CountedItems),
			zap.Int("items_with_variance", resp.Summary.ItemsWithVariance),
			zap.String("variance_value", resp.Summary.VarianceValue.String()),
		)
	}
	return resp, nil
}

// Cancel abandons a stock-take that is not completed
func (s *StockTakingService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*StockTakeResponse, error) {
	return s.mutate(ctx, id, "cancel", func(st *inventory.StockTake, now time.Time) error {
		return st.Cancel(reason, now)
	})
}

// ===================== Helpers =====================

func addProducts(st *inventory.StockTake, products []AddProductRequest) error {
	for _, p := range products {
		if _, err := st.AddProduct(p.ProductID, p.ProductName, p.ProductCode, p.Unit, p.SystemQty, p.UnitCost); err != nil {
			return err
		}
	}
	return nil
}

func (s *StockTakingService) mutate(ctx context.Context, id uuid.UUID, op string, fn func(*inventory.StockTake, time.Time) error) (*StockTakeResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_take", op)
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrStockTakeID, id.String())

	for attempt := 1; ; attempt++ {
		st, err := s.repo.FindByID(ctx, id)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if err := fn(st, s.now()); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		err = s.repo.SaveWithLock(ctx, st)
		if err == nil {
			telemetry.SetAttributes(span, telemetry.SpanAttrStatus, string(st.Status))
			s.publish(ctx, st)
			response := ToStockTakeResponse(st)
			return &response, nil
		}
		if errors.Is(err, shared.ErrConcurrencyConflict) && attempt < s.retryAttempts {
			continue
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
}

func (s *StockTakingService) publish(ctx context.Context, st *inventory.StockTake) {
	events := st.GetDomainEvents()
	st.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish stock-take events",
			zap.String("stock_take_id", st.ID.String()),
			zap.Error(err),
		)
	}
}

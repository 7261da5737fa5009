package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bizdocs/backend/internal/domain/fulfillment"
	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements fulfillment.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order with its items
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "find order")
	}
	order := model.ToDomain()
	order.Recalculate()
	return order, nil
}

// FindAll lists orders with their stored totals
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]fulfillment.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{})
	if status, ok := filter.Filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if method, ok := filter.Filters["fulfillment_method"].(string); ok && method != "" {
		query = query.Where("fulfillment_method = ?", method)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where(`LOWER(order_number) LIKE ? ESCAPE '\' OR LOWER(customer_name) LIKE ? ESCAPE '\'`, p, p)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "count orders")
	}
	var rows []models.OrderModel
	if err := paginate(query, filter, OrderSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, translateError(err, "list orders")
	}
	orders := make([]fulfillment.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, total, nil
}

// Create inserts a new order with its items
func (r *GormOrderRepository) Create(ctx context.Context, order *fulfillment.Order) error {
	model := models.OrderModelFromDomain(order)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	return translateError(err, "create order")
}

// SaveWithLock updates the order under an optimistic lock and syncs its items
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, order *fulfillment.Order) error {
	model := models.OrderModelFromDomain(order)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", order.ID, order.Version).
			Updates(map[string]any{
				"customer_name":    model.CustomerName,
				"customer_phone":   model.CustomerPhone,
				"customer_email":   model.CustomerEmail,
				"delivery_address": model.DeliveryAddress,
				"status":           model.Status,
				"subtotal":         model.Subtotal,
				"discount_amount":  model.DiscountAmount,
				"tax_amount":       model.TaxAmount,
				"total":            model.Total,
				"notes":            model.Notes,
				"confirmed_at":     model.ConfirmedAt,
				"ready_at":         model.ReadyAt,
				"completed_at":     model.CompletedAt,
				"cancelled_at":     model.CancelledAt,
				"cancel_reason":    model.CancelReason,
				"version":          order.Version + 1,
				"updated_at":       time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict.WithDetail("order_id", order.ID.String())
		}

		keep := make([]uuid.UUID, len(model.Items))
		for i := range model.Items {
			keep[i] = model.Items[i].ID
		}
		del := tx.Where("order_id = ?", order.ID)
		if len(keep) > 0 {
			del = del.Where("id NOT IN ?", keep)
		}
		if err := del.Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}
		if len(model.Items) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&model.Items).Error
	})
	if err != nil {
		return translateError(err, "save order")
	}
	order.IncrementVersion()
	return nil
}

var _ fulfillment.OrderRepository = (*GormOrderRepository)(nil)

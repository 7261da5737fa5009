package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bizdocs/backend/internal/domain/inventory"
	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/infrastructure/persistence/models"
)

// GormStockTakeRepository implements inventory.StockTakeRepository using GORM
type GormStockTakeRepository struct {
	db *gorm.DB
}

// NewGormStockTakeRepository creates a new GormStockTakeRepository
func NewGormStockTakeRepository(db *gorm.DB) *GormStockTakeRepository {
	return &GormStockTakeRepository{db: db}
}

// FindByID finds a stock-take with its counts
func (r *GormStockTakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockTake, error) {
	var model models.StockTakeModel
	if err := r.db.WithContext(ctx).
		Preload("Counts", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, product_name ASC") }).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "find stock-take")
	}
	return model.ToDomain(), nil
}

// FindAll lists stock-takes without counts
func (r *GormStockTakeRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.StockTake, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.StockTakeModel{})
	if status, ok := filter.Filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where(`LOWER(take_number) LIKE ? ESCAPE '\' OR LOWER(location) LIKE ? ESCAPE '\'`, p, p)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "count stock-takes")
	}
	var rows []models.StockTakeModel
	if err := paginate(query, filter, StockTakeSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, translateError(err, "list stock-takes")
	}
	takes := make([]inventory.StockTake, len(rows))
	for i := range rows {
		takes[i] = *rows[i].ToDomain()
	}
	return takes, total, nil
}

// Create inserts a new stock-take with its counts
func (r *GormStockTakeRepository) Create(ctx context.Context, st *inventory.StockTake) error {
	model := models.StockTakeModelFromDomain(st)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	return translateError(err, "create stock-take")
}

// SaveWithLock updates the session under an optimistic lock and syncs its
// counts. A struct update is used so the summary goes through its JSON serializer.
func (r *GormStockTakeRepository) SaveWithLock(ctx context.Context, st *inventory.StockTake) error {
	model := models.StockTakeModelFromDomain(st)
	model.Version = st.Version + 1
	model.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(model).
			Where("version = ?", st.Version).
			Select("location", "status", "started_at", "completed_at", "cancelled_at",
				"cancel_reason", "notes", "summary", "version", "updated_at").
			Omit(clause.Associations).
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict.WithDetail("stock_take_id", st.ID.String())
		}

		keep := make([]uuid.UUID, len(model.Counts))
		for i := range model.Counts {
			keep[i] = model.Counts[i].ID
		}
		del := tx.Where("stock_take_id = ?", st.ID)
		if len(keep) > 0 {
			del = del.Where("id NOT IN ?", keep)
		}
		if err := del.Delete(&models.StockCountModel{}).Error; err != nil {
			return err
		}
		if len(model.Counts) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&model.Counts).Error
	})
	if err != nil {
		return translateError(err, "save stock-take")
	}
	st.IncrementVersion()
	return nil
}

var _ inventory.StockTakeRepository = (*GormStockTakeRepository)(nil)

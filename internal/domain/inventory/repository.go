package inventory

import (
	"context"

	"github.com/google/uuid"

	"github.com/bizdocs/backend/internal/domain/shared"
)

// StockTakeRepository defines the interface for stock-take persistence
type StockTakeRepository interface {
	// FindByID loads a stock-take with its counts
	FindByID(ctx context.Context, id uuid.UUID) (*StockTake, error)

	// FindAll lists stock-takes without counts. Filters supports "status".
	FindAll(ctx context.Context, filter shared.Filter) ([]StockTake, int64, error)

	Create(ctx context.Context, st *StockTake) error

	// SaveWithLock updates the session and replaces its counts if the
	// version is unchanged since it was loaded
	SaveWithLock(ctx context.Context, st *StockTake) error
}

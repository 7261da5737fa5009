package fulfillment

import (
	"context"

	"github.com/google/uuid"

	"github.com/bizdocs/backend/internal/domain/shared"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindAll lists orders without items. Filters supports "status" and "fulfillment_method".
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, int64, error)

	Create(ctx context.Context, order *Order) error

	// SaveWithLock updates the order and replaces its items if the version
	// is unchanged since it was loaded
	SaveWithLock(ctx context.Context, order *Order) error
}

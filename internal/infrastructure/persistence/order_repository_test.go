package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizdocs/backend/internal/domain/costing"
	"github.com/bizdocs/backend/internal/domain/fulfillment"
	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
)

func TestGormOrderRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newTestDB(t))

	order, err := fulfillment.NewOrder("ORD-1", "Thandi", valueobject.ZAR, fulfillment.FulfillmentCollection, "")
	require.NoError(t, err)
	_, err = order.AddItem(costing.RawLine{Description: "Pie", Quantity: 3, UnitPrice: "45.50", TaxRate: 15})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, order))

	loaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.OrderStatusPending, loaded.Status)
	assert.Equal(t, "156.98", loaded.Totals.Total.StringFixed(2))

	require.NoError(t, loaded.TransitionTo(fulfillment.OrderStatusConfirmed, day))
	require.NoError(t, repo.SaveWithLock(ctx, loaded))

	t.Run("status and timestamps persist", func(t *testing.T) {
		got, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, fulfillment.OrderStatusConfirmed, got.Status)
		require.NotNil(t, got.ConfirmedAt)
		assert.Equal(t, 2, got.Version)
		assert.Len(t, got.Items, 1)
	})

	t.Run("stale save conflicts", func(t *testing.T) {
		order.Version = 1
		assert.ErrorIs(t, repo.SaveWithLock(ctx, order), shared.ErrConcurrencyConflict)
	})

	t.Run("list filters by method", func(t *testing.T) {
		f := shared.DefaultFilter()
		f.Filters["fulfillment_method"] = "collection"
		items, total, err := repo.FindAll(ctx, f)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Equal(t, "ORD-1", items[0].OrderNumber)

		f.Filters["fulfillment_method"] = "delivery"
		_, total, err = repo.FindAll(ctx, f)
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

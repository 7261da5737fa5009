package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizdocs/backend/internal/domain/inventory"
	"github.com/bizdocs/backend/internal/domain/shared"
)

func TestGormStockTakeRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormStockTakeRepository(newTestDB(t))

	st, err := inventory.NewStockTake("STK-1", "Main store", day)
	require.NoError(t, err)
	flour, sugar := uuid.New(), uuid.New()
	_, err = st.AddProduct(flour, "Flour 1kg", "FL1", "bag", decimal.NewFromInt(50), decimal.RequireFromString("12.50"))
	require.NoError(t, err)
	_, err = st.AddProduct(sugar, "Sugar 2kg", "SG2", "bag", decimal.NewFromInt(20), decimal.NewFromInt(30))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, st))

	loaded, err := repo.FindByID(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Counts, 2)
	assert.False(t, loaded.Counts[0].Counted())

	require.NoError(t, loaded.Start(day))
	_, err = loaded.Count(flour, decimal.NewFromInt(45), "torn bags", day)
	require.NoError(t, err)
	require.NoError(t, repo.SaveWithLock(ctx, loaded))

	loaded, err = repo.FindByID(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.StockTakeStatusInProgress, loaded.Status)
	require.NoError(t, loaded.Complete(day))
	require.NoError(t, repo.SaveWithLock(ctx, loaded))

	t.Run("counts and summary persist", func(t *testing.T) {
		got, err := repo.FindByID(ctx, st.ID)
		require.NoError(t, err)
		assert.Equal(t, inventory.StockTakeStatusCompleted, got.Status)

		var counted *inventory.StockCount
		for i := range got.Counts {
			if got.Counts[i].ProductID == flour {
				counted = &got.Counts[i]
			}
		}
		require.NotNil(t, counted)
		assert.Equal(t, "-5", counted.Variance.String())
		assert.Equal(t, "torn bags", counted.Remark)

		summary, err := got.VarianceReport()
		require.NoError(t, err)
		assert.Equal(t, 2, summary.TotalItems)
		assert.Equal(t, 1, summary.CountedItems)
		assert.Equal(t, "-5", summary.TotalNegativeVariance.String())
		assert.Equal(t, "-62.5", summary.VarianceValue.String())
	})

	t.Run("list by status", func(t *testing.T) {
		f := shared.DefaultFilter()
		f.Filters["status"] = "completed"
		items, total, err := repo.FindAll(ctx, f)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Empty(t, items[0].Counts)
	})
}

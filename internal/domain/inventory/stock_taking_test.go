package inventory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizdocs/backend/internal/domain/shared"
)

var countTime = time.Date(2024, 6, 30, 17, 0, 0, 0, time.UTC)

func createTestStockTake(t *testing.T) *StockTake {
	st, err := NewStockTake("STK-20240630-0A1B2C", "Main Warehouse", countTime)
	require.NoError(t, err)
	return st
}

func addProduct(t *testing.T, st *StockTake, systemQty, unitCost string) uuid.UUID {
	productID := uuid.New()
	_, err := st.AddProduct(productID, "Product "+productID.String()[:4], "SKU", "ea",
		decimal.RequireFromString(systemQty), decimal.RequireFromString(unitCost))
	require.NoError(t, err)
	return productID
}

func TestStockTakeStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from StockTakeStatus
		to   StockTakeStatus
		want bool
	}{
		{StockTakeStatusDraft, StockTakeStatusInProgress, true},
		{StockTakeStatusDraft, StockTakeStatusCancelled, true},
		{StockTakeStatusDraft, StockTakeStatusCompleted, false},
		{StockTakeStatusInProgress, StockTakeStatusCompleted, true},
		{StockTakeStatusInProgress, StockTakeStatusCancelled, true},
		{StockTakeStatusInProgress, StockTakeStatusDraft, false},
		{StockTakeStatusCompleted, StockTakeStatusInProgress, false},
		{StockTakeStatusCompleted, StockTakeStatusCancelled, false},
		{StockTakeStatusCancelled, StockTakeStatusDraft, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestNewStockTake(t *testing.T) {
	st := createTestStockTake(t)
	assert.Equal(t, StockTakeStatusDraft, st.Status)
	assert.Empty(t, st.Counts)
	assert.Len(t, st.GetDomainEvents(), 1)

	_, err := NewStockTake("", "Main", countTime)
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = NewStockTake("STK-1", " ", countTime)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestStockTake_Products(t *testing.T) {
	t.Run("adds and removes in draft", func(t *testing.T) {
		st := createTestStockTake(t)
		productID := addProduct(t, st, "50", "12.50")
		require.Len(t, st.Counts, 1)
		assert.False(t, st.Counts[0].Counted())

		_, err := st.AddProduct(productID, "Dup", "", "", decimal.NewFromInt(1), decimal.Zero)
		assert.ErrorIs(t, err, shared.ErrValidation)

		require.NoError(t, st.RemoveProduct(productID))
		assert.Empty(t, st.Counts)
		assert.ErrorIs(t, st.RemoveProduct(productID), shared.ErrNotFound)
	})

	t.Run("rejects negative snapshot", func(t *testing.T) {
		st := createTestStockTake(t)
		_, err := st.AddProduct(uuid.New(), "Flour", "", "kg", decimal.NewFromInt(-1), decimal.Zero)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("snapshot is frozen once started", func(t *testing.T) {
		st := createTestStockTake(t)
		productID := addProduct(t, st, "50", "12.50")
		require.NoError(t, st.Start(countTime))

		_, err := st.AddProduct(uuid.New(), "Late", "", "", decimal.NewFromInt(1), decimal.Zero)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.ErrorIs(t, st.RemoveProduct(productID), shared.ErrInvalidState)
	})
}

func TestStockTake_Start(t *testing.T) {
	t.Run("requires products", func(t *testing.T) {
		st := createTestStockTake(t)
		assert.ErrorIs(t, st.Start(countTime), shared.ErrInvalidState)
		assert.Equal(t, StockTakeStatusDraft, st.Status)
	})

	t.Run("cannot start twice", func(t *testing.T) {
		st := createTestStockTake(t)
		addProduct(t, st, "1", "1")
		require.NoError(t, st.Start(countTime))
		assert.ErrorIs(t, st.Start(countTime), shared.ErrInvalidTransition)
	})
}

func TestStockTake_Count(t *testing.T) {
	t.Run("records variance", func(t *testing.T) {
		st := createTestStockTake(t)
		productID := addProduct(t, st, "50", "12.50")
		require.NoError(t, st.Start(countTime))

		c, err := st.Count(productID, decimal.NewFromInt(45), "shelf short", countTime)
		require.NoError(t, err)
		assert.Equal(t, "-5", c.Variance.String())
		assert.Equal(t, "-62.5", c.VarianceValue.String())
		assert.True(t, c.HasVariance())
	})

	t.Run("recount replaces figure", func(t *testing.T) {
		st := createTestStockTake(t)
		productID := addProduct(t, st, "50", "1")
		require.NoError(t, st.Start(countTime))
		_, err := st.Count(productID, decimal.NewFromInt(45), "", countTime)
		require.NoError(t, err)
		c, err := st.Count(productID, decimal.NewFromInt(50), "found box", countTime)
		require.NoError(t, err)
		assert.False(t, c.HasVariance())
		assert.Equal(t, 1, st.CountedItems())
	})

	t.Run("rejects negative count", func(t *testing.T) {
		st := createTestStockTake(t)
		productID := addProduct(t, st, "50", "1")
		require.NoError(t, st.Start(countTime))
		_, err := st.Count(productID, decimal.NewFromInt(-1), "", countTime)
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.False(t, st.Counts[0].Counted())
	})

	t.Run("only while in progress", func(t *testing.T) {
		st := createTestStockTake(t)
		productID := addProduct(t, st, "50", "1")
		_, err := st.Count(productID, decimal.NewFromInt(50), "", countTime)
		assert.ErrorIs(t, err, shared.ErrInvalidState)

		require.NoError(t, st.Start(countTime))
		require.NoError(t, st.Complete(countTime))
		_, err = st.Count(productID, decimal.NewFromInt(50), "", countTime)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("unknown product", func(t *testing.T) {
		st := createTestStockTake(t)
		addProduct(t, st, "50", "1")
		require.NoError(t, st.Start(countTime))
		_, err := st.Count(uuid.New(), decimal.NewFromInt(1), "", countTime)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestStockTake_CompleteAndSummary(t *testing.T) {
	st := createTestStockTake(t)
	short := addProduct(t, st, "50", "12.50")
	over := addProduct(t, st, "10", "4")
	exact := addProduct(t, st, "7", "100")
	addProduct(t, st, "3", "9") // never counted
	require.NoError(t, st.Start(countTime))

	_, err := st.VarianceReport()
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = st.Count(short, decimal.NewFromInt(45), "", countTime)
	require.NoError(t, err)
	_, err = st.Count(over, decimal.NewFromInt(12), "", countTime)
	require.NoError(t, err)
	_, err = st.Count(exact, decimal.NewFromInt(7), "", countTime)
	require.NoError(t, err)
	assert.InDelta(t, 75.0, st.Progress(), 0.001)
	assert.Len(t, st.UncountedItems(), 1)

	require.NoError(t, st.Complete(countTime))
	summary, err := st.VarianceReport()
	require.NoError(t, err)

	assert.Equal(t, 4, summary.TotalItems)
	assert.Equal(t, 3, summary.CountedItems)
	assert.Equal(t, 2, summary.ItemsWithVariance)
	assert.Equal(t, "2", summary.TotalPositiveVariance.String())
	assert.Equal(t, "-5", summary.TotalNegativeVariance.String())
	assert.Equal(t, "-3", summary.NetVariance.String())
	// -5 x 12.50 + 2 x 4
	assert.Equal(t, "-54.5", summary.VarianceValue.String())

	assert.ErrorIs(t, st.Complete(countTime), shared.ErrInvalidTransition)
	assert.ErrorIs(t, st.Cancel("late", countTime), shared.ErrInvalidTransition)
}

func TestStockTake_Cancel(t *testing.T) {
	st := createTestStockTake(t)
	assert.ErrorIs(t, st.Cancel("", countTime), shared.ErrValidation)
	require.NoError(t, st.Cancel("wrong warehouse", countTime))
	assert.Equal(t, StockTakeStatusCancelled, st.Status)
	assert.ErrorIs(t, st.Start(countTime), shared.ErrInvalidTransition)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.TotalItems)
	assert.True(t, s.VarianceValue.IsZero())
	assert.True(t, s.NetVariance.IsZero())
}

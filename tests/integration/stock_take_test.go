//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inventoryapp "github.com/bizdocs/backend/internal/application/inventory"
	"github.com/bizdocs/backend/internal/domain/inventory"
	"github.com/bizdocs/backend/internal/infrastructure/event"
	"github.com/bizdocs/backend/internal/infrastructure/persistence"
	"github.com/bizdocs/backend/tests/testutil"
)

func TestStockTake_VarianceSurvivesReload(t *testing.T) {
	db := NewTestDB(t)
	bus := event.NewInMemoryEventBus(nil)
	events := testutil.NewRecordingHandler(inventory.EventTypeStockTakeCompleted)
	bus.Subscribe(events)
	svc := inventoryapp.NewStockTakingService(persistence.NewGormStockTakeRepository(db.DB), bus, 3, nil)
	ctx := context.Background()

	bolts := testutil.NewTestUUID("bolts")
	nuts := testutil.NewTestUUID("nuts")
	take, err := svc.Create(ctx, inventoryapp.CreateStockTakeRequest{
		Location: "Main store",
		Products: []inventoryapp.AddProductRequest{
			{ProductID: bolts, ProductName: "Bolts", SystemQty: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(5)},
			{ProductID: nuts, ProductName: "Nuts", SystemQty: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(10)},
		},
	})
	require.NoError(t, err)

	_, err = svc.Start(ctx, take.ID)
	require.NoError(t, err)
	_, err = svc.RecordCounts(ctx, take.ID, inventoryapp.RecordCountsRequest{Counts: []inventoryapp.RecordCountRequest{
		{ProductID: bolts, CountedQty: decimal.NewFromInt(13)},
		{ProductID: nuts, CountedQty: decimal.NewFromInt(8)},
	}})
	require.NoError(t, err)
	_, err = svc.Complete(ctx, take.ID)
	require.NoError(t, err)

	summary, err := svc.GetVarianceSummary(ctx, take.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.CountedItems)
	assert.Equal(t, 2, summary.ItemsWithVariance)
	assert.True(t, decimal.NewFromInt(3).Equal(summary.TotalPositiveVariance))
	assert.True(t, decimal.NewFromInt(-2).Equal(summary.TotalNegativeVariance))
	assert.True(t, decimal.NewFromInt(1).Equal(summary.NetVariance))
	assert.Equal(t, 1, events.Count(inventory.EventTypeStockTakeCompleted))

	_, err = svc.RecordCount(ctx, take.ID, inventoryapp.RecordCountRequest{ProductID: bolts, CountedQty: decimal.NewFromInt(1)})
	assert.Error(t, err, "a completed stock take no longer accepts counts")
}

package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inventoryapp "github.com/bizdocs/backend/internal/application/inventory"
	"github.com/bizdocs/backend/internal/domain/inventory"
)

func TestStockTakingHandler_Workflow(t *testing.T) {
	s := newTestServer(t)
	tea, sugar := uuid.New(), uuid.New()

	w := s.do(t, http.MethodPost, "/api/v1/stock-takes", map[string]any{
		"location": "Main store room",
		"products": []map[string]any{
			{"product_id": tea, "product_name": "Rooibos 250g", "system_quantity": "100", "unit_cost": "12.50"},
			{"product_id": sugar, "product_name": "Sugar 1kg", "system_quantity": "40", "unit_cost": "20"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	st := decode[inventoryapp.StockTakeResponse](t, w).Data
	assert.Equal(t, "draft", st.Status)
	assert.Equal(t, 2, st.TotalItems)
	base := "/api/v1/stock-takes/" + st.ID.String()

	t.Run("counts are refused before start", func(t *testing.T) {
		w := s.do(t, http.MethodPost, base+"/counts", map[string]any{
			"counts": []map[string]any{{"product_id": tea, "counted_quantity": "98"}},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	w = s.do(t, http.MethodPost, base+"/start", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "in_progress", decode[inventoryapp.StockTakeResponse](t, w).Data.Status)

	w = s.do(t, http.MethodPost, base+"/counts", map[string]any{
		"counts": []map[string]any{{"product_id": tea, "counted_quantity": "98", "remark": "two torn packs"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	t.Run("progress lists what is left", func(t *testing.T) {
		w := s.do(t, http.MethodGet, base+"/progress", nil)

		require.Equal(t, http.StatusOK, w.Code)
		progress := decode[inventoryapp.ProgressResponse](t, w).Data
		assert.Equal(t, 1, progress.CountedItems)
		require.Len(t, progress.UncountedItems, 1)
		assert.Equal(t, sugar, progress.UncountedItems[0].ProductID)
	})

	t.Run("summary is only served once completed", func(t *testing.T) {
		w := s.do(t, http.MethodGet, base+"/summary", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("negative counts fail binding", func(t *testing.T) {
		w := s.do(t, http.MethodPost, base+"/counts", map[string]any{
			"counts": []map[string]any{{"product_id": sugar, "counted_quantity": "-1"}},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	w = s.do(t, http.MethodPost, base+"/counts", map[string]any{
		"counts": []map[string]any{{"product_id": sugar, "counted_quantity": "43"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, base+"/complete", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", decode[inventoryapp.StockTakeResponse](t, w).Data.Status)

	w = s.do(t, http.MethodGet, base+"/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[inventory.VarianceSummary](t, w).Data
	assert.Equal(t, 2, summary.ItemsWithVariance)
	assert.True(t, decimal.NewFromInt(3).Equal(summary.TotalPositiveVariance))
	assert.True(t, decimal.NewFromInt(-2).Equal(summary.TotalNegativeVariance))
	assert.True(t, decimal.NewFromInt(1).Equal(summary.NetVariance))
	// 3 × 20 − 2 × 12.50
	assert.True(t, decimal.NewFromInt(35).Equal(summary.VarianceValue))

	t.Run("completed takes cannot be cancelled", func(t *testing.T) {
		w := s.do(t, http.MethodPost, base+"/cancel", map[string]any{"reason": "late"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestStockTakingHandler_List(t *testing.T) {
	s := newTestServer(t)
	for _, loc := range []string{"Front shop", "Warehouse"} {
		w := s.do(t, http.MethodPost, "/api/v1/stock-takes", map[string]any{"location": loc})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := s.do(t, http.MethodGet, "/api/v1/stock-takes?status=draft", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode[[]inventoryapp.StockTakeListResponse](t, w)
	assert.Len(t, env.Data, 2)
	assert.Equal(t, int64(2), env.Meta.Total)
}

func TestStockTakingHandler_Cancel(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v1/stock-takes", map[string]any{"location": "Front shop"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	st := decode[inventoryapp.StockTakeResponse](t, w).Data
	path := "/api/v1/stock-takes/" + st.ID.String() + "/cancel"

	w = s.do(t, http.MethodPost, path, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "a reason is required")

	w = s.do(t, http.MethodPost, path, map[string]any{"reason": "Recount next week"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cancelled := decode[inventoryapp.StockTakeResponse](t, w).Data
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "Recount next week", cancelled.CancelReason)
}

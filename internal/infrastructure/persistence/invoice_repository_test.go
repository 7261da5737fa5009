package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bizdocs/backend/internal/domain/billing"
	"github.com/bizdocs/backend/internal/domain/costing"
	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
	"github.com/bizdocs/backend/internal/infrastructure/persistence/models"
)

func TestGormInvoiceRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormInvoiceRepository(newTestDB(t))

	inv, err := billing.NewInvoice("INV-1", "Acme Stores", "", valueobject.ZAR, day, day.AddDate(0, 0, 30), 30)
	require.NoError(t, err)
	_, err = inv.AddItem(costing.RawLine{Description: "Widget", Quantity: "2", UnitPrice: 100, DiscountPercent: 10, TaxRate: 15})
	require.NoError(t, err)
	_, err = inv.AddItem(costing.RawLine{Description: "Free sample", Quantity: 0, UnitPrice: 50})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, inv))

	t.Run("by id re-derives totals", func(t *testing.T) {
		got, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		require.Len(t, got.Items, 2)
		assert.Equal(t, "Widget", got.Items[0].Description)
		assert.Equal(t, "207.00", got.Items[0].Total.StringFixed(2))
		assert.Equal(t, "207.00", got.Totals.Total.StringFixed(2))
		assert.Equal(t, "20.00", got.Totals.Discount.StringFixed(2))
		assert.Equal(t, billing.InvoiceStatusDraft, got.Status)
		assert.Equal(t, 1, got.Version)
	})

	t.Run("by number", func(t *testing.T) {
		got, err := repo.FindByNumber(ctx, "INV-1")
		require.NoError(t, err)
		assert.Equal(t, inv.ID, got.ID)
	})

	t.Run("missing invoice", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("duplicate number", func(t *testing.T) {
		dup, err := billing.NewInvoice("INV-1", "Other", "", valueobject.ZAR, day, day, 0)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Create(ctx, dup), shared.ErrDuplicate)
	})
}

func TestGormInvoiceRepository_SaveWithLock(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormInvoiceRepository(db)

	inv := newSentInvoice(t, "INV-LOCK")
	require.NoError(t, repo.Create(ctx, inv))

	first, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	stale, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)

	_, err = first.ApplyPayment(billing.PaymentInput{Amount: decimal.NewFromInt(400), Method: billing.PaymentMethodEFT, AppliedAt: day})
	require.NoError(t, err)
	require.NoError(t, repo.SaveWithLock(ctx, first))
	assert.Equal(t, 2, first.Version)

	t.Run("stale copy conflicts", func(t *testing.T) {
		_, err := stale.ApplyPayment(billing.PaymentInput{Amount: decimal.NewFromInt(100), Method: billing.PaymentMethodCash, AppliedAt: day})
		require.NoError(t, err)
		assert.ErrorIs(t, repo.SaveWithLock(ctx, stale), shared.ErrConcurrencyConflict)
	})

	t.Run("payments accumulate across saves", func(t *testing.T) {
		fee := decimal.RequireFromString("17.40")
		_, err := first.ApplyPayment(billing.PaymentInput{
			Amount:           decimal.NewFromInt(600),
			Method:           billing.PaymentMethodGateway,
			GatewayReference: "INV-LOCK-abc",
			GatewayFee:       &fee,
			AppliedAt:        day,
		})
		require.NoError(t, err)
		require.NoError(t, repo.SaveWithLock(ctx, first))

		got, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		require.Len(t, got.Payments, 2)
		assert.Equal(t, billing.InvoiceStatusPaid, got.Status)
		assert.True(t, got.BalanceDue.IsZero())
		assert.Equal(t, "1000.00", got.AmountPaid.StringFixed(2))
		assert.True(t, got.HasGatewayReference("INV-LOCK-abc"))
		p, _ := got.PaymentByReference("INV-LOCK-abc")
		assert.True(t, p.GatewayFee.Valid)
		assert.Equal(t, "17.40", p.GatewayFee.Decimal.StringFixed(2))
		assert.Equal(t, 3, got.Version)
	})

	t.Run("gateway reference is unique per invoice", func(t *testing.T) {
		ref := "INV-LOCK-abc"
		err := db.Create(&models.PaymentModel{
			ID:               uuid.New(),
			InvoiceID:        inv.ID,
			Amount:           decimal.NewFromInt(1),
			Method:           string(billing.PaymentMethodGateway),
			GatewayReference: &ref,
			AppliedAt:        day,
		}).Error
		require.Error(t, err)
		assert.True(t, isUniqueViolation(err))
	})
}

func TestGormInvoiceRepository_ItemSync(t *testing.T) {
	ctx := context.Background()
	repo := NewGormInvoiceRepository(newTestDB(t))

	inv, err := billing.NewInvoice("INV-ITEMS", "Acme", "", valueobject.ZAR, day, day, 0)
	require.NoError(t, err)
	a, _ := inv.AddItem(costing.RawLine{Description: "A", Quantity: 1, UnitPrice: 10})
	aID := a.ID
	_, _ = inv.AddItem(costing.RawLine{Description: "B", Quantity: 1, UnitPrice: 20})
	require.NoError(t, repo.Create(ctx, inv))

	loaded, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	require.NoError(t, loaded.RemoveItem(aID))
	_, err = loaded.UpdateItem(loaded.Items[0].ID, costing.RawLine{Description: "B", Quantity: 3, UnitPrice: 20})
	require.NoError(t, err)
	_, err = loaded.AddItem(costing.RawLine{Description: "C", Quantity: 1, UnitPrice: 5})
	require.NoError(t, err)
	require.NoError(t, repo.SaveWithLock(ctx, loaded))

	got, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "B", got.Items[0].Description)
	assert.Equal(t, 1, got.Items[0].Position)
	assert.Equal(t, "65.00", got.Totals.Total.StringFixed(2))
}

func TestGormInvoiceRepository_FindAll(t *testing.T) {
	ctx := context.Background()
	repo := NewGormInvoiceRepository(newTestDB(t))

	for _, n := range []string{"INV-A", "INV-B", "INV-C"} {
		require.NoError(t, repo.Create(ctx, newSentInvoice(t, n)))
	}
	draft, err := billing.NewInvoice("INV-D", "Zulu Traders", "", valueobject.ZAR, day, day, 0)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, draft))

	t.Run("filters by status", func(t *testing.T) {
		f := shared.DefaultFilter()
		f.Filters["status"] = "sent"
		items, total, err := repo.FindAll(ctx, f)
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Len(t, items, 3)
		assert.Equal(t, "1000.00", items[0].Totals.Total.StringFixed(2))
	})

	t.Run("filters by customer", func(t *testing.T) {
		f := shared.DefaultFilter()
		f.Filters["customer"] = "zulu"
		items, total, err := repo.FindAll(ctx, f)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Equal(t, "INV-D", items[0].InvoiceNumber)
	})

	t.Run("paginates", func(t *testing.T) {
		f := shared.DefaultFilter()
		f.PageSize = 3
		f.Page = 2
		f.OrderBy = "invoice_number"
		f.OrderDir = "asc"
		items, total, err := repo.FindAll(ctx, f)
		require.NoError(t, err)
		assert.EqualValues(t, 4, total)
		require.Len(t, items, 1)
		assert.Equal(t, "INV-D", items[0].InvoiceNumber)
	})
}

func TestGormInvoiceRepository_FindOverdueCandidates(t *testing.T) {
	ctx := context.Background()
	repo := NewGormInvoiceRepository(newTestDB(t))

	due := newSentInvoice(t, "INV-DUE")
	require.NoError(t, repo.Create(ctx, due))

	partial := newSentInvoice(t, "INV-PART")
	_, err := partial.ApplyPayment(billing.PaymentInput{Amount: decimal.NewFromInt(1), Method: billing.PaymentMethodCash, AppliedAt: day})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, partial))

	ids, err := repo.FindOverdueCandidates(ctx, day.AddDate(0, 2, 0), 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{due.ID}, ids)

	ids, err = repo.FindOverdueCandidates(ctx, day, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestGormInvoiceRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewGormInvoiceRepository(newTestDB(t))

	inv := newSentInvoice(t, "INV-DEL")
	require.NoError(t, repo.Create(ctx, inv))
	require.NoError(t, repo.Delete(ctx, inv.ID))

	_, err := repo.FindByID(ctx, inv.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, inv.ID), shared.ErrNotFound)
}

func TestGormInvoiceRepository_SaveWithLock_SQL(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormInvoiceRepository(db)
	inv := newSentInvoice(t, "INV-SQL")

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "invoices" SET .* WHERE id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SaveWithLock(context.Background(), inv)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.Equal(t, 1, inv.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateError(t *testing.T) {
	assert.Nil(t, translateError(nil, "op"))
	assert.ErrorIs(t, translateError(gorm.ErrRecordNotFound, "op"), shared.ErrNotFound)
	assert.ErrorIs(t, translateError(gorm.ErrDuplicatedKey, "op"), shared.ErrDuplicate)
	assert.ErrorIs(t, translateError(&pq.Error{Code: "23505"}, "op"), shared.ErrDuplicate)
	assert.ErrorIs(t, translateError(shared.ErrConcurrencyConflict, "op"), shared.ErrConcurrencyConflict)

	err := translateError(assert.AnError, "load invoice")
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "load invoice")
}

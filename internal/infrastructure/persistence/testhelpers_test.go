package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/bizdocs/backend/internal/domain/billing"
	"github.com/bizdocs/backend/internal/domain/costing"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
	"github.com/bizdocs/backend/internal/infrastructure/config"
)

// newTestDB opens a private in-memory sqlite database with the schema created.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
	db, err := NewDatabase(context.Background(), cfg, WithAutoMigrate())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

// newMockDB returns a gorm postgres connection backed by sqlmock.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true, TranslateError: true})
	require.NoError(t, err)
	return gormDB, mock, mockDB
}

var day = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// newSentInvoice builds an invoice totalling 1000.00 and sends it.
func newSentInvoice(t *testing.T, number string) *billing.Invoice {
	t.Helper()
	inv, err := billing.NewInvoice(number, "Acme Stores", "billing@acme.test", valueobject.ZAR, day, day.AddDate(0, 0, 30), 30)
	require.NoError(t, err)
	_, err = inv.AddItem(costing.RawLine{Description: "Shelving", Quantity: 4, UnitPrice: "250"})
	require.NoError(t, err)
	require.NoError(t, inv.Send(day))
	return inv
}

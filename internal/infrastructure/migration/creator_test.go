package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add payments table", "add_payments_table"},
		{"Add-Payments-Table", "add_payments_table"},
		{"ADD_PAYMENTS_TABLE", "add_payments_table"},
		{"add__payments__table", "add_payments_table"},
		{"Add Index 123", "add_index_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	mf, err := CreateMigration(dir, "add payment notes", "Add a notes column to payments")
	require.NoError(t, err)
	assert.Equal(t, uint(1), mf.Version)
	assert.Equal(t, "000001_add_payment_notes.up.sql", filepath.Base(mf.UpPath))
	assert.Equal(t, "000001_add_payment_notes.down.sql", filepath.Base(mf.DownPath))

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add payment notes")
	assert.Contains(t, string(up), "Add a notes column to payments")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")
}

func TestCreateMigration_NumbersAfterHighest(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"000001_a.up.sql", "000001_a.down.sql", "000007_b.up.sql", "000007_b.down.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("--"), 0o644))
	}

	mf, err := CreateMigration(dir, "next", "")
	require.NoError(t, err)
	assert.Equal(t, uint(8), mf.Version)
	assert.True(t, strings.HasPrefix(filepath.Base(mf.UpPath), "000008_next"))
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := CreateMigration(nested, "init", "")
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"000002_add_orders.up.sql",
		"000002_add_orders.down.sql",
		"000001_init_schema.up.sql",
		"000001_init_schema.down.sql",
		"000003_no_down.up.sql",
		"README.md",
		"notes.up.sql",
	}
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("--"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "000009_dir.up.sql"), 0o755))

	migrations, err := ListMigrations(os.DirFS(dir), ".")
	require.NoError(t, err)
	assert.Equal(t, []Migration{
		{Version: 1, Name: "000001_init_schema", HasDown: true},
		{Version: 2, Name: "000002_add_orders", HasDown: true},
		{Version: 3, Name: "000003_no_down", HasDown: false},
	}, migrations)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	migrations, err := ListMigrations(os.DirFS(t.TempDir()), "missing")
	require.NoError(t, err)
	assert.Empty(t, migrations)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	migrations, err := ListMigrations(Embedded(), EmbeddedDir)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.Equal(t, uint(i+1), m.Version, "versions are contiguous")
		assert.True(t, m.HasDown, "%s has a down migration", m.Name)
	}
}

func TestEmbeddedSchemaEnforcesGatewayReference(t *testing.T) {
	data, err := Embedded().ReadFile(EmbeddedDir + "/000001_create_invoices.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "idx_payments_invoice_reference")
	assert.Contains(t, string(data), "WHERE gateway_reference IS NOT NULL")
}

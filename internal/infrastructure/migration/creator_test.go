package migration

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add settlements table", "add_settlements_table"},
		{"Add-Journal-Index", "add_journal_index"},
		{"ADD_LOT_COLUMNS", "add_lot_columns"},
		{"add__outbox__index", "add_outbox_index"},
		{"Bank Accounts 2", "bank_accounts_2"},
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
	at := time.Date(2024, 7, 1, 9, 30, 15, 0, time.UTC)

	mf, err := createMigrationAt(dir, "add settlement index", "Index settlements by bank account", at)
	require.NoError(t, err)

	assert.Equal(t, "20240701093015", mf.Version)
	assert.Equal(t, filepath.Join(dir, "20240701093015_add_settlement_index.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "20240701093015_add_settlement_index.down.sql"), mf.DownPath)

	upContent, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(upContent), "add settlement index")
	assert.Contains(t, string(upContent), "Index settlements by bank account")
	assert.Contains(t, string(upContent), "2024-07-01T09:30:15Z")

	downContent, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(downContent), "Rollback")
}

func TestCreateMigration_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2024, 7, 1, 9, 30, 15, 0, time.UTC)

	_, err := createMigrationAt(dir, "dup", "first", at)
	require.NoError(t, err)

	_, err = createMigrationAt(dir, "dup", "second", at)
	require.Error(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "20240701093015_dup.up.sql"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "first")
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "nothing usable")
	require.Error(t, err)
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(nested, "test", "test migration")
	require.NoError(t, err)
	assert.Len(t, mf.Version, 14)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000003_add_products.up.sql":   {Data: []byte("--")},
		"m/000003_add_products.down.sql": {Data: []byte("--")},
		"m/000001_init_schema.up.sql":    {Data: []byte("--")},
		"m/000001_init_schema.down.sql":  {Data: []byte("--")},
		"m/000002_add_lots.up.sql":       {Data: []byte("--")},
		"m/README.md":                    {Data: []byte("docs")},
		"m/subdir.up.sql/keep":           {Data: []byte("")},
	}

	migrations, err := ListMigrations(fsys, "m")
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init_schema", "000002_add_lots", "000003_add_products"}, migrations)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	migrations, err := ListMigrations(os.DirFS(t.TempDir()), "missing")
	require.NoError(t, err)
	assert.Empty(t, migrations)
}

func TestEmbeddedSchema(t *testing.T) {
	migrations, err := ListMigrations(Embedded(), EmbeddedDir)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for _, name := range migrations {
		up, err := fs.ReadFile(Embedded(), EmbeddedDir+"/"+name+".up.sql")
		require.NoError(t, err)
		down, err := fs.ReadFile(Embedded(), EmbeddedDir+"/"+name+".down.sql")
		require.NoError(t, err, "missing rollback for %s", name)
		assert.NotEmpty(t, strings.TrimSpace(string(up)))
		assert.NotEmpty(t, strings.TrimSpace(string(down)))
	}

	schema, err := embedded.ReadFile(EmbeddedDir + "/20240601000000_ledger_schema.up.sql")
	require.NoError(t, err)
	for _, table := range []string{
		"ledger_documents", "ledger_journals", "ledger_journal_lines", "ledger_settlements",
		"ledger_bank_accounts", "inventory_lots", "inventory_history", "ledger_outbox",
	} {
		assert.Contains(t, string(schema), "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}

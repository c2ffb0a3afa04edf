package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestValidateDirShippedMigrations(t *testing.T) {
	versions, err := ValidateDir("migrations")
	require.NoError(t, err)
	assert.Len(t, versions, 4)
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	_, err := ValidateDir(dir)
	assert.ErrorContains(t, err, "invalid migration filename")

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_x.sql"), []byte("-- +goose Up\nSELECT 1;\n"), 0o644))
	_, err = ValidateDir(dir)
	assert.ErrorContains(t, err, "missing \"-- +goose Down\"")
}

func TestSchemaMigrationsCarryConstraints(t *testing.T) {
	checks := map[string][]string{
		"*_create_products_table.sql": {
			"CREATE TABLE IF NOT EXISTS products",
			"CHECK (price > 0)",
			"CHECK (inventory_count >= 0)",
		},
		"*_create_cart_items_table.sql": {
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_items_user_product ON cart_items (user_id, product_id)",
			"REFERENCES products(id) ON DELETE CASCADE",
			"CHECK (quantity > 0)",
		},
		"*_create_orders_tables.sql": {
			"REFERENCES orders(id) ON DELETE CASCADE",
			"CHECK (status IN ('pending', 'processing', 'completed', 'failed', 'cancelled'))",
			"DROP TABLE IF EXISTS order_items",
		},
		"*_create_users_table.sql": {
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username",
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email",
		},
	}
	for pattern, subs := range checks {
		matches, err := filepath.Glob(filepath.Join("migrations", pattern))
		require.NoError(t, err)
		require.Len(t, matches, 1, pattern)

		data, err := os.ReadFile(matches[0])
		require.NoError(t, err)
		for _, sub := range subs {
			assert.Contains(t, string(data), sub, pattern)
		}
	}
}

func TestRunAppliesAndRollsBackOnSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared&_foreign_keys=on"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	require.NoError(t, Run(ctx, sqlDB, "sqlite3", "migrations", "up"))

	for _, table := range []string{"users", "products", "cart_items", "orders", "order_items"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}

	_, err = sqlDB.Exec(`INSERT INTO products (id, name, price, inventory_count) VALUES ('p1', 'Widget', 0, 1)`)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "CHECK constraint failed"))

	require.NoError(t, MigrateToVersion(ctx, sqlDB, "sqlite3", "migrations", "20260101090100"))
	assert.False(t, conn.Migrator().HasTable("orders"))
	assert.True(t, conn.Migrator().HasTable("products"))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Order Notes!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_order_notes.sql"))

	versions, err := ValidateDir(dir)
	require.NoError(t, err)
	assert.Len(t, versions, 1)

	_, err = CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
}

func TestCreateSQLMigrationSortsAfterNewestFile(t *testing.T) {
	dir := t.TempDir()
	future := "29991231235959_later.sql"
	require.NoError(t, os.WriteFile(filepath.Join(dir, future), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	path, err := CreateSQLMigration(dir, "add  order--notes")
	require.NoError(t, err)
	assert.Equal(t, "29991231235960_add_order_notes.sql", filepath.Base(path))
}

func TestDialect(t *testing.T) {
	assert.Equal(t, "sqlite3", Dialect(config.DBConfig{Driver: "sqlite"}))
	assert.Equal(t, "postgres", Dialect(config.DBConfig{Driver: "postgres"}))
}

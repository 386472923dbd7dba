// Package sqlitetest opens isolated in-memory databases carrying the full
// storefront schema for repository and service tests.
package sqlitetest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Open returns a fresh database unique to the test. It holds a single
// connection, so statements never interleave.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	return open(t, dsn, 1)
}

// OpenPool returns a file-backed database with conns open connections for
// tests that need statements from different goroutines to race. WAL lets
// readers proceed during a write and immediate transactions queue on the
// busy timeout instead of failing.
func OpenPool(t *testing.T, conns int) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storefront.db")
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate", path)
	return open(t, dsn, conns)
}

func open(t *testing.T, dsn string, conns int) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                db.NowUTC,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	sqlDB.SetMaxIdleConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.EnsureSQLiteSchema(context.Background(), conn))
	return conn
}

// Client wraps Open in a db.Client.
func Client(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.Wrap(conn), conn
}

// PoolClient wraps OpenPool in a db.Client.
func PoolClient(t *testing.T, conns int) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := OpenPool(t, conns)
	return db.Wrap(conn), conn
}

// SeedVariant inserts a catalog variant priced in rupees.
func SeedVariant(t *testing.T, conn *gorm.DB, sku string, price string, mrp string) models.ProductVariant {
	t.Helper()
	variant := models.ProductVariant{
		SKU:        sku,
		Price:      decimal.RequireFromString(price),
		Attributes: map[string]any{"size": "M"},
		StockQty:   10,
	}
	if mrp != "" {
		m := decimal.RequireFromString(mrp)
		variant.MRP = &m
	}
	require.NoError(t, conn.Create(&variant).Error)
	return variant
}

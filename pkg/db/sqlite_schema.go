package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// sqliteSchema mirrors the goose migrations for the embedded sqlite driver,
// which cannot run the Postgres-specific DDL. Money columns are TEXT so
// decimals round-trip exactly.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL UNIQUE,
  price TEXT NOT NULL,
  mrp TEXT,
  attributes TEXT,
  stock_qty INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT UNIQUE,
  session_id TEXT UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL REFERENCES carts (id) ON DELETE CASCADE,
  product_variant_id TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  price_snapshot TEXT NOT NULL,
  mrp_snapshot TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, product_variant_id)
)`,
	`CREATE TABLE IF NOT EXISTS addresses (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  full_name TEXT NOT NULL,
  line1 TEXT NOT NULL,
  line2 TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL,
  state TEXT NOT NULL,
  postal_code TEXT NOT NULL,
  country TEXT NOT NULL DEFAULT 'IN',
  phone TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  cart_id TEXT,
  status TEXT NOT NULL,
  subtotal TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'INR',
  shipping_address_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_variant_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  price_snapshot TEXT NOT NULL,
  mrp_snapshot TEXT,
  created_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  gateway TEXT NOT NULL DEFAULT 'razorpay',
  amount TEXT NOT NULL,
  currency TEXT NOT NULL,
  status TEXT NOT NULL,
  razorpay_order_id TEXT NOT NULL UNIQUE,
  razorpay_payment_id TEXT,
  razorpay_signature TEXT,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS webhook_events (
  id TEXT PRIMARY KEY,
  gateway TEXT NOT NULL,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  razorpay_order_id TEXT,
  razorpay_payment_id TEXT,
  outcome TEXT NOT NULL,
  payload TEXT NOT NULL,
  received_at DATETIME,
  UNIQUE (gateway, event_id)
)`,
	`CREATE TABLE IF NOT EXISTS shipments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  carrier TEXT NOT NULL,
  tracking_number TEXT NOT NULL,
  status TEXT NOT NULL,
  estimated_delivery_date DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS tracking_events (
  id TEXT PRIMARY KEY,
  shipment_id TEXT NOT NULL,
  status TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  occurred_at DATETIME NOT NULL,
  created_at DATETIME
)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
)`,
	`CREATE TABLE IF NOT EXISTS outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL UNIQUE,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
)`,
}

// EnsureSQLiteSchema creates every table on a sqlite connection.
func EnsureSQLiteSchema(ctx context.Context, conn *gorm.DB) error {
	for _, stmt := range sqliteSchema {
		if err := conn.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("sqlite schema: %w", err)
		}
	}
	return nil
}

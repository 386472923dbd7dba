package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCartMigrationEnforcesLineUniqueness(t *testing.T) {
	assertContains(t, readMigration(t, "create_carts"), []string{
		"CREATE TABLE IF NOT EXISTS carts",
		"CREATE TABLE IF NOT EXISTS cart_items",
		"CHECK (quantity > 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_carts_user_id",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_carts_session_id",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_items_cart_variant ON cart_items (cart_id, product_variant_id)",
	})
}

func TestOrderMigrationContainsSchemas(t *testing.T) {
	assertContains(t, readMigration(t, "create_orders"), []string{
		"CREATE TABLE IF NOT EXISTS addresses",
		"country varchar(2) NOT NULL DEFAULT 'IN'",
		"CREATE TABLE IF NOT EXISTS orders",
		"CHECK (status IN ('PENDING_PAYMENT', 'PAID', 'CANCELLED'))",
		"CREATE TABLE IF NOT EXISTS order_items",
	})
}

func TestPaymentMigrationIndexesRemoteOrder(t *testing.T) {
	assertContains(t, readMigration(t, "create_payments"), []string{
		"CREATE TABLE IF NOT EXISTS payments",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_payments_razorpay_order_id",
		"CREATE TABLE IF NOT EXISTS webhook_events",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_webhook_events_gateway_event",
	})
}

func TestShipmentMigrationOnePerOrder(t *testing.T) {
	assertContains(t, readMigration(t, "create_shipments"), []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_shipments_order_id ON shipments (order_id)",
		"CREATE TABLE IF NOT EXISTS tracking_events",
		"occurred_at timestamptz NOT NULL",
	})
}

func TestOutboxMigrationContainsDLQ(t *testing.T) {
	assertContains(t, readMigration(t, "create_outbox"), []string{
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
		"WHERE published_at IS NULL",
	})
}

func TestMigrationDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

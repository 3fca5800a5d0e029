package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/courierloop/courierloop-backend/pkg/migrate"
)

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_orders_table.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no orders migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"FOREIGN KEY (customer_id) REFERENCES users(id) ON DELETE CASCADE",
		"FOREIGN KEY (route_id) REFERENCES driver_routes(id) ON DELETE SET NULL",
		"CHECK (status IN ('pending', 'assigned', 'picked_up', 'in_transit', 'delivered', 'cancelled', 'failed'))",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_reference",
		"CREATE INDEX IF NOT EXISTS idx_orders_driver_status",
		"DROP TABLE IF EXISTS orders",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestDriverRoutesMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_driver_routes_table.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no driver routes migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS driver_routes",
		"waypoints JSONB NOT NULL DEFAULT '[]'::jsonb",
		"CHECK (refresh_count >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_driver_routes_driver",
		"DROP TABLE IF EXISTS driver_routes",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

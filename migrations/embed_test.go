package migrations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nerrad567/gohome/internal/infrastructure/config"
	"github.com/nerrad567/gohome/internal/infrastructure/database"
)

func TestSource_AppliesCleanly(t *testing.T) {
	db, err := database.Open(context.Background(), config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "gohome.db"), BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx := context.Background()
	if err := db.Migrate(ctx, Source()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	for _, table := range []string{"devices", "settings"} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	// Every migration must roll back.
	for range 2 {
		if err := db.MigrateDown(ctx, Source()); err != nil {
			t.Fatalf("MigrateDown() error = %v", err)
		}
	}
}

package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer db.Close()

	if err := Migrate(ctx, db, SQLite); err != nil {
		t.Fatalf("first Migrate: %v", err)
	}
	if err := Migrate(ctx, db, SQLite); err != nil {
		t.Fatalf("second Migrate should be a no-op: %v", err)
	}

	for _, table := range []string{"users", "refresh_tokens", "spaces", "reservations"} {
		var name string
		err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestFormatTime(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	got := FormatTime(time.Date(2026, 3, 2, 10, 30, 0, 0, loc))
	if got != "2026-03-02 08:30:00" {
		t.Fatalf("FormatTime = %q", got)
	}
}

package storage

import (
	"path/filepath"
	"testing"
)

func TestOpenSQLite_CreatesDirAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "robo.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS t (id INTEGER PRIMARY KEY, v TEXT)`,
		`CREATE INDEX IF NOT EXISTS idx_t_v ON t(v)`,
	}
	for i := 0; i < 2; i++ {
		if err := Migrate(db, stmts); err != nil {
			t.Fatalf("migrate pass %d: %v", i, err)
		}
	}
	if err := Migrate(db, []string{`NOT SQL AT ALL`}); err == nil {
		t.Error("expected error for invalid statement")
	}
}

package params

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"RoboInvestor/internal/storage"
)

// Store is a namespaced string key-value store for parameters.
// Names are full paths such as "/robo-investor/investment_aggression".
type Store interface {
	// GetByPath returns every parameter under prefix keyed by its name with the prefix removed.
	GetByPath(ctx context.Context, prefix string) (map[string]string, error)
	Put(ctx context.Context, name, value string) error
}

// SQLiteStore keeps parameters in the "parameters" table. When a Sealer is
// set every value is written encrypted and flagged secure.
type SQLiteStore struct {
	db     *sql.DB
	sealer *Sealer
}

// NewSQLiteStore migrates the parameters table. sealer may be nil.
func NewSQLiteStore(db *sql.DB, sealer *Sealer) (*SQLiteStore, error) {
	err := storage.Migrate(db, []string{
		`CREATE TABLE IF NOT EXISTS parameters (
			name       TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			secure     INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		)`,
	})
	if err != nil {
		return nil, fmt.Errorf("migrate parameters: %w", err)
	}
	return &SQLiteStore{db: db, sealer: sealer}, nil
}

func (s *SQLiteStore) GetByPath(ctx context.Context, prefix string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, value, secure FROM parameters WHERE substr(name, 1, length(?)) = ?`, prefix, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, value string
		var secure bool
		if err := rows.Scan(&name, &value, &secure); err != nil {
			return nil, err
		}
		if secure {
			if s.sealer == nil {
				return nil, fmt.Errorf("%s is encrypted and no passphrase is configured", name)
			}
			if value, err = s.sealer.Open(value); err != nil {
				return nil, fmt.Errorf("decrypt %s: %w", name, err)
			}
		}
		rel := strings.TrimPrefix(name, prefix)
		if rel == "" || strings.Contains(rel, "/") {
			continue
		}
		out[rel] = value
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Put(ctx context.Context, name, value string) error {
	secure := false
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(value)
		if err != nil {
			return fmt.Errorf("encrypt %s: %w", name, err)
		}
		value, secure = sealed, true
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO parameters (name, value, secure, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value, secure = excluded.secure, updated_at = excluded.updated_at`,
		name, value, secure, time.Now().Unix())
	return err
}

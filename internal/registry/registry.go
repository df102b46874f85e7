package registry

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"RoboInvestor/internal/model"
	"RoboInvestor/internal/storage"
)

// Store is the instrument registry. Registry and DynamoRegistry implement it.
type Store interface {
	List(ctx context.Context) ([]model.Instrument, error)
	Put(ctx context.Context, instruments ...model.Instrument) error
}

// Registry stores the instruments to evaluate in the "stocks" table.
// List returns them in the order they were first added.
type Registry struct {
	db *sql.DB
}

// New migrates the stocks table.
func New(db *sql.DB) (*Registry, error) {
	err := storage.Migrate(db, []string{
		`CREATE TABLE IF NOT EXISTS stocks (
			ticker    TEXT PRIMARY KEY,
			threshold REAL NOT NULL,
			seq       INTEGER NOT NULL
		)`,
	})
	if err != nil {
		return nil, fmt.Errorf("migrate stocks: %w", err)
	}
	return &Registry{db: db}, nil
}

// List returns all instruments in configured order.
func (r *Registry) List(ctx context.Context) ([]model.Instrument, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT ticker, threshold FROM stocks ORDER BY seq, ticker`)
	if err != nil {
		return nil, fmt.Errorf("list stocks: %w", err)
	}
	defer rows.Close()

	var out []model.Instrument
	for rows.Next() {
		var in model.Instrument
		if err := rows.Scan(&in.Ticker, &in.Threshold); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// Put adds instruments or updates the threshold of existing ones.
// Updating keeps an instrument's position in the order.
func (r *Registry) Put(ctx context.Context, instruments ...model.Instrument) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, in := range instruments {
		if in.Ticker == "" {
			return fmt.Errorf("empty ticker")
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO stocks (ticker, threshold, seq)
			 VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM stocks))
			 ON CONFLICT(ticker) DO UPDATE SET threshold = excluded.threshold`,
			in.Ticker, in.Threshold)
		if err != nil {
			return fmt.Errorf("put %s: %w", in.Ticker, err)
		}
	}
	return tx.Commit()
}

// ParseInstrument parses "TICKER:THRESHOLD", e.g. "AAPL:180.5".
func ParseInstrument(s string) (model.Instrument, error) {
	ticker, threshold, ok := strings.Cut(s, ":")
	ticker = strings.TrimSpace(ticker)
	if !ok || ticker == "" {
		return model.Instrument{}, fmt.Errorf("instrument %q: want TICKER:THRESHOLD", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(threshold), 64)
	if err != nil {
		return model.Instrument{}, fmt.Errorf("instrument %q: threshold: %w", s, err)
	}
	return model.Instrument{Ticker: ticker, Threshold: v}, nil
}

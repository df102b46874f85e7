package recorder

import (
	"database/sql"
	"fmt"
	"sync"

	"RoboInvestor/internal/model"
	"RoboInvestor/internal/storage"
)

// SQLiteRecorder writes every run and its per-instrument decisions to SQLite.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder runs migrations on db. The caller owns db.
func NewSQLiteRecorder(db *sql.DB) (*SQLiteRecorder, error) {
	err := storage.Migrate(db, []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id                        TEXT PRIMARY KEY,
			timestamp                 INTEGER NOT NULL,
			account_balance           REAL,
			target_account_balance    REAL,
			investment_aggression     REAL,
			percentage_fall_threshold REAL,
			threshold_data_age_sec    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS decisions (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL REFERENCES runs(id),
			ticker         TEXT NOT NULL,
			threshold      REAL,
			current_price  TEXT,
			previous_price TEXT,
			percent_change TEXT,
			action         TEXT,
			dollars        REAL,
			shares         INTEGER,
			error          TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_run ON decisions(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_ticker ON decisions(ticker)`,
	})
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteRecorder{db: db}, nil
}

func (r *SQLiteRecorder) RecordRun(run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	p := run.Parameters
	if _, err := tx.Exec(`INSERT INTO runs
		(id, timestamp, account_balance, target_account_balance, investment_aggression,
		 percentage_fall_threshold, threshold_data_age_sec)
		VALUES (?,?,?,?,?,?,?)`,
		run.ID, run.StartedAt.Unix(), run.AccountBalance, p.TargetAccountBalance,
		p.InvestmentAggression, p.PercentageFallThreshold, int64(p.ThresholdDataAge.Seconds()),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, res := range run.Results {
		var (
			cur, prev, pct, action, errMsg sql.NullString
			dollars                        sql.NullFloat64
			shares                         sql.NullInt64
		)
		if res.Err != nil {
			errMsg = sql.NullString{String: res.Err.Error(), Valid: true}
		}
		if d := res.Decision; d != nil {
			cur = sql.NullString{String: d.CurrentPrice.String(), Valid: true}
			prev = sql.NullString{String: d.PreviousPrice.String(), Valid: true}
			pct = sql.NullString{String: d.PercentChange.String(), Valid: true}
			action = sql.NullString{String: string(d.Recommendation.Action), Valid: true}
			if d.Recommendation.Action == model.ActionBuy {
				dollars = sql.NullFloat64{Float64: d.Recommendation.Dollars, Valid: true}
				shares = sql.NullInt64{Int64: d.Recommendation.Shares, Valid: true}
			}
		}
		if _, err := tx.Exec(`INSERT INTO decisions
			(run_id, ticker, threshold, current_price, previous_price, percent_change,
			 action, dollars, shares, error)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			run.ID, res.Instrument.Ticker, res.Instrument.Threshold, cur, prev, pct,
			action, dollars, shares, errMsg,
		); err != nil {
			return fmt.Errorf("insert decision %s: %w", res.Instrument.Ticker, err)
		}
	}
	return tx.Commit()
}

// Close is a no-op; the database is shared and closed by its owner.
func (r *SQLiteRecorder) Close() error { return nil }

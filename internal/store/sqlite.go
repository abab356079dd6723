package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"quantpak/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ BarStore = (*SQLiteStore)(nil)
var _ SignalStore = (*SQLiteStore)(nil)

// SQLiteStore implements BarStore and SignalStore backed by a SQLite
// database. It suits smaller universes where a single queryable file beats a
// directory tree of Parquet files.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns
// a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating sqlite schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS bars (
	symbol    TEXT    NOT NULL,
	timestamp INTEGER NOT NULL,
	open      REAL    NOT NULL,
	high      REAL    NOT NULL,
	low       REAL    NOT NULL,
	close     REAL    NOT NULL,
	volume    INTEGER NOT NULL,
	PRIMARY KEY (symbol, timestamp)
);
CREATE TABLE IF NOT EXISTS signals (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	strategy      TEXT    NOT NULL,
	symbol        TEXT    NOT NULL,
	timestamp     INTEGER NOT NULL,
	kind          TEXT    NOT NULL,
	quantity      REAL    NOT NULL,
	target_weight REAL
);
CREATE INDEX IF NOT EXISTS idx_signals_strategy ON signals (strategy, id);
`)
	return err
}

// ---------------------------------------------------------------------------
// BarStore implementation
// ---------------------------------------------------------------------------

// WriteBars upserts a batch of bars in one transaction.
func (s *SQLiteStore) WriteBars(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO bars (symbol, timestamp, open, high, low, close, volume)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx,
			b.Symbol, b.Timestamp.UnixMilli(), b.Open, b.High, b.Low, b.Close, b.Volume,
		); err != nil {
			return fmt.Errorf("inserting bar %s@%s: %w", b.Symbol, b.Timestamp, err)
		}
	}
	return tx.Commit()
}

// ReadBars returns bars for the symbol within [start, end], ordered by
// timestamp.
func (s *SQLiteStore) ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT symbol, timestamp, open, high, low, close, volume
FROM bars
WHERE symbol = ? AND timestamp BETWEEN ? AND ?
ORDER BY timestamp`,
		symbol, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		var ms int64
		if err := rows.Scan(&b.Symbol, &ms, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, err
		}
		b.Timestamp = time.UnixMilli(ms).UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ListSymbols returns all distinct symbols with bar data, sorted.
func (s *SQLiteStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM bars ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// ---------------------------------------------------------------------------
// SignalStore implementation
// ---------------------------------------------------------------------------

// SaveSignal appends a signal emitted by the named strategy.
func (s *SQLiteStore) SaveSignal(ctx context.Context, strategyName string, sig domain.Signal) error {
	var weight sql.NullFloat64
	if sig.TargetWeight != nil {
		weight = sql.NullFloat64{Float64: *sig.TargetWeight, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO signals (strategy, symbol, timestamp, kind, quantity, target_weight)
VALUES (?, ?, ?, ?, ?, ?)`,
		strategyName, sig.Symbol, sig.Timestamp.UnixMilli(), string(sig.Kind), sig.Quantity, weight)
	return err
}

// ListSignals returns up to limit of the strategy's most recent signals,
// newest first.
func (s *SQLiteStore) ListSignals(ctx context.Context, strategyName string, limit int) ([]domain.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT symbol, timestamp, kind, quantity, target_weight
FROM signals
WHERE strategy = ?
ORDER BY id DESC
LIMIT ?`,
		strategyName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []domain.Signal
	for rows.Next() {
		var sig domain.Signal
		var ms int64
		var kind string
		var weight sql.NullFloat64
		if err := rows.Scan(&sig.Symbol, &ms, &kind, &sig.Quantity, &weight); err != nil {
			return nil, err
		}
		sig.Timestamp = time.UnixMilli(ms).UTC()
		sig.Kind = domain.SignalKind(kind)
		if weight.Valid {
			w := weight.Float64
			sig.TargetWeight = &w
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

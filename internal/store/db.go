package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a wallet has no stored row.
var ErrNotFound = errors.New("not found")

// DB persists the watchlist, analysis history and already-alerted signals.
type DB struct {
	db *sql.DB
}

// WatchEntry is a row of the watchlist table.
type WatchEntry struct {
	Address string
	Label   string
	AddedAt time.Time
}

// AnalysisRecord is one persisted pipeline run.
type AnalysisRecord struct {
	ID           int64
	Address      string
	AnalyzedAt   time.Time
	StrategyType StrategyType
	Confidence   float64
	AlphaScore   float64
	WinRate      float64
	TradeCount   int
	UsableCount  int
	TotalPnL     float64
	ReportJSON   string
}

// Open opens (or creates) the SQLite database at path and migrates the schema.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating db dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	// WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration: %w", err)
	}
	if err := addColumns(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration: %w", err)
	}

	return &DB{db: db}, nil
}

func addColumns(db *sql.DB) error {
	for _, c := range addedColumns {
		var n int
		if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, c.table, c.column).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		if _, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.column, c.decl)); err != nil {
			return fmt.Errorf("adding %s.%s: %w", c.table, c.column, err)
		}
		if c.backfill != "" {
			if _, err := db.Exec(c.backfill); err != nil {
				return fmt.Errorf("backfilling %s.%s: %w", c.table, c.column, err)
			}
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *DB) Close() error {
	return s.db.Close()
}

// AddWatch inserts or relabels a watched wallet.
func (s *DB) AddWatch(ctx context.Context, address, label string) error {
	address = NormalizeAddress(address)
	if address == "" {
		return fmt.Errorf("empty address")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watchlist (address, label, added_at)
		VALUES (?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET label = excluded.label`,
		address, label, time.Now().UTC(),
	)
	return err
}

// RemoveWatch deletes a wallet from the watchlist.
func (s *DB) RemoveWatch(ctx context.Context, address string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE address = ?`, NormalizeAddress(address))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("wallet %s: %w", address, ErrNotFound)
	}
	return nil
}

// Watchlist returns every watched wallet ordered by insertion time.
func (s *DB) Watchlist(ctx context.Context) ([]WatchEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT address, label, added_at FROM watchlist ORDER BY added_at, address`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []WatchEntry
	for rows.Next() {
		var w WatchEntry
		if err := rows.Scan(&w.Address, &w.Label, &w.AddedAt); err != nil {
			return nil, err
		}
		results = append(results, w)
	}
	return results, rows.Err()
}

// IsWatched reports whether address is on the watchlist.
func (s *DB) IsWatched(ctx context.Context, address string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM watchlist WHERE address = ?`, NormalizeAddress(address)).Scan(&n)
	return n > 0, err
}

// InsertAnalysis appends a pipeline run to the history.
func (s *DB) InsertAnalysis(ctx context.Context, r *AnalysisRecord) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (address, analyzed_at, strategy_type, confidence, alpha_score,
			win_rate, trade_count, usable_count, total_pnl, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		NormalizeAddress(r.Address), r.AnalyzedAt.UTC(), string(r.StrategyType), r.Confidence,
		r.AlphaScore, r.WinRate, r.TradeCount, r.UsableCount, r.TotalPnL, r.ReportJSON,
	)
	if err != nil {
		return err
	}
	r.ID, err = res.LastInsertId()
	return err
}

// LatestAnalysis returns the newest stored run for address.
func (s *DB) LatestAnalysis(ctx context.Context, address string) (*AnalysisRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, address, analyzed_at, strategy_type, confidence, alpha_score,
			win_rate, trade_count, usable_count, total_pnl, report_json
		FROM v_latest_analyses WHERE address = ?`, NormalizeAddress(address))

	r, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis for %s: %w", address, ErrNotFound)
	}
	return r, err
}

// LatestAnalyses returns the newest run of every wallet, strongest alpha first.
func (s *DB) LatestAnalyses(ctx context.Context) ([]AnalysisRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, address, analyzed_at, strategy_type, confidence, alpha_score,
			win_rate, trade_count, usable_count, total_pnl, report_json
		FROM v_latest_analyses ORDER BY alpha_score DESC, address`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []AnalysisRecord
	for rows.Next() {
		r, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

// MarkSignalSeen records a signal for the wallet on the signal's UTC day.
// It returns true when the signal had not been recorded before.
func (s *DB) MarkSignalSeen(ctx context.Context, address string, sig Signal) (bool, error) {
	day := sig.DetectedAt.UTC().Format("2006-01-02")
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO seen_signals (address, signal_type, day, strength, first_seen)
		VALUES (?, ?, ?, ?, ?)`,
		NormalizeAddress(address), string(sig.Type), day, sig.Strength, time.Now().UTC(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*AnalysisRecord, error) {
	var r AnalysisRecord
	var strategy string
	if err := row.Scan(&r.ID, &r.Address, &r.AnalyzedAt, &strategy, &r.Confidence,
		&r.AlphaScore, &r.WinRate, &r.TradeCount, &r.UsableCount, &r.TotalPnL, &r.ReportJSON); err != nil {
		return nil, err
	}
	r.StrategyType = StrategyType(strategy)
	return &r, nil
}

// NormalizeAddress lowercases and trims a wallet address.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

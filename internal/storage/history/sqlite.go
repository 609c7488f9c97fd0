package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/swingsim/internal/backtest"
	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/pipeline"
	"github.com/newthinker/swingsim/internal/signal"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists run history to a SQLite database.
type SQLiteStore struct {
	db         *sql.DB
	maxRecords int
}

// NewSQLiteStore opens (or creates) the database at dsn and runs migrations.
// When maxRecords is positive only the newest maxRecords runs are kept.
func NewSQLiteStore(dsn string, maxRecords int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, core.WrapError(core.ErrStorage, fmt.Errorf("open sqlite: %w", err))
	}
	// one connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrStorage, fmt.Errorf("set WAL mode: %w", err))
	}

	s := &SQLiteStore{db: db, maxRecords: maxRecords}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrStorage, fmt.Errorf("migrate: %w", err))
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id              TEXT PRIMARY KEY,
			pair            TEXT NOT NULL,
			interval_min    INTEGER NOT NULL,
			provider        TEXT,
			started_at      INTEGER NOT NULL,
			duration_ms     INTEGER,
			params          TEXT,
			initial_capital REAL,
			open_position   INTEGER,
			report          TEXT,
			last_event      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_pair ON runs(pair, interval_min)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a record.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return core.Errorf(core.ErrStorage, "record id required")
	}

	params, err := json.Marshal(rec.Params)
	if err != nil {
		return core.WrapError(core.ErrStorage, err)
	}
	report, err := json.Marshal(rec.Report)
	if err != nil {
		return core.WrapError(core.ErrStorage, err)
	}
	var lastEvent []byte
	if rec.LastEvent != nil {
		if lastEvent, err = json.Marshal(rec.LastEvent); err != nil {
			return core.WrapError(core.ErrStorage, err)
		}
	}

	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO runs
		(id, pair, interval_min, provider, started_at, duration_ms, params,
		 initial_capital, open_position, report, last_event)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Pair, rec.Interval, rec.Provider, rec.StartedAt.UnixNano(), rec.DurationMS,
		string(params), rec.InitialCapital, rec.OpenPosition, string(report), nullableText(lastEvent),
	)
	if err != nil {
		return core.WrapError(core.ErrStorage, fmt.Errorf("insert run: %w", err))
	}

	if s.maxRecords > 0 {
		_, err = s.db.ExecContext(ctx, `DELETE FROM runs WHERE id NOT IN
			(SELECT id FROM runs ORDER BY started_at DESC LIMIT ?)`, s.maxRecords)
		if err != nil {
			return core.WrapError(core.ErrStorage, fmt.Errorf("trim runs: %w", err))
		}
	}
	return nil
}

const selectColumns = `SELECT id, pair, interval_min, provider, started_at, duration_ms, params,
	initial_capital, open_position, report, last_event FROM runs`

// Get retrieves a record by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.Errorf(core.ErrNotFound, "run %s", id)
	}
	if err != nil {
		return nil, core.WrapError(core.ErrStorage, err)
	}
	return rec, nil
}

// List returns records matching the filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	where, args := filterClause(filter)
	query := selectColumns + where + ` ORDER BY started_at DESC`
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, core.WrapError(core.ErrStorage, fmt.Errorf("query runs: %w", err))
	}
	defer rows.Close()

	result := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, core.WrapError(core.ErrStorage, err)
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStorage, err)
	}
	return result, nil
}

// Count returns the count of matching records.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := filterClause(filter)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`+where, args...).Scan(&n); err != nil {
		return 0, core.WrapError(core.ErrStorage, fmt.Errorf("count runs: %w", err))
	}
	return n, nil
}

func filterClause(f ListFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Pair != "" {
		conds = append(conds, "pair = ?")
		args = append(args, f.Pair)
	}
	if f.Interval != 0 {
		conds = append(conds, "interval_min = ?")
		args = append(args, f.Interval)
	}
	if !f.From.IsZero() {
		conds = append(conds, "started_at >= ?")
		args = append(args, f.From.UnixNano())
	}
	if !f.To.IsZero() {
		conds = append(conds, "started_at <= ?")
		args = append(args, f.To.UnixNano())
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var (
		rec       Record
		provider  sql.NullString
		startedAt int64
		duration  sql.NullInt64
		params    sql.NullString
		capital   sql.NullFloat64
		open      sql.NullBool
		report    sql.NullString
		lastEvent sql.NullString
	)
	err := sc.Scan(&rec.ID, &rec.Pair, &rec.Interval, &provider, &startedAt, &duration,
		&params, &capital, &open, &report, &lastEvent)
	if err != nil {
		return nil, err
	}

	rec.Provider = provider.String
	rec.StartedAt = time.Unix(0, startedAt).UTC()
	rec.DurationMS = duration.Int64
	rec.InitialCapital = capital.Float64
	rec.OpenPosition = open.Bool

	if params.Valid {
		var p pipeline.DocumentParams
		if err := json.Unmarshal([]byte(params.String), &p); err != nil {
			return nil, fmt.Errorf("decoding params of %s: %w", rec.ID, err)
		}
		rec.Params = p
	}
	if report.Valid {
		var r backtest.Report
		if err := json.Unmarshal([]byte(report.String), &r); err != nil {
			return nil, fmt.Errorf("decoding report of %s: %w", rec.ID, err)
		}
		rec.Report = r
	}
	if lastEvent.Valid {
		var ev signal.Event
		if err := json.Unmarshal([]byte(lastEvent.String), &ev); err != nil {
			return nil, fmt.Errorf("decoding last event of %s: %w", rec.ID, err)
		}
		rec.LastEvent = &ev
	}
	return &rec, nil
}

func nullableText(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

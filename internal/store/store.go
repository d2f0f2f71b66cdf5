// Package store persists runs and window intervals in SQLite.
//
// Timestamps are stored as UTC text (YYYY-MM-DD HH:MM:SS), second precision,
// so the database stays readable with the sqlite3 shell.
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

// TimeLayout is the on-disk timestamp format.
const TimeLayout = "2006-01-02 15:04:05"

// Run end reasons.
const (
	ReasonStopped  = "stopped"
	ReasonInactive = "inactive"
	ReasonLocked   = "locked"
)

// ErrMultipleOpenRuns means more than one run has no end. The database is
// inconsistent and no run can be picked safely.
var ErrMultipleOpenRuns = errors.New("multiple open runs")

// openDB is replaced in tests.
var openDB = sql.Open

// extendBatch caps the ids bound into one UPDATE.
const extendBatch = 500

// Run is a continuous period of presence. End is zero while the run is open.
type Run struct {
	ID     int64
	Start  time.Time
	End    time.Time
	Reason string
}

// IsOpen reports whether the run has not ended.
func (r Run) IsOpen() bool {
	return r.End.IsZero()
}

// Interval is one window's unchanged title and focus state over a span.
type Interval struct {
	ID     int64
	Start  time.Time
	End    time.Time
	Active bool
	Title  string
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Clip returns the part of the interval inside [since, until). Zero bounds
// are open. It is never negative.
func (iv Interval) Clip(since, until time.Time) time.Duration {
	start, end := iv.Start, iv.End
	if !since.IsZero() && start.Before(since) {
		start = since
	}
	if !until.IsZero() && end.After(until) {
		end = until
	}
	if end.Before(start) {
		return 0
	}
	return end.Sub(start)
}

// Store is the SQLite event store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and brings its schema up to date.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create dir: %w", err)
		}
	}
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	// One connection keeps pragmas and the recorder's writes on the same handle.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ///////////////////////////////////////////////
// Recovery
// ///////////////////////////////////////////////

// OpenRuns returns every run without an end, oldest first.
func (s *Store) OpenRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, start, "end", end_reason FROM runs WHERE "end" IS NULL ORDER BY start, id`)
	if err != nil {
		return nil, fmt.Errorf("query open runs: %w", err)
	}
	return scanRuns(rows)
}

// LatestWindowEnd returns the end of the most recent interval. ok is false
// when there are none.
func (s *Store) LatestWindowEnd(ctx context.Context) (end time.Time, ok bool, err error) {
	var t nullTime
	err = s.db.QueryRowContext(ctx, `SELECT "end" FROM windows ORDER BY "end" DESC LIMIT 1`).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query latest window end: %w", err)
	}
	return t.Time, t.Valid, nil
}

// CloseRun ends run id at end with reason.
func (s *Store) CloseRun(ctx context.Context, id int64, end time.Time, reason string) error {
	return s.Within(ctx, func(tx Writer) error {
		return tx.EndRun(id, end, reason)
	})
}

// ///////////////////////////////////////////////
// Transactions
// ///////////////////////////////////////////////

// Writer is the write side of a transaction.
type Writer interface {
	// StartRun inserts an open run and returns its id.
	StartRun(start time.Time) (int64, error)
	// EndRun closes run id.
	EndRun(id int64, end time.Time, reason string) error
	// ExtendWindows sets end on every interval in ids.
	ExtendWindows(ids []int64, end time.Time) error
	// InsertWindow stores a new interval and returns its id.
	InsertWindow(iv Interval) (int64, error)
}

// Tx is the SQLite [Writer].
type Tx struct {
	ctx context.Context
	tx  *sql.Tx
}

// Within runs fn in a transaction, committing if it returns nil. Nothing
// fn wrote persists if it fails.
func (s *Store) Within(ctx context.Context, fn func(tx Writer) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{ctx: ctx, tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// StartRun implements [Writer].
func (t *Tx) StartRun(start time.Time) (int64, error) {
	res, err := t.tx.ExecContext(t.ctx, `INSERT INTO runs (start) VALUES (?)`, formatTime(start))
	if err != nil {
		return 0, fmt.Errorf("start run: %w", err)
	}
	return res.LastInsertId()
}

// EndRun implements [Writer]. Ending an unknown run is an error.
func (t *Tx) EndRun(id int64, end time.Time, reason string) error {
	res, err := t.tx.ExecContext(t.ctx,
		`UPDATE runs SET "end" = ?, end_reason = ? WHERE id = ?`, formatTime(end), reason, id)
	if err != nil {
		return fmt.Errorf("end run %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("end run %d: no such run", id)
	}
	return nil
}

// ExtendWindows implements [Writer] with one UPDATE per batch of ids.
func (t *Tx) ExtendWindows(ids []int64, end time.Time) error {
	for len(ids) > 0 {
		batch := ids[:min(len(ids), extendBatch)]
		ids = ids[len(batch):]

		args := make([]any, 0, len(batch)+1)
		args = append(args, formatTime(end))
		for _, id := range batch {
			args = append(args, id)
		}
		query := `UPDATE windows SET "end" = ? WHERE id IN (?` + strings.Repeat(",?", len(batch)-1) + `)`
		if _, err := t.tx.ExecContext(t.ctx, query, args...); err != nil {
			return fmt.Errorf("extend %d windows: %w", len(batch), err)
		}
	}
	return nil
}

// InsertWindow implements [Writer]. iv.ID is ignored.
func (t *Tx) InsertWindow(iv Interval) (int64, error) {
	res, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO windows (start, "end", active, title) VALUES (?, ?, ?, ?)`,
		formatTime(iv.Start), formatTime(iv.End), iv.Active, iv.Title)
	if err != nil {
		return 0, fmt.Errorf("insert window: %w", err)
	}
	return res.LastInsertId()
}

// ///////////////////////////////////////////////
// Queries
// ///////////////////////////////////////////////

// Filter narrows [Store.Intervals]. Zero times are unbounded.
type Filter struct {
	// Since keeps intervals ending at or after it.
	Since time.Time
	// Until keeps intervals starting before it.
	Until time.Time
	// OnlyActive keeps focused windows only.
	OnlyActive bool
}

// Intervals returns the intervals matching f in start order.
func (s *Store) Intervals(ctx context.Context, f Filter) ([]Interval, error) {
	var (
		where []string
		args  []any
	)
	if !f.Since.IsZero() {
		where = append(where, `"end" >= ?`)
		args = append(args, formatTime(f.Since))
	}
	if !f.Until.IsZero() {
		where = append(where, `start < ?`)
		args = append(args, formatTime(f.Until))
	}
	if f.OnlyActive {
		where = append(where, `active = 1`)
	}
	query := `SELECT id, start, "end", active, title FROM windows`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query intervals: %w", err)
	}
	defer rows.Close()

	var out []Interval
	for rows.Next() {
		var (
			iv         Interval
			start, end nullTime
		)
		if err := rows.Scan(&iv.ID, &start, &end, &iv.Active, &iv.Title); err != nil {
			return nil, fmt.Errorf("scan interval: %w", err)
		}
		iv.Start, iv.End = start.Time, end.Time
		out = append(out, iv)
	}
	return out, rows.Err()
}

// Runs returns the runs overlapping [since, until), oldest first: open or
// ending at or after since, and starting before until. Zero bounds are open.
func (s *Store) Runs(ctx context.Context, since, until time.Time) ([]Run, error) {
	query := `SELECT id, start, "end", end_reason FROM runs`
	var (
		where []string
		args  []any
	)
	if !since.IsZero() {
		where = append(where, `("end" IS NULL OR "end" >= ?)`)
		args = append(args, formatTime(since))
	}
	if !until.IsZero() {
		where = append(where, "start < ?")
		args = append(args, formatTime(until))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY start, id", args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var (
			r          Run
			start, end nullTime
		)
		if err := rows.Scan(&r.ID, &start, &end, &r.Reason); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Start, r.End = start.Time, end.Time
		out = append(out, r)
	}
	return out, rows.Err()
}

// ///////////////////////////////////////////////
// Time Encoding
// ///////////////////////////////////////////////

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// nullTime scans the store's text timestamps. The driver may already hand
// back a time.Time for DATETIME columns.
type nullTime struct {
	Time  time.Time
	Valid bool
}

func (n *nullTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		n.Time, n.Valid = time.Time{}, false
		return nil
	case time.Time:
		n.Time, n.Valid = v.UTC(), true
		return nil
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (n *nullTime) parse(s string) error {
	layouts := []string{TimeLayout, "2006-01-02T15:04:05Z07:00", "2006-01-02 15:04:05.999999999"}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			n.Time, n.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", s)
}

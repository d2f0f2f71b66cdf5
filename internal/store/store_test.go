package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "database.sqlite3"), 5*time.Second)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTemp(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != schema.CurrentVersion {
		t.Errorf("user_version = %d, want %d", version, schema.CurrentVersion)
	}

	for _, idx := range []string{
		"idx_runs_start", "idx_runs_end",
		"idx_windows_start", "idx_windows_end", "idx_windows_active", "idx_windows_title",
	} {
		var name string
		err := s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?`, idx).Scan(&name)
		if err != nil {
			t.Errorf("index %s: %v", idx, err)
		}
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.sqlite3")
	for i := 0; i < 2; i++ {
		s, err := Open(path, time.Second)
		if err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
		s.Close()
	}
}

func TestOpenUpgradesLegacyNameColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.sqlite3")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	legacy := []string{
		`CREATE TABLE runs(id INTEGER PRIMARY KEY, start DATETIME NOT NULL, end DATETIME NULL, end_reason TEXT NOT NULL DEFAULT '')`,
		`CREATE TABLE windows(id INTEGER PRIMARY KEY, start DATETIME NOT NULL, end DATETIME NOT NULL, active BOOLEAN NOT NULL, name TEXT NOT NULL)`,
		`CREATE INDEX idx_windows_name ON windows(name)`,
		`INSERT INTO windows(start, end, active, name) VALUES ('2026-05-04 09:00:00', '2026-05-04 09:00:05', 1, 'old title')`,
	}
	for _, stmt := range legacy {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	db.Close()

	s, err := Open(path, time.Second)
	if err != nil {
		t.Fatalf("Open legacy: %v", err)
	}
	defer s.Close()

	got, err := s.Intervals(context.Background(), Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "old title" || got[0].Duration() != 5*time.Second {
		t.Errorf("intervals = %+v", got)
	}
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.sqlite3")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if s, err := Open(path, time.Second); err == nil {
		s.Close()
		t.Fatal("Open should refuse a newer schema")
	}
}

func TestOpenDriverError(t *testing.T) {
	orig := openDB
	t.Cleanup(func() { openDB = orig })
	openDB = func(string, string) (*sql.DB, error) { return nil, errors.New("boom") }

	if _, err := Open(filepath.Join(t.TempDir(), "x.sqlite3"), time.Second); err == nil {
		t.Fatal("expected open error")
	}
}

// ///////////////////////////////////////////////
// Writes
// ///////////////////////////////////////////////

func TestRunLifecycle(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	var id int64
	err := s.Within(ctx, func(tx Writer) error {
		var err error
		id, err = tx.StartRun(t0)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	open, err := s.OpenRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 || open[0].ID != id || !open[0].IsOpen() || !open[0].Start.Equal(t0) {
		t.Fatalf("open runs = %+v", open)
	}

	if err := s.CloseRun(ctx, id, t0.Add(time.Minute), ReasonInactive); err != nil {
		t.Fatal(err)
	}
	open, _ = s.OpenRuns(ctx)
	if len(open) != 0 {
		t.Errorf("open runs after close = %+v", open)
	}

	runs, err := s.Runs(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Reason != ReasonInactive || !runs[0].End.Equal(t0.Add(time.Minute)) {
		t.Errorf("runs = %+v", runs)
	}

	if err := s.CloseRun(ctx, 999, t0, ReasonStopped); err == nil {
		t.Error("closing an unknown run should fail")
	}
}

func TestRunsWindow(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	for _, r := range []struct {
		start, end time.Time
	}{
		{t0, t0.Add(time.Minute)},
		{t0.Add(2 * time.Minute), t0.Add(4 * time.Minute)},
		{t0.Add(5 * time.Minute), t0.Add(6 * time.Minute)},
		{t0.Add(7 * time.Minute), time.Time{}},
	} {
		var id int64
		err := s.Within(ctx, func(tx Writer) error {
			var err error
			id, err = tx.StartRun(r.start)
			return err
		})
		if err != nil {
			t.Fatal(err)
		}
		if !r.end.IsZero() {
			if err := s.CloseRun(ctx, id, r.end, ReasonInactive); err != nil {
				t.Fatal(err)
			}
		}
	}

	tests := []struct {
		name         string
		since, until time.Time
		want         []time.Time
	}{
		{"all", time.Time{}, time.Time{}, []time.Time{t0, t0.Add(2 * time.Minute), t0.Add(5 * time.Minute), t0.Add(7 * time.Minute)}},
		{"since", t0.Add(3 * time.Minute), time.Time{}, []time.Time{t0.Add(2 * time.Minute), t0.Add(5 * time.Minute), t0.Add(7 * time.Minute)}},
		{"until", time.Time{}, t0.Add(5 * time.Minute), []time.Time{t0, t0.Add(2 * time.Minute)}},
		{"both", t0.Add(3 * time.Minute), t0.Add(5 * time.Minute), []time.Time{t0.Add(2 * time.Minute)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.Runs(ctx, tt.since, tt.until)
			if err != nil {
				t.Fatal(err)
			}
			if len(runs) != len(tt.want) {
				t.Fatalf("runs = %+v, want starts %v", runs, tt.want)
			}
			for i, r := range runs {
				if !r.Start.Equal(tt.want[i]) {
					t.Errorf("run %d starts %v, want %v", i, r.Start, tt.want[i])
				}
			}
		})
	}
}

func TestWithinRollsBack(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Within(ctx, func(tx Writer) error {
		if _, err := tx.StartRun(t0); err != nil {
			return err
		}
		if _, err := tx.InsertWindow(Interval{Start: t0, End: t0, Title: "x"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Within error = %v, want boom", err)
	}

	runs, _ := s.Runs(ctx, time.Time{}, time.Time{})
	ivs, _ := s.Intervals(ctx, Filter{})
	if len(runs) != 0 || len(ivs) != 0 {
		t.Errorf("rolled back tx left runs=%d intervals=%d", len(runs), len(ivs))
	}
}

func TestInsertAndExtendWindows(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	ids := make([]int64, 0, extendBatch+3)
	err := s.Within(ctx, func(tx Writer) error {
		for i := 0; i < extendBatch+3; i++ {
			id, err := tx.InsertWindow(Interval{Start: t0, End: t0.Add(5 * time.Second), Active: i == 0, Title: "w"})
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	end := t0.Add(10 * time.Second)
	if err := s.Within(ctx, func(tx Writer) error { return tx.ExtendWindows(ids, end) }); err != nil {
		t.Fatal(err)
	}

	all, err := s.Intervals(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(ids) {
		t.Fatalf("got %d intervals, want %d", len(all), len(ids))
	}
	for _, iv := range all {
		if !iv.End.Equal(end) {
			t.Fatalf("interval %d end = %v, want %v", iv.ID, iv.End, end)
		}
	}

	latest, ok, err := s.LatestWindowEnd(ctx)
	if err != nil || !ok || !latest.Equal(end) {
		t.Errorf("LatestWindowEnd = %v, %v, %v", latest, ok, err)
	}

	active, err := s.Intervals(ctx, Filter{OnlyActive: true})
	if err != nil || len(active) != 1 || !active[0].Active {
		t.Errorf("active intervals = %+v, %v", active, err)
	}
}

func TestLatestWindowEndEmpty(t *testing.T) {
	s := openTemp(t)
	_, ok, err := s.LatestWindowEnd(context.Background())
	if err != nil || ok {
		t.Errorf("LatestWindowEnd on empty store = %v, %v", ok, err)
	}
}

func TestIntervalsFilterRange(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	spans := [][2]time.Duration{{0, time.Hour}, {2 * time.Hour, 3 * time.Hour}, {5 * time.Hour, 6 * time.Hour}}
	err := s.Within(ctx, func(tx Writer) error {
		for _, sp := range spans {
			if _, err := tx.InsertWindow(Interval{Start: t0.Add(sp[0]), End: t0.Add(sp[1]), Active: true, Title: "t"}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Intervals(ctx, Filter{Since: t0.Add(90 * time.Minute), Until: t0.Add(5 * time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got[0].Start.Equal(t0.Add(2*time.Hour)) {
		t.Errorf("filtered = %+v", got)
	}
}

func TestIntervalClip(t *testing.T) {
	iv := Interval{Start: t0, End: t0.Add(time.Hour)}
	tests := []struct {
		name         string
		since, until time.Time
		want         time.Duration
	}{
		{"unbounded", time.Time{}, time.Time{}, time.Hour},
		{"since inside", t0.Add(15 * time.Minute), time.Time{}, 45 * time.Minute},
		{"until inside", time.Time{}, t0.Add(10 * time.Minute), 10 * time.Minute},
		{"disjoint", t0.Add(2 * time.Hour), time.Time{}, 0},
	}
	for _, tt := range tests {
		if got := iv.Clip(tt.since, tt.until); got != tt.want {
			t.Errorf("%s: Clip = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestTimestampsAreUTCText(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	local := time.FixedZone("UTC+2", 2*60*60)
	err := s.Within(ctx, func(tx Writer) error {
		_, err := tx.StartRun(time.Date(2026, 5, 4, 11, 0, 0, 0, local))
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	var raw string
	if err := s.db.QueryRow(`SELECT CAST(start AS TEXT) FROM runs`).Scan(&raw); err != nil {
		t.Fatal(err)
	}
	if raw != "2026-05-04 09:00:00" {
		t.Errorf("stored start = %q, want UTC text", raw)
	}
}

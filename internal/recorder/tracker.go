// Package recorder turns periodic window snapshots into runs and interval
// rows.
//
// A [Tracker] decides each tick whether the user is present, opening and
// closing runs, and while a run is open diffs the snapshot against the
// windows it is already tracking. Every write of a tick goes through a single
// store transaction and in-memory state only advances once it commits.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tools.zach/dev/pctracker/internal/store"
	"tools.zach/dev/pctracker/internal/window"
)

// Store is the part of the event store the tracker needs.
type Store interface {
	OpenRuns(ctx context.Context) ([]store.Run, error)
	LatestWindowEnd(ctx context.Context) (time.Time, bool, error)
	CloseRun(ctx context.Context, id int64, end time.Time, reason string) error
	Within(ctx context.Context, fn func(tx store.Writer) error) error
}

// InputSignal reports the most recent user input.
type InputSignal interface {
	LastInput() time.Time
}

// Settings are the tunables that can change while recording.
type Settings struct {
	// PollInterval is the expected tick length, used as the first tick's
	// span and by [Loop] for its ticker.
	PollInterval time.Duration
	// Inactivity is how long without input before the user counts as away.
	Inactivity time.Duration
}

// Tracker owns the current run and the open intervals.
type Tracker struct {
	store  Store
	source window.Source
	input  InputSignal

	mu       sync.Mutex
	settings Settings

	running   bool
	runID     int64
	runStart  time.Time
	lastTick  time.Time
	intervals Intervals
}

// NewTracker returns an idle tracker.
func NewTracker(st Store, src window.Source, input InputSignal, s Settings) *Tracker {
	return &Tracker{store: st, source: src, input: input, settings: s}
}

// Configure replaces the settings from the next tick on.
func (t *Tracker) Configure(s Settings) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settings = s
}

// Settings returns the current settings.
func (t *Tracker) Settings() Settings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settings
}

// Running reports whether a run is open and returns its id.
func (t *Tracker) Running() (int64, bool) {
	return t.runID, t.running
}

// OpenIntervals returns how many windows are being extended.
func (t *Tracker) OpenIntervals() int {
	return t.intervals.Len()
}

// ///////////////////////////////////////////////
// Recovery
// ///////////////////////////////////////////////

// Recover closes a run left open by a previous process, ending it at the
// newest interval end (or its own start) with reason "stopped". More than
// one open run fails with [store.ErrMultipleOpenRuns] and changes nothing.
func (t *Tracker) Recover(ctx context.Context) error {
	runs, err := t.store.OpenRuns(ctx)
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	switch len(runs) {
	case 0:
		return nil
	case 1:
	default:
		ids := make([]int64, len(runs))
		for i, r := range runs {
			ids[i] = r.ID
		}
		return fmt.Errorf("recover: %w: ids %v", store.ErrMultipleOpenRuns, ids)
	}

	run := runs[0]
	end := run.Start
	latest, ok, err := t.store.LatestWindowEnd(ctx)
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	if ok && latest.After(end) {
		end = latest
	}
	if err := t.store.CloseRun(ctx, run.ID, end, store.ReasonStopped); err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	slog.Info("closed run left open by previous process", "run", run.ID, "end", end.Format(time.RFC3339))
	return nil
}

// ///////////////////////////////////////////////
// Tick
// ///////////////////////////////////////////////

// Tick samples presence and windows at now and records the result. A
// source error other than [window.ErrUnavailable] aborts the tick with no
// state change.
func (t *Tracker) Tick(ctx context.Context, now time.Time) error {
	s := t.Settings()

	var (
		snapshot []window.Window
		reason   string
	)
	if idle := now.Sub(t.input.LastInput()); idle > s.Inactivity {
		reason = store.ReasonInactive
	} else {
		var err error
		snapshot, err = t.source.Windows(ctx)
		switch {
		case errors.Is(err, window.ErrUnavailable):
			slog.Debug("windows unavailable", "error", err)
			reason = store.ReasonLocked
		case err != nil:
			return fmt.Errorf("snapshot: %w", err)
		}
	}

	delta := s.PollInterval
	if !t.lastTick.IsZero() && now.After(t.lastTick) {
		delta = now.Sub(t.lastTick)
	}

	var err error
	switch {
	case reason != "" && t.running:
		err = t.endRun(ctx, now, reason)
	case reason != "":
		// Still away.
	case !t.running:
		err = t.startRun(ctx, now, snapshot)
	default:
		err = t.record(ctx, now, delta, snapshot)
	}
	if err != nil {
		return err
	}
	t.lastTick = now
	return nil
}

func (t *Tracker) endRun(ctx context.Context, now time.Time, reason string) error {
	err := t.store.Within(ctx, func(tx store.Writer) error {
		return tx.EndRun(t.runID, now, reason)
	})
	if err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	msg := "input inactive"
	if reason == store.ReasonLocked {
		msg = "screen locked"
	}
	slog.Warn(msg, "run", t.runID)
	t.running = false
	t.intervals.Reset()
	return nil
}

func (t *Tracker) startRun(ctx context.Context, now time.Time, snapshot []window.Window) error {
	var (
		runID int64
		next  map[window.ID]openInterval
	)
	diff := t.intervals.Diff(snapshot)
	err := t.store.Within(ctx, func(tx store.Writer) error {
		var err error
		if runID, err = tx.StartRun(now); err != nil {
			return err
		}
		next, err = diff.Apply(tx, now, now)
		return err
	})
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	slog.Warn("input active again", "run", runID)
	t.running, t.runID, t.runStart = true, runID, now
	t.intervals.Commit(next)
	logDiff(diff)
	return nil
}

func (t *Tracker) record(ctx context.Context, now time.Time, delta time.Duration, snapshot []window.Window) error {
	start := now.Add(-delta)
	if start.Before(t.runStart) {
		start = t.runStart
	}
	diff := t.intervals.Diff(snapshot)
	var next map[window.ID]openInterval
	err := t.store.Within(ctx, func(tx store.Writer) error {
		var err error
		next, err = diff.Apply(tx, start, now)
		return err
	})
	if err != nil {
		return fmt.Errorf("record windows: %w", err)
	}
	t.intervals.Commit(next)
	logDiff(diff)
	return nil
}

func logDiff(d Diff) {
	if len(d.Extend) > 0 {
		slog.Debug("extend", "count", len(d.Extend))
	}
	for _, w := range d.Insert {
		flag := "n"
		if w.Active {
			flag = "Y"
		}
		slog.Debug("insert", "active", flag, "title", w.Title)
	}
}

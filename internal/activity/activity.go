// Package activity tracks when the user last touched the keyboard or pointer.
//
// A [Signal] holds the last-input timestamp as a single atomic word so input
// watchers can update it while the recorder reads it once per tick. A
// [Monitor] keeps a Signal current by polling an [IdleProbe].
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Signal is the last-input timestamp. The zero value reports the zero time.
type Signal struct {
	last atomic.Int64 // unix nanoseconds
}

// NewSignal returns a Signal whose last input is at.
func NewSignal(at time.Time) *Signal {
	s := &Signal{}
	s.last.Store(at.UnixNano())
	return s
}

// Observe records input at t. Older timestamps are ignored so the value
// never moves backwards.
func (s *Signal) Observe(t time.Time) {
	n := t.UnixNano()
	for {
		cur := s.last.Load()
		if n <= cur || s.last.CompareAndSwap(cur, n) {
			return
		}
	}
}

// LastInput returns the most recent input time.
func (s *Signal) LastInput() time.Time {
	n := s.last.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// ///////////////////////////////////////////////
// Probes
// ///////////////////////////////////////////////

// IdleProbe reports how long the user has been idle.
type IdleProbe interface {
	Idle(ctx context.Context) (time.Duration, error)
}

// ProbeFunc adapts a function to [IdleProbe].
type ProbeFunc func(ctx context.Context) (time.Duration, error)

// Idle implements [IdleProbe].
func (f ProbeFunc) Idle(ctx context.Context) (time.Duration, error) {
	return f(ctx)
}

// Always reports zero idle time, so the user is never considered inactive.
var Always IdleProbe = ProbeFunc(func(context.Context) (time.Duration, error) {
	return 0, nil
})

// NewProbe returns the probe named by record.idle_probe.
func NewProbe(kind string) (IdleProbe, error) {
	switch kind {
	case "auto":
		return platformProbe(), nil
	case "xprintidle":
		return NewXPrintIdle(), nil
	case "ioreg":
		return NewIOReg(), nil
	case "win32":
		return newWin32Probe()
	case "none":
		return Always, nil
	default:
		return nil, fmt.Errorf("unknown idle probe %q", kind)
	}
}

// ///////////////////////////////////////////////
// Monitor
// ///////////////////////////////////////////////

// Monitor feeds probe readings into a Signal.
type Monitor struct {
	Probe    IdleProbe
	Signal   *Signal
	Interval time.Duration
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Poll takes one reading. A failing probe leaves the signal untouched.
func (m *Monitor) Poll(ctx context.Context) error {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	idle, err := m.Probe.Idle(ctx)
	if err != nil {
		return fmt.Errorf("idle probe: %w", err)
	}
	m.Signal.Observe(now().Add(-idle))
	return nil
}

// Run polls until ctx is done. Probe failures are logged once per streak.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	failing := false
	for {
		if err := m.Poll(ctx); err != nil {
			if !failing {
				slog.Warn("idle probe failing, inactivity detection paused", "error", err)
			}
			failing = true
		} else if failing {
			slog.Info("idle probe recovered")
			failing = false
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

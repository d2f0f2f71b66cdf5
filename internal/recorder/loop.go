package recorder

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Loop drives a Tracker on a ticker until the context ends or a shutdown
// signal arrives. Runs are not closed on exit; the next start recovers them.
type Loop struct {
	Tracker *Tracker
	Clock   Clock
	// Signals delivers shutdown signals. Nil never fires.
	Signals <-chan os.Signal
	// Reload fires when the configuration may have changed. Nil never fires.
	Reload <-chan struct{}
	// Reconfigure loads fresh settings after Reload fires. A failure keeps
	// the current settings.
	Reconfigure func() (Settings, error)
}

// Run ticks immediately and then every poll interval.
func (l *Loop) Run(ctx context.Context) error {
	clock := l.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	interval := l.Tracker.Settings().PollInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.tick(ctx, clock.Now())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case sig := <-l.Signals:
			slog.Info("received shutdown signal", "signal", sig.String())
			return nil

		case <-l.Reload:
			if l.Reconfigure == nil {
				continue
			}
			s, err := l.Reconfigure()
			if err != nil {
				slog.Warn("config reload failed, keeping current settings", "error", err)
				continue
			}
			l.Tracker.Configure(s)
			if s.PollInterval != interval {
				interval = s.PollInterval
				ticker.Reset(interval)
			}
			slog.Info("config reloaded", "poll_interval", interval.String(), "inactivity", s.Inactivity.String())

		case <-ticker.C:
			l.tick(ctx, clock.Now())
		}
	}
}

func (l *Loop) tick(ctx context.Context, now time.Time) {
	if err := l.Tracker.Tick(ctx, now); err != nil && ctx.Err() == nil {
		slog.Error("tick failed", "error", err)
	}
}

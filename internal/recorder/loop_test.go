package recorder

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"tools.zach/dev/pctracker/internal/window"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func TestLoopTicksImmediatelyAndStopsOnSignal(t *testing.T) {
	st, sc := &memStore{}, &scene{windows: []window.Window{{ID: 1, Title: "a", Active: true}}, lastInput: t0}
	tr := NewTracker(st, sc, sc, Settings{PollInterval: time.Hour, Inactivity: time.Minute})

	sigs := make(chan os.Signal, 1)
	sigs <- syscall.SIGTERM
	l := &Loop{Tracker: tr, Clock: &fixedClock{now: t0}, Signals: sigs}
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run = %v, want nil on signal", err)
	}
	if len(st.runs) != 1 || len(st.windows) != 1 {
		t.Errorf("runs=%d windows=%d, want the first tick recorded", len(st.runs), len(st.windows))
	}
	// The run stays open for recovery on next start.
	if !st.runs[0].IsOpen() {
		t.Error("run closed on shutdown")
	}
}

func TestLoopStopsOnContext(t *testing.T) {
	sc := &scene{lastInput: t0}
	tr := NewTracker(&memStore{}, sc, sc, Settings{PollInterval: time.Hour, Inactivity: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := &Loop{Tracker: tr, Clock: &fixedClock{now: t0}}
	if err := l.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}

func TestLoopReload(t *testing.T) {
	tests := []struct {
		name string
		next Settings
		err  error
		want Settings
	}{
		{
			name: "applies new settings",
			next: Settings{PollInterval: 2 * time.Hour, Inactivity: 5 * time.Minute},
			want: Settings{PollInterval: 2 * time.Hour, Inactivity: 5 * time.Minute},
		},
		{
			name: "keeps settings on error",
			err:  errors.New("bad toml"),
			want: Settings{PollInterval: time.Hour, Inactivity: time.Minute},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := &scene{lastInput: t0}
			tr := NewTracker(&memStore{}, sc, sc, Settings{PollInterval: time.Hour, Inactivity: time.Minute})
			sigs := make(chan os.Signal)
			reload := make(chan struct{})
			l := &Loop{
				Tracker:     tr,
				Clock:       &fixedClock{now: t0},
				Signals:     sigs,
				Reload:      reload,
				Reconfigure: func() (Settings, error) { return tt.next, tt.err },
			}

			done := make(chan error, 1)
			go func() { done <- l.Run(context.Background()) }()
			reload <- struct{}{}
			sigs <- syscall.SIGINT

			select {
			case err := <-done:
				if err != nil {
					t.Fatalf("Run: %v", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("loop did not stop")
			}
			if got := tr.Settings(); got != tt.want {
				t.Errorf("Settings = %+v, want %+v", got, tt.want)
			}
		})
	}
}

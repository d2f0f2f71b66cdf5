package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	rootpkg "tools.zach/dev/pctracker"
	"tools.zach/dev/pctracker/internal/activity"
	"tools.zach/dev/pctracker/internal/atomicfile"
	"tools.zach/dev/pctracker/internal/config"
	"tools.zach/dev/pctracker/internal/logger"
	"tools.zach/dev/pctracker/internal/paths"
	"tools.zach/dev/pctracker/internal/recorder"
	"tools.zach/dev/pctracker/internal/store"
	"tools.zach/dev/pctracker/internal/window"
)

// idlePollInterval is how often the idle probe is read. It bounds how late
// fresh input reaches the tracker.
const idlePollInterval = time.Second

func newRecordCmd(dataDir *string) *cobra.Command {
	var foreground bool
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record open windows until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecord(cmd.Context(), paths.DataDir{Root: *dataDir}, foreground, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolVar(&foreground, "foreground", false, "Also write log lines to stderr")
	return cmd
}

func settingsFrom(cfg *config.Config) recorder.Settings {
	return recorder.Settings{
		PollInterval: cfg.PollInterval(),
		Inactivity:   cfg.InactivityThreshold(),
	}
}

// runRecord holds the single-instance lock for its whole lifetime. Nothing in
// the data directory besides the lock file is touched before it is taken.
func runRecord(ctx context.Context, dp paths.DataDir, foreground bool, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := os.MkdirAll(dp.Root, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	lock, err := acquireLock(dp.Lock())
	if err != nil {
		return err
	}
	defer lock.release()

	if _, err := atomicfile.WriteIfMissing(dp.Config(), rootpkg.DefaultConfigTOML, 0o644); err != nil {
		fmt.Fprintf(stderr, "warning: failed to write default config: %v\n", err)
	}
	cfg, err := config.Load(dp.Root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logOpts := logger.Options{
		Path:      dp.Log(),
		Level:     logger.ParseLevel(cfg.Log.Level),
		MaxSizeMB: cfg.Log.MaxSizeMB,
	}
	if foreground {
		logOpts.Console = stderr
	}
	log, logCloser, err := logger.NewLogger(logOpts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(log)
	slog.Info("pctracker starting", "version", resolveVersion(), "data_dir", dp.Root)

	src, err := window.New(cfg.Record.Source)
	if err != nil {
		return fmt.Errorf("window source: %w", err)
	}
	probe, err := activity.NewProbe(cfg.Record.IdleProbe)
	if err != nil {
		return fmt.Errorf("idle probe: %w", err)
	}

	st, err := store.Open(dp.Database(cfg.Store.File), cfg.BusyTimeout())
	if err != nil {
		return err
	}
	defer st.Close()

	input := activity.NewSignal(time.Now())
	tracker := recorder.NewTracker(st, src, input, settingsFrom(cfg))
	if err := tracker.Recover(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	monitor := &activity.Monitor{Probe: probe, Signal: input, Interval: idlePollInterval}
	go monitor.Run(ctx)

	loop := &recorder.Loop{
		Tracker: tracker,
		Signals: signalChannel(),
		Reconfigure: func() (recorder.Settings, error) {
			next, err := config.Load(dp.Root)
			if err != nil {
				return recorder.Settings{}, err
			}
			return settingsFrom(next), nil
		},
	}
	if watcher, err := config.NewWatcher(dp.Config()); err != nil {
		slog.Warn("config watcher unavailable, reload disabled", "error", err)
	} else {
		defer watcher.Close()
		if watcher.Polling() {
			slog.Info("using polling mode for config watching")
		}
		loop.Reload = watcher.Events()
	}

	err = loop.Run(ctx)
	slog.Info("pctracker stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

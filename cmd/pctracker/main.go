// Package main implements the pctracker command: a background recorder of
// open application windows and an analyzer that turns the recorded intervals
// into a duration report.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"tools.zach/dev/pctracker/internal/paths"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// resolveVersion returns [version] when set by ldflags, otherwise a
// "dev+<hash>" tag built from the VCS info the toolchain embeds.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Single-Instance Lock
// ///////////////////////////////////////////////

// instanceLock is the held sentinel file. The file itself stays on disk; only
// the flock on it marks a running recorder, and it records the holder's pid.
type instanceLock struct {
	f *os.File
}

// acquireLock takes the sentinel at path without blocking. When another
// process holds it the error names that process.
func acquireLock(path string) (*instanceLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		if pid := lockHolder(path); pid > 0 {
			return nil, fmt.Errorf("another recorder is running (pid %d): %w", pid, err)
		}
		return nil, fmt.Errorf("another recorder is running: %w", err)
	}
	l := &instanceLock{f: f}
	if err := f.Truncate(0); err != nil {
		l.release()
		return nil, fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		l.release()
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	return l, nil
}

// release clears the pid and unlocks. The sentinel stays on disk so every
// recorder locks the same file.
func (l *instanceLock) release() {
	_ = l.f.Truncate(0)
	_ = unlockFile(l.f)
	l.f.Close()
}

// lockHolder reads the pid written by the current holder, or 0.
func lockHolder(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return n
}

// ///////////////////////////////////////////////
// Root Command
// ///////////////////////////////////////////////

// defaultDataDir returns ~/.pctracker, or ./.pctracker without a home
// directory.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", paths.DataDirRel)
	}
	return filepath.Join(home, paths.DataDirRel)
}

func newRootCmd() *cobra.Command {
	var dataDir string

	root := &cobra.Command{
		Use:           paths.BinaryName,
		Short:         "Record which windows are open and report where the time went",
		Version:       resolveVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDataDir(), "Data directory for config, rules, database and logs")

	root.AddCommand(newRecordCmd(&dataDir))
	root.AddCommand(newAnalyzeCmd(&dataDir))
	root.AddCommand(newLogsCmd(&dataDir))
	root.AddCommand(newRulesCmd(&dataDir))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

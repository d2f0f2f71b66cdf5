// Package window is the boundary to the desktop: it reports which windows
// exist, their titles and which one has focus.
package window

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrUnavailable means the window list cannot be inspected right now,
// typically because the session is locked. It is expected and recoverable.
var ErrUnavailable = errors.New("windows unavailable")

// ID is an opaque platform window handle.
type ID uint64

// Window is one entry of a snapshot.
type Window struct {
	ID     ID
	Title  string
	Active bool
}

// Source produces window snapshots.
type Source interface {
	// Windows returns the current windows, or an error wrapping
	// [ErrUnavailable] when they cannot be inspected.
	Windows(ctx context.Context) ([]Window, error)
}

// Func adapts a function to [Source].
type Func func(ctx context.Context) ([]Window, error)

// Windows implements [Source].
func (f Func) Windows(ctx context.Context) ([]Window, error) {
	return f(ctx)
}

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// execRunner runs commands with os/exec.
func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// New returns the source named by record.source.
func New(kind string) (Source, error) {
	switch kind {
	case "auto":
		return platformDefault(), nil
	case "x11":
		return NewX11(), nil
	case "win32":
		return NewWin32()
	default:
		return nil, fmt.Errorf("unknown window source %q", kind)
	}
}

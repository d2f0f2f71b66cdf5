package window

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// clientListProperty is the root window property listing managed windows in
// stacking order.
const clientListProperty = "_NET_CLIENT_LIST_STACKING(WINDOW)"

// X11 reads windows through the xdotool and xprop command line tools.
type X11 struct {
	// Run executes the tools. Replaced in tests.
	Run Runner
	// Timeout bounds each command.
	Timeout time.Duration
}

// NewX11 returns an X11 source running the real tools.
func NewX11() *X11 {
	return &X11{Run: execRunner, Timeout: 2 * time.Second}
}

// Windows implements [Source]. Windows that vanish between listing and the
// title lookup are skipped.
func (x *X11) Windows(ctx context.Context) ([]Window, error) {
	out, err := x.run(ctx, "xdotool", "getactivewindow")
	if err != nil {
		return nil, err
	}
	active, err := parseWindowID(strings.TrimSpace(string(out)))
	if err != nil {
		return nil, fmt.Errorf("%w: active window: %w", ErrUnavailable, err)
	}

	out, err = x.run(ctx, "xprop", "-root")
	if err != nil {
		return nil, err
	}
	ids, err := parseClientList(string(out))
	if err != nil {
		return nil, err
	}

	windows := make([]Window, 0, len(ids))
	for _, id := range ids {
		name, err := x.run(ctx, "xdotool", "getwindowname", strconv.FormatUint(uint64(id), 10))
		if err != nil {
			if errors.Is(err, exec.ErrNotFound) || ctx.Err() != nil {
				return nil, err
			}
			continue
		}
		windows = append(windows, Window{
			ID:     id,
			Title:  strings.TrimRight(string(name), "\r\n"),
			Active: id == active,
		})
	}
	return windows, nil
}

// run executes one tool. A missing binary is a configuration error; any
// other failure means the display is not inspectable and wraps ErrUnavailable.
func (x *X11) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if x.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.Timeout)
		defer cancel()
	}
	out, err := x.Run(ctx, name, args...)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, name, err)
}

// parseWindowID accepts decimal or 0x-prefixed hex ids.
func parseWindowID(s string) (ID, error) {
	var (
		n   uint64
		err error
	)
	if hex, ok := strings.CutPrefix(s, "0x"); ok {
		n, err = strconv.ParseUint(hex, 16, 64)
	} else {
		n, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("parse window id %q: %w", s, err)
	}
	return ID(n), nil
}

// parseClientList extracts window ids from `xprop -root` output.
func parseClientList(out string) ([]ID, error) {
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, clientListProperty) {
			continue
		}
		pos := strings.Index(line, "0x")
		if pos < 0 {
			return nil, nil
		}
		var ids []ID
		for _, field := range strings.Split(line[pos:], ",") {
			id, err := parseWindowID(strings.TrimSpace(field))
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}
	return nil, fmt.Errorf("xprop output has no %s", clientListProperty)
}

package activity

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// XPrintIdle reads X11 idle time in milliseconds from the xprintidle tool.
type XPrintIdle struct {
	Run Runner
}

// NewXPrintIdle returns a probe running the real xprintidle.
func NewXPrintIdle() *XPrintIdle {
	return &XPrintIdle{Run: execRunner}
}

// Idle implements [IdleProbe].
func (p *XPrintIdle) Idle(ctx context.Context) (time.Duration, error) {
	out, err := p.Run(ctx, "xprintidle")
	if err != nil {
		return 0, fmt.Errorf("xprintidle: %w", err)
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse xprintidle output: %w", err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// hidIdleRe matches the HIDIdleTime line of `ioreg -c IOHIDSystem`, in
// nanoseconds since the last input.
var hidIdleRe = regexp.MustCompile(`"HIDIdleTime"\s*=\s*([0-9]+)`)

// IOReg reads macOS idle time from the IOHIDSystem registry entry.
type IOReg struct {
	Run Runner
}

// NewIOReg returns a probe running the real ioreg.
func NewIOReg() *IOReg {
	return &IOReg{Run: execRunner}
}

// Idle implements [IdleProbe].
func (p *IOReg) Idle(ctx context.Context) (time.Duration, error) {
	out, err := p.Run(ctx, "/usr/sbin/ioreg", "-c", "IOHIDSystem")
	if err != nil {
		return 0, fmt.Errorf("ioreg: %w", err)
	}
	m := hidIdleRe.FindSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("ioreg: HIDIdleTime not found")
	}
	ns, err := strconv.ParseInt(string(m[1]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse HIDIdleTime: %w", err)
	}
	return time.Duration(ns), nil
}

//go:build windows

package window

import (
	"context"
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                   = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows          = user32.NewProc("EnumWindows")
	procGetForegroundWindow  = user32.NewProc("GetForegroundWindow")
	procIsWindowVisible      = user32.NewProc("IsWindowVisible")
	procGetWindowTextLengthW = user32.NewProc("GetWindowTextLengthW")
	procGetWindowTextW       = user32.NewProc("GetWindowTextW")
)

// enumCallback is created once: Windows caps the number of callbacks a
// process may create. enumMu guards enumFound while it runs.
var (
	enumMu       sync.Mutex
	enumFound    []uintptr
	enumCallback = syscall.NewCallback(func(hwnd, _ uintptr) uintptr {
		enumFound = append(enumFound, hwnd)
		return 1
	})
)

func platformDefault() Source {
	return win32Source{}
}

// NewWin32 returns a source enumerating top-level windows through user32.
func NewWin32() (Source, error) {
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("load user32: %w", err)
	}
	return win32Source{}, nil
}

type win32Source struct{}

// Windows implements [Source]. A locked workstation has no foreground
// window, which is reported as ErrUnavailable.
func (win32Source) Windows(ctx context.Context) ([]Window, error) {
	fg, _, _ := procGetForegroundWindow.Call()
	if fg == 0 {
		return nil, ErrUnavailable
	}

	enumMu.Lock()
	enumFound = enumFound[:0]
	r, _, err := procEnumWindows.Call(enumCallback, 0)
	handles := append([]uintptr(nil), enumFound...)
	enumMu.Unlock()
	if r == 0 {
		return nil, fmt.Errorf("%w: EnumWindows: %w", ErrUnavailable, err)
	}

	var out []Window
	for _, hwnd := range handles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if visible, _, _ := procIsWindowVisible.Call(hwnd); visible == 0 {
			continue
		}
		title := windowText(hwnd)
		if title == "" {
			continue
		}
		out = append(out, Window{ID: ID(hwnd), Title: title, Active: hwnd == fg})
	}
	return out, nil
}

func windowText(hwnd uintptr) string {
	n, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	copied, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf[:copied])
}

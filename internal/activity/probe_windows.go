//go:build windows

package activity

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procGetLastInputInfo = user32.NewProc("GetLastInputInfo")
	procGetTickCount     = kernel32.NewProc("GetTickCount")
)

// lastInputInfo mirrors LASTINPUTINFO.
type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

type win32Probe struct{}

func platformProbe() IdleProbe {
	return win32Probe{}
}

func newWin32Probe() (IdleProbe, error) {
	if err := procGetLastInputInfo.Find(); err != nil {
		return nil, fmt.Errorf("GetLastInputInfo: %w", err)
	}
	return win32Probe{}, nil
}

// Idle implements [IdleProbe]. Both tick counts wrap every 49.7 days; the
// uint32 subtraction stays correct across a wrap.
func (win32Probe) Idle(context.Context) (time.Duration, error) {
	info := lastInputInfo{cbSize: uint32(unsafe.Sizeof(lastInputInfo{}))}
	if r, _, err := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info))); r == 0 {
		return 0, fmt.Errorf("GetLastInputInfo: %w", err)
	}
	now, _, _ := procGetTickCount.Call()
	return time.Duration(uint32(now)-info.dwTime) * time.Millisecond, nil
}

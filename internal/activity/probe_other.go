//go:build !windows

package activity

import (
	"errors"
	"runtime"
)

func platformProbe() IdleProbe {
	if runtime.GOOS == "darwin" {
		return NewIOReg()
	}
	return NewXPrintIdle()
}

func newWin32Probe() (IdleProbe, error) {
	return nil, errors.New("win32 idle probe is only available on windows")
}

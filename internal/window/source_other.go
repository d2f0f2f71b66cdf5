//go:build !windows

package window

import "errors"

func platformDefault() Source {
	return NewX11()
}

// NewWin32 is only available on Windows.
func NewWin32() (Source, error) {
	return nil, errors.New("win32 window source is only available on windows")
}

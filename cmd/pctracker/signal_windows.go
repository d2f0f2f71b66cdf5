//go:build windows

package main

import (
	"os"
	"os/signal"
)

// signalChannel delivers Ctrl+C to the record loop. Windows has no SIGTERM;
// the runtime maps CTRL_BREAK and console close to os.Interrupt.
func signalChannel() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch
}

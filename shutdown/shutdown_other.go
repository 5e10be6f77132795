//go:build !windows

package shutdown

import (
	"os"
	"os/signal"
	"syscall"
)

// Notify relays the signals that end a session. A hangup counts too, so
// closing the terminal still unkeys the radio. The returned func stops
// delivery.
func Notify(ch chan os.Signal) (stop func()) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	return func() { signal.Stop(ch) }
}

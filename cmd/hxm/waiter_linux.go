//go:build linux

package main

import (
	"time"

	"github.com/jopamo/hxm/internal/wm"
	"golang.org/x/sys/unix"
)

// newWaiter builds the epoll/signalfd/timerfd waiter. SIGHUP/SIGUSR1/SIGTERM
// are kept as the reload/restart/shutdown signals a running instance also
// answers to directly (in addition to the control socket), matching
// conventional Unix daemon signal handling.
func newWaiter(period time.Duration) (wm.MultiplexWaiter, error) {
	return wm.NewMultiplexWaiter(period, unix.SIGHUP, unix.SIGUSR1, unix.SIGTERM)
}

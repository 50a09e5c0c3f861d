//go:build !linux

package main

import (
	"time"

	"github.com/jopamo/hxm/internal/wm"
)

// newWaiter builds the portable channel/time.Timer waiter. reload/restart
// channels are left nil: internal/ipc drives those through
// wm.Server.RequestReload/RequestRestart instead, which Run polls every
// iteration regardless of which waiter is in use.
func newWaiter(period time.Duration) (wm.MultiplexWaiter, error) {
	return wm.NewMultiplexWaiter(period, nil, nil)
}

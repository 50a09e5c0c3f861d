package wm

import "context"

// WaitReason reports why MultiplexWaiter.Wait returned.
type WaitReason int

const (
	WaitEvents WaitReason = iota // the transport fd is readable
	WaitTimer                    // the timer fired (repaint throttle / deferred wakeup)
	WaitReload                   // SIGHUP-equivalent / --reconfigure
	WaitRestart                  // --restart
	WaitShutdown                 // SIGINT/SIGTERM-equivalent / --exit
	WaitError
)

// MultiplexWaiter blocks until the transport fd is readable, a timer
// fires, or a signal arrives, and reports which. pendingFlush requests a
// short poll interval instead of an indefinite one, so a tick with a
// blocked flush retries promptly instead of starving.
type MultiplexWaiter interface {
	Wait(ctx context.Context, transportFD int, pendingFlush bool) WaitReason
	Close() error
}

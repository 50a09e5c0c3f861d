// Package workerutil supervises the few goroutines the window manager runs
// outside its single-threaded core loop — the control-socket accept loop and
// the config-watch forwarder — restarting them with exponential backoff if
// they panic. The core itself (spec's tick loop) never runs under this; a
// panic there is one of the documented fatal conditions.
package workerutil

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultMaxRetries     = 10
)

// Options tunes Supervise. Zero values mean defaults; nil callbacks are
// no-ops. MaxRetries of 1 runs the worker once with no restart.
type Options struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxRetries     int

	// OnPanic fires after each recovered panic, before the backoff wait.
	// attempt is 1-based.
	OnPanic func(worker string, attempt int)

	// OnFatal fires once MaxRetries is exhausted and the worker stops
	// permanently.
	OnFatal func(worker string, maxRetries int)
}

func (o Options) withDefaults() Options {
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = defaultInitialBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = defaultMaxBackoff
	}
	if o.MaxBackoff < o.InitialBackoff {
		o.MaxBackoff = o.InitialBackoff
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetries
	}
	return o
}

// Supervise launches fn on a new goroutine tracked by wg. A panic in fn is
// recovered, logged with its stack, and fn is restarted after an exponential
// backoff until MaxRetries attempts have been spent or ctx is cancelled.
// A normal (non-panicking) return stops supervision immediately.
func Supervise(ctx context.Context, name string, wg *sync.WaitGroup, fn func(ctx context.Context), opts Options) {
	opts = opts.withDefaults()
	wg.Add(1)
	go func() {
		defer wg.Done()
		superviseLoop(ctx, name, fn, opts)
	}()
}

func superviseLoop(ctx context.Context, name string, fn func(ctx context.Context), opts Options) {
	delay := opts.InitialBackoff

	for attempt := 0; attempt < opts.MaxRetries; attempt++ {
		panicked := false
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("worker panicked",
						"worker", name,
						"panic", r,
						"stack", string(debug.Stack()))
					panicked = true
				}
			}()
			fn(ctx)
		}()

		if !panicked || ctx.Err() != nil {
			return
		}

		if opts.OnPanic != nil {
			opts.OnPanic(name, attempt+1)
		}

		// Final attempt already ran; nothing left to back off for.
		if attempt == opts.MaxRetries-1 {
			break
		}

		slog.Warn("restarting worker after panic",
			"worker", name, "delay", delay, "attempt", attempt+1)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		delay = nextBackoff(delay, opts.MaxBackoff)
	}

	slog.Error("worker exceeded max retries, giving up",
		"worker", name, "maxRetries", opts.MaxRetries)
	if opts.OnFatal != nil {
		opts.OnFatal(name, opts.MaxRetries)
	}
}

// nextBackoff doubles current, capping at maxBackoff. Doubling a large
// int64 duration can wrap negative; that also caps.
func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	if current <= 0 {
		return defaultInitialBackoff
	}
	next := current * 2
	if next > maxBackoff || next < current {
		return maxBackoff
	}
	return next
}

//go:build !linux

package wm

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// channelWaiter implements MultiplexWaiter on non-Linux platforms with a
// time.Timer and os/signal channel instead of timerfd/signalfd/epoll. The
// transport fd itself can't be multiplexed portably without
// epoll-equivalent support, so this waiter polls it on every timer tick.
type channelWaiter struct {
	timer   *time.Timer
	period  time.Duration
	sigCh   chan os.Signal
	reload  chan struct{}
	restart chan struct{}
}

// NewMultiplexWaiter builds the portable fallback waiter. reload/restart are
// optional channels an embedder (e.g. internal/ipc's control socket) can
// signal on; nil channels are simply never selected.
func NewMultiplexWaiter(period time.Duration, reload, restart chan struct{}) (MultiplexWaiter, error) {
	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	return &channelWaiter{
		timer:   time.NewTimer(period),
		period:  period,
		sigCh:   sigCh,
		reload:  reload,
		restart: restart,
	}, nil
}

func (w *channelWaiter) Wait(ctx context.Context, transportFD int, pendingFlush bool) WaitReason {
	timeout := w.period
	if pendingFlush {
		timeout = 10 * time.Millisecond
	}
	if !w.timer.Stop() {
		select {
		case <-w.timer.C:
		default:
		}
	}
	w.timer.Reset(timeout)

	select {
	case <-ctx.Done():
		return WaitShutdown
	case sig := <-w.sigCh:
		switch sig {
		case syscall.SIGHUP:
			return WaitReload
		default:
			return WaitShutdown
		}
	case <-w.reloadChan():
		return WaitReload
	case <-w.restartChan():
		return WaitRestart
	case <-w.timer.C:
		return WaitTimer
	}
}

func (w *channelWaiter) reloadChan() chan struct{} {
	if w.reload == nil {
		return nil
	}
	return w.reload
}

func (w *channelWaiter) restartChan() chan struct{} {
	if w.restart == nil {
		return nil
	}
	return w.restart
}

func (w *channelWaiter) Close() error {
	w.timer.Stop()
	signal.Stop(w.sigCh)
	return nil
}

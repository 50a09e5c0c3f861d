//go:build linux

package wm

import (
	"context"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// epollWaiter implements MultiplexWaiter on Linux using epoll plus a
// signalfd (reload/restart/shutdown) and a timerfd (repaint throttle). The
// portable fallback lives in loop_other.go.
type epollWaiter struct {
	epfd    int
	sigfd   int
	timerfd int
	period  time.Duration

	sigReload, sigRestart unix.Signal

	registeredFD int
}

// NewMultiplexWaiter builds the Linux epoll-based waiter. sigReload/
// sigRestart/sigShutdown are the signal numbers mapped to each WaitReason
// (typically SIGHUP, SIGUSR1, and SIGINT/SIGTERM respectively); period is
// the repaint-throttle tick used when nothing else is pending.
func NewMultiplexWaiter(period time.Duration, sigReload, sigRestart, sigShutdown unix.Signal) (MultiplexWaiter, error) {
	var mask unix.Sigset_t
	for _, sig := range []unix.Signal{sigReload, sigRestart, sigShutdown} {
		addSignal(&mask, sig)
	}
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &mask, nil); err != nil {
		return nil, err
	}
	sigfd, err := unix.Signalfd(-1, &mask, unix.SFD_NONBLOCK|unix.SFD_CLOEXEC)
	if err != nil {
		return nil, err
	}

	timerfd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_NONBLOCK|unix.TFD_CLOEXEC)
	if err != nil {
		unix.Close(sigfd)
		return nil, err
	}
	spec := &unix.ItimerSpec{
		Interval: unix.NsecToTimespec(period.Nanoseconds()),
		Value:    unix.NsecToTimespec(period.Nanoseconds()),
	}
	if err := unix.TimerfdSettime(timerfd, 0, spec, nil); err != nil {
		unix.Close(sigfd)
		unix.Close(timerfd)
		return nil, err
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		unix.Close(sigfd)
		unix.Close(timerfd)
		return nil, err
	}
	for _, fd := range []int{sigfd, timerfd} {
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}); err != nil {
			unix.Close(epfd)
			unix.Close(sigfd)
			unix.Close(timerfd)
			return nil, err
		}
	}

	return &epollWaiter{epfd: epfd, sigfd: sigfd, timerfd: timerfd, period: period, sigReload: sigReload, sigRestart: sigRestart, registeredFD: -1}, nil
}

// addSignal sets sig's bit directly in the Sigset_t word array, since
// golang.org/x/sys/unix exposes the raw struct without a portable
// bit-setting helper.
func addSignal(set *unix.Sigset_t, sig unix.Signal) {
	bit := uint(sig) - 1
	words := (*[16]uint64)(unsafe.Pointer(set))
	words[bit/64] |= 1 << (bit % 64)
}

func (w *epollWaiter) Wait(ctx context.Context, transportFD int, pendingFlush bool) WaitReason {
	if w.registeredFD != transportFD {
		if w.registeredFD != -1 {
			unix.EpollCtl(w.epfd, unix.EPOLL_CTL_DEL, w.registeredFD, nil)
		}
		unix.EpollCtl(w.epfd, unix.EPOLL_CTL_ADD, transportFD, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(transportFD)})
		w.registeredFD = transportFD
	}

	timeoutMS := -1
	if pendingFlush {
		timeoutMS = 10
	}

	var events [8]unix.EpollEvent
	n, err := unix.EpollWait(w.epfd, events[:], timeoutMS)
	if err != nil {
		if err == unix.EINTR {
			return WaitEvents
		}
		return WaitError
	}
	if n == 0 {
		return WaitEvents
	}
	for _, ev := range events[:n] {
		switch int(ev.Fd) {
		case w.sigfd:
			return w.readSignal()
		case w.timerfd:
			drainTimerfd(w.timerfd)
			return WaitTimer
		case transportFD:
			return WaitEvents
		}
	}
	return WaitEvents
}

func (w *epollWaiter) readSignal() WaitReason {
	var info unix.SignalfdSiginfo
	buf := (*[unsafe.Sizeof(unix.SignalfdSiginfo{})]byte)(unsafe.Pointer(&info))[:]
	n, err := unix.Read(w.sigfd, buf)
	if err != nil || n != int(unsafe.Sizeof(unix.SignalfdSiginfo{})) {
		return WaitError
	}
	switch unix.Signal(info.Signo) {
	case w.sigReload:
		return WaitReload
	case w.sigRestart:
		return WaitRestart
	default:
		return WaitShutdown
	}
}

func drainTimerfd(fd int) {
	var buf [8]byte
	unix.Read(fd, buf[:])
}

func (w *epollWaiter) Close() error {
	unix.Close(w.timerfd)
	unix.Close(w.sigfd)
	return unix.Close(w.epfd)
}

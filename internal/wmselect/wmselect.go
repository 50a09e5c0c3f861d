// Package wmselect guards the single-window-manager-per-display invariant.
// Failing to acquire the WM selection at startup is fatal; the exclusion
// primitive is the display server's selection ownership mechanism
// (Transport.AcquireSelection), not an OS mutex.
package wmselect

import (
	"errors"

	"github.com/jopamo/hxm/internal/transport"
)

// ErrAlreadyRunning is returned by TryAcquire when another client already
// owns the window-manager selection.
var ErrAlreadyRunning = errors.New("wmselect: another window manager is already running")

// Lock represents successful ownership of the WM selection. It carries no
// OS resource to release explicitly; ownership lapses when the transport
// connection closes, matching X11 selection semantics.
type Lock struct {
	owner transport.WindowID
}

// Owner returns the window used to acquire the selection.
func (l Lock) Owner() transport.WindowID { return l.owner }

// TryAcquire attempts to take ownership of the window-manager selection for
// the transport's root screen using owner as the identifying window.
func TryAcquire(tr transport.Transport, owner transport.WindowID) (Lock, error) {
	ok, err := tr.AcquireSelection(owner)
	if err != nil {
		return Lock{}, err
	}
	if !ok {
		return Lock{}, ErrAlreadyRunning
	}
	return Lock{owner: owner}, nil
}

// Release is a no-op; closing the transport is what actually relinquishes
// the selection.
func (l Lock) Release() {}

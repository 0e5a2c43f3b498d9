// File: reactor/watcher.go
// Author: momentics <momentics@gmail.com>
//
// Watcher binds one watch registration to one owner queue.

package reactor

import (
	"github.com/momentics/sockshell/api"
)

// Watcher asynchronously waits for a descriptor to become ready and
// notifies a delegate on the owner queue goroutine. It owns at most one
// registration at a time and is confined to the owner queue goroutine.
//
//	type conn struct{ w *reactor.Watcher }
//
//	func (c *conn) waitReadable(fd int) { c.w.StartWatching(fd, reactor.ModeRead, c) }
//	func (c *conn) OnObjectSignaled(fd int) { /* retry the read */ }
//
// Closing the watcher (or tearing down its queue) withdraws the
// registration, so the delegate is never called once StopWatching returned.
type Watcher struct {
	reactor *Reactor
	queue   api.TaskQueue
	watch   *Watch
}

// NewWatcher creates a watcher delivering through queue.
func NewWatcher(r *Reactor, queue api.TaskQueue) *Watcher {
	return &Watcher{reactor: r, queue: queue}
}

// StartWatching registers interest in fd for mode. It returns false if the
// watcher already owns a live registration or the reactor refused it.
func (wr *Watcher) StartWatching(fd int, mode Mode, delegate Delegate) bool {
	if wr.watch != nil || wr.reactor == nil {
		return false
	}
	w := NewWatch(fd, mode, wr.queue, delegate)
	w.watcher = wr
	if err := wr.reactor.AddWatch(w); err != nil {
		return false
	}
	wr.watch = w

	// A torn down queue must not be posted to by the reactor.
	wr.queue.AddDestructionObserver(wr)
	return true
}

// StopWatching withdraws the registration. If the notification was already
// posted, the queued task is detached and will do nothing when it runs.
// Returns false if there was nothing to stop.
func (wr *Watcher) StopWatching() bool {
	w := wr.watch
	if w == nil {
		return false
	}
	wr.reactor.RemoveWatch(w)
	w.Detach()
	wr.watch = nil
	wr.queue.RemoveDestructionObserver(wr)
	return true
}

// WatchedObject returns the watched descriptor, or -1 when stopped.
func (wr *Watcher) WatchedObject() int {
	if wr.watch == nil {
		return -1
	}
	return wr.watch.fd
}

// IsWatching reports whether a registration is live.
func (wr *Watcher) IsWatching() bool { return wr.watch != nil }

// WillDestroyCurrentQueue implements api.DestructionObserver.
func (wr *Watcher) WillDestroyCurrentQueue() {
	wr.StopWatching()
}

// Close stops watching.
func (wr *Watcher) Close() error {
	wr.StopWatching()
	return nil
}

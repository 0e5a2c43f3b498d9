// File: reactor/watch.go
// Author: momentics <momentics@gmail.com>
//
// Watch records and the multi-valued descriptor map the reactor keeps them in.

package reactor

import (
	"sync/atomic"

	"github.com/momentics/sockshell/api"
)

const (
	statePending int32 = iota
	stateSignaled
	stateCancelled
)

// Watch is one registered interest. Once handed to AddWatch it is ended by
// exactly one party: the reactor delivering it (signaled) or the owner
// withdrawing it with RemoveWatch (cancelled).
type Watch struct {
	fd       int
	mode     Mode
	queue    api.TaskQueue
	delegate Delegate
	watcher  *Watcher

	handle   uint64 // assigned by AddWatch
	state    atomic.Int32
	detached atomic.Bool
}

// NewWatch describes interest in fd for mode, to be delivered through queue.
func NewWatch(fd int, mode Mode, queue api.TaskQueue, delegate Delegate) *Watch {
	return &Watch{fd: fd, mode: mode, queue: queue, delegate: delegate}
}

// Fd returns the watched descriptor.
func (w *Watch) Fd() int { return w.fd }

// Mode returns the watched direction(s).
func (w *Watch) Mode() Mode { return w.mode }

// Handle returns the reactor-assigned handle, zero before AddWatch.
func (w *Watch) Handle() uint64 { return w.handle }

// Signaled reports whether the reactor has delivered the watch.
func (w *Watch) Signaled() bool { return w.state.Load() == stateSignaled }

// Detach makes an already delivered notification a no-op when it runs.
func (w *Watch) Detach() { w.detached.Store(true) }

// run is the task posted to the owner queue. The task owns w from here on.
func (w *Watch) run() {
	if w.detached.Load() {
		return
	}
	if w.watcher != nil {
		w.watcher.StopWatching()
	}
	w.delegate.OnObjectSignaled(w.fd)
}

func (w *Watch) wants(readReady, writeReady bool) bool {
	return (readReady && w.mode&ModeRead != 0) || (writeReady && w.mode&ModeWrite != 0)
}

// watchMap maps a descriptor to its watches, in registration order.
type watchMap struct {
	m map[int][]*Watch
	n int
}

func newWatchMap() watchMap {
	return watchMap{m: make(map[int][]*Watch)}
}

func (m *watchMap) len() int { return m.n }

func (m *watchMap) insert(w *Watch) {
	m.m[w.fd] = append(m.m[w.fd], w)
	m.n++
}

// remove erases the watch matching both fd and handle.
func (m *watchMap) remove(fd int, handle uint64) bool {
	list := m.m[fd]
	for i, w := range list {
		if w.handle != handle {
			continue
		}
		if len(list) == 1 {
			delete(m.m, fd)
		} else {
			m.m[fd] = append(list[:i:i], list[i+1:]...)
		}
		m.n--
		return true
	}
	return false
}

// take removes every watch on fd interested in a ready direction, appending
// them to out in registration order.
func (m *watchMap) take(fd int, readReady, writeReady bool, out []*Watch) []*Watch {
	list := m.m[fd]
	if len(list) == 0 {
		return out
	}
	kept := list[:0]
	for _, w := range list {
		if w.wants(readReady, writeReady) {
			out = append(out, w)
			m.n--
		} else {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		delete(m.m, fd)
	} else {
		for i := len(kept); i < len(list); i++ {
			list[i] = nil
		}
		m.m[fd] = kept
	}
	return out
}

// fold moves every watch of src into m and empties src.
func (m *watchMap) fold(src *watchMap) {
	for fd, list := range src.m {
		m.m[fd] = append(m.m[fd], list...)
		m.n += len(list)
		delete(src.m, fd)
	}
	src.n = 0
}

func (m *watchMap) clear() {
	clear(m.m)
	m.n = 0
}

// interest returns every descriptor with its OR'd interest.
func (m *watchMap) interest() map[int]Mode {
	out := make(map[int]Mode, len(m.m))
	for fd, list := range m.m {
		var mode Mode
		for _, w := range list {
			mode |= w.mode
		}
		out[fd] = mode
	}
	return out
}

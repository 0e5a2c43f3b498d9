//go:build linux || darwin || freebsd || netbsd || openbsd

// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// poll(2)-based readiness multiplexer.

package reactor

import (
	"errors"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/momentics/sockshell/affinity"
	"github.com/momentics/sockshell/api"
)

// Reactor polls registered descriptors on one goroutine and posts readiness
// notifications to the owner queue of each watch.
type Reactor struct {
	cfg config

	// ingress is the staging area shared with other goroutines.
	mu      sync.Mutex
	ingress []request
	closed  bool
	idleCh  chan struct{} // capacity 1: "something was staged"

	wake       *waker
	nextHandle atomic.Uint64
	exit       atomic.Bool
	started    atomic.Bool
	doneCh     chan struct{}

	// reactor goroutine only
	staged  watchMap
	working watchMap
	dirty   bool
	pollfds []unix.PollFd
	deliver []*Watch
	poll    func(fds []unix.PollFd, timeoutMs int) (int, error)

	pending   atomic.Int64
	workingN  atomic.Int64
	pollfdN   atomic.Int64
	polls     atomic.Uint64
	delivered atomic.Uint64
	cancelled atomic.Uint64
	refused   atomic.Uint64
}

type request struct {
	w      *Watch
	remove bool
}

// New creates a stopped reactor. Call Start to launch its goroutine and
// Close to stop it.
func New(opts ...Option) (*Reactor, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	wk, err := newWaker()
	if err != nil {
		return nil, err
	}
	return &Reactor{
		cfg:     cfg,
		idleCh:  make(chan struct{}, 1),
		wake:    wk,
		doneCh:  make(chan struct{}),
		staged:  newWatchMap(),
		working: newWatchMap(),
		poll:    unix.Poll,
	}, nil
}

// Start launches the reactor goroutine. Calling it more than once is a no-op.
func (r *Reactor) Start() {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go r.loop()
}

// Close sets the exit flag, wakes the reactor and waits (Join) for its
// goroutine to return. Watches still registered never fire. Idempotent.
func (r *Reactor) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		if r.started.Load() {
			<-r.doneCh
		}
		return nil
	}
	r.closed = true
	r.exit.Store(true)
	r.wake.signal()
	r.signalIdle()
	r.mu.Unlock()

	if r.started.Load() {
		<-r.doneCh
	}
	return r.wake.close()
}

// AddWatch registers w. Safe from any goroutine; never blocks on the
// reactor. Adding the same watch twice is a programming error.
func (r *Reactor) AddWatch(w *Watch) error {
	if w == nil || w.delegate == nil || w.queue == nil || w.mode&ModeReadWrite == 0 {
		return api.ErrInvalidArgument
	}
	if w.handle != 0 {
		panic("reactor: watch added twice")
	}
	w.handle = r.nextHandle.Add(1)
	w.state.Store(statePending)
	r.pending.Add(1)
	if !r.submit(request{w: w}) {
		w.state.Store(stateCancelled)
		r.pending.Add(-1)
		return api.ErrReactorClosed
	}
	r.count("reactor.watches_added", 1)
	return nil
}

// RemoveWatch withdraws w if it has not been delivered yet, in which case it
// is guaranteed never to fire and true is returned. A watch that was already
// signaled is left alone: its task is owned by the owner queue and false is
// returned.
func (r *Reactor) RemoveWatch(w *Watch) bool {
	if w == nil || !w.state.CompareAndSwap(statePending, stateCancelled) {
		return false
	}
	r.pending.Add(-1)
	r.cancelled.Add(1)
	r.count("reactor.watches_cancelled", 1)
	r.submit(request{w: w, remove: true})
	return true
}

// Stats returns a snapshot of the reactor counters.
func (r *Reactor) Stats() Stats {
	return Stats{
		Pending:   r.pending.Load(),
		Working:   int(r.workingN.Load()),
		PollFDs:   int(r.pollfdN.Load()),
		Polls:     r.polls.Load(),
		Delivered: r.delivered.Load(),
		Cancelled: r.cancelled.Load(),
		Refused:   r.refused.Load(),
	}
}

func (r *Reactor) submit(req request) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.ingress = append(r.ingress, req)
	r.wake.signal()
	r.signalIdle()
	return true
}

func (r *Reactor) signalIdle() {
	select {
	case r.idleCh <- struct{}{}:
	default:
	}
}

func (r *Reactor) loop() {
	defer close(r.doneCh)
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if r.cfg.cpu >= 0 {
		if err := affinity.SetAffinity(r.cfg.cpu); err != nil {
			r.cfg.logger.Warning().
				Int("cpu", r.cfg.cpu).
				Err(err).
				Log("reactor: cpu affinity not applied")
		}
	}
	r.cfg.logger.Debug().
		Dur("poll_timeout", r.cfg.pollTimeout).
		Log("reactor: started")

	for !r.exit.Load() {
		r.iterate(true)
	}
	r.shutdown()
}

// iterate runs one cycle: fold staged requests, rebuild the poll array if
// dirty, then either poll or, with nothing to poll, wait for a new watch.
func (r *Reactor) iterate(idleWait bool) {
	r.drainIngress()
	if r.dirty {
		r.recompose()
	}
	if r.working.len() == 0 {
		if idleWait {
			<-r.idleCh
		}
		return
	}
	r.pollOnce()
}

func (r *Reactor) drainIngress() {
	r.mu.Lock()
	reqs := r.ingress
	r.ingress = nil
	r.mu.Unlock()

	for _, req := range reqs {
		if !req.remove {
			r.staged.insert(req.w)
			r.dirty = true
			continue
		}
		if r.working.remove(req.w.fd, req.w.handle) || r.staged.remove(req.w.fd, req.w.handle) {
			r.dirty = true
		}
	}
}

// recompose folds the staged generation into the working one and projects
// the working map onto the poll array: the wake descriptor first, then one
// entry per descriptor in ascending order.
func (r *Reactor) recompose() {
	r.working.fold(&r.staged)

	interest := r.working.interest()
	fds := make([]int, 0, len(interest))
	for fd := range interest {
		fds = append(fds, fd)
	}
	slices.Sort(fds)

	r.pollfds = append(r.pollfds[:0], unix.PollFd{Fd: int32(r.wake.fd()), Events: unix.POLLIN})
	for _, fd := range fds {
		var events int16
		mode := interest[fd]
		if mode&ModeRead != 0 {
			events |= unix.POLLIN
		}
		if mode&ModeWrite != 0 {
			events |= unix.POLLOUT
		}
		r.pollfds = append(r.pollfds, unix.PollFd{Fd: int32(fd), Events: events})
	}

	r.workingN.Store(int64(r.working.len()))
	r.pollfdN.Store(int64(len(fds)))
	r.dirty = false
}

func (r *Reactor) pollOnce() {
	n, err := r.poll(r.pollfds, int(r.cfg.pollTimeout.Milliseconds()))
	r.polls.Add(1)
	if err != nil {
		if !errors.Is(err, unix.EINTR) {
			r.cfg.logger.Err().
				Err(err).
				Int("nfds", len(r.pollfds)).
				Log("reactor: poll failed")
		}
		return
	}
	if n <= 0 {
		return
	}

	r.deliver = r.deliver[:0]
	for i := range r.pollfds {
		pfd := &r.pollfds[i]
		revents := pfd.Revents
		pfd.Revents = 0
		if revents == 0 {
			continue
		}
		if i == 0 {
			r.wake.drain()
			continue
		}
		failed := revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0
		readReady := failed || revents&unix.POLLIN != 0
		writeReady := failed || revents&unix.POLLOUT != 0
		before := len(r.deliver)
		r.deliver = r.working.take(int(pfd.Fd), readReady, writeReady, r.deliver)
		if len(r.deliver) != before {
			r.dirty = true
		}
	}

	for i, w := range r.deliver {
		r.deliver[i] = nil
		r.post(w)
	}
	if r.dirty {
		r.workingN.Store(int64(r.working.len()))
	}
}

// post hands w to its owner queue, unless it was withdrawn while the poll
// was in flight.
func (r *Reactor) post(w *Watch) {
	if !w.state.CompareAndSwap(statePending, stateSignaled) {
		return
	}
	r.pending.Add(-1)
	if !w.queue.Post(w.run) {
		r.refused.Add(1)
		r.cfg.logger.Warning().
			Int("fd", w.fd).
			Uint64("handle", w.handle).
			Log("reactor: owner queue refused notification")
		return
	}
	r.delivered.Add(1)
	r.count("reactor.watches_delivered", 1)
}

func (r *Reactor) shutdown() {
	r.drainIngress()
	left := r.working.len() + r.staged.len()
	r.working.clear()
	r.staged.clear()
	r.workingN.Store(0)
	r.pollfdN.Store(0)
	r.cfg.logger.Debug().
		Int("abandoned", left).
		Log("reactor: stopped")
}

func (r *Reactor) count(key string, delta int64) {
	if r.cfg.counters != nil {
		r.cfg.counters.Add(key, delta)
	}
}

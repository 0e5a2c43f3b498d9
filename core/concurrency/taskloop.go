// File: core/concurrency/taskloop.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TaskLoop is the owner-side message loop: a FIFO of closures drained by a
// single goroutine. Readiness notifications from the reactor, and any
// follow-up I/O they trigger, run here. Observers registered with
// AddDestructionObserver are told when the loop is torn down, on the loop
// goroutine, before the remaining queued tasks are discarded.

package concurrency

import (
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/joeycumines/logiface"

	"github.com/momentics/sockshell/api"
)

// TaskLoop implements api.TaskQueue.
type TaskLoop struct {
	mu        sync.Mutex
	tasks     *queue.Queue // of func()
	observers []api.DestructionObserver
	closed    bool

	wakeCh  chan struct{} // capacity 1, coalesces wakeups
	quitCh  chan struct{}
	doneCh  chan struct{}
	quit    sync.Once
	running atomic.Bool
	torn    atomic.Bool

	logger *logiface.Logger[logiface.Event]
}

// LoopOption configures a TaskLoop.
type LoopOption func(*TaskLoop)

// WithLoopLogger sets the logger used to report panicking tasks.
func WithLoopLogger(l *logiface.Logger[logiface.Event]) LoopOption {
	return func(tl *TaskLoop) { tl.logger = l }
}

// NewTaskLoop creates a stopped loop. Call Run on the goroutine that should
// own it, or drive it manually with RunUntilIdle.
func NewTaskLoop(opts ...LoopOption) *TaskLoop {
	tl := &TaskLoop{
		tasks:  queue.New(),
		wakeCh: make(chan struct{}, 1),
		quitCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	for _, o := range opts {
		o(tl)
	}
	return tl
}

// Post enqueues task. Safe from any goroutine.
func (tl *TaskLoop) Post(task func()) bool {
	if task == nil {
		return false
	}
	tl.mu.Lock()
	if tl.closed {
		tl.mu.Unlock()
		return false
	}
	tl.tasks.Add(task)
	tl.mu.Unlock()

	select {
	case tl.wakeCh <- struct{}{}:
	default:
	}
	return true
}

// AddDestructionObserver implements api.TaskQueue.
func (tl *TaskLoop) AddDestructionObserver(o api.DestructionObserver) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	for _, existing := range tl.observers {
		if existing == o {
			return
		}
	}
	tl.observers = append(tl.observers, o)
}

// RemoveDestructionObserver implements api.TaskQueue.
func (tl *TaskLoop) RemoveDestructionObserver(o api.DestructionObserver) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	for i, existing := range tl.observers {
		if existing == o {
			tl.observers = append(tl.observers[:i], tl.observers[i+1:]...)
			return
		}
	}
}

// Pending returns the number of queued tasks.
func (tl *TaskLoop) Pending() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.tasks.Length()
}

// Run drains the queue until Stop is called. Only one Run may be active.
func (tl *TaskLoop) Run() {
	if !tl.running.CompareAndSwap(false, true) {
		return
	}
	defer close(tl.doneCh)

	for {
		select {
		case <-tl.quitCh:
			tl.teardown()
			return
		default:
		}

		if task, ok := tl.pop(); ok {
			tl.runTask(task)
			continue
		}

		select {
		case <-tl.quitCh:
			tl.teardown()
			return
		case <-tl.wakeCh:
		}
	}
}

// RunUntilIdle runs queued tasks on the calling goroutine until the queue is
// empty, including tasks posted by the tasks it runs. It must not be used
// concurrently with Run. Returns the number of tasks executed.
func (tl *TaskLoop) RunUntilIdle() int {
	n := 0
	for {
		task, ok := tl.pop()
		if !ok {
			return n
		}
		tl.runTask(task)
		n++
	}
}

// Stop tears the loop down. If Run is active, Stop waits for it to return;
// otherwise the teardown happens on the calling goroutine. Idempotent.
func (tl *TaskLoop) Stop() {
	tl.quit.Do(func() { close(tl.quitCh) })
	if tl.running.Load() {
		<-tl.doneCh
		return
	}
	tl.teardown()
}

// Done is closed once Run has returned.
func (tl *TaskLoop) Done() <-chan struct{} { return tl.doneCh }

func (tl *TaskLoop) pop() (func(), bool) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.tasks.Length() == 0 {
		return nil, false
	}
	return tl.tasks.Remove().(func()), true
}

func (tl *TaskLoop) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			tl.logger.Err().
				Any("panic", r).
				Log("task loop: task panicked")
		}
	}()
	task()
}

// teardown refuses further posts, notifies observers, then drops the backlog.
func (tl *TaskLoop) teardown() {
	if !tl.torn.CompareAndSwap(false, true) {
		return
	}
	tl.mu.Lock()
	tl.closed = true
	observers := make([]api.DestructionObserver, len(tl.observers))
	copy(observers, tl.observers)
	tl.mu.Unlock()

	for _, o := range observers {
		o.WillDestroyCurrentQueue()
	}

	tl.mu.Lock()
	dropped := tl.tasks.Length()
	tl.tasks = queue.New()
	tl.observers = nil
	tl.mu.Unlock()

	if dropped > 0 {
		tl.logger.Debug().
			Int("dropped", dropped).
			Log("task loop: discarded queued tasks on teardown")
	}
}

// Invoke posts fn to q and blocks until it has run. q must be driven by Run.
// It returns ErrLoopClosed if q refuses the task or is torn down before
// running it.
func Invoke(q *TaskLoop, fn func()) error {
	done := make(chan struct{})
	if !q.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrLoopClosed
	}
	select {
	case <-done:
		return nil
	case <-q.Done():
		select {
		case <-done:
			return nil
		default:
			return ErrLoopClosed
		}
	}
}

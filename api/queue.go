// File: api/queue.go
// Author: momentics <momentics@gmail.com>
//
// Owner task queue contract: the cross-goroutine posting primitive readiness
// notifications are delivered through.

package api

// TaskQueue is a FIFO work queue drained by a single goroutine. Tasks posted
// to it run one at a time, in order, on that goroutine.
type TaskQueue interface {
	// Post enqueues task. It reports false once the queue is shutting down,
	// in which case task will never run.
	Post(task func()) bool

	// AddDestructionObserver registers o to be told, on the queue goroutine,
	// that the queue is being torn down.
	AddDestructionObserver(o DestructionObserver)

	// RemoveDestructionObserver undoes AddDestructionObserver. Unknown
	// observers are ignored.
	RemoveDestructionObserver(o DestructionObserver)
}

// DestructionObserver is notified before a TaskQueue stops running tasks.
type DestructionObserver interface {
	WillDestroyCurrentQueue()
}

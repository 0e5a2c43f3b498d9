// File: reactor/stats.go
// Author: momentics <momentics@gmail.com>
//
// Reactor observability snapshot.

package reactor

// Stats is a view of reactor state. Figures are read from independent
// atomics and are eventually consistent: Pending and Working trail
// submissions until the reactor goroutine folds the staged ingress.
type Stats struct {
	Pending   int64  // watches neither delivered nor withdrawn
	Working   int    // watches reflected in the poll array
	PollFDs   int    // poll array entries, excluding the wake descriptor
	Polls     uint64 // poll(2) calls
	Delivered uint64 // notifications posted to owner queues
	Cancelled uint64 // watches withdrawn before delivery
	Refused   uint64 // notifications an owner queue refused
}

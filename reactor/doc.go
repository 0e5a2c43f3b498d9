// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides a single-goroutine readiness multiplexer for raw
// file descriptors. Interested parties register a watch (descriptor,
// direction, owner task queue, delegate); the reactor polls every registered
// descriptor with poll(2) and, once one becomes ready, posts exactly one
// notification task to the owner's queue and forgets the watch.
//
// The watch maps are owned by the reactor goroutine alone. Other goroutines
// reach them only by handing requests over the ingress list, and withdraw a
// watch synchronously through an atomic state transition that the reactor
// re-checks before delivery. A Watcher ties one registration to one owner
// queue and cancels it when that queue is torn down.
package reactor

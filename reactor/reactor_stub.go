//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"errors"

	"github.com/momentics/sockshell/api"
)

// Reactor is unavailable on this platform.
type Reactor struct{}

// New returns an error for unsupported platforms.
func New(...Option) (*Reactor, error) {
	return nil, errors.New("reactor: this platform is not supported")
}

// Start is a no-op.
func (*Reactor) Start() {}

// Close is a no-op.
func (*Reactor) Close() error { return nil }

// AddWatch always refuses the watch.
func (*Reactor) AddWatch(*Watch) error { return api.ErrReactorClosed }

// RemoveWatch reports that nothing was withdrawn.
func (*Reactor) RemoveWatch(*Watch) bool { return false }

// Stats returns zero values.
func (*Reactor) Stats() Stats { return Stats{} }

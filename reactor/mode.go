// File: reactor/mode.go
// Author: momentics <momentics@gmail.com>
//
// Watch interest modes and the delegate contract.

package reactor

// Mode selects the readiness direction(s) a watch is interested in.
type Mode uint8

const (
	ModeRead Mode = 1 << iota
	ModeWrite

	ModeReadWrite = ModeRead | ModeWrite
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	case ModeReadWrite:
		return "read|write"
	default:
		return "none"
	}
}

// Delegate receives readiness notifications, on the owner queue goroutine.
type Delegate interface {
	OnObjectSignaled(fd int)
}

// DelegateFunc adapts a function to Delegate.
type DelegateFunc func(fd int)

// OnObjectSignaled implements Delegate.
func (f DelegateFunc) OnObjectSignaled(fd int) { f(fd) }

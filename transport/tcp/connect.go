// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"fmt"

	"github.com/momentics/sockshell/api"
)

type phaseKind uint8

const (
	phaseIdle phaseKind = iota
	// phaseConnecting: an attempt on candidate index is about to start.
	phaseConnecting
	// phaseVerifying: the attempt on index is in flight, waiting for the
	// socket to turn writable.
	phaseVerifying
	phaseEstablished
	phaseFailed
)

var phaseNames = [...]string{"idle", "connecting", "verifying", "established", "failed"}

func (k phaseKind) String() string {
	if int(k) < len(phaseNames) {
		return phaseNames[k]
	}
	return fmt.Sprintf("phase(%d)", k)
}

// phase is the connect state machine position.
type phase struct {
	kind  phaseKind
	index int
	err   error
}

func (p phase) String() string {
	switch p.kind {
	case phaseIdle:
		return "idle"
	case phaseFailed:
		return fmt.Sprintf("failed(%v)", p.err)
	default:
		return fmt.Sprintf("%s(%d)", p.kind, p.index)
	}
}

// advance maps the outcome of the attempt p stands for onto the next phase.
// result is nil on success, api.ErrIOPending while the attempt is still in
// flight, or the attempt's error. n is the number of candidates. Failures
// fall through to the next candidate; only the last one's error survives.
func advance(p phase, result error, n int) phase {
	if p.kind != phaseConnecting && p.kind != phaseVerifying {
		return phase{kind: phaseFailed, index: p.index, err: api.ErrUnexpected}
	}
	switch {
	case result == nil:
		return phase{kind: phaseEstablished, index: p.index}
	case api.IsPending(result):
		return phase{kind: phaseVerifying, index: p.index}
	case p.index+1 < n:
		return phase{kind: phaseConnecting, index: p.index + 1}
	default:
		return phase{kind: phaseFailed, index: p.index, err: result}
	}
}

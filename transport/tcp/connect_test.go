package tcp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/momentics/sockshell/api"
)

func TestAdvance(t *testing.T) {
	refused := api.NewError(api.ErrCodeConnectionRefused, "connect", 0)
	for _, tc := range []struct {
		name   string
		from   phase
		result error
		n      int
		want   phase
	}{
		{"immediate success", phase{kind: phaseConnecting}, nil, 2, phase{kind: phaseEstablished}},
		{"in flight", phase{kind: phaseConnecting, index: 1}, api.ErrIOPending, 2, phase{kind: phaseVerifying, index: 1}},
		{"verified", phase{kind: phaseVerifying, index: 1}, nil, 2, phase{kind: phaseEstablished, index: 1}},
		{"spurious wake", phase{kind: phaseVerifying}, api.ErrIOPending, 1, phase{kind: phaseVerifying}},
		{"fall back", phase{kind: phaseVerifying}, refused, 2, phase{kind: phaseConnecting, index: 1}},
		{"fall back from sync failure", phase{kind: phaseConnecting}, refused, 3, phase{kind: phaseConnecting, index: 1}},
		{"last fails", phase{kind: phaseVerifying, index: 1}, refused, 2, phase{kind: phaseFailed, index: 1, err: refused}},
		{"idle is not a connect", phase{kind: phaseIdle}, nil, 1, phase{kind: phaseFailed, err: api.ErrUnexpected}},
		{"established is terminal", phase{kind: phaseEstablished}, nil, 1, phase{kind: phaseFailed, err: api.ErrUnexpected}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := advance(tc.from, tc.result, tc.n)
			assert.Equal(t, tc.want.kind, got.kind)
			assert.Equal(t, tc.want.index, got.index)
			assert.True(t, errors.Is(got.err, tc.want.err) || got.err == tc.want.err)
		})
	}
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", phase{}.String())
	assert.Equal(t, "verifying(2)", phase{kind: phaseVerifying, index: 2}.String())
	assert.Equal(t, "failed(timed out)", phase{kind: phaseFailed, err: api.ErrTimeout}.String())
	assert.Equal(t, "phase(9)", phaseKind(9).String())
}

package api_test

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/momentics/sockshell/api"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := api.NewError(api.ErrCodeTimeout, "connect", syscall.ETIMEDOUT)
	assert.ErrorIs(t, err, api.ErrTimeout)
	assert.NotErrorIs(t, err, api.ErrConnectionReset)
	assert.ErrorIs(t, err, syscall.ETIMEDOUT)

	wrapped := fmt.Errorf("dial: %w", err)
	assert.ErrorIs(t, wrapped, api.ErrTimeout)
	assert.Equal(t, api.ErrCodeTimeout, api.CodeOf(wrapped))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, api.ErrCodeOK, api.CodeOf(nil))
	assert.Equal(t, api.ErrCodeUnknown, api.CodeOf(errors.New("other")))
	assert.True(t, api.IsPending(api.ErrIOPending))
	assert.False(t, api.IsPending(api.ErrWouldBlock))
}

func TestErrorMessageCarriesErrno(t *testing.T) {
	err := api.NewError(api.ErrCodeUnknown, "read", syscall.EIO)
	assert.Contains(t, err.Error(), "read: failed")
	assert.Contains(t, err.Error(), fmt.Sprintf("errno %d", int(syscall.EIO)))
	assert.Equal(t, "unexpected", api.ErrCodeUnexpected.String())
	assert.Equal(t, "code(99)", api.ErrorCode(99).String())
}

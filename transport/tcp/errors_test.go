//go:build linux || darwin

package tcp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"

	"github.com/momentics/sockshell/api"
)

func TestErrnoCode(t *testing.T) {
	for errno, want := range map[unix.Errno]api.ErrorCode{
		unix.EAGAIN:        api.ErrCodeWouldBlock,
		unix.EBADF:         api.ErrCodeInvalidHandle,
		unix.EINVAL:        api.ErrCodeInvalidArgument,
		unix.ENOPROTOOPT:   api.ErrCodeInvalidArgument,
		unix.EADDRNOTAVAIL: api.ErrCodeAddressUnreachable,
		unix.EHOSTUNREACH:  api.ErrCodeAddressUnreachable,
		unix.ENETUNREACH:   api.ErrCodeAddressUnreachable,
		unix.ECONNRESET:    api.ErrCodeConnectionReset,
		unix.EPIPE:         api.ErrCodeConnectionReset,
		unix.ECONNREFUSED:  api.ErrCodeConnectionRefused,
		unix.EMFILE:        api.ErrCodeResourceExhausted,
		unix.ENOBUFS:       api.ErrCodeResourceExhausted,
		unix.ENOTCONN:      api.ErrCodeNotConnected,
		unix.ETIMEDOUT:     api.ErrCodeTimeout,
		unix.EACCES:        api.ErrCodeAccessDenied,
		unix.EPERM:         api.ErrCodeAccessDenied,
		unix.EPROTO:        api.ErrCodeUnknown,
	} {
		assert.Equal(t, want, errnoCode(errno), errno.Error())
	}
}

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr("read", nil))
	assert.NoError(t, mapErr("read", unix.Errno(0)))
	assert.ErrorIs(t, mapErr("read", errors.New("opaque")), api.ErrUnexpected)

	err := mapErr("write", unix.EPROTO)
	assert.ErrorIs(t, err, api.ErrUnknown)
	assert.ErrorIs(t, err, unix.EPROTO, "raw errno preserved")

	assert.ErrorIs(t, mapConnectErr("connect", unix.EPROTO), api.ErrConnectionFailed)
	assert.ErrorIs(t, mapConnectErr("connect", unix.ETIMEDOUT), api.ErrTimeout)
	assert.ErrorIs(t, mapConnectErr("connect", unix.EACCES), api.ErrAccessDenied)
}

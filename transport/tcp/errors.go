//go:build linux || darwin

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/momentics/sockshell/api"
)

// errnoCode classifies an OS error number.
func errnoCode(errno unix.Errno) api.ErrorCode {
	switch errno {
	case 0:
		return api.ErrCodeOK
	case unix.EAGAIN:
		return api.ErrCodeWouldBlock
	case unix.EBADF:
		return api.ErrCodeInvalidHandle
	case unix.EINVAL, unix.ENOPROTOOPT:
		return api.ErrCodeInvalidArgument
	case unix.EADDRNOTAVAIL, unix.EHOSTUNREACH, unix.ENETUNREACH:
		return api.ErrCodeAddressUnreachable
	case unix.ECONNRESET, unix.EPIPE:
		return api.ErrCodeConnectionReset
	case unix.ECONNREFUSED:
		return api.ErrCodeConnectionRefused
	case unix.EMFILE, unix.ENFILE, unix.ENOBUFS, unix.ENOMEM:
		return api.ErrCodeResourceExhausted
	case unix.ENOTCONN:
		return api.ErrCodeNotConnected
	case unix.ETIMEDOUT:
		return api.ErrCodeTimeout
	case unix.EACCES, unix.EPERM:
		return api.ErrCodeAccessDenied
	default:
		return api.ErrCodeUnknown
	}
}

// mapErr classifies a failed syscall made for op. Errors that carry no
// errno are unexpected.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return api.NewError(api.ErrCodeUnexpected, op, 0)
	}
	if errno == 0 {
		return nil
	}
	return api.NewError(errnoCode(errno), op, errno)
}

// mapConnectErr is mapErr for connect outcomes: unclassified errnos become
// ErrCodeConnectionFailed.
func mapConnectErr(op string, err error) error {
	mapped := mapErr(op, err)
	var e *api.Error
	if errors.As(mapped, &e) && e.Code == api.ErrCodeUnknown {
		e.Code = api.ErrCodeConnectionFailed
	}
	return mapped
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

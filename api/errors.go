// Package api
// Author: momentics <momentics@gmail.com>
//
// Error taxonomy shared by the reactor and the TCP transport.

package api

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrorCode classifies socket layer failures independently of the OS errno.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	// ErrCodeIOPending is not a failure: a watch was registered and the
	// completion callback will fire exactly once.
	ErrCodeIOPending
	// ErrCodeWouldBlock only ever signals the pending transition internally.
	ErrCodeWouldBlock
	ErrCodeConnectionReset
	ErrCodeConnectionRefused
	ErrCodeConnectionFailed
	ErrCodeTimeout
	ErrCodeAddressUnreachable
	ErrCodeAccessDenied
	ErrCodeInvalidArgument
	ErrCodeInvalidHandle
	ErrCodeResourceExhausted
	ErrCodeNotConnected
	ErrCodeUnexpected
	ErrCodeUnknown
)

var codeNames = map[ErrorCode]string{
	ErrCodeOK:                 "ok",
	ErrCodeIOPending:          "io pending",
	ErrCodeWouldBlock:         "would block",
	ErrCodeConnectionReset:    "connection reset",
	ErrCodeConnectionRefused:  "connection refused",
	ErrCodeConnectionFailed:   "connection failed",
	ErrCodeTimeout:            "timed out",
	ErrCodeAddressUnreachable: "address unreachable",
	ErrCodeAccessDenied:       "access denied",
	ErrCodeInvalidArgument:    "invalid argument",
	ErrCodeInvalidHandle:      "invalid handle",
	ErrCodeResourceExhausted:  "insufficient resources",
	ErrCodeNotConnected:       "socket not connected",
	ErrCodeUnexpected:         "unexpected",
	ErrCodeUnknown:            "failed",
}

func (c ErrorCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error is a classified failure. Errno carries the raw OS code, if any, for
// diagnostics.
type Error struct {
	Code  ErrorCode
	Op    string
	Errno syscall.Errno
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Errno != 0 {
		msg = fmt.Sprintf("%s (errno %d: %v)", msg, int(e.Errno), e.Errno)
	}
	return msg
}

// Is matches any *Error with the same code, so errors.Is(err, ErrTimeout)
// works regardless of the op or errno attached.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Unwrap exposes the raw errno.
func (e *Error) Unwrap() error {
	if e.Errno == 0 {
		return nil
	}
	return e.Errno
}

// NewError creates a classified error.
func NewError(code ErrorCode, op string, errno syscall.Errno) *Error {
	return &Error{Code: code, Op: op, Errno: errno}
}

// Sentinel values, one per code, for use with errors.Is.
var (
	ErrIOPending          = &Error{Code: ErrCodeIOPending}
	ErrWouldBlock         = &Error{Code: ErrCodeWouldBlock}
	ErrConnectionReset    = &Error{Code: ErrCodeConnectionReset}
	ErrConnectionRefused  = &Error{Code: ErrCodeConnectionRefused}
	ErrConnectionFailed   = &Error{Code: ErrCodeConnectionFailed}
	ErrTimeout            = &Error{Code: ErrCodeTimeout}
	ErrAddressUnreachable = &Error{Code: ErrCodeAddressUnreachable}
	ErrAccessDenied       = &Error{Code: ErrCodeAccessDenied}
	ErrInvalidArgument    = &Error{Code: ErrCodeInvalidArgument}
	ErrInvalidHandle      = &Error{Code: ErrCodeInvalidHandle}
	ErrResourceExhausted  = &Error{Code: ErrCodeResourceExhausted}
	ErrNotConnected       = &Error{Code: ErrCodeNotConnected}
	ErrUnexpected         = &Error{Code: ErrCodeUnexpected}
	ErrUnknown            = &Error{Code: ErrCodeUnknown}

	ErrReactorClosed = errors.New("reactor is closed")
	ErrQueueClosed   = errors.New("task queue is closed")
)

// CodeOf returns the classification of err, ErrCodeOK for nil and
// ErrCodeUnknown for errors outside the taxonomy.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeUnknown
}

// IsPending reports whether err signals a registered, still outstanding
// operation.
func IsPending(err error) bool {
	return CodeOf(err) == ErrCodeIOPending
}

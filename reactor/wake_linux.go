//go:build linux

// File: reactor/wake_linux.go
// Author: momentics <momentics@gmail.com>
//
// eventfd(2) wake descriptor used to interrupt poll(2).

package reactor

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

type waker struct {
	efd int
}

func newWaker() (*waker, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}
	return &waker{efd: fd}, nil
}

func (w *waker) fd() int { return w.efd }

func (w *waker) signal() {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	_, _ = unix.Write(w.efd, buf[:])
}

func (w *waker) drain() {
	var buf [8]byte
	_, _ = unix.Read(w.efd, buf[:])
}

func (w *waker) close() error {
	return unix.Close(w.efd)
}

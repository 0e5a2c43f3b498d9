//go:build linux || darwin

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"golang.org/x/sys/unix"
)

// unixSys issues real syscalls.
type unixSys struct{}

func (unixSys) socket(family int) (int, error) {
	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(fd)
	return fd, nil
}

func (unixSys) connect(fd int, sa unix.Sockaddr) error {
	err := unix.Connect(fd, sa)
	if err == unix.EINTR {
		// The attempt continues asynchronously.
		return unix.EINPROGRESS
	}
	return err
}

func (unixSys) bind(fd int, sa unix.Sockaddr) error { return unix.Bind(fd, sa) }

func (unixSys) socketError(fd int) (unix.Errno, error) {
	v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return 0, err
	}
	return unix.Errno(v), nil
}

func (unixSys) getsockname(fd int) (unix.Sockaddr, error) { return unix.Getsockname(fd) }

func (unixSys) getpeername(fd int) (unix.Sockaddr, error) { return unix.Getpeername(fd) }

func (unixSys) read(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

func (unixSys) write(fd int, p []byte) (int, error) {
	for {
		n, err := unix.SendmsgN(fd, p, nil, nil, sendFlags)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		return n, nil
	}
}

func (unixSys) peek(fd int) (int, error) {
	var b [1]byte
	n, _, err := unix.Recvfrom(fd, b[:], unix.MSG_PEEK|unix.MSG_DONTWAIT)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (unixSys) setsockoptInt(fd, level, opt, value int) error {
	return unix.SetsockoptInt(fd, level, opt, value)
}

func (unixSys) setNonblock(fd int) error { return unix.SetNonblock(fd, true) }

func (unixSys) shutdown(fd int) error { return unix.Shutdown(fd, unix.SHUT_RDWR) }

func (unixSys) close(fd int) error { return unix.Close(fd) }

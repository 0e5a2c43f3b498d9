//go:build darwin

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"time"

	"golang.org/x/sys/unix"
)

const sendFlags = 0

// platformSetup disables SIGPIPE per socket; darwin has no MSG_NOSIGNAL.
func platformSetup(sys sysOps, fd int) error {
	return sys.setsockoptInt(fd, unix.SOL_SOCKET, unix.SO_NOSIGPIPE, 1)
}

func setKeepAlive(sys sysOps, fd int, enable bool, interval time.Duration) error {
	on := 0
	if enable {
		on = 1
	}
	if err := sys.setsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, on); err != nil {
		return err
	}
	if !enable {
		return nil
	}
	secs := int(interval / time.Second)
	if secs < 1 {
		secs = 1
	}
	return sys.setsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPALIVE, secs)
}

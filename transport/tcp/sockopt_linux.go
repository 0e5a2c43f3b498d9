//go:build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"time"

	"golang.org/x/sys/unix"
)

// sendFlags keeps a peer reset from raising SIGPIPE.
const sendFlags = unix.MSG_NOSIGNAL | unix.MSG_DONTWAIT

func platformSetup(sysOps, int) error { return nil }

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
	if err := sys.setsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, secs); err != nil {
		return err
	}
	return sys.setsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, secs)
}

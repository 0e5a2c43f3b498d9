//go:build linux || darwin

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"net"
	"net/netip"
	"strconv"

	"golang.org/x/sys/unix"
)

// sysOps is the socket syscall surface used by ClientSocket. Every call is
// non-blocking.
type sysOps interface {
	socket(family int) (int, error)
	connect(fd int, sa unix.Sockaddr) error
	bind(fd int, sa unix.Sockaddr) error
	// socketError returns and clears SO_ERROR.
	socketError(fd int) (unix.Errno, error)
	getsockname(fd int) (unix.Sockaddr, error)
	getpeername(fd int) (unix.Sockaddr, error)
	read(fd int, p []byte) (int, error)
	write(fd int, p []byte) (int, error)
	// peek reports whether a byte is available without consuming it.
	peek(fd int) (int, error)
	setsockoptInt(fd, level, opt, value int) error
	setNonblock(fd int) error
	shutdown(fd int) error
	close(fd int) error
}

// toSockaddr converts ap and reports its address family.
func toSockaddr(ap netip.AddrPort) (unix.Sockaddr, int, bool) {
	addr := ap.Addr()
	switch {
	case addr.Is4():
		return &unix.SockaddrInet4{Port: int(ap.Port()), Addr: addr.As4()}, unix.AF_INET, true
	case addr.Is4In6():
		return &unix.SockaddrInet4{Port: int(ap.Port()), Addr: addr.Unmap().As4()}, unix.AF_INET, true
	case addr.Is6():
		sa := &unix.SockaddrInet6{Port: int(ap.Port()), Addr: addr.As16()}
		if zone := addr.Zone(); zone != "" {
			sa.ZoneId = zoneIndex(zone)
		}
		return sa, unix.AF_INET6, true
	default:
		return nil, 0, false
	}
}

func fromSockaddr(sa unix.Sockaddr) (netip.AddrPort, bool) {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port)), true
	case *unix.SockaddrInet6:
		addr := netip.AddrFrom16(sa.Addr)
		if sa.ZoneId != 0 {
			addr = addr.WithZone(strconv.FormatUint(uint64(sa.ZoneId), 10))
		}
		return netip.AddrPortFrom(addr, uint16(sa.Port)), true
	default:
		return netip.AddrPort{}, false
	}
}

func zoneIndex(zone string) uint32 {
	if n, err := strconv.ParseUint(zone, 10, 32); err == nil {
		return uint32(n)
	}
	if ifi, err := net.InterfaceByName(zone); err == nil {
		return uint32(ifi.Index)
	}
	return 0
}

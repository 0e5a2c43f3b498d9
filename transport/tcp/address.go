// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// AddressList is an ordered list of connect candidates. Connect tries them
// in order and stops at the first that succeeds.
type AddressList []netip.AddrPort

// ParseAddressList parses "ip:port" literals.
func ParseAddressList(addrs ...string) (AddressList, error) {
	out := make(AddressList, 0, len(addrs))
	for _, a := range addrs {
		ap, err := netip.ParseAddrPort(a)
		if err != nil {
			return nil, fmt.Errorf("tcp: parse %q: %w", a, err)
		}
		out = append(out, netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()))
	}
	return out, nil
}

// Resolve looks up host and returns one candidate per address, in resolver
// order. An IP literal host resolves to itself.
func Resolve(ctx context.Context, hostport string) (AddressList, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, fmt.Errorf("tcp: %w", err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("tcp: port %q: %w", portStr, err)
	}
	ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("tcp: resolve %s: %w", host, err)
	}
	out := make(AddressList, 0, len(ips))
	for _, ip := range ips {
		out = append(out, netip.AddrPortFrom(ip.Unmap(), uint16(port)))
	}
	return out, nil
}

func (l AddressList) String() string {
	parts := make([]string, len(l))
	for i, ap := range l {
		parts[i] = ap.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

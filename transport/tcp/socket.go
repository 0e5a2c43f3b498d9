//go:build linux || darwin

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"errors"
	"net/netip"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/sockshell/api"
	"github.com/momentics/sockshell/reactor"
)

// watcher is the part of reactor.Watcher the socket drives.
type watcher interface {
	StartWatching(fd int, mode reactor.Mode, d reactor.Delegate) bool
	StopWatching() bool
	IsWatching() bool
}

// ClientSocket is a non-blocking TCP client socket. It owns at most one
// descriptor at a time and allows one outstanding read and one outstanding
// write, independently.
type ClientSocket struct {
	opts  options
	sys   sysOps
	addrs AddressList

	fd    int
	phase phase
	local netip.AddrPort // Bind address, zero if unset

	readWatcher  watcher
	writeWatcher watcher
	onReadable   reactor.Delegate
	onWritable   reactor.Delegate

	connectCB func(error)
	readBuf   []byte
	readCB    func(int, error)
	writeBuf  []byte
	writeCB   func(int, error)

	connectStart time.Time
	connectTime  time.Duration
	numBytesRead int64
	everUsed     bool
	disconnected bool // reset use history on the next attempt
	closed       bool
}

// NewClientSocket creates a disconnected socket that connects to addrs in
// order. The socket is confined to queue's goroutine; notifications come
// from r.
func NewClientSocket(r *reactor.Reactor, queue api.TaskQueue, addrs AddressList, opts ...Option) *ClientSocket {
	return newClientSocket(unixSys{}, reactor.NewWatcher(r, queue), reactor.NewWatcher(r, queue), addrs, opts...)
}

func newClientSocket(sys sysOps, rw, ww watcher, addrs AddressList, opts ...Option) *ClientSocket {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &ClientSocket{
		opts:         o,
		sys:          sys,
		addrs:        append(AddressList(nil), addrs...),
		fd:           -1,
		readWatcher:  rw,
		writeWatcher: ww,
		disconnected: true,
	}
	s.onReadable = reactor.DelegateFunc(func(int) { s.didCompleteRead() })
	s.onWritable = reactor.DelegateFunc(func(int) {
		if s.waitingConnect() {
			s.didCompleteConnect()
			return
		}
		s.didCompleteWrite()
	})
	return s
}

// Connect connects to the first reachable candidate. It returns nil when
// connected, including when the socket already was, api.ErrIOPending when
// cb will be called later, or the last candidate's error.
func (s *ClientSocket) Connect(cb func(error)) error {
	if s.closed {
		return api.NewError(api.ErrCodeInvalidHandle, "connect", 0)
	}
	if s.fd >= 0 && !s.waitingConnect() {
		return nil
	}
	if s.waitingConnect() || cb == nil || len(s.addrs) == 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "connect", 0)
	}
	s.count("tcp.connect", 1)
	s.opts.logger.Debug().
		Str("addrs", s.addrs.String()).
		Log("tcp: connect")

	p := s.runConnect(phase{kind: phaseConnecting}, nil)
	if p.kind == phaseVerifying {
		s.phase = p
		s.connectCB = cb
		return api.ErrIOPending
	}
	return s.finishConnect(p)
}

// runConnect drives the connect machine from p until it settles or waits on
// the reactor. result is the outcome of the attempt p stands for when p is
// phaseVerifying.
func (s *ClientSocket) runConnect(p phase, result error) phase {
	for {
		if p.kind == phaseConnecting {
			result = s.attempt(p.index)
		}
		if !api.IsPending(result) {
			s.endAttempt(p.index, result)
		}
		next := advance(p, result, len(s.addrs))
		switch next.kind {
		case phaseEstablished:
			s.connectTime = time.Since(s.connectStart)
		case phaseConnecting, phaseFailed:
			s.doDisconnect()
		}
		if next.kind != phaseConnecting {
			return next
		}
		p = next
	}
}

// attempt starts a connect to candidate i on a fresh socket.
func (s *ClientSocket) attempt(i int) error {
	ap := s.addrs[i]
	if s.disconnected {
		s.everUsed = false
		s.disconnected = false
	}
	s.opts.logger.Debug().
		Str("addr", ap.String()).
		Int("index", i).
		Log("tcp: connect attempt")

	sa, family, ok := toSockaddr(ap)
	if !ok {
		return api.NewError(api.ErrCodeInvalidArgument, "connect", 0)
	}
	fd, err := s.createSocket(family)
	if err != nil {
		return err
	}
	s.fd = fd
	s.connectStart = time.Now()

	if s.local.IsValid() {
		lsa, lfamily, _ := toSockaddr(s.local)
		if lfamily != family {
			return api.NewError(api.ErrCodeAddressUnreachable, "bind", 0)
		}
		if err := s.sys.bind(fd, lsa); err != nil {
			return mapErr("bind", err)
		}
	}

	err = s.sys.connect(fd, sa)
	switch {
	case err == nil:
		// Loopback peers may accept before connect returns.
		s.opts.logger.Debug().
			Str("addr", ap.String()).
			Int("fd", fd).
			Log("tcp: connect completed immediately")
		return nil
	case !errors.Is(err, unix.EINPROGRESS):
		return mapErr("connect", err)
	}
	// A connecting socket reports completion as writability.
	if !s.writeWatcher.StartWatching(fd, reactor.ModeWrite, s.onWritable) {
		return api.NewError(api.ErrCodeUnexpected, "connect", 0)
	}
	return api.ErrIOPending
}

func (s *ClientSocket) endAttempt(i int, result error) {
	if result == nil {
		s.opts.logger.Debug().
			Str("addr", s.addrs[i].String()).
			Log("tcp: connect attempt succeeded")
		return
	}
	s.opts.logger.Debug().
		Str("addr", s.addrs[i].String()).
		Str("code", api.CodeOf(result).String()).
		Err(result).
		Log("tcp: connect attempt failed")
}

// didCompleteConnect runs when the in-flight attempt's socket turns writable.
func (s *ClientSocket) didCompleteConnect() {
	result := s.verifyConnect()
	if api.IsPending(result) {
		return
	}
	p := s.runConnect(s.phase, result)
	if p.kind == phaseVerifying {
		s.phase = p
		return
	}
	cb := s.connectCB
	s.connectCB = nil
	err := s.finishConnect(p)
	if cb != nil {
		cb(err)
	}
}

// verifyConnect reads the outcome of the in-flight connect. A wake that
// arrives before the handshake finished re-arms the watch and reports
// api.ErrIOPending.
func (s *ClientSocket) verifyConnect() error {
	errno, err := s.sys.socketError(s.fd)
	if err != nil {
		return mapConnectErr("connect", err)
	}
	if errno != 0 {
		if errno == unix.EINPROGRESS || errno == unix.EALREADY {
			return s.rearmConnect()
		}
		return mapConnectErr("connect", errno)
	}
	if _, err := s.sys.getpeername(s.fd); errors.Is(err, unix.ENOTCONN) {
		return s.rearmConnect()
	}
	return nil
}

func (s *ClientSocket) rearmConnect() error {
	if !s.writeWatcher.StartWatching(s.fd, reactor.ModeWrite, s.onWritable) {
		return api.NewError(api.ErrCodeUnexpected, "connect", 0)
	}
	return api.ErrIOPending
}

// finishConnect settles a terminal phase and returns the connect result.
func (s *ClientSocket) finishConnect(p phase) error {
	if p.kind != phaseEstablished {
		s.phase = phase{kind: phaseIdle}
		s.opts.logger.Info().
			Str("addrs", s.addrs.String()).
			Str("code", api.CodeOf(p.err).String()).
			Err(p.err).
			Log("tcp: connect failed")
		return p.err
	}
	s.phase = p
	b := s.opts.logger.Info().
		Str("peer", s.addrs[p.index].String()).
		Int("fd", s.fd).
		Dur("connect_time", s.connectTime)
	if local, err := s.LocalAddress(); err == nil {
		b = b.Str("source", local.String())
	}
	b.Log("tcp: connected")
	return nil
}

// Disconnect closes the descriptor. Outstanding operations are abandoned:
// their callbacks never run.
func (s *ClientSocket) Disconnect() {
	s.doDisconnect()
	s.phase = phase{kind: phaseIdle}
	s.connectCB = nil
}

func (s *ClientSocket) doDisconnect() {
	if s.fd < 0 {
		return
	}
	s.readWatcher.StopWatching()
	s.writeWatcher.StopWatching()
	s.sys.shutdown(s.fd)
	if err := s.sys.close(s.fd); err != nil {
		s.opts.logger.Debug().Int("fd", s.fd).Err(err).Log("tcp: close")
	}
	s.fd = -1
	s.readBuf, s.readCB = nil, nil
	s.writeBuf, s.writeCB = nil, nil
	s.disconnected = true
}

// Close disconnects and retires the socket.
func (s *ClientSocket) Close() error {
	s.Disconnect()
	s.closed = true
	return nil
}

func (s *ClientSocket) waitingConnect() bool {
	return s.phase.kind == phaseVerifying
}

// IsConnected reports whether the socket is established and the peer has
// not closed or reset it.
func (s *ClientSocket) IsConnected() bool {
	if s.fd < 0 || s.phase.kind != phaseEstablished {
		return false
	}
	n, err := s.sys.peek(s.fd)
	if err != nil {
		return isWouldBlock(err)
	}
	return n > 0
}

// IsConnectedAndIdle is IsConnected with no unread data pending.
func (s *ClientSocket) IsConnectedAndIdle() bool {
	if s.fd < 0 || s.phase.kind != phaseEstablished {
		return false
	}
	_, err := s.sys.peek(s.fd)
	return err != nil && isWouldBlock(err)
}

// PeerAddress returns the connected candidate.
func (s *ClientSocket) PeerAddress() (netip.AddrPort, error) {
	if !s.IsConnected() {
		return netip.AddrPort{}, api.ErrNotConnected
	}
	if s.phase.index < 0 {
		return s.sockAddr("getpeername", s.sys.getpeername)
	}
	return s.addrs[s.phase.index], nil
}

// LocalAddress returns the address the socket is bound to.
func (s *ClientSocket) LocalAddress() (netip.AddrPort, error) {
	if s.fd < 0 || s.phase.kind != phaseEstablished {
		return netip.AddrPort{}, api.ErrNotConnected
	}
	return s.sockAddr("getsockname", s.sys.getsockname)
}

func (s *ClientSocket) sockAddr(op string, get func(int) (unix.Sockaddr, error)) (netip.AddrPort, error) {
	sa, err := get(s.fd)
	if err != nil {
		return netip.AddrPort{}, mapErr(op, err)
	}
	ap, ok := fromSockaddr(sa)
	if !ok {
		return netip.AddrPort{}, api.NewError(api.ErrCodeUnknown, op, 0)
	}
	return ap, nil
}

// Read reads into buf. It returns the byte count (zero at end of stream), or
// api.ErrIOPending, in which case cb receives the result later and buf must
// stay untouched until then.
func (s *ClientSocket) Read(buf []byte, cb func(int, error)) (int, error) {
	if s.fd < 0 || s.waitingConnect() {
		return 0, api.NewError(api.ErrCodeNotConnected, "read", 0)
	}
	if len(buf) == 0 || cb == nil || s.readCB != nil {
		return 0, api.NewError(api.ErrCodeInvalidArgument, "read", 0)
	}
	n, err := s.sys.read(s.fd, buf)
	if err == nil {
		s.didRead(n)
		return n, nil
	}
	if !isWouldBlock(err) {
		return 0, mapErr("read", err)
	}
	s.readBuf, s.readCB = buf, cb
	if !s.readWatcher.StartWatching(s.fd, reactor.ModeRead, s.onReadable) {
		s.readBuf, s.readCB = nil, nil
		return 0, api.NewError(api.ErrCodeUnexpected, "read", 0)
	}
	return 0, api.ErrIOPending
}

func (s *ClientSocket) didCompleteRead() {
	if s.readCB == nil {
		return
	}
	n, err := s.sys.read(s.fd, s.readBuf)
	if err != nil && isWouldBlock(err) {
		if s.readWatcher.StartWatching(s.fd, reactor.ModeRead, s.onReadable) {
			return
		}
		err = api.NewError(api.ErrCodeUnexpected, "read", 0)
	}
	if err == nil {
		s.didRead(n)
	} else {
		err = mapErr("read", err)
	}
	cb := s.readCB
	s.readBuf, s.readCB = nil, nil
	cb(n, err)
}

func (s *ClientSocket) didRead(n int) {
	s.count("tcp.read_bytes", int64(n))
	s.numBytesRead += int64(n)
	if n > 0 {
		s.everUsed = true
	}
	s.opts.logger.Trace().
		Int("fd", s.fd).
		Int("bytes", n).
		Log("tcp: bytes received")
}

// Write writes from buf. It returns the byte count, which may be short, or
// api.ErrIOPending, in which case cb receives the result later and buf must
// stay untouched until then.
func (s *ClientSocket) Write(buf []byte, cb func(int, error)) (int, error) {
	if s.fd < 0 || s.waitingConnect() {
		return 0, api.NewError(api.ErrCodeNotConnected, "write", 0)
	}
	if len(buf) == 0 || cb == nil || s.writeCB != nil {
		return 0, api.NewError(api.ErrCodeInvalidArgument, "write", 0)
	}
	s.count("tcp.writes", 1)
	n, err := s.sys.write(s.fd, buf)
	if err == nil {
		s.didWrite(n)
		return n, nil
	}
	if !isWouldBlock(err) {
		return 0, mapErr("write", err)
	}
	s.writeBuf, s.writeCB = buf, cb
	if !s.writeWatcher.StartWatching(s.fd, reactor.ModeWrite, s.onWritable) {
		s.writeBuf, s.writeCB = nil, nil
		return 0, api.NewError(api.ErrCodeUnexpected, "write", 0)
	}
	return 0, api.ErrIOPending
}

func (s *ClientSocket) didCompleteWrite() {
	if s.writeCB == nil {
		return
	}
	n, err := s.sys.write(s.fd, s.writeBuf)
	if err != nil && isWouldBlock(err) {
		if s.writeWatcher.StartWatching(s.fd, reactor.ModeWrite, s.onWritable) {
			return
		}
		err = api.NewError(api.ErrCodeUnexpected, "write", 0)
	}
	if err == nil {
		s.didWrite(n)
	} else {
		err = mapErr("write", err)
	}
	cb := s.writeCB
	s.writeBuf, s.writeCB = nil, nil
	cb(n, err)
}

func (s *ClientSocket) didWrite(n int) {
	s.count("tcp.write_bytes", int64(n))
	if n > 0 {
		s.everUsed = true
	}
	s.opts.logger.Trace().
		Int("fd", s.fd).
		Int("bytes", n).
		Log("tcp: bytes sent")
}

// Bind sets the local address for subsequent connect attempts. Candidates
// of another address family then fail as unreachable.
func (s *ClientSocket) Bind(local netip.AddrPort) error {
	if _, _, ok := toSockaddr(local); !ok {
		return api.NewError(api.ErrCodeInvalidArgument, "bind", 0)
	}
	if s.fd >= 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "bind", 0)
	}
	s.local = local
	return nil
}

// AdoptSocket takes ownership of an already connected descriptor.
func (s *ClientSocket) AdoptSocket(fd int) error {
	if s.closed {
		return api.NewError(api.ErrCodeInvalidHandle, "adopt", 0)
	}
	if fd < 0 || s.fd >= 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "adopt", 0)
	}
	if err := s.setupSocket(fd); err != nil {
		return err
	}
	s.fd = fd
	s.phase = phase{kind: phaseEstablished, index: -1}
	s.disconnected = false
	return nil
}

// NumBytesRead returns the bytes read since the socket was created.
func (s *ClientSocket) NumBytesRead() int64 { return s.numBytesRead }

// ConnectTime returns how long the last successful attempt took.
func (s *ClientSocket) ConnectTime() time.Duration { return s.connectTime }

// WasEverUsed reports whether data moved since the last connect.
func (s *ClientSocket) WasEverUsed() bool { return s.everUsed }

// SetReceiveBufferSize sets SO_RCVBUF on the current socket.
func (s *ClientSocket) SetReceiveBufferSize(size int) error {
	return s.setsockopt("setsockopt", unix.SOL_SOCKET, unix.SO_RCVBUF, size)
}

// SetSendBufferSize sets SO_SNDBUF on the current socket.
func (s *ClientSocket) SetSendBufferSize(size int) error {
	return s.setsockopt("setsockopt", unix.SOL_SOCKET, unix.SO_SNDBUF, size)
}

// SetNoDelay toggles TCP_NODELAY on the current socket.
func (s *ClientSocket) SetNoDelay(enable bool) error {
	v := 0
	if enable {
		v = 1
	}
	return s.setsockopt("setsockopt", unix.IPPROTO_TCP, unix.TCP_NODELAY, v)
}

// SetKeepAlive toggles keepalive probes on the current socket.
func (s *ClientSocket) SetKeepAlive(enable bool, interval time.Duration) error {
	if s.fd < 0 {
		return api.NewError(api.ErrCodeNotConnected, "setsockopt", 0)
	}
	return mapErr("setsockopt", setKeepAlive(s.sys, s.fd, enable, interval))
}

func (s *ClientSocket) setsockopt(op string, level, opt, value int) error {
	if s.fd < 0 {
		return api.NewError(api.ErrCodeNotConnected, op, 0)
	}
	return mapErr(op, s.sys.setsockoptInt(s.fd, level, opt, value))
}

func (s *ClientSocket) createSocket(family int) (int, error) {
	fd, err := s.sys.socket(family)
	if err != nil {
		return -1, mapErr("socket", err)
	}
	if err := s.setupSocket(fd); err != nil {
		s.sys.close(fd)
		return -1, err
	}
	return fd, nil
}

// setupSocket makes fd non-blocking and applies the configured options.
// Only the non-blocking switch is fatal.
func (s *ClientSocket) setupSocket(fd int) error {
	if err := s.sys.setNonblock(fd); err != nil {
		return mapErr("socket", err)
	}
	cfg := s.opts.socket
	noDelay := 0
	if cfg.NoDelay {
		noDelay = 1
	}
	s.bestEffort(fd, "no_delay", s.sys.setsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, noDelay))
	s.bestEffort(fd, "keep_alive", setKeepAlive(s.sys, fd, cfg.KeepAlive, cfg.KeepAliveInterval.Duration))
	s.bestEffort(fd, "platform", platformSetup(s.sys, fd))
	if cfg.ReceiveBufferSize > 0 {
		s.bestEffort(fd, "rcvbuf", s.sys.setsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, cfg.ReceiveBufferSize))
	}
	if cfg.SendBufferSize > 0 {
		s.bestEffort(fd, "sndbuf", s.sys.setsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, cfg.SendBufferSize))
	}
	return nil
}

func (s *ClientSocket) bestEffort(fd int, option string, err error) {
	if err == nil {
		return
	}
	s.opts.logger.Debug().
		Int("fd", fd).
		Str("option", option).
		Err(err).
		Log("tcp: socket option not applied")
}

func (s *ClientSocket) count(key string, delta int64) {
	s.opts.counters.Add(key, delta)
}

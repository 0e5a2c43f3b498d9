//go:build linux || darwin

package tcp

import (
	"net/netip"

	"golang.org/x/sys/unix"

	"github.com/momentics/sockshell/reactor"
)

type ioResult struct {
	data []byte
	n    int
	err  error
}

type sockopt struct{ fd, level, opt, value int }

// fakeSys scripts syscall outcomes per candidate address.
type fakeSys struct {
	nextFD     int
	connectErr map[netip.AddrPort]error
	soError    map[netip.AddrPort]unix.Errno
	notConn    int // getpeername answers ENOTCONN this many times
	reads      []ioResult
	writes     []ioResult
	peekN      int
	peekErr    error
	socketErr  error

	fdAddr  map[int]netip.AddrPort
	open    map[int]bool
	closed  []int
	bound   map[int]unix.Sockaddr
	opts    []sockopt
	written []byte
}

func newFakeSys() *fakeSys {
	return &fakeSys{
		nextFD:     10,
		connectErr: make(map[netip.AddrPort]error),
		soError:    make(map[netip.AddrPort]unix.Errno),
		peekErr:    unix.EAGAIN,
		fdAddr:     make(map[int]netip.AddrPort),
		open:       make(map[int]bool),
		bound:      make(map[int]unix.Sockaddr),
	}
}

func (f *fakeSys) socket(int) (int, error) {
	if f.socketErr != nil {
		return -1, f.socketErr
	}
	fd := f.nextFD
	f.nextFD++
	f.open[fd] = true
	return fd, nil
}

func (f *fakeSys) connect(fd int, sa unix.Sockaddr) error {
	ap, _ := fromSockaddr(sa)
	f.fdAddr[fd] = ap
	if err, ok := f.connectErr[ap]; ok {
		return err
	}
	return unix.EINPROGRESS
}

func (f *fakeSys) bind(fd int, sa unix.Sockaddr) error {
	f.bound[fd] = sa
	return nil
}

func (f *fakeSys) socketError(fd int) (unix.Errno, error) {
	return f.soError[f.fdAddr[fd]], nil
}

func (f *fakeSys) getsockname(int) (unix.Sockaddr, error) {
	return &unix.SockaddrInet4{Port: 40000, Addr: [4]byte{10, 0, 0, 99}}, nil
}

func (f *fakeSys) getpeername(fd int) (unix.Sockaddr, error) {
	if f.notConn > 0 {
		f.notConn--
		return nil, unix.ENOTCONN
	}
	ap, ok := f.fdAddr[fd]
	if !ok {
		ap = netip.MustParseAddrPort("192.0.2.1:7")
	}
	sa, _, _ := toSockaddr(ap)
	return sa, nil
}

func pop(q *[]ioResult) ioResult {
	if len(*q) == 0 {
		return ioResult{err: unix.EAGAIN}
	}
	r := (*q)[0]
	*q = (*q)[1:]
	return r
}

func (f *fakeSys) read(_ int, p []byte) (int, error) {
	r := pop(&f.reads)
	if r.err != nil {
		return 0, r.err
	}
	return copy(p, r.data), nil
}

func (f *fakeSys) write(_ int, p []byte) (int, error) {
	r := pop(&f.writes)
	if r.err != nil {
		return 0, r.err
	}
	n := min(r.n, len(p))
	f.written = append(f.written, p[:n]...)
	return n, nil
}

func (f *fakeSys) peek(int) (int, error) { return f.peekN, f.peekErr }

func (f *fakeSys) setsockoptInt(fd, level, opt, value int) error {
	f.opts = append(f.opts, sockopt{fd, level, opt, value})
	return nil
}

func (f *fakeSys) setNonblock(int) error { return nil }

func (f *fakeSys) shutdown(int) error { return nil }

func (f *fakeSys) close(fd int) error {
	delete(f.open, fd)
	f.closed = append(f.closed, fd)
	return nil
}

// fakeWatcher stands in for reactor.Watcher; fire plays the reactor's part.
type fakeWatcher struct {
	fd       int
	mode     reactor.Mode
	delegate reactor.Delegate
	watching bool
	starts   int
}

func (w *fakeWatcher) StartWatching(fd int, mode reactor.Mode, d reactor.Delegate) bool {
	if w.watching {
		return false
	}
	w.fd, w.mode, w.delegate = fd, mode, d
	w.watching = true
	w.starts++
	return true
}

func (w *fakeWatcher) StopWatching() bool {
	if !w.watching {
		return false
	}
	w.watching = false
	return true
}

func (w *fakeWatcher) IsWatching() bool { return w.watching }

// fire delivers the registered notification, stopping the watch first.
func (w *fakeWatcher) fire() {
	if !w.watching {
		panic("fire without a watch")
	}
	w.watching = false
	w.delegate.OnObjectSignaled(w.fd)
}

type harness struct {
	sys *fakeSys
	rw  *fakeWatcher
	ww  *fakeWatcher
	s   *ClientSocket
}

func newHarness(addrs AddressList, opts ...Option) *harness {
	h := &harness{sys: newFakeSys(), rw: &fakeWatcher{}, ww: &fakeWatcher{}}
	h.s = newClientSocket(h.sys, h.rw, h.ww, addrs, opts...)
	return h
}

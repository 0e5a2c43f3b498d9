//go:build linux || darwin

// File: cmd/tcpprobe/probe.go
// Author: momentics <momentics@gmail.com>
//
// One connect/write/read round trip driven on the owner task loop.

package main

import (
	"context"
	"net/netip"
	"time"

	"github.com/joeycumines/logiface"

	"github.com/momentics/sockshell/api"
	"github.com/momentics/sockshell/control"
	"github.com/momentics/sockshell/core/concurrency"
	"github.com/momentics/sockshell/reactor"
	"github.com/momentics/sockshell/transport/tcp"
)

const readChunk = 4096

type probeResult struct {
	Peer     netip.AddrPort
	Connect  time.Duration
	Sent     int
	Received int
	Err      error
}

type prober struct {
	r        *reactor.Reactor
	loop     *concurrency.TaskLoop
	logger   *logiface.Logger[logiface.Event]
	counters *control.Counters
}

// run connects to addrs, writes payload, then reads until end of stream or
// limit bytes (limit <= 0 reads to end of stream). ctx bounds the whole probe.
func (p *prober) run(ctx context.Context, addrs tcp.AddressList, cfg control.SocketConfig, payload []byte, limit int) probeResult {
	done := make(chan probeResult, 1)
	ss := &session{payload: payload, limit: limit, done: done}
	err := concurrency.Invoke(p.loop, func() {
		ss.s = tcp.NewClientSocket(p.r, p.loop, addrs,
			tcp.WithLogger(p.logger),
			tcp.WithCounters(p.counters),
			tcp.WithSocketConfig(cfg),
		)
		ss.start()
	})
	if err != nil {
		return probeResult{Err: err}
	}
	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		// The loop may finish the session concurrently; finish is idempotent.
		if err := concurrency.Invoke(p.loop, func() { ss.finish(api.NewError(api.ErrCodeTimeout, "probe", 0)) }); err != nil {
			return probeResult{Err: err}
		}
		return <-done
	}
}

// session is confined to the loop goroutine.
type session struct {
	s        *tcp.ClientSocket
	payload  []byte
	limit    int
	buf      []byte
	res      probeResult
	finished bool
	done     chan<- probeResult
}

func (ss *session) start() {
	size := readChunk
	if ss.limit > 0 && ss.limit < size {
		size = ss.limit
	}
	ss.buf = make([]byte, size)
	if err := ss.s.Connect(ss.onConnect); !api.IsPending(err) {
		ss.onConnect(err)
	}
}

func (ss *session) onConnect(err error) {
	if err != nil {
		ss.finish(err)
		return
	}
	ss.res.Peer, _ = ss.s.PeerAddress()
	ss.res.Connect = ss.s.ConnectTime()
	ss.write()
}

func (ss *session) write() {
	for ss.res.Sent < len(ss.payload) {
		n, err := ss.s.Write(ss.payload[ss.res.Sent:], ss.onWrite)
		if api.IsPending(err) {
			return
		}
		if err != nil {
			ss.finish(err)
			return
		}
		ss.res.Sent += n
	}
	ss.read()
}

func (ss *session) onWrite(n int, err error) {
	if err != nil {
		ss.finish(err)
		return
	}
	ss.res.Sent += n
	ss.write()
}

func (ss *session) read() {
	for ss.limit <= 0 || ss.res.Received < ss.limit {
		n, err := ss.s.Read(ss.window(), ss.onRead)
		if api.IsPending(err) {
			return
		}
		if err != nil || n == 0 {
			ss.finish(err)
			return
		}
		ss.res.Received += n
	}
	ss.finish(nil)
}

func (ss *session) onRead(n int, err error) {
	if err != nil || n == 0 {
		ss.finish(err)
		return
	}
	ss.res.Received += n
	ss.read()
}

// window bounds the next read so the total never exceeds limit.
func (ss *session) window() []byte {
	if ss.limit > 0 && ss.limit-ss.res.Received < len(ss.buf) {
		return ss.buf[:ss.limit-ss.res.Received]
	}
	return ss.buf
}

func (ss *session) finish(err error) {
	if ss.finished {
		return
	}
	ss.finished = true
	ss.res.Err = err
	if ss.s != nil {
		ss.s.Close()
	}
	ss.done <- ss.res
}

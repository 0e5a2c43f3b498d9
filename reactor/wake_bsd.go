//go:build darwin || freebsd || netbsd || openbsd

// File: reactor/wake_bsd.go
// Author: momentics <momentics@gmail.com>
//
// Self-pipe wake descriptor used to interrupt poll(2).

package reactor

import (
	"golang.org/x/sys/unix"
)

type waker struct {
	r, w int
}

func newWaker() (*waker, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, err
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, err
		}
	}
	return &waker{r: p[0], w: p[1]}, nil
}

func (w *waker) fd() int { return w.r }

func (w *waker) signal() {
	_, _ = unix.Write(w.w, []byte{1})
}

func (w *waker) drain() {
	var buf [64]byte
	for {
		n, err := unix.Read(w.r, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (w *waker) close() error {
	err := unix.Close(w.r)
	if err2 := unix.Close(w.w); err == nil {
		err = err2
	}
	return err
}

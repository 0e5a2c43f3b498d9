// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"github.com/joeycumines/logiface"

	"github.com/momentics/sockshell/control"
)

type options struct {
	logger   *logiface.Logger[logiface.Event]
	counters *control.Counters
	socket   control.SocketConfig
}

func defaultOptions() options {
	return options{socket: control.DefaultConfig().Socket}
}

// Option configures a ClientSocket.
type Option func(*options)

// WithLogger sets the socket logger. A nil logger disables logging.
func WithLogger(l *logiface.Logger[logiface.Event]) Option {
	return func(o *options) { o.logger = l }
}

// WithCounters publishes the tcp.* counters into reg.
func WithCounters(reg *control.Counters) Option {
	return func(o *options) { o.counters = reg }
}

// WithSocketConfig sets the options applied to every socket created for a
// connect attempt.
func WithSocketConfig(cfg control.SocketConfig) Option {
	return func(o *options) { o.socket = cfg }
}

// File: reactor/options.go
// Author: momentics <momentics@gmail.com>
//
// Functional options for Reactor construction.

package reactor

import (
	"time"

	"github.com/joeycumines/logiface"

	"github.com/momentics/sockshell/control"
)

// DefaultPollTimeout bounds each poll(2) call so newly staged watches and
// the exit flag are re-checked even without a wakeup.
const DefaultPollTimeout = 100 * time.Millisecond

type config struct {
	pollTimeout time.Duration
	cpu         int
	logger      *logiface.Logger[logiface.Event]
	counters    *control.Counters
}

func defaultConfig() config {
	return config{pollTimeout: DefaultPollTimeout, cpu: -1}
}

// Option configures a Reactor.
type Option func(*config)

// WithPollTimeout overrides DefaultPollTimeout. Non-positive values are
// ignored.
func WithPollTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.pollTimeout = d
		}
	}
}

// WithCPUAffinity pins the reactor's OS thread to cpu. Negative disables.
func WithCPUAffinity(cpu int) Option {
	return func(c *config) { c.cpu = cpu }
}

// WithLogger sets the reactor logger. A nil logger disables logging.
func WithLogger(l *logiface.Logger[logiface.Event]) Option {
	return func(c *config) { c.logger = l }
}

// WithCounters publishes reactor counters into reg.
func WithCounters(reg *control.Counters) Option {
	return func(c *config) { c.counters = reg }
}

// FromConfig maps the reactor section of a control.Config to options.
func FromConfig(cfg control.ReactorConfig) []Option {
	return []Option{
		WithPollTimeout(cfg.PollTimeout.Duration),
		WithCPUAffinity(cfg.CPUAffinity),
	}
}

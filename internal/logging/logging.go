// File: internal/logging/logging.go
// Author: momentics <momentics@gmail.com>
//
// Structured logger construction over logiface with the stumpy JSON backend.

package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

var levels = map[string]logiface.Level{
	"disabled": logiface.LevelDisabled,
	"off":      logiface.LevelDisabled,
	"emerg":    logiface.LevelEmergency,
	"alert":    logiface.LevelAlert,
	"crit":     logiface.LevelCritical,
	"err":      logiface.LevelError,
	"error":    logiface.LevelError,
	"warning":  logiface.LevelWarning,
	"warn":     logiface.LevelWarning,
	"notice":   logiface.LevelNotice,
	"info":     logiface.LevelInformational,
	"debug":    logiface.LevelDebug,
	"trace":    logiface.LevelTrace,
}

// ParseLevel maps a level name, case-insensitively, to a logiface.Level.
func ParseLevel(s string) (logiface.Level, error) {
	lvl, ok := levels[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return logiface.LevelDisabled, fmt.Errorf("logging: unknown level %q", s)
	}
	return lvl, nil
}

// New returns a JSON logger writing one line per event to w.
func New(w io.Writer, level logiface.Level) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(w),
			stumpy.WithTimeField("time"),
		),
		stumpy.L.WithLevel(level),
	).Logger()
}

// Discard returns nil, which every component accepts as a disabled logger.
func Discard() *logiface.Logger[logiface.Event] {
	return nil
}

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]logiface.Level{
		"info":     logiface.LevelInformational,
		" DEBUG ":  logiface.LevelDebug,
		"warn":     logiface.LevelWarning,
		"error":    logiface.LevelError,
		"disabled": logiface.LevelDisabled,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.ErrorContains(t, err, "loud")
}

func TestNewWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, logiface.LevelInformational)
	l.Info().Int("fd", 3).Str("addr", "127.0.0.1:80").Log("connected")
	l.Debug().Log("hidden")

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"fd":3`)
	assert.Contains(t, lines[0], `"addr":"127.0.0.1:80"`)
	assert.Contains(t, lines[0], "connected")
	assert.NotContains(t, out, "hidden")
}

func TestDiscardIsSafe(t *testing.T) {
	l := Discard()
	assert.NotPanics(t, func() {
		l.Info().Str("k", "v").Log("dropped")
	})
}

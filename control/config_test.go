package control

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100*time.Millisecond, cfg.Reactor.PollTimeout.Duration)
	assert.Equal(t, -1, cfg.Reactor.CPUAffinity)
	assert.Equal(t, 45*time.Second, cfg.Socket.KeepAliveInterval.Duration)
	assert.True(t, cfg.Socket.NoDelay)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sockshell.toml")
	writeFile(t, path, `
[reactor]
poll_timeout = "250ms"
cpu_affinity = 2

[socket]
no_delay = false
receive_buffer_size = 65536

[log]
level = "debug"
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Reactor.PollTimeout.Duration)
	assert.Equal(t, 2, cfg.Reactor.CPUAffinity)
	assert.False(t, cfg.Socket.NoDelay)
	assert.True(t, cfg.Socket.KeepAlive)
	assert.Equal(t, 65536, cfg.Socket.ReceiveBufferSize)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFileRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	writeFile(t, path, "[reactor]\npoll_timeuot = \"1s\"\n")
	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll_timeuot")
}

func TestLoadFileRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	writeFile(t, path, "[reactor]\npoll_timeout = \"0s\"\n")
	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "poll_timeout")

	writeFile(t, path, "[reactor]\npoll_timeout = \"soon\"\n")
	_, err = LoadFile(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SOCKSHELL_POLL_TIMEOUT": "5ms",
		"SOCKSHELL_CPU_AFFINITY": "0",
		"SOCKSHELL_NODELAY":      "false",
		"SOCKSHELL_SNDBUF":       "4096",
		"SOCKSHELL_LOG_LEVEL":    "warning",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := DefaultConfig()
	require.NoError(t, ApplyEnv(&cfg, lookup))
	assert.Equal(t, 5*time.Millisecond, cfg.Reactor.PollTimeout.Duration)
	assert.Equal(t, 0, cfg.Reactor.CPUAffinity)
	assert.False(t, cfg.Socket.NoDelay)
	assert.Equal(t, 4096, cfg.Socket.SendBufferSize)
	assert.Equal(t, "warning", cfg.Log.Level)

	env["SOCKSHELL_RCVBUF"] = "lots"
	assert.ErrorContains(t, ApplyEnv(&cfg, lookup), "SOCKSHELL_RCVBUF")
}

func TestSetEnvAppliesToLoadFile(t *testing.T) {
	t.Setenv("SOCKSHELL_KEEPALIVE", "false")
	path := filepath.Join(t.TempDir(), "empty.toml")
	writeFile(t, path, "")
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.False(t, cfg.Socket.KeepAlive)
}

func TestConfigStoreNotifiesListeners(t *testing.T) {
	store := NewConfigStore(DefaultConfig())
	var got []string
	store.OnReload(func(c Config) { got = append(got, "a:"+c.Log.Level) })
	store.OnReload(func(c Config) { got = append(got, "b:"+c.Log.Level) })

	next := DefaultConfig()
	next.Log.Level = "trace"
	store.SetConfig(next)

	assert.Equal(t, []string{"a:trace", "b:trace"}, got)
	assert.Equal(t, "trace", store.GetSnapshot().Log.Level)
}

func TestConfigStoreListenerRegisteredDuringReload(t *testing.T) {
	store := NewConfigStore(DefaultConfig())
	var got []string
	store.OnReload(func(c Config) {
		got = append(got, "outer:"+c.Log.Level)
		store.OnReload(func(c Config) { got = append(got, "inner:"+c.Log.Level) })
	})

	first := DefaultConfig()
	first.Log.Level = "debug"
	store.SetConfig(first)
	assert.Equal(t, []string{"outer:debug"}, got)

	got = nil
	second := DefaultConfig()
	second.Log.Level = "trace"
	store.SetConfig(second)
	assert.Equal(t, []string{"outer:trace", "inner:trace"}, got)
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration)
	b, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(b))
}

// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Typed configuration, file loading, environment overrides and a
// thread-safe store with reload propagation.

package control

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPrefix prefixes every environment override key.
const EnvPrefix = "SOCKSHELL_"

// Duration is a time.Duration that decodes from strings such as "250ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ReactorConfig tunes the readiness reactor.
type ReactorConfig struct {
	PollTimeout Duration `toml:"poll_timeout"`

	// CPUAffinity pins the reactor thread; negative disables pinning.
	CPUAffinity int `toml:"cpu_affinity"`
}

// SocketConfig holds the options applied to every new client socket.
type SocketConfig struct {
	NoDelay           bool     `toml:"no_delay"`
	KeepAlive         bool     `toml:"keep_alive"`
	KeepAliveInterval Duration `toml:"keep_alive_interval"`

	// Zero keeps the OS default.
	ReceiveBufferSize int `toml:"receive_buffer_size"`
	SendBufferSize    int `toml:"send_buffer_size"`
}

// LogConfig selects the log threshold.
type LogConfig struct {
	Level string `toml:"level"`
}

// Config is the full runtime configuration.
type Config struct {
	Reactor ReactorConfig `toml:"reactor"`
	Socket  SocketConfig  `toml:"socket"`
	Log     LogConfig     `toml:"log"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Reactor: ReactorConfig{
			PollTimeout: Duration{100 * time.Millisecond},
			CPUAffinity: -1,
		},
		Socket: SocketConfig{
			NoDelay:           true,
			KeepAlive:         true,
			KeepAliveInterval: Duration{45 * time.Second},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Reactor.PollTimeout.Duration <= 0:
		return fmt.Errorf("control: reactor.poll_timeout must be positive, got %s", c.Reactor.PollTimeout.Duration)
	case c.Socket.KeepAlive && c.Socket.KeepAliveInterval.Duration < time.Second:
		return fmt.Errorf("control: socket.keep_alive_interval must be at least 1s, got %s", c.Socket.KeepAliveInterval.Duration)
	case c.Socket.ReceiveBufferSize < 0:
		return errors.New("control: socket.receive_buffer_size must not be negative")
	case c.Socket.SendBufferSize < 0:
		return errors.New("control: socket.send_buffer_size must not be negative")
	case strings.TrimSpace(c.Log.Level) == "":
		return errors.New("control: log.level must not be empty")
	}
	return nil
}

// LoadFile decodes a TOML file over the defaults, applies environment
// overrides and validates the result. Unknown keys are rejected.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("control: decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("control: %s: unknown key %q", path, undecoded[0].String())
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from SOCKSHELL_* variables found through lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	durations := map[string]*time.Duration{
		"POLL_TIMEOUT":       &cfg.Reactor.PollTimeout.Duration,
		"KEEPALIVE_INTERVAL": &cfg.Socket.KeepAliveInterval.Duration,
	}
	ints := map[string]*int{
		"CPU_AFFINITY": &cfg.Reactor.CPUAffinity,
		"RCVBUF":       &cfg.Socket.ReceiveBufferSize,
		"SNDBUF":       &cfg.Socket.SendBufferSize,
	}
	bools := map[string]*bool{
		"NODELAY":   &cfg.Socket.NoDelay,
		"KEEPALIVE": &cfg.Socket.KeepAlive,
	}
	for k, dst := range durations {
		if v, ok := lookup(EnvPrefix + k); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("control: %s%s: %w", EnvPrefix, k, err)
			}
			*dst = d
		}
	}
	for k, dst := range ints {
		if v, ok := lookup(EnvPrefix + k); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("control: %s%s: %w", EnvPrefix, k, err)
			}
			*dst = n
		}
	}
	for k, dst := range bools {
		if v, ok := lookup(EnvPrefix + k); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("control: %s%s: %w", EnvPrefix, k, err)
			}
			*dst = b
		}
	}
	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	return nil
}

// ConfigStore holds the current Config with snapshot reads and listeners.
type ConfigStore struct {
	mu        sync.RWMutex
	config    Config
	listeners []func(Config)
}

// NewConfigStore initializes a store holding cfg.
func NewConfigStore(cfg Config) *ConfigStore {
	return &ConfigStore{config: cfg}
}

// GetSnapshot returns a copy of the current config.
func (cs *ConfigStore) GetSnapshot() Config {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.config
}

// SetConfig replaces the config and notifies listeners in registration
// order, outside the lock.
func (cs *ConfigStore) SetConfig(cfg Config) {
	cs.mu.Lock()
	cs.config = cfg
	listeners := slices.Clone(cs.listeners)
	cs.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func(Config)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

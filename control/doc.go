// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime configuration, hot reload, counters and debug introspection for
// the reactor and socket layers.
//
// Provides concurrent-safe state handling primitives including:
//   - Typed configuration with TOML loading and SOCKSHELL_* environment overrides
//   - Snapshot reads and reload listeners through ConfigStore
//   - File watching for hot reload
//   - Named atomic counters and debug probe registration
package control

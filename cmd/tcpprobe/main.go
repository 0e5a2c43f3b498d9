//go:build linux || darwin

// File: cmd/tcpprobe/main.go
// Author: momentics <momentics@gmail.com>
//
// tcpprobe connects to a host with address fallback, optionally sends a
// payload, reads the reply and reports timings. It drives the reactor and
// client socket exactly as an embedding application would.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/momentics/sockshell/control"
	"github.com/momentics/sockshell/core/concurrency"
	"github.com/momentics/sockshell/internal/logging"
	"github.com/momentics/sockshell/reactor"
	"github.com/momentics/sockshell/transport/tcp"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tcpprobe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", "", "target host:port")
	send := fs.String("send", "", "payload to write after connecting")
	limit := fs.Int("max", 0, "stop after reading this many bytes (0 reads to end of stream)")
	count := fs.Int("count", 1, "number of probes (0 runs until interrupted)")
	interval := fs.Duration("interval", time.Second, "delay between probes")
	timeout := fs.Duration("timeout", 5*time.Second, "per-probe deadline")
	configPath := fs.String("config", "", "TOML config file, hot reloaded")
	logLevel := fs.String("log", "", "log level override")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *addr == "" {
		fmt.Fprintln(stderr, "tcpprobe: -addr is required")
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "tcpprobe: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(stderr, "tcpprobe: %v\n", err)
		return 1
	}
	logger := logging.New(stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := control.NewConfigStore(cfg)
	if *configPath != "" {
		fw, err := control.NewFileWatcher(*configPath, store, logger)
		if err != nil {
			logger.Warning().Err(err).Log("tcpprobe: hot reload disabled")
		} else {
			go fw.Run(ctx)
		}
	}

	counters := control.NewCounters()
	r, err := reactor.New(append(reactor.FromConfig(cfg.Reactor),
		reactor.WithLogger(logger),
		reactor.WithCounters(counters),
	)...)
	if err != nil {
		fmt.Fprintf(stderr, "tcpprobe: reactor: %v\n", err)
		return 1
	}
	r.Start()
	defer r.Close()

	loop := concurrency.NewTaskLoop(concurrency.WithLoopLogger(logger))
	go loop.Run()
	defer loop.Stop()

	probes := control.NewDebugProbes()
	control.RegisterPlatformProbes(probes)
	probes.RegisterProbe("reactor", func() any { return r.Stats() })
	probes.RegisterProbe("counters", func() any { return counters.GetSnapshot() })
	probes.RegisterProbe("loop.pending", func() any { return loop.Pending() })

	p := &prober{r: r, loop: loop, logger: logger, counters: counters}
	failures := 0
	for i := 0; *count == 0 || i < *count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(*interval):
			}
		}
		if ctx.Err() != nil {
			break
		}
		if !probeOnce(ctx, p, stdout, *addr, store.GetSnapshot().Socket, []byte(*send), *limit, *timeout) {
			failures++
		}
	}

	state := probes.DumpState()
	for _, name := range probes.Names() {
		logger.Debug().Any(name, state[name]).Log("tcpprobe: debug probe")
	}
	if failures > 0 {
		return 1
	}
	return 0
}

func loadConfig(path string) (control.Config, error) {
	if path != "" {
		return control.LoadFile(path)
	}
	cfg := control.DefaultConfig()
	if err := control.ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return control.Config{}, err
	}
	return cfg, cfg.Validate()
}

func probeOnce(ctx context.Context, p *prober, out io.Writer, hostport string, cfg control.SocketConfig, payload []byte, limit int, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addrs, err := tcp.Resolve(ctx, hostport)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", hostport, err)
		return false
	}
	res := p.run(ctx, addrs, cfg, payload, limit)
	if res.Err != nil {
		fmt.Fprintf(out, "%s: %v\n", hostport, res.Err)
		return false
	}
	fmt.Fprintf(out, "%s: connected to %s in %s, sent %d, received %d\n",
		hostport, res.Peer, res.Connect.Round(time.Microsecond), res.Sent, res.Received)
	return true
}

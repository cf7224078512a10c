// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/corral-fleet/corral/lib/clock"
	"github.com/corral-fleet/corral/lib/config"
	"github.com/corral-fleet/corral/lib/launch"
	"github.com/corral-fleet/corral/lib/poll"
	"github.com/corral-fleet/corral/lib/process"
	"github.com/corral-fleet/corral/lib/relay"
	"github.com/corral-fleet/corral/lib/rpc"
	"github.com/corral-fleet/corral/lib/simulator"
	"github.com/corral-fleet/corral/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var configPath string
	var showVersion bool
	flag.StringVar(&configPath, "config", "", "path to corral.yaml (default: $CORRAL_CONFIG, else built-in defaults)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		version.Print("corral-herder")
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	lockFile, err := acquireLock(cfg.LockPath())
	if err != nil {
		return err
	}
	defer lockFile.Close()

	clk := clock.Real()

	// Wait for both collaborators before touching anything. The herd
	// cannot exist without its pasture and its relay.
	if err := rpc.WaitReady(ctx, clk, logger, rpc.ReadyConfig{
		Name:       "simulator",
		SocketPath: cfg.Simulator.Socket,
		Timeout:    cfg.SimulatorReadyTimeout(),
	}); err != nil {
		return err
	}
	if err := rpc.WaitReady(ctx, clk, logger, rpc.ReadyConfig{
		Name:       "relay",
		SocketPath: cfg.Relay.Socket,
		Timeout:    cfg.RelayReadyTimeout(),
	}); err != nil {
		return err
	}

	clientBinary, err := cfg.ClientBinaryPath()
	if err != nil {
		return err
	}
	clientDigest, err := launch.BinaryDigest(clientBinary)
	if err != nil {
		// Launches still work without the digest; status just won't
		// report which build is running.
		logger.Warn("hashing client binary failed", "binary", clientBinary, "error", err)
		clientDigest = ""
	}

	template := launch.DefaultTemplate()
	if cfg.Launcher.Template != "" {
		template, err = launch.LoadTemplate(cfg.Launcher.Template)
		if err != nil {
			return err
		}
	}

	terminal, err := launch.New(cfg.Launcher.Terminal, logger, launch.Options{
		ScriptsDir:   cfg.ScriptsDir(),
		ClientBinary: clientBinary,
		TmuxSocket:   filepath.Join(cfg.RunDir, "tmux.sock"),
	})
	if err != nil {
		return err
	}

	supervisor := newSupervisor(
		logger.With("component", "launcher"), terminal, template,
		supervisorConfig{
			ScriptsDir:         cfg.ScriptsDir(),
			ClientBinary:       clientBinary,
			ClientDigest:       clientDigest,
			PortBase:           cfg.Launcher.PortBase,
			CaptureDir:         cfg.Launcher.CaptureDir,
			CaptureCompression: cfg.Launcher.CaptureCompression,
		})

	herder, err := NewHerder(ctx, Deps{
		Config:     cfg,
		Clock:      clk,
		Logger:     logger,
		Entities:   simulator.NewClient(cfg.Simulator.Socket),
		Routes:     relay.NewClient(cfg.Relay.Socket, cfg.Relay.Namespace),
		Supervisor: supervisor,
	})
	if err != nil {
		return err
	}

	// The control socket outlives the signal context on purpose:
	// status must keep answering while shutdown runs. It is cancelled
	// explicitly once teardown finishes.
	serverCtx, cancelServer := context.WithCancel(context.Background())
	defer cancelServer()

	server := rpc.NewSocketServer(cfg.ControlSocket, logger)
	herder.registerActions(server)

	socketDone := make(chan error, 1)
	go func() {
		socketDone <- server.Serve(serverCtx)
	}()

	herder.Spawn(ctx, cfg.Herd.Rovers)
	herder.markRunning()

	logger.Info("herder running",
		"socket", cfg.ControlSocket,
		"launcher", terminal.Kind(),
		"tick", cfg.HerdTick(),
	)

	reason := poll.Wait(ctx, clk, cfg.HerdTick(), herder.Disabled)
	logger.Info("herd loop ended", "reason", string(reason))

	// Teardown runs on a fresh context: the signal context is already
	// dead on the interrupt path, and shutdown RPCs are bounded by the
	// client's own timeouts.
	herder.Shutdown(context.Background())

	if err := terminal.Shutdown(); err != nil {
		logger.Error("stopping launcher failed", "error", err)
	}

	cancelServer()
	if err := <-socketDone; err != nil {
		logger.Error("control socket server error", "error", err)
	}

	logger.Info("herder stopped")
	return nil
}

// loadConfig resolves the configuration source: an explicit --config
// path wins, then CORRAL_CONFIG, then built-in defaults with
// environment overrides applied.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("CORRAL_CONFIG") != "" {
		return config.Load()
	}
	cfg := config.Default()
	cfg.Resolve()
	return cfg, nil
}

// acquireLock takes the herder's single-instance flock. The lock is
// tied to the open file descriptor and released when the process
// exits; a second herder against the same run directory fails here
// instead of fighting over sockets.
func acquireLock(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		return nil, fmt.Errorf("another herder is already running against %s: %w",
			filepath.Dir(path), err)
	}
	return file, nil
}

// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/corral-fleet/corral/lib/launch"
)

// supervisor tracks every client process and launch artifact the
// herder creates. Each process handle and script has exactly one
// owner (this supervisor) and one release point (terminateAll).
//
// launch and terminateAll are called from the main goroutine only;
// the mutex lets the control socket snapshot counts concurrently.
type supervisor struct {
	mu sync.Mutex

	logger   *slog.Logger
	terminal launch.Terminal
	template *launch.Template

	scriptsDir   string
	clientBinary string
	clientDigest string

	captureDir         string
	captureCompression string

	nextPort int

	processes []*launch.Process
	artifacts []string
}

// supervisorConfig carries the launch-side settings the supervisor
// needs from the resolved configuration.
type supervisorConfig struct {
	ScriptsDir         string
	ClientBinary       string
	ClientDigest       string
	PortBase           int
	CaptureDir         string
	CaptureCompression string
}

func newSupervisor(logger *slog.Logger, terminal launch.Terminal, template *launch.Template, cfg supervisorConfig) *supervisor {
	return &supervisor{
		logger:             logger,
		terminal:           terminal,
		template:           template,
		scriptsDir:         cfg.ScriptsDir,
		clientBinary:       cfg.ClientBinary,
		clientDigest:       cfg.ClientDigest,
		captureDir:         cfg.CaptureDir,
		captureCompression: cfg.CaptureCompression,
		nextPort:           cfg.PortBase,
	}
}

// launch starts one client process per name. The batch is serialized
// into a manifest artifact, parsed back into entries, and the
// manifest deleted before any process starts; each entry then gets a
// launch script and a spawn. Ports are assigned in processing order
// from a counter that never resets, so later batches continue where
// earlier ones stopped.
//
// Spawn failures are logged and skipped. A script written for a spawn
// that then failed is still tracked: terminateAll must delete it.
func (s *supervisor) launch(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}

	s.mu.Lock()
	entries := make([]launch.Descriptor, 0, len(names))
	for _, name := range names {
		port := s.nextPort
		s.nextPort++
		entries = append(entries, launch.Descriptor{
			Name: name,
			Port: port,
			Args: s.template.Render(name, port),
		})
	}
	s.mu.Unlock()

	manifest := launch.NewManifest(s.clientBinary, s.clientDigest, entries)
	manifestPath := filepath.Join(s.scriptsDir, "launch-"+manifest.LaunchID+".yaml")
	if err := manifest.WriteFile(manifestPath); err != nil {
		return err
	}

	parsed, err := launch.ReadManifest(manifestPath)
	if err != nil {
		if removeErr := os.Remove(manifestPath); removeErr != nil {
			s.logger.Error("removing launch manifest failed",
				"path", manifestPath, "error", removeErr)
		}
		return err
	}

	// The manifest exists only to hand the batch to the launcher.
	// Delete it the moment the entries are extracted; a failed delete
	// is logged, not fatal.
	if err := os.Remove(manifestPath); err != nil {
		s.logger.Error("removing launch manifest failed",
			"path", manifestPath, "error", err)
	}

	for index, entry := range parsed.Entries {
		if ctx.Err() != nil {
			s.logger.Info("launch interrupted",
				"completed", index, "requested", len(parsed.Entries))
			return nil
		}

		process, script, err := s.terminal.Spawn(entry)
		s.mu.Lock()
		if script != "" {
			s.artifacts = append(s.artifacts, script)
		}
		if process != nil {
			s.processes = append(s.processes, process)
		}
		s.mu.Unlock()

		if err != nil {
			s.logger.Error("spawning client failed",
				"rover", entry.Name, "port", entry.Port, "error", err)
			continue
		}
		s.logger.Info("launched client",
			"rover", entry.Name, "port", entry.Port, "pid", process.PID,
			"launch_id", parsed.LaunchID)
	}
	return nil
}

// terminateAll stops every tracked client and deletes every tracked
// script artifact. The tracking slices are swapped out first, so the
// release happens exactly once: a second call finds nothing and does
// nothing.
func (s *supervisor) terminateAll(ctx context.Context) {
	s.mu.Lock()
	processes := s.processes
	artifacts := s.artifacts
	s.processes = nil
	s.artifacts = nil
	s.mu.Unlock()

	if len(processes) == 0 && len(artifacts) == 0 {
		return
	}

	for _, process := range processes {
		s.capture(process)
		if err := s.terminal.Stop(process, false); err != nil {
			s.logger.Error("stopping client failed",
				"rover", process.Name, "error", err)
		}
	}

	for _, artifact := range artifacts {
		if err := os.Remove(artifact); err != nil {
			s.logger.Error("removing launch artifact failed",
				"path", artifact, "error", err)
		}
	}

	s.logger.Info("terminated clients",
		"processes", len(processes), "artifacts", len(artifacts))
}

// capture archives the client's terminal output before it is
// stopped, when a capture directory is configured. Capture problems
// never block teardown.
func (s *supervisor) capture(process *launch.Process) {
	if s.captureDir == "" {
		return
	}

	output, err := s.terminal.Capture(process)
	if err != nil {
		if errors.Is(err, launch.ErrCaptureUnsupported) {
			s.logger.Debug("capture unsupported", "rover", process.Name)
			return
		}
		s.logger.Error("capturing client output failed",
			"rover", process.Name, "error", err)
		return
	}

	path, err := launch.WriteCapture(s.captureDir, process.Name,
		launch.Sanitize(output), s.captureCompression)
	if err != nil {
		s.logger.Error("archiving capture failed",
			"rover", process.Name, "error", err)
		return
	}
	s.logger.Info("captured client output", "rover", process.Name, "path", path)
}

// snapshot returns a copy of the tracked processes plus the artifact
// count and next port, for control socket reads.
func (s *supervisor) snapshot() (processes []*launch.Process, artifactCount int, nextPort int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.processes), len(s.artifacts), s.nextPort
}

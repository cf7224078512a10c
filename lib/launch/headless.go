// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"
)

// HeadlessTerminal runs rover clients as bare child processes, each
// in its own process group so Stop can take out the client and
// anything it forked with a single signal. No output is retained;
// Capture reports ErrCaptureUnsupported.
type HeadlessTerminal struct {
	logger *slog.Logger
	opts   Options
}

// NewHeadless returns a headless terminal.
func NewHeadless(logger *slog.Logger, opts Options) *HeadlessTerminal {
	return &HeadlessTerminal{logger: logger, opts: opts}
}

// Kind identifies this terminal as "headless".
func (h *HeadlessTerminal) Kind() string {
	return "headless"
}

// Spawn writes the rover's launch script and runs it detached in a
// fresh process group.
func (h *HeadlessTerminal) Spawn(descriptor Descriptor) (*Process, string, error) {
	scriptPath := filepath.Join(h.opts.ScriptsDir, descriptor.Name+".sh")
	if err := WriteScript(scriptPath, h.opts.ClientBinary, descriptor.Args); err != nil {
		return nil, "", err
	}

	cmd := exec.Command(scriptPath)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return nil, scriptPath, fmt.Errorf("spawning client for %s: %w", descriptor.Name, err)
	}

	pid := cmd.Process.Pid
	// Reap the child when it exits so stopped clients don't linger as
	// zombies for the herder's lifetime.
	go func() {
		if err := cmd.Wait(); err != nil {
			h.logger.Debug("client exited",
				"rover", descriptor.Name, "pid", pid, "error", err)
		}
	}()

	return &Process{
		Name: descriptor.Name,
		Port: descriptor.Port,
		PID:  pid,
	}, scriptPath, nil
}

// Stop signals the client's whole process group with SIGTERM and
// returns without waiting. hold has no meaning without a terminal
// window and is ignored.
func (h *HeadlessTerminal) Stop(process *Process, hold bool) error {
	if process.PID == 0 {
		return nil
	}
	// Setpgid at spawn makes the group ID equal the client's PID.
	err := unix.Kill(-process.PID, unix.SIGTERM)
	if err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("signalling client for %s (pid %d): %w", process.Name, process.PID, err)
	}
	return nil
}

// State probes the client with signal 0.
func (h *HeadlessTerminal) State(process *Process) ProcessState {
	if process.PID == 0 {
		return StateUnknown
	}
	err := unix.Kill(process.PID, 0)
	switch {
	case err == nil:
		return StateRunning
	case errors.Is(err, unix.ESRCH):
		return StateExited
	default:
		return StateUnknown
	}
}

// Capture is unsupported: headless client output is discarded at
// spawn, so there is nothing to read back.
func (h *HeadlessTerminal) Capture(process *Process) ([]byte, error) {
	return nil, ErrCaptureUnsupported
}

// Shutdown is a no-op; headless clients are stopped individually.
func (h *HeadlessTerminal) Shutdown() error {
	return nil
}

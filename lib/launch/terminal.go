// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

// Package launch turns rover names into running client processes. It
// owns the transient formats involved (the batch manifest, per-rover
// launch scripts, the client argument template) and the Terminal
// abstraction that actually starts, stops, and captures processes.
//
// Two Terminal implementations exist: tmux runs each client in a
// session on a dedicated tmux server so operators can attach and
// inspect; headless runs bare processes in their own process group
// for environments without tmux. The herder picks via configuration,
// with "auto" preferring tmux and falling back to headless.
package launch

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
)

// ErrCaptureUnsupported is returned by Capture on terminals that have
// no way to read back a process's output.
var ErrCaptureUnsupported = errors.New("terminal does not support capture")

// ProcessState classifies a launched client's current condition.
type ProcessState string

const (
	StateRunning ProcessState = "running"
	StateExited  ProcessState = "exited"
	StateUnknown ProcessState = "unknown"
)

// Process is an opaque handle to one launched rover client. The
// supervisor owns each handle from Spawn until Stop; handles are
// never reused.
type Process struct {
	// Name is the rover this client serves.
	Name string

	// Port is the port assigned to the client.
	Port int

	// PID is the client process ID, 0 when unknown.
	PID int

	// Session is the tmux session hosting the client, empty for the
	// headless terminal.
	Session string
}

// Terminal starts and stops rover client processes.
type Terminal interface {
	// Kind identifies the implementation: "tmux" or "headless".
	Kind() string

	// Spawn starts one client from the descriptor. It writes the
	// per-rover launch script, starts the process, and returns the
	// handle plus the script path. The caller owns the script
	// artifact and must delete it during teardown. A non-empty script
	// path may be returned alongside an error when the script was
	// written but the process failed to start; the artifact still
	// needs cleanup.
	Spawn(descriptor Descriptor) (*Process, string, error)

	// Stop terminates a spawned client without waiting for it to
	// exit. With hold=true the tmux terminal keeps the session open
	// (the pane survives through remain-on-exit) so an operator can
	// inspect the client's final output; the headless terminal has
	// nothing to hold open and treats both the same.
	Stop(process *Process, hold bool) error

	// State reports the client's condition, best-effort.
	State(process *Process) ProcessState

	// Capture returns the client's terminal output for archiving.
	// Terminals without this ability return ErrCaptureUnsupported.
	Capture(process *Process) ([]byte, error)

	// Shutdown releases launcher-wide resources. For tmux this kills
	// the dedicated server and every remaining session.
	Shutdown() error
}

// Options configures a Terminal.
type Options struct {
	// ScriptsDir receives the per-rover launch scripts.
	ScriptsDir string

	// ClientBinary is the resolved path of the rover client binary.
	ClientBinary string

	// TmuxSocket is the Unix socket path for the dedicated tmux
	// server. Only the tmux terminal uses it.
	TmuxSocket string
}

// New returns the Terminal for the configured kind. "tmux" and
// "headless" are explicit; "auto" prefers tmux and falls back to
// headless with a warning when the tmux binary is not on PATH,
// matching the behavior operators expect on minimal hosts.
func New(kind string, logger *slog.Logger, opts Options) (Terminal, error) {
	switch kind {
	case "tmux":
		return NewTmux(logger, opts)
	case "headless":
		return NewHeadless(logger, opts), nil
	case "auto":
		if _, err := exec.LookPath("tmux"); err != nil {
			logger.Warn("tmux not found, using headless launcher", "error", err)
			return NewHeadless(logger, opts), nil
		}
		return NewTmux(logger, opts)
	default:
		return nil, fmt.Errorf("unknown terminal kind %q", kind)
	}
}

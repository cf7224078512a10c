// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package launch

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/corral-fleet/corral/lib/tmux"
)

// guardSession keeps the dedicated tmux server alive even when no
// rover clients are running. It is created first so remain-on-exit
// can be set globally before any client pane exists.
const guardSession = "_corral"

// TmuxTerminal runs each rover client in its own session on a
// dedicated tmux server. Operators can inspect a client with
//
//	tmux -S <socket> attach -t corral-<name>
//
// remain-on-exit is enabled server-wide, so a client that dies leaves
// its pane (and final output) behind until the herder kills the
// session.
type TmuxTerminal struct {
	logger *slog.Logger
	server *tmux.Server
	opts   Options
}

// NewTmux starts the dedicated tmux server and returns the terminal.
// Fails when the tmux binary is not on PATH.
func NewTmux(logger *slog.Logger, opts Options) (*TmuxTerminal, error) {
	if _, err := exec.LookPath("tmux"); err != nil {
		return nil, fmt.Errorf("tmux binary not found: %w", err)
	}

	server := tmux.NewServer(opts.TmuxSocket, "/dev/null")
	if err := server.NewSession(guardSession, "sleep", "infinity"); err != nil {
		return nil, fmt.Errorf("starting corral tmux server: %w", err)
	}
	if err := server.SetOption("", "remain-on-exit", "on"); err != nil {
		server.KillServer()
		return nil, fmt.Errorf("configuring corral tmux server: %w", err)
	}
	return &TmuxTerminal{logger: logger, server: server, opts: opts}, nil
}

// Kind identifies this terminal as "tmux".
func (t *TmuxTerminal) Kind() string {
	return "tmux"
}

// Spawn writes the rover's launch script and starts it in a new
// session named corral-<name>.
func (t *TmuxTerminal) Spawn(descriptor Descriptor) (*Process, string, error) {
	scriptPath := filepath.Join(t.opts.ScriptsDir, descriptor.Name+".sh")
	if err := WriteScript(scriptPath, t.opts.ClientBinary, descriptor.Args); err != nil {
		return nil, "", err
	}

	session := sessionName(descriptor.Name)
	if err := t.server.NewSession(session, scriptPath); err != nil {
		return nil, scriptPath, fmt.Errorf("spawning client for %s: %w", descriptor.Name, err)
	}

	process := &Process{
		Name:    descriptor.Name,
		Port:    descriptor.Port,
		Session: session,
	}
	pid, err := t.server.PanePID(session)
	if err != nil {
		// Liveness checks fall back to pane state, so a missing PID
		// is worth a warning but not a failed spawn.
		t.logger.Warn("could not read client PID",
			"rover", descriptor.Name, "session", session, "error", err)
	} else {
		process.PID = pid
	}
	return process, scriptPath, nil
}

// Stop kills the client's session without waiting for the process to
// exit. With hold=true only the client process is signalled and the
// session survives, leaving the dead pane attached-to for inspection.
func (t *TmuxTerminal) Stop(process *Process, hold bool) error {
	if !hold {
		return t.server.KillSession(process.Session)
	}

	pid, err := t.server.PanePID(process.Session)
	if err != nil {
		return err
	}
	if err := unix.Kill(pid, unix.SIGTERM); err != nil && err != unix.ESRCH {
		return fmt.Errorf("signalling client for %s (pid %d): %w", process.Name, pid, err)
	}
	return nil
}

// State reports the client's condition from its pane: a missing
// session means exited, a dead pane means exited, otherwise running.
func (t *TmuxTerminal) State(process *Process) ProcessState {
	if !t.server.HasSession(process.Session) {
		return StateExited
	}
	dead, err := t.server.PaneDead(process.Session)
	if err != nil {
		return StateUnknown
	}
	if dead {
		return StateExited
	}
	return StateRunning
}

// Capture returns the client's full pane content, scrollback
// included. Works on dead panes thanks to remain-on-exit.
func (t *TmuxTerminal) Capture(process *Process) ([]byte, error) {
	output, err := t.server.CapturePane(process.Session, 0)
	if err != nil {
		return nil, err
	}
	return []byte(output), nil
}

// Shutdown kills the dedicated tmux server along with every session
// still on it, the guard included.
func (t *TmuxTerminal) Shutdown() error {
	return t.server.KillServer()
}

// sessionSanitizer rewrites characters tmux treats as target syntax.
var sessionSanitizer = strings.NewReplacer(".", "_", ":", "_")

// sessionName maps a rover name to its tmux session name.
func sessionName(name string) string {
	return "corral-" + sessionSanitizer.Replace(name)
}

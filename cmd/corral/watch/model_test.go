// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/corral-fleet/corral/lib/control"
)

// fakeSource serves canned control responses and records disables.
type fakeSource struct {
	status   *control.StatusInfo
	roster   *control.RosterInfo
	err      error
	disables int
}

func (f *fakeSource) Status(ctx context.Context) (*control.StatusInfo, error) {
	return f.status, f.err
}

func (f *fakeSource) Roster(ctx context.Context) (*control.RosterInfo, error) {
	return f.roster, f.err
}

func (f *fakeSource) Disable(ctx context.Context) (*control.DisableResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.disables++
	return &control.DisableResult{Disabled: true, AlreadyDisabled: f.disables > 1}, nil
}

func testModel(source herdSource) Model {
	return NewModel(source, time.Second, lipgloss.NewRenderer(io.Discard))
}

// runCmd executes a command synchronously and returns its message.
func runCmd(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command, got nil")
	}
	return cmd()
}

func fleetSource() *fakeSource {
	return &fakeSource{
		status: &control.StatusInfo{
			Phase:        control.PhaseRunning,
			RoverCount:   2,
			ProcessCount: 2,
			Launcher:     "tmux",
		},
		roster: &control.RosterInfo{
			Rovers: []control.RosterEntry{
				{Name: "alpha", Port: 11411, Provisioned: true, State: control.StateRunning, Session: "rover-alpha"},
				{Name: "beta", Port: 11412, Provisioned: true, State: control.StateExited, Session: "rover-beta"},
			},
		},
	}
}

func TestSnapshotRendersRoster(t *testing.T) {
	model := testModel(fleetSource())

	msg := runCmd(t, model.fetch())
	updated, _ := model.Update(msg)
	view := updated.View()

	for _, want := range []string{"alpha", "beta", "11411", "running", "exited", "phase running"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestFetchErrorKeepsLastSnapshot(t *testing.T) {
	source := fleetSource()
	model := testModel(source)

	updated, _ := model.Update(runCmd(t, model.fetch()))
	model = updated.(Model)

	source.err = errors.New("connection refused")
	updated, _ = model.Update(runCmd(t, model.fetch()))
	view := updated.View()

	if !strings.Contains(view, "alpha") {
		t.Errorf("view dropped the last good snapshot:\n%s", view)
	}
	if !strings.Contains(view, "refresh failed") {
		t.Errorf("view missing the refresh error notice:\n%s", view)
	}
}

func TestDisableRequiresConfirmation(t *testing.T) {
	source := fleetSource()
	model := testModel(source)

	updated, _ := model.Update(runCmd(t, model.fetch()))
	model = updated.(Model)

	// "d" arms the confirmation but must not disable by itself.
	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	model = updated.(Model)
	if cmd != nil {
		t.Fatal("disable key produced a command before confirmation")
	}
	if source.disables != 0 {
		t.Fatal("disable ran without confirmation")
	}
	if !strings.Contains(model.View(), "disable the herd?") {
		t.Errorf("view missing confirmation prompt:\n%s", model.View())
	}

	// "y" confirms.
	updated, cmd = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	model = updated.(Model)
	msg := runCmd(t, cmd)
	if source.disables != 1 {
		t.Fatalf("disables = %d after confirmation, want 1", source.disables)
	}

	updated, _ = model.Update(msg)
	if !strings.Contains(updated.View(), "herd disabled") {
		t.Errorf("view missing disable outcome:\n%s", updated.View())
	}
}

func TestDisableCancelled(t *testing.T) {
	source := fleetSource()
	model := testModel(source)

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
	model = updated.(Model)
	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	model = updated.(Model)

	if cmd != nil {
		t.Error("cancel produced a command")
	}
	if model.confirming {
		t.Error("model still confirming after cancel")
	}
	if source.disables != 0 {
		t.Errorf("disables = %d after cancel, want 0", source.disables)
	}
}

func TestQuitKey(t *testing.T) {
	model := testModel(fleetSource())

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("quit key produced no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit key command did not produce tea.QuitMsg")
	}
}

func TestTickSchedulesRefresh(t *testing.T) {
	model := testModel(fleetSource())

	_, cmd := model.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("tick produced no follow-up commands")
	}
}

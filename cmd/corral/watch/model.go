// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/corral-fleet/corral/lib/control"
)

// herdSource is the control-socket surface the model depends on.
// *control.Client satisfies it; tests substitute fakes.
type herdSource interface {
	Status(ctx context.Context) (*control.StatusInfo, error)
	Roster(ctx context.Context) (*control.RosterInfo, error)
	Disable(ctx context.Context) (*control.DisableResult, error)
}

// fetchTimeout bounds each refresh RPC. The herder answers from
// memory; a fetch slower than this counts as unreachable.
const fetchTimeout = 5 * time.Second

// KeyMap defines the key bindings for the watch TUI.
type KeyMap struct {
	Disable key.Binding
	Confirm key.Binding
	Cancel  key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Disable: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "disable herd"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "confirm"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "esc"),
		key.WithHelp("n/esc", "cancel"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// styles holds the lipgloss styles for the watch view, built against
// a renderer so the color profile is decided once in Run.
type styles struct {
	header   lipgloss.Style
	faint    lipgloss.Style
	running  lipgloss.Style
	exited   lipgloss.Style
	warning  lipgloss.Style
	errorBar lipgloss.Style
}

func newStyles(renderer *lipgloss.Renderer) styles {
	return styles{
		header:   renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		faint:    renderer.NewStyle().Foreground(lipgloss.Color("243")),
		running:  renderer.NewStyle().Foreground(lipgloss.Color("35")),
		exited:   renderer.NewStyle().Foreground(lipgloss.Color("167")),
		warning:  renderer.NewStyle().Foreground(lipgloss.Color("179")),
		errorBar: renderer.NewStyle().Foreground(lipgloss.Color("203")),
	}
}

// tickMsg asks the model to refresh.
type tickMsg time.Time

// snapshotMsg carries one refresh's worth of herd state. err is set
// when either fetch failed; the previous snapshot stays on screen.
type snapshotMsg struct {
	status *control.StatusInfo
	roster *control.RosterInfo
	err    error
}

// disableDoneMsg reports the outcome of a confirmed disable.
type disableDoneMsg struct {
	result *control.DisableResult
	err    error
}

// Model is the watch TUI state.
type Model struct {
	source   herdSource
	interval time.Duration
	keys     KeyMap
	styles   styles

	width  int
	height int

	status   *control.StatusInfo
	roster   *control.RosterInfo
	fetchErr error

	confirming  bool
	disableNote string
}

// NewModel builds the watch model. The renderer decides the color
// profile; pass lipgloss.DefaultRenderer() outside tests.
func NewModel(source herdSource, interval time.Duration, renderer *lipgloss.Renderer) Model {
	return Model{
		source:   source,
		interval: interval,
		keys:     DefaultKeyMap,
		styles:   newStyles(renderer),
	}
}

// Init fetches immediately and starts the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.tick())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetch(), m.tick())

	case snapshotMsg:
		m.fetchErr = msg.err
		if msg.err == nil {
			m.status = msg.status
			m.roster = msg.roster
		}
		return m, nil

	case disableDoneMsg:
		if msg.err != nil {
			m.disableNote = fmt.Sprintf("disable failed: %v", msg.err)
		} else if msg.result.AlreadyDisabled {
			m.disableNote = "herd was already disabled"
		} else {
			m.disableNote = "herd disabled; the herder shuts down at its next tick"
		}
		return m, m.fetch()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirming {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.confirming = false
			return m, m.disable()
		case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Quit):
			m.confirming = false
			return m, nil
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Disable):
		m.confirming = true
		m.disableNote = ""
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetch()
	}
	return m, nil
}

// View renders the herd summary, the roster table, and a footer with
// key hints or the pending disable confirmation.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.header.Render("corral herd"))
	b.WriteString("\n\n")

	if m.status == nil {
		if m.fetchErr != nil {
			b.WriteString(m.styles.errorBar.Render(m.truncate(fmt.Sprintf("herder unreachable: %v", m.fetchErr))))
		} else {
			b.WriteString(m.styles.faint.Render("connecting..."))
		}
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.summaryLine())
	b.WriteString("\n\n")
	b.WriteString(m.rosterTable())

	if m.fetchErr != nil {
		b.WriteString("\n")
		b.WriteString(m.styles.errorBar.Render(m.truncate(fmt.Sprintf("refresh failed (showing last snapshot): %v", m.fetchErr))))
	}
	if m.disableNote != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.warning.Render(m.truncate(m.disableNote)))
	}

	b.WriteString("\n\n")
	if m.confirming {
		b.WriteString(m.styles.warning.Render("disable the herd? the herder will shut down."))
		b.WriteString(m.styles.faint.Render("  y confirm · n/esc cancel"))
	} else {
		b.WriteString(m.styles.faint.Render(helpLine(m.keys)))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) summaryLine() string {
	phase := m.status.Phase
	if m.status.Disabled {
		phase += " (disabled)"
	}
	uptime := time.Duration(m.status.UptimeSeconds * float64(time.Second)).Round(time.Second)
	line := fmt.Sprintf("phase %s · rovers %d · processes %d · launcher %s · up %s",
		phase, m.status.RoverCount, m.status.ProcessCount, m.status.Launcher, uptime)
	return m.truncate(line)
}

func (m Model) rosterTable() string {
	if m.roster == nil || len(m.roster.Rovers) == 0 {
		return m.styles.faint.Render("no rovers in the herd")
	}

	var b strings.Builder
	b.WriteString(m.styles.header.Render(m.truncate(fmt.Sprintf(
		"%-16s %-6s %-12s %-8s %s", "NAME", "PORT", "PROVISIONED", "STATE", "SESSION"))))
	for _, rover := range m.roster.Rovers {
		port := "-"
		if rover.Port != 0 {
			port = fmt.Sprintf("%d", rover.Port)
		}
		session := rover.Session
		if session == "" {
			session = "-"
		}
		row := fmt.Sprintf("%-16s %-6s %-12t %-8s %s",
			rover.Name, port, rover.Provisioned, rover.State, session)

		style := m.styles.faint
		switch rover.State {
		case control.StateRunning:
			style = m.styles.running
		case control.StateExited:
			style = m.styles.exited
		}
		b.WriteString("\n")
		b.WriteString(style.Render(m.truncate(row)))
	}
	return b.String()
}

// truncate clips a rendered line to the terminal width, escape-aware.
func (m Model) truncate(line string) string {
	if m.width <= 0 {
		return line
	}
	return ansi.Truncate(line, m.width, "…")
}

func helpLine(keys KeyMap) string {
	bindings := []key.Binding{keys.Disable, keys.Refresh, keys.Quit}
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return strings.Join(parts, " · ")
}

// tick schedules the next refresh.
func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetch pulls status and roster in one command.
func (m Model) fetch() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		status, err := source.Status(ctx)
		if err != nil {
			return snapshotMsg{err: err}
		}
		roster, err := source.Roster(ctx)
		if err != nil {
			return snapshotMsg{err: err}
		}
		return snapshotMsg{status: status, roster: roster}
	}
}

// disable issues the disable action after the user confirmed.
func (m Model) disable() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		result, err := source.Disable(ctx)
		return disableDoneMsg{result: result, err: err}
	}
}

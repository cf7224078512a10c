// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

// Package watch is the live herd TUI behind "corral watch": a roster
// table refreshed on a ticker, with a confirmed disable keybinding.
package watch

import (
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/corral-fleet/corral/lib/control"
)

// Run starts the watch TUI against the given control client and
// blocks until the user quits.
func Run(client *control.Client, interval time.Duration) error {
	// Pin the color profile to ANSI 256 for consistent rendering;
	// full-truecolor detection is flaky over SSH and inside tmux.
	renderer := lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(termenv.ANSI256))

	model := NewModel(client, interval, renderer)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package herd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/corral-fleet/corral/lib/control"
)

func TestRootCommandTree(t *testing.T) {
	root := Root()

	want := []string{"status", "roster", "disable", "watch", "version"}
	var got []string
	for _, sub := range root.Subcommands {
		got = append(got, sub.Name)
	}
	if len(got) != len(want) {
		t.Fatalf("subcommands = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("subcommand[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	for _, sub := range root.Subcommands {
		if sub.Summary == "" {
			t.Errorf("subcommand %q has no summary", sub.Name)
		}
	}
}

func TestPrintStatus(t *testing.T) {
	var buffer bytes.Buffer
	printStatus(&buffer, &control.StatusInfo{
		Phase:         control.PhaseRunning,
		UptimeSeconds: 90,
		RoverCount:    3,
		ProcessCount:  3,
		NextPort:      11414,
		Launcher:      "tmux",
		ClientDigest:  "abc123",
	})
	output := buffer.String()

	for _, want := range []string{"running", "1m30s", "11414", "tmux", "abc123"} {
		if !strings.Contains(output, want) {
			t.Errorf("status output missing %q:\n%s", want, output)
		}
	}
}

func TestPrintRoster(t *testing.T) {
	var buffer bytes.Buffer
	printRoster(&buffer, &control.RosterInfo{
		Rovers: []control.RosterEntry{
			{Name: "alpha", Port: 11411, Provisioned: true, State: control.StateRunning, Session: "rover-alpha", PID: 4242},
			{Name: "beta", Provisioned: false, State: control.StateUnknown},
		},
	})
	output := buffer.String()

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 3 {
		t.Fatalf("roster output has %d lines, want header + 2 rows:\n%s", len(lines), output)
	}
	if !strings.Contains(lines[1], "alpha") || !strings.Contains(lines[1], "11411") {
		t.Errorf("alpha row incomplete: %q", lines[1])
	}
	// Unlaunched rovers render placeholders, not zeros.
	if !strings.Contains(lines[2], "-") {
		t.Errorf("beta row missing placeholder dashes: %q", lines[2])
	}
}

func TestPrintRosterEmpty(t *testing.T) {
	var buffer bytes.Buffer
	printRoster(&buffer, &control.RosterInfo{})
	if !strings.Contains(buffer.String(), "no rovers") {
		t.Errorf("empty roster output = %q, want a no-rovers notice", buffer.String())
	}
}

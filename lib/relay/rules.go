// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay provides the typed client for the route relay service
// and the rule types its protocol is built from. The relay forwards
// named channels across the partition boundary; the herder registers
// one pair of rules per rover and may cancel them at teardown.
package relay

// Direction tells the relay which way a channel crosses the partition
// boundary.
type Direction string

const (
	// Inbound forwards a channel from the remote side to the rover
	// (commands in).
	Inbound Direction = "inbound"

	// Outbound forwards a channel from the rover to the remote side
	// (status out).
	Outbound Direction = "outbound"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == Inbound || d == Outbound
}

// Rule is one route registration: forward Channel for Entity in the
// given Direction.
type Rule struct {
	Direction Direction `cbor:"direction"`
	Entity    string    `cbor:"entity"`
	Channel   string    `cbor:"channel"`
}

// RulesFor builds the route rules for a set of rovers: for each name,
// one inbound rule for the command channel and one outbound rule for
// the status channel, in that order. Always exactly two rules per
// name; the pair is never split across requests.
func RulesFor(names []string, commandChannel, statusChannel string) []Rule {
	rules := make([]Rule, 0, 2*len(names))
	for _, name := range names {
		rules = append(rules,
			Rule{Direction: Inbound, Entity: name, Channel: commandChannel},
			Rule{Direction: Outbound, Entity: name, Channel: statusChannel},
		)
	}
	return rules
}

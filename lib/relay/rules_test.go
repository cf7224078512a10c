// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package relay_test

import (
	"testing"

	"github.com/corral-fleet/corral/lib/relay"
)

func TestRulesForPairsPerName(t *testing.T) {
	rules := relay.RulesFor([]string{"t1", "t2"}, "drive", "pose")

	if len(rules) != 4 {
		t.Fatalf("got %d rules, want 4 (2 per name)", len(rules))
	}

	want := []relay.Rule{
		{Direction: relay.Inbound, Entity: "t1", Channel: "drive"},
		{Direction: relay.Outbound, Entity: "t1", Channel: "pose"},
		{Direction: relay.Inbound, Entity: "t2", Channel: "drive"},
		{Direction: relay.Outbound, Entity: "t2", Channel: "pose"},
	}
	for i, rule := range want {
		if rules[i] != rule {
			t.Errorf("rule %d = %+v, want %+v", i, rules[i], rule)
		}
	}
}

func TestRulesForEmpty(t *testing.T) {
	if rules := relay.RulesFor(nil, "drive", "pose"); len(rules) != 0 {
		t.Errorf("got %d rules for no names, want 0", len(rules))
	}
}

func TestRulesForSingleName(t *testing.T) {
	rules := relay.RulesFor([]string{"scout"}, "cmd", "telemetry")

	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
	if rules[0].Direction != relay.Inbound || rules[0].Channel != "cmd" {
		t.Errorf("first rule %+v, want inbound cmd", rules[0])
	}
	if rules[1].Direction != relay.Outbound || rules[1].Channel != "telemetry" {
		t.Errorf("second rule %+v, want outbound telemetry", rules[1])
	}
}

func TestDirectionValid(t *testing.T) {
	if !relay.Inbound.Valid() || !relay.Outbound.Valid() {
		t.Error("known directions reported invalid")
	}
	if relay.Direction("sideways").Valid() {
		t.Error("unknown direction reported valid")
	}
	if relay.Direction("").Valid() {
		t.Error("empty direction reported valid")
	}
}

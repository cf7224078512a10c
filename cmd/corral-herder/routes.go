// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/corral-fleet/corral/lib/relay"
)

// applyRoutes registers (cancel=false) or cancels (cancel=true) the
// command/status route pair for every name, batched into a single
// relay request. Route application is best-effort: a failure is
// logged and never retried, and there is no per-name fallback — the
// whole batch is one request or nothing.
func (h *Herder) applyRoutes(ctx context.Context, names []string, cancel bool) {
	if len(names) == 0 {
		return
	}

	rules := relay.RulesFor(names, h.cfg.Relay.CommandChannel, h.cfg.Relay.StatusChannel)
	if err := h.routes.Apply(ctx, rules, cancel); err != nil {
		if ctx.Err() != nil {
			h.logger.Info("route application interrupted",
				"rovers", len(names), "cancel", cancel)
			return
		}
		h.logger.Error("applying routes failed",
			"rovers", len(names), "cancel", cancel, "error", err)
		return
	}

	h.logger.Info("routes applied",
		"rovers", len(names), "rules", len(rules), "cancel", cancel)
}

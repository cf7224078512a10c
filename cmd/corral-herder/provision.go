// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/corral-fleet/corral/lib/simulator"
)

// provision spawns a simulated body for each name at a random pose
// and returns the names that succeeded, in input order. A failed
// spawn is logged and skipped with no retry; cancellation abandons
// the rest of the batch and returns what succeeded so far.
func (h *Herder) provision(ctx context.Context, names []string) []string {
	provisioned := make([]string, 0, len(names))
	for index, name := range names {
		if ctx.Err() != nil {
			h.logger.Info("provisioning interrupted",
				"completed", index, "requested", len(names))
			break
		}

		pose := simulator.RandomPose(h.cfg.Simulator.PoseMin, h.cfg.Simulator.PoseMax)
		if err := h.entities.Spawn(ctx, name, pose); err != nil {
			if ctx.Err() != nil {
				h.logger.Info("provisioning interrupted",
					"completed", index, "requested", len(names))
				break
			}
			h.logger.Error("provisioning rover failed", "rover", name, "error", err)
			continue
		}

		h.logger.Info("provisioned rover",
			"rover", name, "x", pose.X, "y", pose.Y, "heading", pose.Heading)
		provisioned = append(provisioned, name)
	}
	return provisioned
}

// removeEntities removes each name's simulated body during teardown.
// Per-item failures are logged and do not stop the remaining
// removals.
func (h *Herder) removeEntities(ctx context.Context, names []string) {
	for index, name := range names {
		if ctx.Err() != nil {
			h.logger.Info("entity removal interrupted",
				"completed", index, "requested", len(names))
			return
		}
		if err := h.entities.Remove(ctx, name); err != nil {
			h.logger.Error("removing entity failed", "rover", name, "error", err)
		}
	}
}

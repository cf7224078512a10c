// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/corral-fleet/corral/lib/clock"
	"github.com/corral-fleet/corral/lib/config"
	"github.com/corral-fleet/corral/lib/control"
	"github.com/corral-fleet/corral/lib/relay"
	"github.com/corral-fleet/corral/lib/roster"
	"github.com/corral-fleet/corral/lib/simulator"
)

// entityService is the simulator surface the herder depends on.
// *simulator.Client satisfies it; tests substitute fakes.
type entityService interface {
	Spawn(ctx context.Context, name string, pose simulator.Pose) error
	Remove(ctx context.Context, name string) error
}

// routeService is the relay surface the herder depends on.
// *relay.Client satisfies it; tests substitute fakes.
type routeService interface {
	Apply(ctx context.Context, rules []relay.Rule, cancel bool) error
}

// Herder is the fleet coordinator. It owns the roster and drives each
// spawn batch through provisioning, client launch, and route
// registration; at the end of the run it tears the herd down exactly
// once.
//
// All mutation happens from the main goroutine. The mutex exists so
// the control socket's read-only actions (status, roster) can
// snapshot state from the server goroutine.
type Herder struct {
	mu sync.Mutex

	cfg    *config.Config
	clock  clock.Clock
	logger *slog.Logger

	entities   entityService
	routes     routeService
	supervisor *supervisor

	startedAt time.Time

	phase       string
	disabled    bool
	shutdownRan bool

	roster      *roster.Roster
	provisioned map[string]bool
}

// Deps bundles the herder's collaborators for construction.
type Deps struct {
	Config     *config.Config
	Clock      clock.Clock
	Logger     *slog.Logger
	Entities   entityService
	Routes     routeService
	Supervisor *supervisor
}

// NewHerder builds the coordinator and clears the simulator's
// pre-seeded default entity. A failed remove call is logged and
// tolerated — the entity may simply not exist — but cancellation
// during the call aborts construction.
func NewHerder(ctx context.Context, deps Deps) (*Herder, error) {
	herder := &Herder{
		cfg:         deps.Config,
		clock:       deps.Clock,
		logger:      deps.Logger,
		entities:    deps.Entities,
		routes:      deps.Routes,
		supervisor:  deps.Supervisor,
		startedAt:   deps.Clock.Now(),
		phase:       control.PhaseInitializing,
		roster:      roster.New(),
		provisioned: make(map[string]bool),
	}
	if err := herder.removeDefaultEntity(ctx); err != nil {
		return nil, err
	}
	return herder, nil
}

// Spawn runs one batch: uniquify the requested names against the
// roster, append them, provision simulated bodies, launch client
// processes, and register routes. Returns the uniquified names.
//
// Launch and routes cover the full uniquified set by default; with
// launch_provisioned_only they shrink to the names whose simulated
// body actually spawned.
func (h *Herder) Spawn(ctx context.Context, requested []string) []string {
	if len(requested) == 0 {
		return nil
	}

	h.mu.Lock()
	assigned := roster.Uniquify(requested, h.roster)
	h.roster.Add(assigned...)
	h.mu.Unlock()

	h.logger.Info("spawning rovers", "requested", requested, "assigned", assigned)

	provisioned := h.provision(ctx, assigned)
	h.mu.Lock()
	for _, name := range provisioned {
		h.provisioned[name] = true
	}
	h.mu.Unlock()

	launchSet := assigned
	if h.cfg.Herd.LaunchProvisionedOnly {
		launchSet = provisioned
	}

	if err := h.supervisor.launch(ctx, launchSet); err != nil {
		h.logger.Error("launching clients failed", "error", err)
	}
	h.applyRoutes(ctx, launchSet, false)

	return assigned
}

// markRunning records the Initializing → Running transition once the
// initial spawn batch has completed.
func (h *Herder) markRunning() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.phase = control.PhaseRunning
}

// Disable sets the disabled flag. Idempotent: the first call flips
// the flag, later calls just report that it was already set.
func (h *Herder) Disable() control.DisableResult {
	h.mu.Lock()
	already := h.disabled
	h.disabled = true
	h.mu.Unlock()

	if !already {
		h.logger.Info("herd disabled")
	}
	return control.DisableResult{Disabled: true, AlreadyDisabled: already}
}

// Disabled reports the disable flag. This is the poll loop's
// predicate.
func (h *Herder) Disabled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disabled
}

// Shutdown tears the herd down: terminate every tracked client
// process and delete the launch artifacts, then — only when the
// teardown toggles ask for it — cancel the herd's routes and remove
// its simulated entities. Guarded: the second call is a no-op.
func (h *Herder) Shutdown(ctx context.Context) {
	h.mu.Lock()
	if h.shutdownRan {
		h.mu.Unlock()
		h.logger.Debug("shutdown already ran")
		return
	}
	h.shutdownRan = true
	h.phase = control.PhaseShuttingDown
	names := h.roster.Names()
	h.mu.Unlock()

	h.logger.Info("shutting down herd", "rovers", len(names))

	h.supervisor.terminateAll(ctx)

	if h.cfg.Herd.TeardownRoutes {
		h.applyRoutes(ctx, names, true)
	}
	if h.cfg.Herd.TeardownEntities {
		h.removeEntities(ctx, names)
	}
}

// removeDefaultEntity clears the simulator's pre-seeded entity so the
// pasture starts empty. The simulator seeds it unconditionally on its
// own startup; a herd that wants a rover by that name spawns its own.
func (h *Herder) removeDefaultEntity(ctx context.Context) error {
	name := h.cfg.Simulator.DefaultEntity
	if err := h.entities.Remove(ctx, name); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("removing default entity %q: %w", name, ctx.Err())
		}
		h.logger.Error("removing default entity failed", "entity", name, "error", err)
	}
	return nil
}

// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

// Corral-sim is an in-memory stand-in for the pasture simulator in
// development and demo deployments. It serves the simulator socket
// protocol exactly (spawn, remove, list, ping), keeps its entities in
// memory, and seeds one default entity at startup the way the real
// simulator does — the herder clears that entity as its first act.
//
// Entities live on a square field: poses are valid when x and y fall
// in [0, field-size]. Spawn rejects duplicate names and out-of-range
// poses; remove rejects unknown names; list returns entities in spawn
// order.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/corral-fleet/corral/lib/codec"
	"github.com/corral-fleet/corral/lib/config"
	"github.com/corral-fleet/corral/lib/process"
	"github.com/corral-fleet/corral/lib/rpc"
	"github.com/corral-fleet/corral/lib/simulator"
	"github.com/corral-fleet/corral/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var socketPath string
	var defaultEntity string
	var fieldSize float64
	var logLevel string
	var showVersion bool
	flag.StringVar(&socketPath, "socket", "", "simulator socket path (default: <run dir>/sim.sock)")
	flag.StringVar(&defaultEntity, "default-entity", "rover1", "entity seeded at startup")
	flag.Float64Var(&fieldSize, "field-size", 11.0, "side length of the square field; poses outside [0, field-size] are rejected")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		version.Print("corral-sim")
		return nil
	}

	if socketPath == "" {
		cfg := config.Default()
		cfg.Resolve()
		if err := cfg.EnsurePaths(); err != nil {
			return err
		}
		socketPath = cfg.Simulator.Socket
	}
	if fieldSize <= 0 {
		return fmt.Errorf("field-size must be positive, got %v", fieldSize)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(logLevel),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sim := newPasture(logger, fieldSize)

	// The real simulator comes up with one entity already on the
	// field. The stand-in reproduces that so the herder's default-
	// entity cleanup has something to clean.
	if defaultEntity != "" {
		sim.seed(defaultEntity)
	}

	server := rpc.NewSocketServer(socketPath, logger)
	sim.registerActions(server)

	socketDone := make(chan error, 1)
	go func() {
		socketDone <- server.Serve(ctx)
	}()

	logger.Info("simulator running",
		"socket", socketPath,
		"field_size", fieldSize,
		"default_entity", defaultEntity,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	if err := <-socketDone; err != nil {
		logger.Error("socket server error", "error", err)
	}
	return nil
}

// pasture is the in-memory entity store. Entities keep their spawn
// order for deterministic list output; the index map makes duplicate
// and unknown-name checks cheap.
type pasture struct {
	mu        sync.Mutex
	fieldSize float64
	entities  []simulator.Entity
	index     map[string]int
	logger    *slog.Logger
}

func newPasture(logger *slog.Logger, fieldSize float64) *pasture {
	return &pasture{
		fieldSize: fieldSize,
		index:     make(map[string]int),
		logger:    logger,
	}
}

// seed places the default entity at the center of the field.
func (p *pasture) seed(name string) {
	center := p.fieldSize / 2
	p.mu.Lock()
	p.index[name] = len(p.entities)
	p.entities = append(p.entities, simulator.Entity{Name: name, X: center, Y: center})
	p.mu.Unlock()
}

func (p *pasture) registerActions(server *rpc.SocketServer) {
	server.Handle("spawn", p.handleSpawn)
	server.Handle("remove", p.handleRemove)
	server.Handle("list", p.handleList)
}

func (p *pasture) handleSpawn(ctx context.Context, raw []byte) (any, error) {
	var request simulator.SpawnRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid spawn request: %w", err)
	}
	if request.Name == "" {
		return nil, fmt.Errorf("missing required field: name")
	}
	if err := p.validatePose(request.X, request.Y, request.Heading); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.index[request.Name]; exists {
		return nil, fmt.Errorf("entity %q already exists", request.Name)
	}
	p.index[request.Name] = len(p.entities)
	p.entities = append(p.entities, simulator.Entity{
		Name:    request.Name,
		X:       request.X,
		Y:       request.Y,
		Heading: request.Heading,
	})

	p.logger.Info("spawned entity",
		"entity", request.Name, "x", request.X, "y", request.Y, "heading", request.Heading)
	return nil, nil
}

func (p *pasture) handleRemove(ctx context.Context, raw []byte) (any, error) {
	var request simulator.RemoveRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid remove request: %w", err)
	}
	if request.Name == "" {
		return nil, fmt.Errorf("missing required field: name")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	position, exists := p.index[request.Name]
	if !exists {
		return nil, fmt.Errorf("no entity named %q", request.Name)
	}
	p.entities = append(p.entities[:position], p.entities[position+1:]...)
	delete(p.index, request.Name)
	for i := position; i < len(p.entities); i++ {
		p.index[p.entities[i].Name] = i
	}

	p.logger.Info("removed entity", "entity", request.Name)
	return nil, nil
}

func (p *pasture) handleList(ctx context.Context, raw []byte) (any, error) {
	p.mu.Lock()
	entities := make([]simulator.Entity, len(p.entities))
	copy(entities, p.entities)
	p.mu.Unlock()

	return simulator.ListResult{Entities: entities}, nil
}

// validatePose rejects placements off the field and non-finite
// values, which would otherwise poison every later list response.
func (p *pasture) validatePose(x, y, heading float64) error {
	for _, value := range []float64{x, y, heading} {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("pose values must be finite")
		}
	}
	if x < 0 || x > p.fieldSize || y < 0 || y > p.fieldSize {
		return fmt.Errorf("pose (%.2f, %.2f) is outside the field [0, %.2f]", x, y, p.fieldSize)
	}
	return nil
}

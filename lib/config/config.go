// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for a Corral herd.
type Config struct {
	// RunDir is the base directory for runtime state: sockets, launch
	// scripts, captures, and the herder lock file.
	RunDir string `yaml:"run_dir"`

	// LogLevel sets the logging threshold: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// ControlSocket is the Unix socket the herder serves its control
	// protocol on. Default: ${CORRAL_RUN_DIR}/herder.sock.
	ControlSocket string `yaml:"control_socket"`

	// Herd configures the fleet coordinator.
	Herd HerdConfig `yaml:"herd"`

	// Simulator configures the connection to the entity simulator.
	Simulator SimulatorConfig `yaml:"simulator"`

	// Relay configures the connection to the route relay.
	Relay RelayConfig `yaml:"relay"`

	// Launcher configures rover client process launching.
	Launcher LauncherConfig `yaml:"launcher"`

	// Durations parsed by Validate from their string fields.
	tickInterval      time.Duration
	simReadyTimeout   time.Duration
	relayReadyTimeout time.Duration
}

// HerdConfig configures the fleet coordinator.
type HerdConfig struct {
	// Rovers is the list of rover names to spawn at startup. Names
	// are uniquified against the roster, so duplicates are legal and
	// receive numeric suffixes.
	Rovers []string `yaml:"rovers"`

	// TickInterval is the poll loop interval as a duration string.
	// Default: 300ms.
	TickInterval string `yaml:"tick_interval"`

	// LaunchProvisionedOnly restricts client launch and route
	// registration to rovers whose simulator provisioning succeeded.
	// Default false: launch and route every uniquified name even when
	// its simulated body failed to spawn, so the route exists by the
	// time the body is retried out of band.
	LaunchProvisionedOnly bool `yaml:"launch_provisioned_only"`

	// TeardownRoutes cancels registered routes during shutdown.
	// Default false: a herd normally shuts down together with its
	// relay, making cancellation redundant.
	TeardownRoutes bool `yaml:"teardown_routes"`

	// TeardownEntities removes simulated entities during shutdown.
	// Default false: the simulator is normally torn down with the
	// herd.
	TeardownEntities bool `yaml:"teardown_entities"`
}

// SimulatorConfig configures the connection to the entity simulator.
type SimulatorConfig struct {
	// Socket is the simulator's Unix socket path.
	// Default: ${CORRAL_RUN_DIR}/sim.sock.
	Socket string `yaml:"socket"`

	// DefaultEntity is the entity the simulator seeds at its own
	// startup. The herder removes it before spawning the herd.
	// Default: rover1.
	DefaultEntity string `yaml:"default_entity"`

	// PoseMin and PoseMax bound the uniform distribution for initial
	// rover x and y coordinates. Defaults: 3.5 and 6.5.
	PoseMin float64 `yaml:"pose_min"`
	PoseMax float64 `yaml:"pose_max"`

	// ReadyTimeout bounds the startup wait for the simulator socket,
	// as a duration string. "0s" waits indefinitely. Default: 0s.
	ReadyTimeout string `yaml:"ready_timeout"`
}

// RelayConfig configures the connection to the route relay.
type RelayConfig struct {
	// Socket is the relay's Unix socket path.
	// Default: ${CORRAL_RUN_DIR}/relay.sock.
	Socket string `yaml:"socket"`

	// Namespace scopes this herd's route rules on a shared relay.
	// Default: corral.
	Namespace string `yaml:"namespace"`

	// CommandChannel is the inbound channel routed to each rover.
	// Default: drive.
	CommandChannel string `yaml:"command_channel"`

	// StatusChannel is the outbound channel routed from each rover.
	// Default: pose.
	StatusChannel string `yaml:"status_channel"`

	// ReadyTimeout bounds the startup wait for the relay socket, as a
	// duration string. "0s" waits indefinitely. Default: 0s.
	ReadyTimeout string `yaml:"ready_timeout"`
}

// LauncherConfig configures rover client process launching.
type LauncherConfig struct {
	// ClientBinary is the rover client executable. A bare name is
	// resolved through PATH; a path containing a separator is used
	// directly. Default: corral-rover-client.
	ClientBinary string `yaml:"client_binary"`

	// Terminal selects the process launcher: "tmux" runs each client
	// in a tmux session on a private server, "headless" runs bare
	// processes, "auto" prefers tmux when the binary is available.
	// Default: auto.
	Terminal string `yaml:"terminal"`

	// PortBase is the first port assigned to rover clients. Ports
	// increase by one per launched client and are never reused within
	// a herder run. Default: 11411.
	PortBase int `yaml:"port_base"`

	// Template is an optional JSONC file overriding the client
	// argument template. Empty uses the built-in template.
	Template string `yaml:"template"`

	// CaptureDir receives terminal capture archives collected during
	// shutdown. Empty disables capture. Default: empty.
	CaptureDir string `yaml:"capture_dir"`

	// CaptureCompression selects the capture archive compression:
	// none, lz4, or zstd. Default: zstd.
	CaptureCompression string `yaml:"capture_compression"`
}

// DefaultRunDir returns the default runtime directory, ~/.cache/corral.
func DefaultRunDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".cache", "corral")
}

// Default returns the default configuration. Socket and capture paths
// are left as ${CORRAL_RUN_DIR} templates so that a run_dir override
// from the file or environment relocates them together; Resolve (or
// LoadFile, which calls it) performs the expansion.
func Default() *Config {
	return &Config{
		RunDir:        DefaultRunDir(),
		LogLevel:      "info",
		ControlSocket: "${CORRAL_RUN_DIR}/herder.sock",
		Herd: HerdConfig{
			Rovers:       []string{"rover1"},
			TickInterval: "300ms",
		},
		Simulator: SimulatorConfig{
			Socket:        "${CORRAL_RUN_DIR}/sim.sock",
			DefaultEntity: "rover1",
			PoseMin:       3.5,
			PoseMax:       6.5,
			ReadyTimeout:  "0s",
		},
		Relay: RelayConfig{
			Socket:         "${CORRAL_RUN_DIR}/relay.sock",
			Namespace:      "corral",
			CommandChannel: "drive",
			StatusChannel:  "pose",
			ReadyTimeout:   "0s",
		},
		Launcher: LauncherConfig{
			ClientBinary:       "corral-rover-client",
			Terminal:           "auto",
			PortBase:           11411,
			CaptureCompression: "zstd",
		},
	}
}

// Load loads configuration from the file named by CORRAL_CONFIG.
//
// This is the only way to load configuration without an explicit
// path. If CORRAL_CONFIG is not set, Load fails; callers that accept
// a --config flag should use LoadFile directly.
func Load() (*Config, error) {
	configPath := os.Getenv("CORRAL_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("CORRAL_CONFIG environment variable not set; " +
			"set it to the path of your corral.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merging the
// file over Default and then resolving environment overrides and path
// variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.Resolve()
	return cfg, nil
}

// Resolve applies the CORRAL_RUN_DIR and CORRAL_LOG_LEVEL environment
// overrides and expands ${VAR} patterns in path fields. LoadFile
// calls this automatically; callers running on bare defaults call it
// on Default() before use.
func (c *Config) Resolve() {
	if runDir := os.Getenv("CORRAL_RUN_DIR"); runDir != "" {
		c.RunDir = runDir
	}
	if level := os.Getenv("CORRAL_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	c.applySocketDefaults()
	c.expandVariables()
}

// applySocketDefaults restores the run-dir-relative defaults for
// socket paths the config file explicitly emptied. An empty socket
// path is never valid, so empty always means "use the default". An
// empty capture_dir is left alone: it disables capture.
func (c *Config) applySocketDefaults() {
	if c.ControlSocket == "" {
		c.ControlSocket = "${CORRAL_RUN_DIR}/herder.sock"
	}
	if c.Simulator.Socket == "" {
		c.Simulator.Socket = "${CORRAL_RUN_DIR}/sim.sock"
	}
	if c.Relay.Socket == "" {
		c.Relay.Socket = "${CORRAL_RUN_DIR}/relay.sock"
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields. RunDir is expanded first so dependent paths see its final
// value.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"CORRAL_RUN_DIR": c.RunDir,
		"HOME":           os.Getenv("HOME"),
	}

	c.RunDir = expandVars(c.RunDir, vars)
	vars["CORRAL_RUN_DIR"] = c.RunDir // Update for dependent paths.

	c.ControlSocket = expandVars(c.ControlSocket, vars)
	c.Simulator.Socket = expandVars(c.Simulator.Socket, vars)
	c.Relay.Socket = expandVars(c.Relay.Socket, vars)
	c.Launcher.Template = expandVars(c.Launcher.Template, vars)
	c.Launcher.CaptureDir = expandVars(c.Launcher.CaptureDir, vars)
	c.Launcher.ClientBinary = expandVars(c.Launcher.ClientBinary, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// logLevels are the accepted log_level values.
var logLevels = []string{"debug", "info", "warn", "error"}

// terminalKinds are the accepted launcher.terminal values.
var terminalKinds = []string{"auto", "tmux", "headless"}

// compressionKinds are the accepted launcher.capture_compression values.
var compressionKinds = []string{"none", "lz4", "zstd"}

// Validate checks the configuration for errors and parses the
// duration fields. All problems are reported together via
// errors.Join. The duration accessors (HerdTick, SimulatorReadyTimeout,
// RelayReadyTimeout) return meaningful values only after a successful
// Validate.
func (c *Config) Validate() error {
	var errs []error

	if c.RunDir == "" {
		errs = append(errs, fmt.Errorf("run_dir is required"))
	}
	if !slices.Contains(logLevels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level must be one of: %v", logLevels))
	}
	if c.ControlSocket == "" {
		errs = append(errs, fmt.Errorf("control_socket is required"))
	}

	for _, name := range c.Herd.Rovers {
		if err := validRoverName(name); err != nil {
			errs = append(errs, fmt.Errorf("herd.rovers: %w", err))
		}
	}
	tick, err := time.ParseDuration(c.Herd.TickInterval)
	if err != nil {
		errs = append(errs, fmt.Errorf("herd.tick_interval: %w", err))
	} else if tick <= 0 {
		errs = append(errs, fmt.Errorf("herd.tick_interval must be positive, got %s", c.Herd.TickInterval))
	}

	if c.Simulator.Socket == "" {
		errs = append(errs, fmt.Errorf("simulator.socket is required"))
	}
	if c.Simulator.DefaultEntity == "" {
		errs = append(errs, fmt.Errorf("simulator.default_entity is required"))
	}
	if c.Simulator.PoseMin >= c.Simulator.PoseMax {
		errs = append(errs, fmt.Errorf("simulator.pose_min (%g) must be less than pose_max (%g)",
			c.Simulator.PoseMin, c.Simulator.PoseMax))
	}
	simReady, err := parseTimeout("simulator.ready_timeout", c.Simulator.ReadyTimeout)
	if err != nil {
		errs = append(errs, err)
	}

	if c.Relay.Socket == "" {
		errs = append(errs, fmt.Errorf("relay.socket is required"))
	}
	if c.Relay.Namespace == "" {
		errs = append(errs, fmt.Errorf("relay.namespace is required"))
	}
	if c.Relay.CommandChannel == "" {
		errs = append(errs, fmt.Errorf("relay.command_channel is required"))
	}
	if c.Relay.StatusChannel == "" {
		errs = append(errs, fmt.Errorf("relay.status_channel is required"))
	}
	if c.Relay.CommandChannel != "" && c.Relay.CommandChannel == c.Relay.StatusChannel {
		errs = append(errs, fmt.Errorf("relay.command_channel and relay.status_channel must differ, both are %q",
			c.Relay.CommandChannel))
	}
	relayReady, err := parseTimeout("relay.ready_timeout", c.Relay.ReadyTimeout)
	if err != nil {
		errs = append(errs, err)
	}

	if c.Launcher.ClientBinary == "" {
		errs = append(errs, fmt.Errorf("launcher.client_binary is required"))
	}
	if !slices.Contains(terminalKinds, c.Launcher.Terminal) {
		errs = append(errs, fmt.Errorf("launcher.terminal must be one of: %v", terminalKinds))
	}
	if c.Launcher.PortBase < 1 || c.Launcher.PortBase > 65535 {
		errs = append(errs, fmt.Errorf("launcher.port_base must be in 1..65535, got %d", c.Launcher.PortBase))
	}
	if !slices.Contains(compressionKinds, c.Launcher.CaptureCompression) {
		errs = append(errs, fmt.Errorf("launcher.capture_compression must be one of: %v", compressionKinds))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.tickInterval = tick
	c.simReadyTimeout = simReady
	c.relayReadyTimeout = relayReady
	return nil
}

// validRoverName rejects names that would corrupt file paths, tmux
// session names, or channel names derived from them.
func validRoverName(name string) error {
	if name == "" {
		return fmt.Errorf("rover name must not be empty")
	}
	if name == "." || name == ".." {
		return fmt.Errorf("rover name %q is reserved", name)
	}
	if strings.ContainsAny(name, "/ \t\n") {
		return fmt.Errorf("rover name %q must not contain slashes or whitespace", name)
	}
	return nil
}

// parseTimeout parses a non-negative duration string. Zero is legal
// and means "no limit".
func parseTimeout(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", field, value)
	}
	return d, nil
}

// HerdTick returns the poll loop interval. Valid after Validate.
func (c *Config) HerdTick() time.Duration { return c.tickInterval }

// SimulatorReadyTimeout returns the startup wait bound for the
// simulator socket. Zero means wait indefinitely. Valid after
// Validate.
func (c *Config) SimulatorReadyTimeout() time.Duration { return c.simReadyTimeout }

// RelayReadyTimeout returns the startup wait bound for the relay
// socket. Zero means wait indefinitely. Valid after Validate.
func (c *Config) RelayReadyTimeout() time.Duration { return c.relayReadyTimeout }

// ScriptsDir returns the directory for generated launch scripts.
func (c *Config) ScriptsDir() string {
	return filepath.Join(c.RunDir, "scripts")
}

// LockPath returns the herder's single-instance lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.RunDir, "herder.lock")
}

// SlogLevel maps the configured log_level to a slog.Level. Unknown
// values map to info; Validate rejects them anyway.
func (c *Config) SlogLevel() slog.Level {
	return ParseLogLevel(c.LogLevel)
}

// ParseLogLevel maps a log level string to a slog.Level. Unknown
// values map to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// EnsurePaths creates the runtime directories if they don't exist:
// the run directory, the scripts directory, the capture directory
// (when capture is enabled), and the parent directories of all three
// sockets.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.RunDir,
		c.ScriptsDir(),
		c.Launcher.CaptureDir,
		filepath.Dir(c.ControlSocket),
		filepath.Dir(c.Simulator.Socket),
		filepath.Dir(c.Relay.Socket),
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}

// ClientBinaryPath resolves the configured rover client binary to a
// concrete path. A value containing a path separator is checked
// directly; a bare name is resolved through PATH.
func (c *Config) ClientBinaryPath() (string, error) {
	binary := c.Launcher.ClientBinary
	if strings.ContainsRune(binary, os.PathSeparator) {
		if _, err := os.Stat(binary); err != nil {
			return "", fmt.Errorf("client binary %s: %w", binary, err)
		}
		return binary, nil
	}

	path, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("client binary %q not found in PATH: %w", binary, err)
	}
	return path, nil
}

// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

// Package herd implements the corral CLI commands. Every command
// talks to the herder's control socket through lib/control; none of
// them touch the simulator or relay directly.
package herd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/corral-fleet/corral/cmd/corral/cli"
	"github.com/corral-fleet/corral/cmd/corral/watch"
	"github.com/corral-fleet/corral/lib/config"
	"github.com/corral-fleet/corral/lib/control"
	"github.com/corral-fleet/corral/lib/version"
)

// callTimeout bounds each one-shot control call. The herder answers
// read actions from memory; anything slower than this means it is
// not answering at all.
const callTimeout = 10 * time.Second

// Root builds the corral command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name:    "corral",
		Summary: "operator CLI for the corral herder",
		Description: "Corral is the operator CLI for the herder daemon: inspect the\n" +
			"herd's status and roster, disable it, or watch it live.",
		Subcommands: []*cli.Command{
			statusCommand(),
			rosterCommand(),
			disableCommand(),
			watchCommand(),
			versionCommand(),
		},
	}
}

// socketFlag registers the shared --socket flag on a command's flag
// set and returns the destination.
func socketFlag(flagSet *pflag.FlagSet) *string {
	return flagSet.String("socket", "", "herder control socket (default: <run dir>/herder.sock)")
}

// controlClient resolves the control socket path and returns a typed
// client for it. An empty flag value falls back to the configured
// default, which honors CORRAL_RUN_DIR.
func controlClient(socketPath string) *control.Client {
	if socketPath == "" {
		cfg := config.Default()
		cfg.Resolve()
		socketPath = cfg.ControlSocket
	}
	return control.NewClient(socketPath)
}

func statusCommand() *cli.Command {
	var socketPath *string
	var asJSON *bool
	return &cli.Command{
		Name:    "status",
		Summary: "show the herd summary",
		Usage:   "corral status [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			socketPath = socketFlag(flagSet)
			asJSON = flagSet.Bool("json", false, "output as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
			defer cancel()

			client := controlClient(*socketPath)
			status, err := client.Status(ctx)
			if err != nil {
				return fmt.Errorf("fetching status from %s: %w", client.SocketPath(), err)
			}
			if *asJSON {
				return writeJSON(status)
			}
			printStatus(os.Stdout, status)
			return nil
		},
	}
}

func rosterCommand() *cli.Command {
	var socketPath *string
	var asJSON *bool
	return &cli.Command{
		Name:    "roster",
		Summary: "list the herd's rovers",
		Usage:   "corral roster [flags]",
		Examples: []cli.Example{
			{Description: "show the roster as JSON", Command: "corral roster --json"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("roster", pflag.ContinueOnError)
			socketPath = socketFlag(flagSet)
			asJSON = flagSet.Bool("json", false, "output as JSON")
			return flagSet
		},
		Run: func(args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
			defer cancel()

			client := controlClient(*socketPath)
			roster, err := client.Roster(ctx)
			if err != nil {
				return fmt.Errorf("fetching roster from %s: %w", client.SocketPath(), err)
			}
			if *asJSON {
				if roster.Rovers == nil {
					roster.Rovers = []control.RosterEntry{}
				}
				return writeJSON(roster)
			}
			printRoster(os.Stdout, roster)
			return nil
		},
	}
}

func disableCommand() *cli.Command {
	var socketPath *string
	return &cli.Command{
		Name:    "disable",
		Summary: "disable the herd (the herder shuts down at its next tick)",
		Usage:   "corral disable [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("disable", pflag.ContinueOnError)
			socketPath = socketFlag(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
			defer cancel()

			client := controlClient(*socketPath)
			result, err := client.Disable(ctx)
			if err != nil {
				return fmt.Errorf("disabling herd via %s: %w", client.SocketPath(), err)
			}
			if result.AlreadyDisabled {
				fmt.Println("herd was already disabled")
			} else {
				fmt.Println("herd disabled; the herder will shut down at its next tick")
			}
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	var socketPath *string
	var interval *time.Duration
	return &cli.Command{
		Name:    "watch",
		Summary: "watch the herd live in a terminal UI",
		Usage:   "corral watch [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("watch", pflag.ContinueOnError)
			socketPath = socketFlag(flagSet)
			interval = flagSet.Duration("interval", time.Second, "refresh interval")
			return flagSet
		},
		Run: func(args []string) error {
			client := controlClient(*socketPath)
			return watch.Run(client, *interval)
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "print version information",
		Run: func(args []string) error {
			version.Print("corral")
			return nil
		},
	}
}

// printStatus renders the status summary as aligned key/value lines.
func printStatus(w io.Writer, status *control.StatusInfo) {
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "phase:\t%s\n", status.Phase)
	fmt.Fprintf(tw, "disabled:\t%t\n", status.Disabled)
	fmt.Fprintf(tw, "uptime:\t%s\n", (time.Duration(status.UptimeSeconds * float64(time.Second))).Round(time.Second))
	fmt.Fprintf(tw, "rovers:\t%d\n", status.RoverCount)
	fmt.Fprintf(tw, "processes:\t%d\n", status.ProcessCount)
	fmt.Fprintf(tw, "artifacts:\t%d\n", status.ArtifactCount)
	fmt.Fprintf(tw, "next port:\t%d\n", status.NextPort)
	fmt.Fprintf(tw, "launcher:\t%s\n", status.Launcher)
	if status.ClientDigest != "" {
		fmt.Fprintf(tw, "client digest:\t%s\n", status.ClientDigest)
	}
	tw.Flush()
}

// printRoster renders the roster as a table, one rover per row in
// registry order.
func printRoster(w io.Writer, roster *control.RosterInfo) {
	if len(roster.Rovers) == 0 {
		fmt.Fprintln(w, "no rovers in the herd")
		return
	}
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPORT\tPROVISIONED\tSTATE\tSESSION\tPID")
	for _, rover := range roster.Rovers {
		port := "-"
		if rover.Port != 0 {
			port = fmt.Sprintf("%d", rover.Port)
		}
		session := rover.Session
		if session == "" {
			session = "-"
		}
		pid := "-"
		if rover.PID != 0 {
			pid = fmt.Sprintf("%d", rover.PID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%s\n",
			rover.Name, port, rover.Provisioned, rover.State, session, pid)
	}
	tw.Flush()
}

// writeJSON marshals value as indented JSON to stdout.
func writeJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

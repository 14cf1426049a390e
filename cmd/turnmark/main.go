package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/farcloser/turnmark/version"
)

func main() {
	ctx := context.Background()

	appl := &cli.Command{
		Name:    version.Name(),
		Usage:   "Two-party conversational turn-taking diarization",
		Version: version.Version() + " " + version.Commit(),
		Commands: []*cli.Command{
			runCommand(),
			evalCommand(),
			tuneCommand(),
			reservedCommand("decode"),
			reservedCommand("evidence"),
			reservedCommand("iterate"),
		},
	}

	if err := appl.Run(ctx, os.Args); err != nil {
		slog.Error("failed to run", "error", err)
		os.Exit(1)
	}
}

// reservedCommand registers a command name that is accepted and does nothing.
func reservedCommand(name string) *cli.Command {
	return &cli.Command{
		Name:   name,
		Usage:  "Reserved; does nothing",
		Action: func(context.Context, *cli.Command) error { return nil },
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/llehouerou/soundshow/internal/apperr"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := NewRunner(RunnerOpts{})
	defer r.Close()

	root := newRootCommand(r)
	if err := root.Run(ctx, os.Args); err != nil {
		var ve *apperr.ValidationError
		switch {
		case errors.As(err, &ve):
			fmt.Fprintln(os.Stderr, ve.Message)
		case errors.Is(err, apperr.ErrNotAuthenticated):
			fmt.Fprintln(os.Stderr, "You are not signed in. Run 'soundshow signin' first.")
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		r.Close()
		os.Exit(1) //nolint:gocritic // Close already ran
	}
}

func newRootCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "soundshow",
		Usage: "Browse the catalog, play tracks and manage your playlists",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to an extra configuration file",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Path to the document store (overrides database_path)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Commands: r.register(),
	}
}

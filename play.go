package main

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/llehouerou/soundshow/internal/apperr"
	"github.com/llehouerou/soundshow/internal/stderr"
	"github.com/llehouerou/soundshow/internal/ui/miniplayer"
)

// Play loads a track and runs the mini-player until it ends or the user quits.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.StringArg("track")
	if ref == "" {
		return apperr.Invalid("track", "Please choose a track to play.")
	}

	a, err := r.openApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	id, err := r.resolveTrack(ctx, a.Catalog, ref)
	if err != nil {
		return err
	}

	var opts []miniplayer.Option
	if !cmd.Bool("stay") {
		opts = append(opts, miniplayer.QuitWhenFinished())
	}

	// The audio backend writes to fd 2 once the speaker starts.
	capture, err := stderr.Start()
	if err != nil {
		r.logger.Debug("stderr capture unavailable", "err", err)
	} else {
		defer capture.Stop()
		opts = append(opts, miniplayer.WithMessages(capture.Lines()))
	}

	track, err := a.Play(ctx, id)
	if err != nil {
		return err
	}
	r.logger.Info("playing", "track", track.String())

	m := miniplayer.New(ctx, a.Playback, opts...)
	defer m.Close()

	if _, err := tea.NewProgram(m, tea.WithContext(ctx)).Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/llehouerou/soundshow/internal/app"
	"github.com/llehouerou/soundshow/internal/apperr"
	"github.com/llehouerou/soundshow/internal/playlists"
)

// snapshotTimeout bounds the wait for the first live playlist snapshot.
const snapshotTimeout = 5 * time.Second

// signedInApp opens the app and fails unless a user is signed in.
func (r *Runner) signedInApp(ctx context.Context, cmd *cli.Command) (*app.App, error) {
	a, err := r.openApp(ctx, cmd, false)
	if err != nil {
		return nil, err
	}
	if a.User() == nil {
		return nil, apperr.ErrNotAuthenticated
	}
	return a, nil
}

// PlaylistsList prints the signed-in user's playlists from the live listener.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	a, err := r.signedInApp(ctx, cmd)
	if err != nil {
		return err
	}
	lists, err := waitForPlaylists(ctx, a)
	if err != nil {
		return err
	}
	if len(lists) == 0 {
		return r.writePlainln("No playlists yet. Create one with 'soundshow playlists create <name>'.")
	}
	for _, p := range lists {
		count := humanize.Comma(int64(p.Len())) + " tracks"
		if p.Len() == 1 {
			count = "1 track"
		}
		if err := r.writePlainln("%-24s  %-30s  %-10s  created %s",
			p.ID, truncate(p.Name, 30), count, humanize.Time(p.CreatedAt)); err != nil {
			return err
		}
	}
	return nil
}

// waitForPlaylists waits until the live listener has delivered a snapshot.
func waitForPlaylists(ctx context.Context, a *app.App) ([]playlists.Playlist, error) {
	timeout := time.After(snapshotTimeout)
	for {
		if err := a.PlaylistsErr(); err != nil {
			return nil, err
		}
		if lists := a.UserPlaylists(); lists != nil {
			return lists, nil
		}
		select {
		case <-a.Changes():
		case <-timeout:
			return nil, errors.New("timed out loading playlists")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// waitForPlaylistCount waits until the live count listener has reported.
func waitForPlaylistCount(ctx context.Context, a *app.App) (int, error) {
	timeout := time.After(snapshotTimeout)
	for {
		if err := a.PlaylistsErr(); err != nil {
			return 0, err
		}
		if n, ok := a.PlaylistCount(); ok {
			return n, nil
		}
		select {
		case <-a.Changes():
		case <-timeout:
			return 0, errors.New("timed out counting playlists")
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// PlaylistsCreate creates a playlist named after the remaining arguments.
func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	a, err := r.signedInApp(ctx, cmd)
	if err != nil {
		return err
	}
	p, err := a.CreatePlaylist(ctx, strings.Join(cmd.Args().Slice(), " "))
	if err != nil {
		return err
	}
	return r.writePlainln("Created %s (%s)", p.Name, p.ID)
}

// PlaylistsShow lists the tracks of one playlist.
func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("playlist")
	if id == "" {
		return apperr.Invalid("playlist", "Please choose a playlist.")
	}
	a, err := r.signedInApp(ctx, cmd)
	if err != nil {
		return err
	}
	tracks, err := a.PlaylistTracks(ctx, id)
	if err != nil {
		return err
	}
	return r.writeTracks(tracks)
}

// PlaylistsAdd adds a track to a playlist through the add-to-playlist flow.
func (r *Runner) PlaylistsAdd(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.StringArg("playlist")
	ref := cmd.StringArg("track")
	if playlistID == "" || ref == "" {
		return apperr.Invalid("playlist", "Usage: soundshow playlists add <playlist> <track>")
	}
	a, err := r.signedInApp(ctx, cmd)
	if err != nil {
		return err
	}
	trackID, err := r.resolveTrack(ctx, a.Catalog, ref)
	if err != nil {
		return err
	}
	track, err := a.Catalog.Get(ctx, trackID)
	if err != nil {
		return err
	}

	a.OpenAddToPlaylist(track)
	notice, err := a.ConfirmAddToPlaylist(ctx, playlistID)
	if err != nil {
		r.logger.Debug("add to playlist failed", "playlist", playlistID, "track", trackID, "err", err)
		return errors.New(notice.Text)
	}
	return r.writePlainln("%s", notice.Text)
}

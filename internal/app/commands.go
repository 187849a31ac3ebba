package app

import (
	"context"

	"github.com/llehouerou/soundshow/internal/catalog"
	"github.com/llehouerou/soundshow/internal/playlists"
)

// CreatePlaylist creates a playlist for the signed-in user.
func (a *App) CreatePlaylist(ctx context.Context, name string) (playlists.Playlist, error) {
	return a.Playlists.Create(ctx, a.userID(), name)
}

// PlaylistTracks resolves a playlist of the signed-in user to its tracks.
func (a *App) PlaylistTracks(ctx context.Context, playlistID string) ([]catalog.Track, error) {
	return a.Playlists.Tracks(ctx, a.userID(), playlistID)
}

// Play loads the catalog track with the given id.
func (a *App) Play(ctx context.Context, trackID string) (catalog.Track, error) {
	t, err := a.Catalog.Get(ctx, trackID)
	if err != nil {
		return catalog.Track{}, err
	}
	if err := a.Playback.LoadTrack(ctx, t); err != nil {
		return catalog.Track{}, err
	}
	return t, nil
}

package app

import (
	"context"
	"errors"

	"github.com/llehouerou/soundshow/internal/apperr"
	"github.com/llehouerou/soundshow/internal/catalog"
	"github.com/llehouerou/soundshow/internal/errmsg"
)

// OpenAddToPlaylist selects track for the add-to-playlist flow, replacing
// any earlier selection.
func (a *App) OpenAddToPlaylist(track catalog.Track) {
	a.mu.Lock()
	a.pending = &track
	a.mu.Unlock()
	a.signal()
}

// Pending returns the track waiting to be added, or nil.
func (a *App) Pending() *catalog.Track {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		return nil
	}
	t := *a.pending
	return &t
}

// CancelAddToPlaylist clears the selection without adding anything.
func (a *App) CancelAddToPlaylist() {
	a.clearPending(nil)
}

// ConfirmAddToPlaylist adds the selected track to playlistID and returns the
// notice to show. An already present track yields an informational notice
// and no error. The selection is cleared whatever the outcome.
func (a *App) ConfirmAddToPlaylist(ctx context.Context, playlistID string) (errmsg.Notice, error) {
	a.mu.Lock()
	pending := a.pending
	var uid string
	if a.user != nil {
		uid = a.user.ID
	}
	a.mu.Unlock()
	defer a.clearPending(pending)

	if pending == nil {
		err := apperr.Invalid("track", "No track selected.")
		return errmsg.NoticeFor(errmsg.OpPlaylistAddTrack, err), err
	}
	if uid == "" {
		return errmsg.NoticeFor(errmsg.OpPlaylistAddTrack, apperr.ErrNotAuthenticated), apperr.ErrNotAuthenticated
	}

	pl, err := a.Playlists.AddTrack(ctx, uid, playlistID, pending.ID)
	switch {
	case errors.Is(err, apperr.ErrAlreadyMember):
		return errmsg.Info("%s is already in %s", pending.Title, pl.Name), nil
	case err != nil:
		a.log.Warn("add to playlist failed", "playlist", playlistID, "track", pending.ID, "err", err)
		return errmsg.NoticeFor(errmsg.OpPlaylistAddTrack, err), err
	}
	return errmsg.Info("Added to %s", pl.Name), nil
}

// clearPending drops the selection if it is still want. A nil want clears
// whatever is selected.
func (a *App) clearPending(want *catalog.Track) {
	a.mu.Lock()
	if a.pending == nil || (want != nil && a.pending != want) {
		a.mu.Unlock()
		return
	}
	a.pending = nil
	a.mu.Unlock()
	a.signal()
}

//go:build linux

// Package mpris exposes the playback session over the MPRIS D-Bus interface
// so desktop media keys and widgets can control it.
package mpris

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"github.com/llehouerou/soundshow/internal/playback"
)

// commandTimeout bounds each D-Bus initiated playback command.
const commandTimeout = 10 * time.Second

// Adapter connects playback.Service to MPRIS over D-Bus.
type Adapter struct {
	server *server.Server
}

// New creates and starts a new MPRIS adapter.
func New(service playback.Service) (*Adapter, error) {
	a := &Adapter{
		server: server.NewServer("soundshow", &rootAdapter{}, &playerAdapter{service: service}),
	}

	go func() {
		_ = a.server.Listen()
	}()

	return a, nil
}

// Close stops the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	return a.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported - app manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return "soundshow", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"http", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/wav"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter. The session
// holds a single track, so there is no next or previous.
type playerAdapter struct {
	service playback.Service
}

func (p *playerAdapter) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

func (p *playerAdapter) Next() error {
	return nil
}

func (p *playerAdapter) Previous() error {
	return nil
}

func (p *playerAdapter) Pause() error {
	if p.service.Snapshot().State != playback.StatePlaying {
		return nil
	}
	return p.PlayPause()
}

func (p *playerAdapter) PlayPause() error {
	ctx, cancel := p.ctx()
	defer cancel()
	return p.service.TogglePlayPause(ctx)
}

func (p *playerAdapter) Stop() error {
	ctx, cancel := p.ctx()
	defer cancel()
	return p.service.Unload(ctx)
}

func (p *playerAdapter) Play() error {
	if p.service.Snapshot().State != playback.StatePaused {
		return nil
	}
	return p.PlayPause()
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	ctx, cancel := p.ctx()
	defer cancel()
	pos := p.service.Snapshot().Position + time.Duration(offset)*time.Microsecond
	return p.service.Seek(ctx, pos)
}

func (p *playerAdapter) SetPosition(trackID string, position types.Microseconds) error {
	track := p.service.CurrentTrack()
	if track == nil || trackID != formatTrackID(track.ID) {
		return nil // stale request for a track no longer loaded
	}
	ctx, cancel := p.ctx()
	defer cancel()
	return p.service.Seek(ctx, time.Duration(position)*time.Microsecond)
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.service.Snapshot().State {
	case playback.StatePlaying:
		return types.PlaybackStatusPlaying, nil
	case playback.StatePaused:
		return types.PlaybackStatusPaused, nil
	case playback.StateEmpty, playback.StateLoading:
		return types.PlaybackStatusStopped, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	snap := p.service.Snapshot()
	track := snap.Track
	if track == nil {
		return types.Metadata{}, nil
	}

	meta := types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(track.ID)),
		Length:  types.Microseconds(snap.Duration.Microseconds()),
		Title:   track.Title,
		Artist:  []string{track.Artist},
	}
	if track.ArtworkURL != "" {
		meta.ArtUrl = track.ArtworkURL
	}

	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return p.service.Volume(), nil
}

func (p *playerAdapter) SetVolume(level float64) error {
	ctx, cancel := p.ctx()
	defer cancel()
	return p.service.SetVolume(ctx, level)
}

func (p *playerAdapter) Position() (int64, error) {
	return p.service.Snapshot().Position.Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return false, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return false, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return p.service.CurrentTrack() != nil, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return p.service.CurrentTrack() != nil, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return p.service.CurrentTrack() != nil, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

func formatTrackID(id string) string {
	h := fnv.New64a()
	h.Write([]byte(id))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}

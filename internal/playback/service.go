// Package playback owns the single playback session: at most one loaded
// track, its engine handle and the state derived from engine status.
package playback

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/llehouerou/soundshow/internal/catalog"
	"github.com/llehouerou/soundshow/internal/engine"
)

// ErrClosed is returned by commands issued after Close.
var ErrClosed = errors.New("playback: session closed")

// DefaultVolume is the session volume before any SetVolume.
const DefaultVolume = 1.0

// Service defines the playback session contract.
type Service interface {
	// Commands (serialized)
	LoadTrack(ctx context.Context, track catalog.Track) error
	Unload(ctx context.Context) error
	TogglePlayPause(ctx context.Context) error
	Seek(ctx context.Context, position time.Duration) error
	SetVolume(ctx context.Context, level float64) error

	// Queries
	Snapshot() Snapshot
	CurrentTrack() *catalog.Track
	IsPlaying() bool
	Volume() float64

	// Event subscription
	Subscribe() *Subscription
	Unsubscribe(sub *Subscription)

	// Lifecycle
	Close(ctx context.Context) error
}

// Snapshot is a consistent copy of the published session state.
type Snapshot struct {
	Track    *catalog.Track // loaded track; nil unless State is Playing or Paused
	Pending  *catalog.Track // track being loaded while State is Loading
	State    State
	Position time.Duration
	Duration time.Duration
	Volume   float64
}

// IsPlaying reports whether audio is playing.
func (s Snapshot) IsPlaying() bool {
	return s.State == StatePlaying
}

// Progress returns the position as a fraction of the duration.
func (s Snapshot) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return min(float64(s.Position)/float64(s.Duration), 1)
}

// PlayCounter records that a track started playing.
type PlayCounter interface {
	IncrementPlayCount(ctx context.Context, trackID string) error
}

// Option configures the service.
type Option func(*serviceImpl)

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) Option {
	return func(s *serviceImpl) {
		if l != nil {
			s.log = l
		}
	}
}

// WithVolume sets the initial session volume (clamped to [0, 1]).
func WithVolume(level float64) Option {
	return func(s *serviceImpl) { s.volume = engine.ClampVolume(level) }
}

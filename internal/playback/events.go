package playback

import (
	"time"

	"github.com/llehouerou/soundshow/internal/catalog"
)

// StateChange is emitted when the session state changes.
type StateChange struct {
	Previous State
	Current  State
}

// TrackChange is emitted when the loaded track changes.
//
// Emitted by:
//   - LoadTrack: once the new track is playing (Current is the new track)
//   - a failed LoadTrack that replaced a track: Current is nil, Previous is
//     the track that was unloaded
//   - Unload, natural completion, Close: Current is nil
//
// A failed LoadTrack with nothing loaded before emits no TrackChange, only
// StateChange and ErrorEvent.
//
// The app should handle all track-related side effects (notifications,
// now-playing, scrobble) in response to this event.
type TrackChange struct {
	Previous *catalog.Track
	Current  *catalog.Track
}

// StatusChange carries an engine progress report for the current track.
type StatusChange struct {
	Position  time.Duration
	Duration  time.Duration
	IsPlaying bool
}

// VolumeChange is emitted when the session volume changes.
type VolumeChange struct {
	Volume float64
}

// ErrorEvent is emitted when an engine operation fails.
type ErrorEvent struct {
	Operation string // e.g., "load", "seek"
	TrackID   string // track id if applicable
	Err       error
}

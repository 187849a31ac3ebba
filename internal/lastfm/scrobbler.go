// Package lastfm reports listening activity to Last.fm.
package lastfm

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// API is the part of Client used by Scrobbler.
type API interface {
	UpdateNowPlaying(track ScrobbleTrack) error
	Scrobble(track ScrobbleTrack) error
}

// Scrobbler follows the current track and sends now-playing updates and
// scrobbles. Calls block on the network and are meant to run on an event
// loop goroutine, not on the playback path.
type Scrobbler struct {
	api API
	log *log.Logger
	now func() time.Time

	mu    sync.Mutex
	state *ScrobbleState
	track ScrobbleTrack
}

// NewScrobbler creates a scrobbler. A nil logger uses the default logger.
func NewScrobbler(api API, logger *log.Logger) *Scrobbler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scrobbler{api: api, log: logger, now: time.Now}
}

// TrackStarted resets scrobble tracking for a new track and sends now playing.
// Restarting the same track starts a new listen.
func (s *Scrobbler) TrackStarted(trackID, artist, title string) {
	s.mu.Lock()
	s.state = &ScrobbleState{TrackID: trackID, StartedAt: s.now()}
	s.track = ScrobbleTrack{Artist: artist, Track: title, Timestamp: s.state.StartedAt}
	track := s.track
	s.mu.Unlock()

	if err := s.api.UpdateNowPlaying(track); err != nil {
		s.log.Debug("now playing failed", "track", trackID, "err", err)
		return
	}
	s.mu.Lock()
	if s.state != nil && s.state.TrackID == trackID {
		s.state.NowPlayingSent = true
	}
	s.mu.Unlock()
}

// Progress records the playback position of trackID and scrobbles it once
// the threshold is reached. Reports for any other track are ignored. It
// returns true when a scrobble was submitted.
func (s *Scrobbler) Progress(trackID string, position, duration time.Duration) bool {
	s.mu.Lock()
	if s.state == nil || s.state.Scrobbled || s.state.TrackID != trackID {
		s.mu.Unlock()
		return false
	}
	threshold, ok := ScrobbleThreshold(duration)
	if !ok || position < threshold {
		s.mu.Unlock()
		return false
	}
	s.state.Scrobbled = true
	s.track.Duration = duration
	track := s.track
	id := s.state.TrackID
	s.mu.Unlock()

	if err := s.api.Scrobble(track); err != nil {
		s.log.Warn("scrobble failed", "track", id, "err", err)
		return false
	}
	s.log.Debug("scrobbled", "track", id)
	return true
}

// Reset stops tracking; nothing is scrobbled until the next TrackStarted.
func (s *Scrobbler) Reset() {
	s.mu.Lock()
	s.state = nil
	s.mu.Unlock()
}

// State returns a copy of the current scrobble state, or nil.
func (s *Scrobbler) State() *ScrobbleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil
	}
	st := *s.state
	return &st
}

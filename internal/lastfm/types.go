package lastfm

import "time"

const (
	// MinScrobbleDuration is the shortest track Last.fm accepts.
	MinScrobbleDuration = 30 * time.Second
	maxScrobbleWait     = 4 * time.Minute
)

// ScrobbleTrack contains track metadata for scrobbling.
type ScrobbleTrack struct {
	Artist    string
	Track     string
	Duration  time.Duration
	Timestamp time.Time // When playback started
}

// ScrobbleState tracks the scrobbling status of the current track.
type ScrobbleState struct {
	TrackID        string    // Catalog ID of current track (for dedup)
	StartedAt      time.Time // When playback started
	Scrobbled      bool      // Whether this track has been scrobbled
	NowPlayingSent bool      // Whether now playing was sent
}

// ScrobbleThreshold returns how long a track of the given duration must be
// played before it is scrobbled: half its length or four minutes, whichever
// comes first. ok is false for tracks shorter than MinScrobbleDuration.
func ScrobbleThreshold(duration time.Duration) (threshold time.Duration, ok bool) {
	if duration < MinScrobbleDuration {
		return 0, false
	}
	return min(duration/2, maxScrobbleWait), true
}

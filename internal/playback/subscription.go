package playback

import "sync"

const eventBufferSize = 16

// Subscription provides event channels for a subscriber.
type Subscription struct {
	StateChanged  <-chan StateChange
	TrackChanged  <-chan TrackChange
	StatusChanged <-chan StatusChange
	VolumeChanged <-chan VolumeChange
	Error         <-chan ErrorEvent
	Done          <-chan struct{}

	// Internal write channels
	stateCh  chan StateChange
	trackCh  chan TrackChange
	statusCh chan StatusChange
	volumeCh chan VolumeChange
	errorCh  chan ErrorEvent
	doneCh   chan struct{}

	closeOnce sync.Once
}

// newSubscription creates a new subscription with buffered channels.
func newSubscription() *Subscription {
	s := &Subscription{
		stateCh:  make(chan StateChange, eventBufferSize),
		trackCh:  make(chan TrackChange, eventBufferSize),
		statusCh: make(chan StatusChange, eventBufferSize),
		volumeCh: make(chan VolumeChange, eventBufferSize),
		errorCh:  make(chan ErrorEvent, eventBufferSize),
		doneCh:   make(chan struct{}),
	}
	s.StateChanged = s.stateCh
	s.TrackChanged = s.trackCh
	s.StatusChanged = s.statusCh
	s.VolumeChanged = s.volumeCh
	s.Error = s.errorCh
	s.Done = s.doneCh
	return s
}

// close signals subscribers to stop by closing doneCh.
func (s *Subscription) close() {
	s.closeOnce.Do(func() { close(s.doneCh) })
}

// sendState sends a state change event (non-blocking).
func (s *Subscription) sendState(e StateChange) {
	select {
	case s.stateCh <- e:
	default:
		// Drop if buffer full
	}
}

// sendTrack sends a track change event (non-blocking).
func (s *Subscription) sendTrack(e TrackChange) {
	select {
	case s.trackCh <- e:
	default:
	}
}

// sendStatus sends a status event (non-blocking).
func (s *Subscription) sendStatus(e StatusChange) {
	select {
	case s.statusCh <- e:
	default:
	}
}

// sendVolume sends a volume event (non-blocking).
func (s *Subscription) sendVolume(e VolumeChange) {
	select {
	case s.volumeCh <- e:
	default:
	}
}

// sendError sends an error event (non-blocking).
func (s *Subscription) sendError(e ErrorEvent) {
	select {
	case s.errorCh <- e:
	default:
	}
}

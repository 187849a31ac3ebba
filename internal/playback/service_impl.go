package playback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/llehouerou/soundshow/internal/apperr"
	"github.com/llehouerou/soundshow/internal/catalog"
	"github.com/llehouerou/soundshow/internal/engine"
)

// Verify serviceImpl implements Service at compile time.
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	// opMu serializes commands. Teardown of the previous handle and creation
	// of the next one happen under it, so two handles are never live at once.
	opMu sync.Mutex

	engine  engine.Engine
	counter PlayCounter
	log     *log.Logger

	mu       sync.RWMutex
	handle   engine.Handle
	gen      uint64 // bumped on every load and unload; stale status is dropped
	track    *catalog.Track
	pending  *catalog.Track
	state    State
	position time.Duration
	duration time.Duration
	volume   float64
	closed   bool

	subs   []*Subscription
	subsMu sync.RWMutex
}

// New creates the playback session. counter may be nil.
func New(eng engine.Engine, counter PlayCounter, opts ...Option) Service {
	s := &serviceImpl{
		engine:  eng,
		counter: counter,
		log:     log.Default(),
		volume:  DefaultVolume,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadTrack replaces the current track with track and starts playing it.
func (s *serviceImpl) LoadTrack(ctx context.Context, track catalog.Track) error {
	if track.StreamURL == "" {
		return apperr.Invalid("streamUrl", "track has no stream url")
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.isClosed() {
		return ErrClosed
	}

	// The previous handle must be gone before a new one exists. If the
	// engine cannot confirm that, nothing new is loaded.
	previous := s.CurrentTrack()
	if err := s.unloadLocked(ctx, false); err != nil {
		s.log.Error("unload before load failed", "track", track.ID, "err", err)
		s.emitError(ErrorEvent{Operation: "load", TrackID: track.ID, Err: err})
		if previous != nil {
			s.emitTrack(TrackChange{Previous: previous})
		}
		return fmt.Errorf("load %s: %w", track.ID, err)
	}

	t := track
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.pending = &t
	s.state = StateLoading
	s.position, s.duration = 0, 0
	volume := s.volume
	s.mu.Unlock()
	s.emitState(StateEmpty, StateLoading)

	s.bumpPlayCount(ctx, t.ID)

	h, err := s.engine.Load(ctx, t.StreamURL, engine.Options{AutoPlay: true, Volume: volume}, s.statusHandler(gen))
	if err != nil {
		s.mu.Lock()
		s.pending = nil
		s.state = StateEmpty
		s.mu.Unlock()
		s.emitState(StateLoading, StateEmpty)
		s.emitError(ErrorEvent{Operation: "load", TrackID: t.ID, Err: err})
		s.log.Error("load failed", "track", t.ID, "url", t.StreamURL, "err", err)
		if previous != nil {
			s.emitTrack(TrackChange{Previous: previous})
		}
		return fmt.Errorf("load %s: %w: %w", t.ID, apperr.ErrPlaybackEngine, err)
	}

	s.mu.Lock()
	s.handle = h
	s.track = &t
	s.pending = nil
	s.state = StatePlaying
	s.mu.Unlock()

	s.log.Debug("track loaded", "track", t.ID, "title", t.Title)
	s.emitState(StateLoading, StatePlaying)
	s.emitTrack(TrackChange{Previous: previous, Current: &t})
	return nil
}

// bumpPlayCount increments the track's play count in the background.
// Failures are logged and never affect playback.
func (s *serviceImpl) bumpPlayCount(ctx context.Context, trackID string) {
	if s.counter == nil || trackID == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := s.counter.IncrementPlayCount(ctx, trackID); err != nil {
			s.log.Warn("play count update failed", "track", trackID, "err", err)
		}
	}()
}

// statusHandler returns the engine callback for the load with generation gen.
func (s *serviceImpl) statusHandler(gen uint64) engine.StatusFunc {
	return func(st engine.Status) {
		s.mu.Lock()
		if gen != s.gen || s.state == StateEmpty {
			s.mu.Unlock()
			return
		}
		prev := s.state
		s.position = st.Position
		s.duration = st.Duration
		if st.IsLoaded && s.state.IsActive() && !st.DidJustFinish {
			if st.IsPlaying {
				s.state = StatePlaying
			} else {
				s.state = StatePaused
			}
		}
		cur := s.state
		s.mu.Unlock()

		s.emitStatus(StatusChange{Position: st.Position, Duration: st.Duration, IsPlaying: st.IsPlaying})
		if prev != cur {
			s.emitState(prev, cur)
		}
		if st.DidJustFinish {
			go s.finish(gen)
		}
	}
}

// finish unloads the track of generation gen if it is still current.
func (s *serviceImpl) finish(gen uint64) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	current := gen == s.gen && s.handle != nil
	s.mu.RUnlock()
	if !current {
		return
	}
	s.log.Debug("track finished")
	if err := s.unloadLocked(context.Background(), true); err != nil {
		s.log.Warn("unload after finish failed", "err", err)
	}
}

// Unload releases the current track. It is a no-op when nothing is loaded.
func (s *serviceImpl) Unload(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.unloadLocked(ctx, true)
}

// unloadLocked clears the session and releases the handle. Caller holds opMu.
// The published state is cleared before the handle is released, and the
// handle's Unload has returned before this does.
func (s *serviceImpl) unloadLocked(ctx context.Context, announce bool) error {
	s.mu.Lock()
	h := s.handle
	prevTrack := s.track
	prevState := s.state
	if h == nil && prevState == StateEmpty {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	s.handle = nil
	s.track = nil
	s.pending = nil
	s.state = StateEmpty
	s.position, s.duration = 0, 0
	s.mu.Unlock()

	var err error
	if h != nil {
		if uerr := h.Unload(ctx); uerr != nil {
			err = fmt.Errorf("unload: %w: %w", apperr.ErrPlaybackEngine, uerr)
		}
	}

	s.emitState(prevState, StateEmpty)
	if announce && prevTrack != nil {
		s.emitTrack(TrackChange{Previous: prevTrack})
	}
	return err
}

// TogglePlayPause pauses or resumes. No-op when nothing is loaded.
// The state flips optimistically; the next engine status is authoritative.
func (s *serviceImpl) TogglePlayPause(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	h, state := s.handle, s.state
	s.mu.RUnlock()
	if h == nil {
		return nil
	}

	next := StatePlaying
	op := h.Play
	if state == StatePlaying {
		next = StatePaused
		op = h.Pause
	}
	if err := op(ctx); err != nil {
		s.emitError(ErrorEvent{Operation: "toggle", Err: err})
		return fmt.Errorf("toggle: %w: %w", apperr.ErrPlaybackEngine, err)
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
	s.emitState(state, next)
	return nil
}

// Seek moves the playhead. Negative positions seek to the start.
// The published position is left to the next engine status.
func (s *serviceImpl) Seek(ctx context.Context, position time.Duration) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	h := s.handle
	s.mu.RUnlock()
	if h == nil {
		return nil
	}

	if err := h.Seek(ctx, max(position, 0)); err != nil {
		s.emitError(ErrorEvent{Operation: "seek", Err: err})
		return fmt.Errorf("seek: %w: %w", apperr.ErrPlaybackEngine, err)
	}
	return nil
}

// SetVolume clamps level to [0, 1], applies it to the loaded track if any,
// and remembers it for the next load.
func (s *serviceImpl) SetVolume(ctx context.Context, level float64) error {
	level = engine.ClampVolume(level)

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.RLock()
	h, prev := s.handle, s.volume
	s.mu.RUnlock()

	if h != nil {
		if err := h.SetVolume(ctx, level); err != nil {
			s.emitError(ErrorEvent{Operation: "volume", Err: err})
			return fmt.Errorf("set volume: %w: %w", apperr.ErrPlaybackEngine, err)
		}
	}

	s.mu.Lock()
	s.volume = level
	s.mu.Unlock()
	if level != prev {
		s.emitVolume(VolumeChange{Volume: level})
	}
	return nil
}

// Snapshot returns a copy of the published state.
func (s *serviceImpl) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Track:    copyTrack(s.track),
		Pending:  copyTrack(s.pending),
		State:    s.state,
		Position: s.position,
		Duration: s.duration,
		Volume:   s.volume,
	}
}

// CurrentTrack returns the loaded track, or nil if none.
func (s *serviceImpl) CurrentTrack() *catalog.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyTrack(s.track)
}

// IsPlaying reports whether audio is playing.
func (s *serviceImpl) IsPlaying() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StatePlaying
}

// Volume returns the session volume.
func (s *serviceImpl) Volume() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume
}

func copyTrack(t *catalog.Track) *catalog.Track {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func (s *serviceImpl) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Subscribe creates a new event subscription.
func (s *serviceImpl) Subscribe() *Subscription {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	sub := newSubscription()
	s.subs = append(s.subs, sub)
	return sub
}

// Unsubscribe stops deliveries to sub and closes its Done channel.
func (s *serviceImpl) Unsubscribe(sub *Subscription) {
	s.subsMu.Lock()
	for i, candidate := range s.subs {
		if candidate == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			break
		}
	}
	s.subsMu.Unlock()
	sub.close()
}

// Close unloads the current track and closes all subscriptions.
func (s *serviceImpl) Close(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.unloadLocked(ctx, true)

	s.subsMu.Lock()
	for _, sub := range s.subs {
		sub.close()
	}
	s.subs = nil
	s.subsMu.Unlock()

	return err
}

func (s *serviceImpl) forEachSub(fn func(*Subscription)) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		fn(sub)
	}
}

func (s *serviceImpl) emitState(prev, cur State) {
	if prev == cur {
		return
	}
	s.forEachSub(func(sub *Subscription) { sub.sendState(StateChange{Previous: prev, Current: cur}) })
}

func (s *serviceImpl) emitTrack(e TrackChange) {
	s.forEachSub(func(sub *Subscription) { sub.sendTrack(e) })
}

func (s *serviceImpl) emitStatus(e StatusChange) {
	s.forEachSub(func(sub *Subscription) { sub.sendStatus(e) })
}

func (s *serviceImpl) emitVolume(e VolumeChange) {
	s.forEachSub(func(sub *Subscription) { sub.sendVolume(e) })
}

func (s *serviceImpl) emitError(e ErrorEvent) {
	s.forEachSub(func(sub *Subscription) { sub.sendError(e) })
}

//nolint:goconst // test files commonly repeat strings for test data
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/soundshow/internal/apperr"
	"github.com/llehouerou/soundshow/internal/catalog"
	"github.com/llehouerou/soundshow/internal/engine"
	"github.com/llehouerou/soundshow/internal/logging"
)

// fakeCounter records play count increments.
type fakeCounter struct {
	mu    sync.Mutex
	calls []string
	err   error
	block chan struct{} // when set, calls wait on it
	seen  chan string
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{seen: make(chan string, 16)}
}

func (c *fakeCounter) IncrementPlayCount(_ context.Context, id string) error {
	c.mu.Lock()
	c.calls = append(c.calls, id)
	block, err := c.block, c.err
	c.mu.Unlock()

	c.seen <- id
	if block != nil {
		<-block
	}
	return err
}

func (c *fakeCounter) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func newTestService(t *testing.T, opts ...Option) (Service, *engine.Mock, *fakeCounter) {
	t.Helper()
	m := engine.NewMock()
	c := newFakeCounter()
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	svc := New(m, c, opts...)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return svc, m, c
}

func track(id string) catalog.Track {
	return catalog.Track{
		ID:        id,
		Title:     "Title " + id,
		Artist:    "Artist",
		StreamURL: "https://cdn.example.com/" + id + ".mp3",
	}
}

func TestNew_InitialSnapshot(t *testing.T) {
	svc, _, _ := newTestService(t)

	snap := svc.Snapshot()
	assert.Equal(t, StateEmpty, snap.State)
	assert.Nil(t, snap.Track)
	assert.InDelta(t, DefaultVolume, snap.Volume, 0)
	assert.False(t, svc.IsPlaying())
}

func TestLoadTrack_StartsPlaying(t *testing.T) {
	svc, m, _ := newTestService(t)

	require.NoError(t, svc.LoadTrack(context.Background(), track("a")))

	snap := svc.Snapshot()
	require.NotNil(t, snap.Track)
	assert.Equal(t, "a", snap.Track.ID)
	assert.Equal(t, StatePlaying, snap.State)
	assert.True(t, snap.IsPlaying())

	h := m.Last()
	require.NotNil(t, h)
	assert.Equal(t, track("a").StreamURL, h.URL)
	assert.True(t, h.Opts.AutoPlay)
	assert.InDelta(t, DefaultVolume, h.Opts.Volume, 0)
}

func TestLoadTrack_RequiresStreamURL(t *testing.T) {
	svc, m, _ := newTestService(t)

	tr := track("a")
	tr.StreamURL = ""
	err := svc.LoadTrack(context.Background(), tr)

	require.True(t, apperr.IsValidation(err))
	assert.Empty(t, m.Loads())
	assert.Equal(t, StateEmpty, svc.Snapshot().State)
}

func TestLoadTrack_ReplacesPrevious(t *testing.T) {
	svc, m, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.LoadTrack(ctx, track("a")))
	require.NoError(t, svc.LoadTrack(ctx, track("b")))

	handles := m.Handles()
	require.Len(t, handles, 2)
	assert.True(t, handles[0].Unloaded())
	assert.False(t, handles[1].Unloaded())
	assert.Equal(t, 1, m.Live())
	assert.Equal(t, 1, m.MaxLive())
	assert.Equal(t, "b", svc.CurrentTrack().ID)
}

func TestLoadTrack_SecondLoadWaitsForFirst(t *testing.T) {
	svc, m, _ := newTestService(t)
	ctx := context.Background()

	release := m.HoldLoads()

	errA := make(chan error, 1)
	go func() { errA <- svc.LoadTrack(ctx, track("a")) }()

	select {
	case <-m.LoadStarted():
	case <-time.After(2 * time.Second):
		t.Fatal("load of a did not start")
	}
	assert.Equal(t, StateLoading, svc.Snapshot().State)
	assert.Equal(t, "a", svc.Snapshot().Pending.ID)

	errB := make(chan error, 1)
	go func() { errB <- svc.LoadTrack(ctx, track("b")) }()

	release()
	require.NoError(t, <-errA)
	require.NoError(t, <-errB)

	handles := m.Handles()
	require.Len(t, handles, 2)
	assert.Equal(t, track("a").StreamURL, handles[0].URL)
	assert.True(t, handles[0].Unloaded(), "engine for a must be unloaded")
	assert.Equal(t, track("b").StreamURL, handles[1].URL)
	assert.Equal(t, 1, m.MaxLive())
	assert.Equal(t, "b", svc.CurrentTrack().ID)
	assert.Equal(t, StatePlaying, svc.Snapshot().State)
}

func TestLoadTrack_ConcurrentCallersNeverOverlap(t *testing.T) {
	svc, m, _ := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.LoadTrack(ctx, track(fmt.Sprintf("t%d", i))))
			if i%3 == 0 {
				assert.NoError(t, svc.Unload(ctx))
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, m.MaxLive(), 1)
	assert.LessOrEqual(t, m.Live(), 1)

	snap := svc.Snapshot()
	if snap.Track == nil {
		assert.Equal(t, 0, m.Live())
	} else {
		assert.Equal(t, 1, m.Live())
		assert.Equal(t, snap.Track.StreamURL, m.Last().URL)
	}
}

func TestLoadTrack_EngineFailure(t *testing.T) {
	svc, m, _ := newTestService(t)
	sub := svc.Subscribe()

	m.SetLoadError(errors.New("404 not found"))
	err := svc.LoadTrack(context.Background(), track("a"))

	require.ErrorIs(t, err, apperr.ErrPlaybackEngine)
	snap := svc.Snapshot()
	assert.Equal(t, StateEmpty, snap.State)
	assert.Nil(t, snap.Track)
	assert.Nil(t, snap.Pending)
	assert.Equal(t, 0, m.Live())

	select {
	case e := <-sub.Error:
		assert.Equal(t, "load", e.Operation)
		assert.Equal(t, "a", e.TrackID)
	default:
		t.Error("expected an error event")
	}
}

func TestLoadTrack_FailureAfterPreviousLeavesEmpty(t *testing.T) {
	svc, m, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.LoadTrack(ctx, track("a")))
	m.SetLoadError(errors.New("decode error"))

	require.Error(t, svc.LoadTrack(ctx, track("b")))
	assert.True(t, m.Handles()[0].Unloaded())
	assert.Nil(t, svc.CurrentTrack())
	assert.Equal(t, 0, m.Live())
}

func TestLoadTrack_FailureAfterPreviousAnnouncesTrackChange(t *testing.T) {
	svc, m, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.LoadTrack(ctx, track("a")))
	sub := svc.Subscribe()
	m.SetLoadError(errors.New("decode error"))

	require.Error(t, svc.LoadTrack(ctx, track("b")))

	select {
	case e := <-sub.TrackChanged:
		require.NotNil(t, e.Previous)
		assert.Equal(t, "a", e.Previous.ID)
		assert.Nil(t, e.Current)
	default:
		t.Error("expected a track change for the unloaded track")
	}
}

func TestLoadTrack_UnloadFailureAbortsLoad(t *testing.T) {
	svc, m, c := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.LoadTrack(ctx, track("a")))
	sub := svc.Subscribe()
	m.SetUnloadError(errors.New("device busy"))

	err := svc.LoadTrack(ctx, track("b"))
	require.ErrorIs(t, err, apperr.ErrPlaybackEngine)

	assert.Len(t, m.Handles(), 1, "no handle may be created while the old one is unconfirmed")
	assert.Equal(t, 1, m.MaxLive())
	assert.Equal(t, []string{track("a").StreamURL}, m.Loads())
	assert.Equal(t, StateEmpty, svc.Snapshot().State)
	assert.Nil(t, svc.CurrentTrack())
	assert.NotContains(t, c.Calls(), "b")

	select {
	case e := <-sub.Error:
		assert.Equal(t, "b", e.TrackID)
	default:
		t.Error("expected an error event")
	}
}

func TestLoadTrack_IncrementsPlayCount(t *testing.T) {
	svc, _, c := newTestService(t)

	require.NoError(t, svc.LoadTrack(context.Background(), track("a")))

	select {
	case id := <-c.seen:
		assert.Equal(t, "a", id)
	case <-time.After(2 * time.Second):
		t.Fatal("play count not incremented")
	}
}

func TestLoadTrack_CounterFailureDoesNotBlock(t *testing.T) {
	svc, _, c := newTestService(t)
	c.block = make(chan struct{})
	c.err = errors.New("permission denied")
	defer close(c.block)

	done := make(chan error, 1)
	go func() { done <- svc.LoadTrack(context.Background(), track("a")) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("LoadTrack blocked on the play counter")
	}
	assert.Equal(t, StatePlaying, svc.Snapshot().State)
}

func TestLoadTrack_CounterSurvivesCanceledContext(t *testing.T) {
	svc, _, c := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, svc.LoadTrack(ctx, track("a")))
	cancel()

	select {
	case <-c.seen:
	case <-time.After(2 * time.Second):
		t.Fatal("play count not incremented")
	}
	assert.Equal(t, []string{"a"}, c.Calls())
}

func TestUnload_Idempotent(t *testing.T) {
	svc, m, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Unload(ctx))
	assert.Equal(t, StateEmpty, svc.Snapshot().State)

	require.NoError(t, svc.LoadTrack(ctx, track("a")))
	require.NoError(t, svc.Unload(ctx))
	once := svc.Snapshot()
	require.NoError(t, svc.Unload(ctx))
	twice := svc.Snapshot()

	assert.Equal(t, once, twice)
	assert.Equal(t, StateEmpty, twice.State)
	assert.Nil(t, twice.Track)
	assert.Zero(t, twice.Position)
	assert.Zero(t, twice.Duration)
	assert.Equal(t, 0, m.Live())
}

func TestTogglePlayPause_NoTrack(t *testing.T) {
	svc, m, _ := newTestService(t)

	require.NoError(t, svc.TogglePlayPause(context.Background()))
	assert.False(t, svc.IsPlaying())
	assert.Equal(t, StateEmpty, svc.Snapshot().State)
	assert.Empty(t, m.Loads())
}

func TestTogglePlayPause(t *testing.T) {
	svc, m, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.LoadTrack(ctx, track("a")))
	h := m.Last()

	require.NoError(t, svc.TogglePlayPause(ctx))
	assert.Equal(t, StatePaused, svc.Snapshot().State)
	assert.False(t, h.Playing())

	require.NoError(t, svc.TogglePlayPause(ctx))
	assert.Equal(t, StatePlaying, svc.Snapshot().State)
	assert.True(t, h.Playing())
}

func TestStatus_EngineIsAuthority(t *testing.T) {
	svc, m, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.LoadTrack(ctx, track("a")))

	m.Last().Emit(engine.Status{
		IsLoaded:  true,
		IsPlaying: false,
		Position:  10 * time.Second,
		Duration:  3 * time.Minute,
	})

	snap := svc.Snapshot()
	assert.Equal(t, StatePaused, snap.State)
	assert.Equal(t, 10*time.Second, snap.Position)
	assert.Equal(t, 3*time.Minute, snap.Duration)
	assert.InDelta(t, 10.0/180.0, snap.Progress(), 1e-9)
}

func TestFinish_UnloadsSession(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc, m, _ := newTestService(t)
		sub := svc.Subscribe()
		require.NoError(t, svc.LoadTrack(context.Background(), track("a")))
		h := m.Last()

		h.Finish()
		synctest.Wait()

		snap := svc.Snapshot()
		assert.Equal(t, StateEmpty, snap.State)
		assert.Nil(t, snap.Track)
		assert.True(t, h.Unloaded())
		assert.Equal(t, 0, m.Live())

		var last TrackChange
		for len(sub.TrackChanged) > 0 {
			last = <-sub.TrackChanged
		}
		assert.Nil(t, last.Current)
		require.NotNil(t, last.Previous)
		assert.Equal(t, "a", last.Previous.ID)
	})
}

func TestFinish_StaleGenerationIgnored(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc, m, _ := newTestService(t)
		ctx := context.Background()

		require.NoError(t, svc.LoadTrack(ctx, track("a")))
		first := m.Last()
		require.NoError(t, svc.LoadTrack(ctx, track("b")))

		// The first handle is unloaded, so its reports go nowhere.
		first.Finish()
		synctest.Wait()

		assert.Equal(t, "b", svc.CurrentTrack().ID)
		assert.Equal(t, StatePlaying, svc.Snapshot().State)
	})
}

func TestSeek(t *testing.T) {
	svc, m, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Seek(ctx, time.Minute))

	require.NoError(t, svc.LoadTrack(ctx, track("a")))
	require.NoError(t, svc.Seek(ctx, 42*time.Second))
	require.NoError(t, svc.Seek(ctx, -5*time.Second))

	assert.Equal(t, []time.Duration{42 * time.Second, 0}, m.Last().Seeks())
	assert.Zero(t, svc.Snapshot().Position, "position waits for the next status")
}

func TestSetVolume_Clamps(t *testing.T) {
	svc, m, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetVolume(ctx, 1.7))
	assert.InDelta(t, 1.0, svc.Volume(), 0)

	require.NoError(t, svc.SetVolume(ctx, -0.5))
	assert.InDelta(t, 0.0, svc.Volume(), 0)

	require.NoError(t, svc.LoadTrack(ctx, track("a")))
	assert.InDelta(t, 0.0, m.Last().Opts.Volume, 0, "new load starts at remembered volume")

	require.NoError(t, svc.SetVolume(ctx, 3))
	assert.InDelta(t, 1.0, m.Last().Volume(), 0, "engine receives clamped volume")
	assert.InDelta(t, 1.0, svc.Volume(), 0)

	require.NoError(t, svc.SetVolume(ctx, 0.3))
	require.NoError(t, svc.LoadTrack(ctx, track("b")))
	assert.InDelta(t, 0.3, m.Last().Opts.Volume, 1e-9)
}

func TestWithVolume(t *testing.T) {
	svc, _, _ := newTestService(t, WithVolume(4))
	assert.InDelta(t, 1.0, svc.Volume(), 0)
}

func TestSubscribe_LoadEvents(t *testing.T) {
	svc, _, _ := newTestService(t)
	sub := svc.Subscribe()

	require.NoError(t, svc.LoadTrack(context.Background(), track("a")))

	assert.Equal(t, StateChange{Previous: StateEmpty, Current: StateLoading}, <-sub.StateChanged)
	assert.Equal(t, StateChange{Previous: StateLoading, Current: StatePlaying}, <-sub.StateChanged)

	tc := <-sub.TrackChanged
	assert.Nil(t, tc.Previous)
	require.NotNil(t, tc.Current)
	assert.Equal(t, "a", tc.Current.ID)
}

func TestUnsubscribe(t *testing.T) {
	svc, _, _ := newTestService(t)
	sub := svc.Subscribe()
	svc.Unsubscribe(sub)

	<-sub.Done
	require.NoError(t, svc.SetVolume(context.Background(), 0.2))
	assert.Empty(t, sub.VolumeChanged)
}

func TestClose(t *testing.T) {
	svc, m, _ := newTestService(t)
	ctx := context.Background()
	sub := svc.Subscribe()

	require.NoError(t, svc.LoadTrack(ctx, track("a")))
	require.NoError(t, svc.Close(ctx))
	require.NoError(t, svc.Close(ctx))

	<-sub.Done
	assert.Equal(t, 0, m.Live())
	assert.ErrorIs(t, svc.LoadTrack(ctx, track("b")), ErrClosed)
}

//nolint:goconst // test files commonly repeat strings for test data
package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/soundshow/internal/apperr"
	"github.com/llehouerou/soundshow/internal/auth"
	"github.com/llehouerou/soundshow/internal/catalog"
	"github.com/llehouerou/soundshow/internal/docstore"
	"github.com/llehouerou/soundshow/internal/engine"
	"github.com/llehouerou/soundshow/internal/errmsg"
	"github.com/llehouerou/soundshow/internal/logging"
	"github.com/llehouerou/soundshow/internal/notify"
	"github.com/llehouerou/soundshow/internal/playback"
	"github.com/llehouerou/soundshow/internal/playlists"
	"github.com/llehouerou/soundshow/internal/state"
)

const waitFor = 2 * time.Second

// mockNotifier records notifications for testing.
type mockNotifier struct {
	mu            sync.Mutex
	notifications []notify.Notification
	lastID        uint32
}

func (m *mockNotifier) Notify(n notify.Notification) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID++
	m.notifications = append(m.notifications, n)
	return m.lastID, nil
}

func (m *mockNotifier) Close(_ uint32) error {
	return nil
}

func (m *mockNotifier) all() []notify.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Notification(nil), m.notifications...)
}

// fakeScrobbler records scrobbler calls.
type fakeScrobbler struct {
	mu       sync.Mutex
	started  []string
	progress []string
	resets   int
}

func (f *fakeScrobbler) TrackStarted(trackID, _, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, trackID)
}

func (f *fakeScrobbler) Progress(trackID string, _, _ time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = append(f.progress, trackID)
	return false
}

func (f *fakeScrobbler) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeScrobbler) snapshot() (started, progress []string, resets int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...), append([]string(nil), f.progress...), f.resets
}

type fixture struct {
	app       *App
	store     *docstore.Store
	auth      *auth.Local
	engine    *engine.Mock
	state     *state.Mock
	notifier  *mockNotifier
	scrobbler *fakeScrobbler
}

func setup(t *testing.T, prep ...func(*fixture)) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := docstore.Open(filepath.Join(t.TempDir(), "app.db"), docstore.WithLogger(logging.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	provider, err := auth.NewLocal(ctx, store, logging.Discard())
	require.NoError(t, err)

	fx := &fixture{
		store:     store,
		auth:      provider,
		engine:    engine.NewMock(),
		state:     state.NewMock(),
		notifier:  &mockNotifier{},
		scrobbler: &fakeScrobbler{},
	}
	for _, p := range prep {
		p(fx)
	}

	fx.app, err = New(ctx, Options{
		Store:     store,
		Auth:      provider,
		Engine:    fx.engine,
		State:     fx.state,
		Notifier:  fx.notifier,
		Scrobbler: fx.scrobbler,
		Logger:    logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = fx.app.Close(context.Background()) })
	return fx
}

func (fx *fixture) signUp(t *testing.T, email string) auth.User {
	t.Helper()
	u, err := fx.auth.SignUp(context.Background(), email, "Listener")
	require.NoError(t, err)
	return u
}

func (fx *fixture) addTrack(t *testing.T, id string) catalog.Track {
	t.Helper()
	tr, err := fx.app.Catalog.Add(context.Background(), catalog.Track{
		ID:         id,
		Title:      "Song " + id,
		Artist:     "Artist",
		ArtworkURL: "https://img.example.com/" + id + ".jpg",
		StreamURL:  "https://cdn.example.com/" + id + ".mp3",
	})
	require.NoError(t, err)
	return tr
}

// waitPlaylists waits until the app's playlist snapshot satisfies ok.
func (fx *fixture) waitPlaylists(t *testing.T, ok func([]playlists.Playlist) bool) []playlists.Playlist {
	t.Helper()
	var lists []playlists.Playlist
	require.Eventually(t, func() bool {
		lists = fx.app.UserPlaylists()
		return ok(lists)
	}, waitFor, 5*time.Millisecond)
	return lists
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(context.Background(), Options{})
	require.Error(t, err)
}

func TestNew_RestoresVolume(t *testing.T) {
	fx := setup(t, func(fx *fixture) { fx.state.SaveVolume(0.3) })

	assert.InDelta(t, 0.3, fx.app.Playback.Volume(), 1e-9)
}

func TestVolumePersisted(t *testing.T) {
	fx := setup(t)

	require.NoError(t, fx.app.Playback.SetVolume(context.Background(), 0.45))
	require.Eventually(t, func() bool {
		saves := fx.state.Saves()
		return len(saves) > 0 && saves[len(saves)-1] == 0.45
	}, waitFor, 5*time.Millisecond)
}

func TestPlaylistsFollowUser(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	_, err := fx.app.CreatePlaylist(ctx, "Gym")
	require.ErrorIs(t, err, apperr.ErrNotAuthenticated)

	fx.signUp(t, "ana@example.com")
	require.NotNil(t, fx.app.User())

	_, err = fx.app.CreatePlaylist(ctx, "Gym")
	require.NoError(t, err)
	_, err = fx.app.CreatePlaylist(ctx, "Chill")
	require.NoError(t, err)

	lists := fx.waitPlaylists(t, func(l []playlists.Playlist) bool { return len(l) == 2 })
	assert.Equal(t, "Gym", lists[0].Name)
	assert.Equal(t, "Chill", lists[1].Name)
	assert.NoError(t, fx.app.PlaylistsErr())
}

func TestPlaylistCountFollowsUser(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	_, ok := fx.app.PlaylistCount()
	assert.False(t, ok)

	fx.signUp(t, "ana@example.com")
	count := func(want int) {
		t.Helper()
		require.Eventually(t, func() bool {
			n, ok := fx.app.PlaylistCount()
			return ok && n == want
		}, waitFor, 5*time.Millisecond)
	}
	count(0)

	_, err := fx.app.CreatePlaylist(ctx, "Gym")
	require.NoError(t, err)
	_, err = fx.app.CreatePlaylist(ctx, "Chill")
	require.NoError(t, err)
	count(2)

	require.NoError(t, fx.auth.SignOut(ctx))
	_, ok = fx.app.PlaylistCount()
	assert.False(t, ok)

	fx.signUp(t, "bob@example.com")
	count(0)
}

func TestConfirmAddToPlaylist(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	fx.signUp(t, "ana@example.com")
	tr := fx.addTrack(t, "T1")

	gym, err := fx.app.CreatePlaylist(ctx, "Gym")
	require.NoError(t, err)

	fx.app.OpenAddToPlaylist(tr)
	require.NotNil(t, fx.app.Pending())
	assert.Equal(t, "T1", fx.app.Pending().ID)

	notice, err := fx.app.ConfirmAddToPlaylist(ctx, gym.ID)
	require.NoError(t, err)
	assert.False(t, notice.IsError())
	assert.Equal(t, "Added to Gym", notice.Text)
	assert.Nil(t, fx.app.Pending())

	fx.app.OpenAddToPlaylist(tr)
	notice, err = fx.app.ConfirmAddToPlaylist(ctx, gym.ID)
	require.NoError(t, err, "already member is not an error")
	assert.False(t, notice.IsError())
	assert.Contains(t, notice.Text, "already in Gym")
	assert.Nil(t, fx.app.Pending())

	tracks, err := fx.app.PlaylistTracks(ctx, gym.ID)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "T1", tracks[0].ID)
}

func TestConfirmAddToPlaylist_Failures(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	tr := fx.addTrack(t, "T1")

	t.Run("nothing selected", func(t *testing.T) {
		notice, err := fx.app.ConfirmAddToPlaylist(ctx, "p")
		require.True(t, apperr.IsValidation(err))
		assert.True(t, notice.IsError())
	})

	t.Run("signed out", func(t *testing.T) {
		fx.app.OpenAddToPlaylist(tr)
		notice, err := fx.app.ConfirmAddToPlaylist(ctx, "p")
		require.ErrorIs(t, err, apperr.ErrNotAuthenticated)
		assert.True(t, notice.IsError())
		assert.Nil(t, fx.app.Pending())
	})

	t.Run("missing playlist", func(t *testing.T) {
		fx.signUp(t, "ana@example.com")
		fx.app.OpenAddToPlaylist(tr)
		notice, err := fx.app.ConfirmAddToPlaylist(ctx, "nope")
		require.ErrorIs(t, err, apperr.ErrNotFound)
		assert.Equal(t, errmsg.KindError, notice.Kind)
		assert.Nil(t, fx.app.Pending())
	})
}

func TestCancelAddToPlaylist(t *testing.T) {
	fx := setup(t)

	fx.app.OpenAddToPlaylist(catalog.Track{ID: "T1"})
	fx.app.OpenAddToPlaylist(catalog.Track{ID: "T2"})
	assert.Equal(t, "T2", fx.app.Pending().ID)

	fx.app.CancelAddToPlaylist()
	assert.Nil(t, fx.app.Pending())
}

func TestSignOutTearsDown(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	u := fx.signUp(t, "ana@example.com")
	tr := fx.addTrack(t, "T1")

	_, err := fx.app.CreatePlaylist(ctx, "Gym")
	require.NoError(t, err)
	fx.waitPlaylists(t, func(l []playlists.Playlist) bool { return len(l) == 1 })

	_, err = fx.app.Play(ctx, tr.ID)
	require.NoError(t, err)
	fx.app.OpenAddToPlaylist(tr)

	require.NoError(t, fx.auth.SignOut(ctx))

	assert.Nil(t, fx.app.User())
	assert.Nil(t, fx.app.Pending())
	assert.Empty(t, fx.app.UserPlaylists())
	assert.Equal(t, playback.StateEmpty, fx.app.Playback.Snapshot().State)
	assert.True(t, fx.engine.Last().Unloaded())
	assert.Equal(t, 0, fx.engine.Live())

	// Writes for the signed-out user no longer reach the app.
	_, err = fx.app.Playlists.Create(ctx, u.ID, "Late")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, fx.app.UserPlaylists())
}

func TestSwitchUser(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	fx.signUp(t, "ana@example.com")
	_, err := fx.app.CreatePlaylist(ctx, "Ana's")
	require.NoError(t, err)
	fx.waitPlaylists(t, func(l []playlists.Playlist) bool { return len(l) == 1 })

	require.NoError(t, fx.auth.SignOut(ctx))
	fx.signUp(t, "bob@example.com")

	lists := fx.waitPlaylists(t, func(l []playlists.Playlist) bool { return l != nil })
	assert.Empty(t, lists)
	assert.Equal(t, "bob@example.com", fx.app.User().Email)
}

func TestProfileUpdateKeepsSession(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	fx.signUp(t, "ana@example.com")
	tr := fx.addTrack(t, "T1")

	_, err := fx.app.Play(ctx, tr.ID)
	require.NoError(t, err)
	fx.app.OpenAddToPlaylist(tr)

	_, err = fx.auth.UpdateProfile(ctx, "Ana")
	require.NoError(t, err)

	assert.Equal(t, "Ana", fx.app.User().DisplayName)
	assert.NotNil(t, fx.app.Pending())
	assert.Equal(t, playback.StatePlaying, fx.app.Playback.Snapshot().State)
}

func TestPlay(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	tr := fx.addTrack(t, "T1")

	got, err := fx.app.Play(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr, got)
	assert.Equal(t, []string{tr.StreamURL}, fx.engine.Loads())

	_, err = fx.app.Play(ctx, "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPlaybackSideEffects(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	tr := fx.addTrack(t, "T1")

	_, err := fx.app.Play(ctx, tr.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(fx.notifier.all()) == 1 }, waitFor, 5*time.Millisecond)
	n := fx.notifier.all()[0]
	assert.Equal(t, tr.Title, n.Title)
	assert.Equal(t, tr.Artist, n.Body)
	assert.Equal(t, tr.ArtworkURL, n.ArtworkURL)

	fx.engine.Last().Emit(engine.Status{IsLoaded: true, IsPlaying: true, Position: time.Minute, Duration: 3 * time.Minute})
	require.Eventually(t, func() bool {
		started, progress, _ := fx.scrobbler.snapshot()
		return len(started) == 1 && len(progress) > 0
	}, waitFor, 5*time.Millisecond)
	started, progress, _ := fx.scrobbler.snapshot()
	assert.Equal(t, []string{"T1"}, started)
	assert.Equal(t, "T1", progress[0])

	require.NoError(t, fx.app.Playback.Unload(ctx))
	require.Eventually(t, func() bool {
		_, _, resets := fx.scrobbler.snapshot()
		return resets == 1
	}, waitFor, 5*time.Millisecond)
}

func TestNotificationReplacesPrevious(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	fx.addTrack(t, "T1")
	fx.addTrack(t, "T2")

	_, err := fx.app.Play(ctx, "T1")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(fx.notifier.all()) == 1 }, waitFor, 5*time.Millisecond)

	_, err = fx.app.Play(ctx, "T2")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(fx.notifier.all()) == 2 }, waitFor, 5*time.Millisecond)

	all := fx.notifier.all()
	assert.Equal(t, uint32(0), all[0].ReplacesID)
	assert.Equal(t, uint32(1), all[1].ReplacesID)
}

func TestClose(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	fx.signUp(t, "ana@example.com")
	tr := fx.addTrack(t, "T1")

	_, err := fx.app.Play(ctx, tr.ID)
	require.NoError(t, err)

	require.NoError(t, fx.app.Close(ctx))
	require.NoError(t, fx.app.Close(ctx))

	assert.True(t, fx.state.IsClosed())
	assert.Equal(t, 0, fx.engine.Live())
	_, err = fx.app.Play(ctx, tr.ID)
	require.ErrorIs(t, err, playback.ErrClosed)

	// Auth changes after Close are ignored.
	require.NoError(t, fx.auth.SignOut(ctx))
	assert.NotNil(t, fx.app.User())
}

// Package app wires the soundshow services together and owns the state they
// share: the signed-in user, the user's live playlist list and the
// add-to-playlist selection.
package app

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/llehouerou/soundshow/internal/auth"
	"github.com/llehouerou/soundshow/internal/catalog"
	"github.com/llehouerou/soundshow/internal/docstore"
	"github.com/llehouerou/soundshow/internal/engine"
	"github.com/llehouerou/soundshow/internal/logging"
	"github.com/llehouerou/soundshow/internal/notify"
	"github.com/llehouerou/soundshow/internal/playback"
	"github.com/llehouerou/soundshow/internal/playlists"
	"github.com/llehouerou/soundshow/internal/state"
)

// teardownTimeout bounds the playback unload done on sign-out.
const teardownTimeout = 10 * time.Second

// Scrobbler receives track starts and progress. *lastfm.Scrobbler implements it.
type Scrobbler interface {
	TrackStarted(trackID, artist, title string)
	Progress(trackID string, position, duration time.Duration) bool
	Reset()
}

// Options holds the collaborators of an App. Store, Auth and Engine are
// required; State defaults to a state.Manager on Store, the others are
// disabled when nil.
type Options struct {
	Store     *docstore.Store
	Auth      auth.Provider
	Engine    engine.Engine
	State     state.Interface
	Notifier  notify.Notifier
	Scrobbler Scrobbler
	Logger    *log.Logger
}

// App coordinates catalog, playlists and playback for the signed-in user.
type App struct {
	Catalog   *catalog.Catalog
	Playlists *playlists.Playlists
	Playback  playback.Service

	auth      auth.Provider
	state     state.Interface
	notifier  notify.Notifier
	scrobbler Scrobbler
	log       *log.Logger

	// mu guards the fields below. gen is bumped on every auth change and on
	// Close; listener callbacks carrying an older gen are dropped.
	mu       sync.Mutex
	gen      uint64
	user     *auth.User
	lists    []playlists.Playlist
	listErr  error
	listener *docstore.Listener
	// count is the live playlist count, valid once countOK is set.
	count         int
	countOK       bool
	countListener *docstore.Listener
	pending  *catalog.Track
	notifyID uint32
	closed   bool

	changed    chan struct{}
	sub        *playback.Subscription
	cancelAuth func()
	wg         sync.WaitGroup
	closeOnce  sync.Once
	closeErr   error
}

// New wires the services, restores the remembered volume and starts
// following auth state and playback events.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Store == nil || opts.Auth == nil || opts.Engine == nil {
		return nil, errors.New("app: store, auth and engine are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	a := &App{
		auth:      opts.Auth,
		state:     opts.State,
		notifier:  opts.Notifier,
		scrobbler: opts.Scrobbler,
		log:       logging.Component(logger, "app"),
		changed:   make(chan struct{}, 1),
	}
	if a.state == nil {
		a.state = state.New(opts.Store, state.WithLogger(logging.Component(logger, "state")))
	}
	if a.notifier == nil {
		a.notifier = notify.Disabled()
	}

	volume, err := a.state.GetVolume(ctx)
	if err != nil {
		a.log.Warn("restore volume failed", "err", err)
		volume = playback.DefaultVolume
	}

	a.Catalog = catalog.New(opts.Store)
	a.Playlists = playlists.New(opts.Store, a.Catalog,
		playlists.WithLogger(logging.Component(logger, "playlists")))
	a.Playback = playback.New(opts.Engine, a.Catalog,
		playback.WithLogger(logging.Component(logger, "playback")),
		playback.WithVolume(volume))

	a.sub = a.Playback.Subscribe()
	a.wg.Add(1)
	go a.watch()

	a.cancelAuth = a.auth.OnAuthStateChanged(a.onAuthStateChanged)
	return a, nil
}

// Close stops following auth state, cancels the playlist listener, unloads
// playback and flushes persisted state. The store is left open.
func (a *App) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		a.cancelAuth()

		a.mu.Lock()
		a.closed = true
		a.gen++
		stale := a.detachListenersLocked()
		a.pending = nil
		a.mu.Unlock()
		cancelAll(stale)

		err := a.Playback.Close(ctx)
		a.wg.Wait()
		a.closeErr = errors.Join(err, a.state.Close())
	})
	return a.closeErr
}

// User returns the signed-in user, or nil.
func (a *App) User() *auth.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

// UserPlaylists returns the latest playlist snapshot for the signed-in user.
// It is nil until the first snapshot arrives and after sign-out.
func (a *App) UserPlaylists() []playlists.Playlist {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.lists)
}

// PlaylistCount returns the live number of playlists the signed-in user
// owns. ok is false until the first count arrives and after sign-out.
func (a *App) PlaylistCount() (n int, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count, a.countOK
}

// PlaylistsErr returns the last playlist listener error, cleared by the next
// successful snapshot.
func (a *App) PlaylistsErr() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listErr
}

// Changes signals, coalesced, that the user, the playlist snapshot or the
// pending selection changed.
func (a *App) Changes() <-chan struct{} {
	return a.changed
}

func (a *App) signal() {
	select {
	case a.changed <- struct{}{}:
	default:
	}
}

func (a *App) userID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return ""
	}
	return a.user.ID
}

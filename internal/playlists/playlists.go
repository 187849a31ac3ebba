package playlists

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/llehouerou/soundshow/internal/apperr"
	"github.com/llehouerou/soundshow/internal/catalog"
	"github.com/llehouerou/soundshow/internal/docstore"
	"github.com/llehouerou/soundshow/internal/errmsg"
)

// TrackFetcher resolves track IDs. *catalog.Catalog implements it.
type TrackFetcher interface {
	ByIDs(ctx context.Context, ids []string) ([]catalog.Track, error)
}

// Playlists provides playlist operations. Every operation takes the owning
// user explicitly; an empty user ID fails with apperr.ErrNotAuthenticated.
type Playlists struct {
	store  *docstore.Store
	tracks TrackFetcher
	now    func() time.Time
	log    *log.Logger
}

// Option configures Playlists.
type Option func(*Playlists)

// WithClock overrides the creation time source.
func WithClock(now func() time.Time) Option {
	return func(p *Playlists) { p.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Playlists) {
		if l != nil {
			p.log = l
		}
	}
}

// New creates the playlist service.
func New(store *docstore.Store, tracks TrackFetcher, opts ...Option) *Playlists {
	p := &Playlists{
		store:  store,
		tracks: tracks,
		now:    time.Now,
		log:    log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Create adds an empty playlist named name (trimmed). Names need not be unique.
func (p *Playlists) Create(ctx context.Context, userID, name string) (Playlist, error) {
	coll, err := collection(userID)
	if err != nil {
		return Playlist{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Playlist{}, apperr.Invalid("name", "Playlist name cannot be empty.")
	}

	created := p.now()
	id, err := p.store.Create(ctx, coll, document{
		Name:      name,
		CreatedAt: created.UnixMilli(),
		SongIDs:   []string{},
	})
	if err != nil {
		return Playlist{}, apperr.Remote(errmsg.OpPlaylistCreate, err)
	}

	p.log.Debug("playlist created", "user", userID, "playlist", id, "name", name)
	return Playlist{
		ID:        id,
		Name:      name,
		CreatedAt: time.UnixMilli(created.UnixMilli()),
		SongIDs:   []string{},
	}, nil
}

// Get returns one playlist, or an error wrapping apperr.ErrNotFound.
func (p *Playlists) Get(ctx context.Context, userID, playlistID string) (Playlist, error) {
	coll, err := collection(userID)
	if err != nil {
		return Playlist{}, err
	}
	doc, err := p.store.Get(ctx, coll, playlistID)
	if err != nil {
		return Playlist{}, apperr.Remote(errmsg.OpPlaylistLoad, err)
	}
	return fromDocument(doc)
}

// List returns the user's playlists, oldest first.
func (p *Playlists) List(ctx context.Context, userID string) ([]Playlist, error) {
	coll, err := collection(userID)
	if err != nil {
		return nil, err
	}
	docs, err := p.store.Query(ctx, listQuery(coll))
	if err != nil {
		return nil, apperr.Remote(errmsg.OpPlaylistListen, err)
	}
	return fromDocuments(docs)
}

// AddTrack adds trackID to the playlist and returns the updated playlist.
// It fails with apperr.ErrAlreadyMember when the track is already present,
// including when a concurrent caller added it first.
func (p *Playlists) AddTrack(ctx context.Context, userID, playlistID, trackID string) (Playlist, error) {
	coll, err := collection(userID)
	if err != nil {
		return Playlist{}, err
	}
	if trackID == "" {
		return Playlist{}, apperr.Invalid("track", "no track selected")
	}

	current, err := p.Get(ctx, userID, playlistID)
	if err != nil {
		return Playlist{}, err
	}
	if current.Contains(trackID) {
		return current, fmt.Errorf("%s: %w", current.Name, apperr.ErrAlreadyMember)
	}

	changed, err := p.store.ArrayUnion(ctx, coll, playlistID, "songIds", trackID)
	if err != nil {
		return Playlist{}, apperr.Remote(errmsg.OpPlaylistAddTrack, err)
	}

	updated, err := p.Get(ctx, userID, playlistID)
	if err != nil {
		return Playlist{}, err
	}
	if !changed {
		return updated, fmt.Errorf("%s: %w", updated.Name, apperr.ErrAlreadyMember)
	}

	p.log.Debug("track added to playlist", "user", userID, "playlist", playlistID, "track", trackID)
	return updated, nil
}

// Tracks resolves the playlist's tracks in membership order. IDs missing
// from the catalog are skipped. An empty playlist returns without a catalog
// lookup.
func (p *Playlists) Tracks(ctx context.Context, userID, playlistID string) ([]catalog.Track, error) {
	pl, err := p.Get(ctx, userID, playlistID)
	if err != nil {
		return nil, err
	}
	if len(pl.SongIDs) == 0 {
		return []catalog.Track{}, nil
	}

	tracks, err := p.tracks.ByIDs(ctx, pl.SongIDs)
	if err != nil {
		return nil, apperr.Remote(errmsg.OpPlaylistTracks, err)
	}
	if missing := len(pl.SongIDs) - len(tracks); missing > 0 {
		p.log.Debug("playlist references unknown tracks", "playlist", playlistID, "missing", missing)
	}
	return tracks, nil
}

func listQuery(coll string) docstore.Query {
	return docstore.Query{Collection: coll, OrderBy: "createdAt"}
}

package catalog

import (
	"context"
	"slices"

	"github.com/llehouerou/soundshow/internal/apperr"
	"github.com/llehouerou/soundshow/internal/docstore"
	"github.com/llehouerou/soundshow/internal/errmsg"
)

// DefaultTopN is the size of the most-played list when none is configured.
const DefaultTopN = 5

// Catalog provides track reads and play count updates.
type Catalog struct {
	store *docstore.Store
}

// New creates a catalog over store.
func New(store *docstore.Store) *Catalog {
	return &Catalog{store: store}
}

// All returns every track in creation order.
func (c *Catalog) All(ctx context.Context) ([]Track, error) {
	docs, err := c.store.GetAll(ctx, Collection)
	if err != nil {
		return nil, apperr.Remote(errmsg.OpCatalogLoad, err)
	}
	return fromDocuments(docs)
}

// Top returns the n most played tracks. n <= 0 uses DefaultTopN.
func (c *Catalog) Top(ctx context.Context, n int) ([]Track, error) {
	if n <= 0 {
		n = DefaultTopN
	}
	docs, err := c.store.Query(ctx, docstore.Query{
		Collection: Collection,
		OrderBy:    "playCount",
		Desc:       true,
		Limit:      n,
	})
	if err != nil {
		return nil, apperr.Remote(errmsg.OpCatalogTop, err)
	}
	return fromDocuments(docs)
}

// Get returns one track.
func (c *Catalog) Get(ctx context.Context, id string) (Track, error) {
	doc, err := c.store.Get(ctx, Collection, id)
	if err != nil {
		return Track{}, apperr.Remote(errmsg.OpCatalogLoad, err)
	}
	return fromDocument(doc)
}

// ByIDs resolves track IDs in batches of docstore.MaxInValues.
// Unknown IDs are omitted, duplicates collapse, and the result follows the
// order of first appearance in ids.
func (c *Catalog) ByIDs(ctx context.Context, ids []string) ([]Track, error) {
	unique := dedup(ids)
	if len(unique) == 0 {
		return nil, nil
	}

	found := make(map[string]Track, len(unique))
	for chunk := range slices.Chunk(unique, docstore.MaxInValues) {
		docs, err := c.store.GetIn(ctx, Collection, chunk)
		if err != nil {
			return nil, apperr.Remote(errmsg.OpCatalogLoad, err)
		}
		for _, doc := range docs {
			t, err := fromDocument(doc)
			if err != nil {
				return nil, err
			}
			found[t.ID] = t
		}
	}

	tracks := make([]Track, 0, len(found))
	for _, id := range unique {
		if t, ok := found[id]; ok {
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

// IncrementPlayCount adds one play to the track.
func (c *Catalog) IncrementPlayCount(ctx context.Context, id string) error {
	if err := c.store.Increment(ctx, Collection, id, "playCount", 1); err != nil {
		return apperr.Remote(errmsg.OpPlayCountBump, err)
	}
	return nil
}

// Add stores a track. A track with an ID is written under it (replacing any
// previous version); otherwise an ID is generated. It returns the stored track.
func (c *Catalog) Add(ctx context.Context, t Track) (Track, error) {
	if err := t.Validate(); err != nil {
		return Track{}, apperr.Invalid("track", err.Error())
	}
	if t.ID == "" {
		id, err := c.store.Create(ctx, Collection, t)
		if err != nil {
			return Track{}, apperr.Remote(errmsg.OpCatalogSeed, err)
		}
		t.ID = id
		return t, nil
	}
	if err := c.store.Set(ctx, Collection, t.ID, t); err != nil {
		return Track{}, apperr.Remote(errmsg.OpCatalogSeed, err)
	}
	return t, nil
}

func dedup(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

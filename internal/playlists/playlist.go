// Package playlists manages user playlists and their track membership.
//
// Playlists live in the per-user collection users/{uid}/playlists. Membership
// is the songIds array of each playlist document; it keeps insertion order and
// never holds the same track twice.
package playlists

import (
	"fmt"
	"slices"
	"time"

	"github.com/llehouerou/soundshow/internal/apperr"
	"github.com/llehouerou/soundshow/internal/docstore"
)

// Playlist is a named, user-owned list of track IDs.
type Playlist struct {
	ID        string
	Name      string
	CreatedAt time.Time
	SongIDs   []string
}

// Contains reports whether trackID is a member.
func (p Playlist) Contains(trackID string) bool {
	return slices.Contains(p.SongIDs, trackID)
}

// Len returns the number of tracks.
func (p Playlist) Len() int {
	return len(p.SongIDs)
}

// document is the stored form of a playlist.
type document struct {
	Name      string   `json:"name"`
	CreatedAt int64    `json:"createdAt"` // unix milliseconds
	SongIDs   []string `json:"songIds"`
}

func fromDocument(doc docstore.Document) (Playlist, error) {
	var d document
	if err := doc.DataTo(&d); err != nil {
		return Playlist{}, fmt.Errorf("decode playlist %s: %w", doc.ID, err)
	}
	ids := d.SongIDs
	if ids == nil {
		ids = []string{}
	}
	return Playlist{
		ID:        doc.ID,
		Name:      d.Name,
		CreatedAt: time.UnixMilli(d.CreatedAt),
		SongIDs:   ids,
	}, nil
}

func fromDocuments(docs []docstore.Document) ([]Playlist, error) {
	out := make([]Playlist, 0, len(docs))
	for _, doc := range docs {
		p, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// collection returns the playlist collection of userID.
func collection(userID string) (string, error) {
	if userID == "" {
		return "", apperr.ErrNotAuthenticated
	}
	return docstore.Path("users", userID, "playlists")
}

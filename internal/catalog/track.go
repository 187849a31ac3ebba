// Package catalog reads and maintains the track collection.
package catalog

import (
	"fmt"
	"strings"

	"github.com/llehouerou/soundshow/internal/docstore"
)

// Collection holds the catalog's track documents.
const Collection = "sounds"

// Track is a playable catalog entry.
type Track struct {
	ID         string `json:"-"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	ArtworkURL string `json:"artworkUrl,omitempty"`
	StreamURL  string `json:"streamUrl"`
	Genre      string `json:"genre,omitempty"`
	PlayCount  int64  `json:"playCount"`
}

// DisplayName returns "Artist - Title", or just the title when the artist is unknown.
func (t Track) DisplayName() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}

func (t Track) String() string {
	return fmt.Sprintf("%s [%s]", t.DisplayName(), t.ID)
}

// Validate checks the fields a playable track needs.
func (t Track) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("track %q: missing title", t.ID)
	}
	if strings.TrimSpace(t.StreamURL) == "" {
		return fmt.Errorf("track %q: missing stream url", t.ID)
	}
	return nil
}

func fromDocument(doc docstore.Document) (Track, error) {
	var t Track
	if err := doc.DataTo(&t); err != nil {
		return Track{}, fmt.Errorf("decode track %s: %w", doc.ID, err)
	}
	t.ID = doc.ID
	return t, nil
}

func fromDocuments(docs []docstore.Document) ([]Track, error) {
	tracks := make([]Track, 0, len(docs))
	for _, doc := range docs {
		t, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

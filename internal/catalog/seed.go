package catalog

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// seedEntry is one [[tracks]] table of a seed file.
type seedEntry struct {
	ID         string `koanf:"id"`
	Title      string `koanf:"title"`
	Artist     string `koanf:"artist"`
	ArtworkURL string `koanf:"artwork_url"`
	StreamURL  string `koanf:"stream_url"`
	Genre      string `koanf:"genre"`
	PlayCount  int64  `koanf:"play_count"`
}

type seedFile struct {
	Tracks []seedEntry `koanf:"tracks"`
}

// LoadSeed parses a TOML seed file:
//
//	[[tracks]]
//	id = "intro"            # optional
//	title = "Intro"
//	artist = "Someone"
//	stream_url = "https://example.com/intro.mp3"
//	genre = "ambient"
func LoadSeed(path string) ([]Track, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("load seed %s: %w", path, err)
	}

	var sf seedFile
	if err := k.Unmarshal("", &sf); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}

	tracks := make([]Track, 0, len(sf.Tracks))
	for i, e := range sf.Tracks {
		t := Track{
			ID:         e.ID,
			Title:      e.Title,
			Artist:     e.Artist,
			ArtworkURL: e.ArtworkURL,
			StreamURL:  e.StreamURL,
			Genre:      e.Genre,
			PlayCount:  e.PlayCount,
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("seed entry %d: %w", i+1, err)
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// Seed stores every track and returns how many were written.
func (c *Catalog) Seed(ctx context.Context, tracks []Track) (int, error) {
	for i, t := range tracks {
		if _, err := c.Add(ctx, t); err != nil {
			return i, err
		}
	}
	return len(tracks), nil
}

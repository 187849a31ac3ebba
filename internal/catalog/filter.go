package catalog

import "strings"

// Filter returns the tracks whose title, artist or genre contains query,
// ignoring case. The query is matched as typed, spaces included; only an
// empty query returns tracks unchanged.
func Filter(tracks []Track, query string) []Track {
	q := strings.ToLower(query)
	if q == "" {
		return tracks
	}

	var out []Track
	for _, t := range tracks {
		if matches(t, q) {
			out = append(out, t)
		}
	}
	return out
}

func matches(t Track, q string) bool {
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Artist), q) ||
		strings.Contains(strings.ToLower(t.Genre), q)
}

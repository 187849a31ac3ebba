package catalog

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// minCoverage is the share of a query word's trigrams that must occur in a
// track for the word to count as found.
const minCoverage = 0.4

// Search ranks tracks against a free-text query. Every query word must
// match the title, artist or genre, either as a substring or by trigram
// coverage, so small typos still find the track. Accents and case are
// ignored. Ties keep the more played track first. A blank query returns
// nil.
func Search(tracks []Track, query string) []Track {
	words := strings.Fields(fold(query))
	if len(words) == 0 {
		return nil
	}
	wordTris := make([]trigramSet, len(words))
	for i, w := range words {
		wordTris[i] = trigrams(w)
	}

	type hit struct {
		track Track
		score float64
	}
	var hits []hit
	for _, t := range tracks {
		text := fold(t.Title + " " + t.Artist + " " + t.Genre)
		if s := score(text, trigrams(text), words, wordTris); s > 0 {
			hits = append(hits, hit{track: t, score: s})
		}
	}

	slices.SortStableFunc(hits, func(a, b hit) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(b.track.PlayCount, a.track.PlayCount)
	})

	out := make([]Track, len(hits))
	for i, h := range hits {
		out[i] = h.track
	}
	return out
}

// score averages the per-word similarity; any missing word scores zero.
func score(text string, textTris trigramSet, words []string, wordTris []trigramSet) float64 {
	total := 0.0
	for i, w := range words {
		if len([]rune(w)) <= 2 {
			if !strings.Contains(text, w) {
				return 0
			}
			total++
			continue
		}
		sim := coverage(wordTris[i], textTris)
		if sim < minCoverage {
			return 0
		}
		if strings.Contains(text, w) {
			sim += 0.5
		}
		total += sim
	}
	return total / float64(len(words))
}

// fold lowercases s and strips combining marks, so "Café" matches "cafe".
func fold(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(strings.ToLower(s)) {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type trigramSet map[string]struct{}

// trigrams pads s with two spaces on each side so prefixes and suffixes
// produce their own trigrams. All-blank trigrams are skipped.
func trigrams(s string) trigramSet {
	if s == "" {
		return nil
	}
	runes := []rune("  " + s + "  ")
	set := make(trigramSet, len(runes))
	for i := 0; i+3 <= len(runes); i++ {
		tri := string(runes[i : i+3])
		if strings.TrimSpace(tri) != "" {
			set[tri] = struct{}{}
		}
	}
	return set
}

// coverage is |query ∩ item| / |query|.
func coverage(query, item trigramSet) float64 {
	if len(query) == 0 {
		return 0
	}
	n := 0
	for tri := range query {
		if _, ok := item[tri]; ok {
			n++
		}
	}
	return float64(n) / float64(len(query))
}

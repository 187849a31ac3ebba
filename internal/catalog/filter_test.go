package catalog

import "testing"

func TestFilter(t *testing.T) {
	tracks := []Track{
		{ID: "1", Title: "Morning Run", Artist: "Pulse", Genre: "Electronic"},
		{ID: "2", Title: "Slow Down", Artist: "The Quiet", Genre: "Ambient"},
		{ID: "3", Title: "Riverside", Artist: "Delta Blue", Genre: "Jazz"},
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty returns all", "", []string{"1", "2", "3"}},
		{"space matches multi-word fields", " ", []string{"1", "2", "3"}},
		{"leading space is significant", " down", []string{"2"}},
		{"trailing space is significant", "run ", nil},
		{"title match", "run", []string{"1"}},
		{"artist match ignores case", "QUIET", []string{"2"}},
		{"genre match", "jazz", []string{"3"}},
		{"substring across fields", "e", []string{"1", "2", "3"}},
		{"no match", "metal", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(tracks, tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("Filter(%q) returned %d tracks, want %d", tt.query, len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("Filter(%q)[%d] = %s, want %s", tt.query, i, got[i].ID, id)
				}
			}
		})
	}
}

func TestTrackDisplayName(t *testing.T) {
	if got := (Track{Title: "Solo"}).DisplayName(); got != "Solo" {
		t.Errorf("DisplayName() = %q, want %q", got, "Solo")
	}
	if got := (Track{Title: "Song", Artist: "Band"}).DisplayName(); got != "Band - Song" {
		t.Errorf("DisplayName() = %q, want %q", got, "Band - Song")
	}
}

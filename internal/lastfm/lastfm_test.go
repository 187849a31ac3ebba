package lastfm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/llehouerou/soundshow/internal/logging"
)

type fakeAPI struct {
	mu         sync.Mutex
	nowPlaying []ScrobbleTrack
	scrobbles  []ScrobbleTrack
	err        error
}

func (f *fakeAPI) UpdateNowPlaying(track ScrobbleTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nowPlaying = append(f.nowPlaying, track)
	return f.err
}

func (f *fakeAPI) Scrobble(track ScrobbleTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrobbles = append(f.scrobbles, track)
	return f.err
}

func TestScrobbleThreshold(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     time.Duration
		ok       bool
	}{
		{10 * time.Second, 0, false},
		{29 * time.Second, 0, false},
		{30 * time.Second, 15 * time.Second, true},
		{3 * time.Minute, 90 * time.Second, true},
		{8 * time.Minute, 4 * time.Minute, true},
		{20 * time.Minute, 4 * time.Minute, true},
	}
	for _, tt := range tests {
		got, ok := ScrobbleThreshold(tt.duration)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ScrobbleThreshold(%v) = %v, %v; want %v, %v", tt.duration, got, ok, tt.want, tt.ok)
		}
	}
}

func TestScrobbler_NowPlayingAndScrobble(t *testing.T) {
	api := &fakeAPI{}
	s := NewScrobbler(api, logging.Discard())
	started := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return started }

	s.TrackStarted("t1", "Artist", "Song")
	if len(api.nowPlaying) != 1 || api.nowPlaying[0].Track != "Song" {
		t.Fatalf("now playing = %+v", api.nowPlaying)
	}
	if st := s.State(); st == nil || !st.NowPlayingSent {
		t.Fatalf("state = %+v, want now playing sent", st)
	}

	if s.Progress("t1", 30*time.Second, 3*time.Minute) {
		t.Error("scrobbled before threshold")
	}
	if !s.Progress("t1", 90*time.Second, 3*time.Minute) {
		t.Fatal("expected scrobble at threshold")
	}
	if s.Progress("t1", 2*time.Minute, 3*time.Minute) {
		t.Error("scrobbled twice")
	}

	if len(api.scrobbles) != 1 {
		t.Fatalf("scrobbles = %d, want 1", len(api.scrobbles))
	}
	got := api.scrobbles[0]
	if !got.Timestamp.Equal(started) || got.Duration != 3*time.Minute || got.Artist != "Artist" {
		t.Errorf("scrobble = %+v", got)
	}
}

func TestScrobbler_ShortTrackNeverScrobbled(t *testing.T) {
	api := &fakeAPI{}
	s := NewScrobbler(api, logging.Discard())

	s.TrackStarted("t1", "A", "Jingle")
	if s.Progress("t1", 20*time.Second, 20*time.Second) {
		t.Error("short track scrobbled")
	}
}

func TestScrobbler_ResetStopsTracking(t *testing.T) {
	api := &fakeAPI{}
	s := NewScrobbler(api, logging.Discard())

	s.TrackStarted("t1", "A", "Song")
	s.Reset()
	if s.Progress("t1", 5*time.Minute, 6*time.Minute) {
		t.Error("scrobbled after reset")
	}
	if s.State() != nil {
		t.Error("expected nil state after reset")
	}
	if s.Progress("t1", time.Minute, time.Minute) {
		t.Error("scrobbled with no track")
	}
}

func TestScrobbler_IgnoresOtherTrack(t *testing.T) {
	api := &fakeAPI{}
	s := NewScrobbler(api, logging.Discard())

	s.TrackStarted("t2", "A", "Next")
	if s.Progress("t1", 5*time.Minute, 6*time.Minute) {
		t.Error("scrobbled a report for another track")
	}
	if !s.Progress("t2", 3*time.Minute, 6*time.Minute) {
		t.Error("expected scrobble for current track")
	}
}

func TestScrobbler_Failures(t *testing.T) {
	api := &fakeAPI{err: errors.New("offline")}
	s := NewScrobbler(api, logging.Discard())

	s.TrackStarted("t1", "A", "Song")
	if st := s.State(); st == nil || st.NowPlayingSent {
		t.Errorf("state = %+v, want now playing not sent", st)
	}
	if s.Progress("t1", 4*time.Minute, 5*time.Minute) {
		t.Error("Progress reported success on failure")
	}
	// A failed scrobble is not retried for the same listen.
	s.Progress("t1", 5*time.Minute, 5*time.Minute)
	if len(api.scrobbles) != 1 {
		t.Errorf("scrobble attempts = %d, want 1", len(api.scrobbles))
	}
}

func TestClient_Unauthenticated(t *testing.T) {
	c := New("key", "secret")
	if c.IsAuthenticated() {
		t.Fatal("new client should not be authenticated")
	}
	if err := c.Scrobble(ScrobbleTrack{}); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Scrobble err = %v", err)
	}
	if err := c.UpdateNowPlaying(ScrobbleTrack{}); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("UpdateNowPlaying err = %v", err)
	}
	c.SetSessionKey("sk")
	if !c.IsAuthenticated() || c.SessionKey() != "sk" {
		t.Error("session key not applied")
	}
}

func TestClient_GetAuthURL(t *testing.T) {
	c := New("abc", "secret")
	u := c.GetAuthURL("http://localhost:9847/callback")
	if !strings.HasPrefix(u, "https://www.last.fm/api/auth/?") {
		t.Fatalf("unexpected url %q", u)
	}
	if !strings.Contains(u, "api_key=abc") || !strings.Contains(u, "cb=http%3A%2F%2Flocalhost%3A9847%2Fcallback") {
		t.Errorf("url %q missing parameters", u)
	}
}

func TestWaitToken_ReceivesToken(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tokens := make(chan string, 1)
		tokens <- "test-token-123"

		got, err := waitToken(context.Background(), tokens, 5*time.Minute)
		if err != nil || got != "test-token-123" {
			t.Errorf("waitToken = %q, %v; want test-token-123", got, err)
		}
	})
}

func TestWaitToken_EmptyTokenIsDenied(t *testing.T) {
	tokens := make(chan string, 1)
	tokens <- ""
	if _, err := waitToken(context.Background(), tokens, time.Minute); !errors.Is(err, ErrAuthDenied) {
		t.Errorf("err = %v, want ErrAuthDenied", err)
	}
}

func TestWaitToken_Timeout(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		start := time.Now()

		_, err := waitToken(context.Background(), make(chan string), 5*time.Minute)
		if !errors.Is(err, ErrAuthTimeout) {
			t.Errorf("err = %v, want ErrAuthTimeout", err)
		}
		if elapsed := time.Since(start); elapsed != 5*time.Minute {
			t.Errorf("waited %v, want 5m", elapsed)
		}
	})
}

func TestWaitToken_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := waitToken(ctx, make(chan string), time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestCallback_DeliversRedirectToken(t *testing.T) {
	cb, err := ListenCallback("127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenCallback: %v", err)
	}
	defer cb.Close()

	if !strings.HasSuffix(cb.URL(), "/callback") {
		t.Fatalf("URL = %q", cb.URL())
	}

	resp, err := http.Get(cb.URL() + "?token=tok-1")
	if err != nil {
		t.Fatalf("GET callback: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "Last.fm account linked") {
		t.Errorf("page = %q", body)
	}

	got, err := cb.Wait(context.Background(), time.Second)
	if err != nil || got != "tok-1" {
		t.Errorf("Wait = %q, %v; want tok-1", got, err)
	}
}

func TestCallback_CloseStopsServer(t *testing.T) {
	cb, err := ListenCallback("127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenCallback: %v", err)
	}
	url := cb.URL()
	if err := cb.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if resp, err := http.Get(url); err == nil {
		resp.Body.Close()
		t.Error("callback server still answering after Close")
	}
}

func TestBrowserCommand(t *testing.T) {
	tests := []struct {
		platform, name string
		wantErr        bool
	}{
		{"darwin", "open", false},
		{"linux", "xdg-open", false},
		{"windows", "cmd", false},
		{"plan9", "", true},
	}
	for _, tt := range tests {
		name, args, err := browserCommand(tt.platform, "https://www.last.fm")
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v", tt.platform, err)
			continue
		}
		if name != tt.name {
			t.Errorf("%s: command = %q, want %q", tt.platform, name, tt.name)
		}
		if !tt.wantErr && args[len(args)-1] != "https://www.last.fm" {
			t.Errorf("%s: args = %v", tt.platform, args)
		}
	}
}

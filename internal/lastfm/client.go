package lastfm

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/shkh/lastfm-go/lastfm"
)

// ErrNotAuthenticated is returned when an operation requires authentication.
var ErrNotAuthenticated = errors.New("not authenticated")

// Client wraps the Last.fm API for scrobbling operations.
type Client struct {
	api        *lastfm.Api
	apiKey     string
	sessionKey string
}

// Verify Client implements API at compile time.
var _ API = (*Client)(nil)

// New creates a new Last.fm client with the given API credentials.
func New(apiKey, apiSecret string) *Client {
	return &Client{
		api:    lastfm.New(apiKey, apiSecret),
		apiKey: apiKey,
	}
}

// SetSessionKey sets the authenticated session key.
func (c *Client) SetSessionKey(key string) {
	c.sessionKey = key
	c.api.SetSession(key)
}

// SessionKey returns the current session key.
func (c *Client) SessionKey() string {
	return c.sessionKey
}

// IsAuthenticated returns true if a session key is set.
func (c *Client) IsAuthenticated() bool {
	return c.sessionKey != ""
}

// GetAuthURL returns the web authorization URL. After the user grants
// access, Last.fm redirects to callback with a token query parameter.
func (c *Client) GetAuthURL(callback string) string {
	q := url.Values{"api_key": {c.apiKey}}
	if callback != "" {
		q.Set("cb", callback)
	}
	return "https://www.last.fm/api/auth/?" + q.Encode()
}

// GetSession exchanges an authorized token for a session key.
func (c *Client) GetSession(token string) (username, sessionKey string, err error) {
	if token == "" {
		return "", "", errors.New("get session: empty token")
	}
	err = c.api.LoginWithToken(token)
	if err != nil {
		return "", "", fmt.Errorf("get session: %w", err)
	}

	sessionKey = c.api.GetSessionKey()
	c.sessionKey = sessionKey

	userInfo, err := c.api.User.GetInfo(nil)
	if err != nil {
		// Session is valid but couldn't get username - still return session
		return "unknown", sessionKey, nil //nolint:nilerr // username is optional
	}

	return userInfo.Name, sessionKey, nil
}

// UpdateNowPlaying sends a "now playing" notification to Last.fm.
func (c *Client) UpdateNowPlaying(track ScrobbleTrack) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	params := lastfm.P{
		"artist": track.Artist,
		"track":  track.Track,
	}
	if track.Duration > 0 {
		params["duration"] = int(track.Duration.Seconds())
	}

	_, err := c.api.Track.UpdateNowPlaying(params)
	if err != nil {
		return fmt.Errorf("update now playing: %w", err)
	}
	return nil
}

// Scrobble submits a track play to Last.fm.
func (c *Client) Scrobble(track ScrobbleTrack) error {
	if !c.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	params := lastfm.P{
		"artist":    track.Artist,
		"track":     track.Track,
		"timestamp": track.Timestamp.Unix(),
	}
	if track.Duration > 0 {
		params["duration"] = int(track.Duration.Seconds())
	}

	_, err := c.api.Track.Scrobble(params)
	if err != nil {
		return fmt.Errorf("scrobble: %w", err)
	}
	return nil
}

package state

import (
	"context"
	"errors"
	"time"

	"github.com/llehouerou/soundshow/internal/apperr"
)

const lastfmDocID = "lastfm"

// LastfmSession represents a stored Last.fm session.
type LastfmSession struct {
	Username   string
	SessionKey string
	LinkedAt   time.Time
}

type lastfmDoc struct {
	Username   string `json:"username"`
	SessionKey string `json:"sessionKey"`
	LinkedAt   int64  `json:"linkedAt"`
}

// GetLastfmSession returns the stored Last.fm session, or nil if not linked.
func (m *Manager) GetLastfmSession(ctx context.Context) (*LastfmSession, error) {
	doc, err := m.store.Get(ctx, collection, lastfmDocID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil //nolint:nilnil // nil session means not linked, not an error
	}
	if err != nil {
		return nil, err
	}

	var d lastfmDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, err
	}
	return &LastfmSession{
		Username:   d.Username,
		SessionKey: d.SessionKey,
		LinkedAt:   time.Unix(d.LinkedAt, 0),
	}, nil
}

// SaveLastfmSession stores the Last.fm session after successful authentication.
func (m *Manager) SaveLastfmSession(ctx context.Context, username, sessionKey string) error {
	if sessionKey == "" {
		return apperr.Invalid("sessionKey", "Last.fm session key is empty.")
	}
	return m.store.Set(ctx, collection, lastfmDocID, lastfmDoc{
		Username:   username,
		SessionKey: sessionKey,
		LinkedAt:   m.now().Unix(),
	})
}

// DeleteLastfmSession removes the stored Last.fm session (unlink).
func (m *Manager) DeleteLastfmSession(ctx context.Context) error {
	return m.store.Delete(ctx, collection, lastfmDocID)
}

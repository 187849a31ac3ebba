package state

import "context"

// Interface defines the state manager contract for dependency injection and testing.
type Interface interface {
	GetVolume(ctx context.Context) (float64, error)
	SaveVolume(volume float64)
	GetLastfmSession(ctx context.Context) (*LastfmSession, error)
	SaveLastfmSession(ctx context.Context, username, sessionKey string) error
	DeleteLastfmSession(ctx context.Context) error
	Close() error
}

// Verify Manager implements Interface at compile time.
var _ Interface = (*Manager)(nil)

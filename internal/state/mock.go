package state

import (
	"context"
	"sync"
	"time"
)

// Mock is a test double for Manager.
type Mock struct {
	mu      sync.Mutex
	volume  *float64
	saves   []float64
	session *LastfmSession
	closed  bool
}

// NewMock creates a new mock state manager for testing.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) GetVolume(_ context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.volume == nil {
		return DefaultVolume, nil
	}
	return *m.volume, nil
}

func (m *Mock) SaveVolume(volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := clamp(volume)
	m.volume = &v
	m.saves = append(m.saves, v)
}

func (m *Mock) GetLastfmSession(_ context.Context) (*LastfmSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, nil //nolint:nilnil // nil session means not linked
	}
	s := *m.session
	return &s, nil
}

func (m *Mock) SaveLastfmSession(_ context.Context, username, sessionKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &LastfmSession{Username: username, SessionKey: sessionKey, LinkedAt: time.Now()}
	return nil
}

func (m *Mock) DeleteLastfmSession(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Test helpers

// Saves returns every volume passed to SaveVolume.
func (m *Mock) Saves() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.saves...)
}

func (m *Mock) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)

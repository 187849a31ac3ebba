// Package state persists local client state, such as the remembered volume,
// in the document store.
package state

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/llehouerou/soundshow/internal/docstore"
)

const (
	collection   = "client_state"
	saveDebounce = 500 * time.Millisecond
	flushTimeout = 5 * time.Second
)

type Manager struct {
	store    *docstore.Store
	log      *log.Logger
	now      func() time.Time
	debounce time.Duration

	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   *volumeDoc
	closed    bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for failed background saves.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithDebounce overrides the delay between the last SaveVolume call and the write.
func WithDebounce(d time.Duration) Option {
	return func(m *Manager) { m.debounce = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a state manager on top of store. The store is not owned:
// Close flushes pending writes but leaves the store open.
func New(store *docstore.Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		log:      log.Default(),
		now:      time.Now,
		debounce: saveDebounce,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Close stops the debounce timer and writes any pending state.
func (m *Manager) Close() error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	pending := m.pending
	m.pending = nil
	m.closed = true
	m.saveMu.Unlock()

	if pending == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	return m.store.Set(ctx, collection, volumeDocID, *pending)
}

// flush writes the pending volume, if any. Called from the debounce timer.
func (m *Manager) flush() {
	m.saveMu.Lock()
	pending := m.pending
	m.pending = nil
	m.saveMu.Unlock()

	if pending == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := m.store.Set(ctx, collection, volumeDocID, *pending); err != nil {
		m.log.Warn("save volume failed", "err", err)
	}
}

package state

import (
	"context"
	"errors"
	"time"

	"github.com/llehouerou/soundshow/internal/apperr"
)

const (
	volumeDocID = "volume"

	// DefaultVolume is returned when no volume has been saved yet.
	DefaultVolume = 1.0
)

type volumeDoc struct {
	Volume  float64 `json:"volume"`
	SavedAt int64   `json:"savedAt"`
}

// GetVolume returns the saved volume, or DefaultVolume when none was saved.
// A save still waiting on the debounce timer is returned as is.
func (m *Manager) GetVolume(ctx context.Context) (float64, error) {
	m.saveMu.Lock()
	if m.pending != nil {
		v := m.pending.Volume
		m.saveMu.Unlock()
		return v, nil
	}
	m.saveMu.Unlock()

	doc, err := m.store.Get(ctx, collection, volumeDocID)
	if errors.Is(err, apperr.ErrNotFound) {
		return DefaultVolume, nil
	}
	if err != nil {
		return 0, err
	}
	var v volumeDoc
	if err := doc.DataTo(&v); err != nil {
		return 0, err
	}
	return clamp(v.Volume), nil
}

// SaveVolume schedules a write of the volume level. Calls made within the
// debounce window collapse into a single write of the latest value.
func (m *Manager) SaveVolume(volume float64) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	if m.closed {
		return
	}
	m.pending = &volumeDoc{Volume: clamp(volume), SavedAt: m.now().UnixMilli()}

	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	m.saveTimer = time.AfterFunc(m.debounce, m.flush)
}

func clamp(v float64) float64 {
	return min(max(v, 0), 1)
}

// Package engine loads remote audio streams and plays them.
//
// An Engine turns a stream URL into a Handle. A Handle owns everything needed
// to play one stream and reports progress through the StatusFunc given to
// Load until it is unloaded.
package engine

import (
	"context"
	"errors"
	"time"
)

// ErrUnloaded is returned by Handle methods called after Unload.
var ErrUnloaded = errors.New("engine: handle unloaded")

// Status is a progress report from a loaded handle.
type Status struct {
	IsLoaded      bool
	IsPlaying     bool
	Position      time.Duration
	Duration      time.Duration
	DidJustFinish bool
}

// StatusFunc receives status reports. It is called from engine goroutines
// and must not block for long.
type StatusFunc func(Status)

// Options configure a load.
type Options struct {
	AutoPlay bool
	Volume   float64 // 0.0 to 1.0
}

// Engine creates handles.
type Engine interface {
	Load(ctx context.Context, url string, opts Options, onStatus StatusFunc) (Handle, error)
}

// Handle controls one loaded stream.
type Handle interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, pos time.Duration) error
	SetVolume(ctx context.Context, level float64) error
	// Unload releases the stream. It returns once no more status reports
	// will be sent and is safe to call more than once.
	Unload(ctx context.Context) error
}

// ClampVolume limits level to [0, 1].
func ClampVolume(level float64) float64 {
	if level < 0 {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}

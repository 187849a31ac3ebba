package engine

import (
	"context"
	"sync"
	"time"
)

// Mock is a test double for Engine. It is safe for concurrent use.
type Mock struct {
	mu      sync.Mutex
	loadErr error
	// unloadErr makes Unload fail and leaves the handle live.
	unloadErr error
	gate    chan struct{}
	loads   []string
	handles []*MockHandle
	live    int
	maxLive int
	started chan string
}

// NewMock creates a mock engine whose loads succeed immediately.
func NewMock() *Mock {
	return &Mock{started: make(chan string, 64)}
}

// SetLoadError makes subsequent loads fail with err.
func (m *Mock) SetLoadError(err error) {
	m.mu.Lock()
	m.loadErr = err
	m.mu.Unlock()
}

// SetUnloadError makes Unload fail with err without releasing the handle.
func (m *Mock) SetUnloadError(err error) {
	m.mu.Lock()
	m.unloadErr = err
	m.mu.Unlock()
}

// HoldLoads makes subsequent loads block until the returned release func is
// called (or their context ends).
func (m *Mock) HoldLoads() (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gate = gate
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.gate == gate {
				m.gate = nil
			}
			m.mu.Unlock()
			close(gate)
		})
	}
}

// LoadStarted receives the URL of every load as it begins.
func (m *Mock) LoadStarted() <-chan string {
	return m.started
}

func (m *Mock) Load(ctx context.Context, url string, opts Options, onStatus StatusFunc) (Handle, error) {
	m.mu.Lock()
	m.loads = append(m.loads, url)
	gate := m.gate
	m.mu.Unlock()

	select {
	case m.started <- url:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}

	h := &MockHandle{
		engine:   m,
		URL:      url,
		Opts:     opts,
		onStatus: onStatus,
		playing:  opts.AutoPlay,
		volume:   opts.Volume,
	}
	m.handles = append(m.handles, h)
	m.live++
	m.maxLive = max(m.maxLive, m.live)
	return h, nil
}

// Loads returns every URL passed to Load.
func (m *Mock) Loads() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loads...)
}

// Handles returns every handle created so far.
func (m *Mock) Handles() []*MockHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockHandle(nil), m.handles...)
}

// Last returns the most recent handle, or nil.
func (m *Mock) Last() *MockHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.handles) == 0 {
		return nil
	}
	return m.handles[len(m.handles)-1]
}

// Live returns the number of handles not yet unloaded.
func (m *Mock) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live
}

// MaxLive returns the highest number of simultaneously live handles seen.
func (m *Mock) MaxLive() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxLive
}

// MockHandle is the handle returned by Mock.
type MockHandle struct {
	engine   *Mock
	URL      string
	Opts     Options
	onStatus StatusFunc

	mu       sync.Mutex
	playing  bool
	volume   float64
	seeks    []time.Duration
	unloaded bool
}

func (h *MockHandle) Play(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unloaded {
		return ErrUnloaded
	}
	h.playing = true
	return nil
}

func (h *MockHandle) Pause(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unloaded {
		return ErrUnloaded
	}
	h.playing = false
	return nil
}

func (h *MockHandle) Seek(_ context.Context, pos time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unloaded {
		return ErrUnloaded
	}
	h.seeks = append(h.seeks, pos)
	return nil
}

func (h *MockHandle) SetVolume(_ context.Context, level float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unloaded {
		return ErrUnloaded
	}
	h.volume = level
	return nil
}

func (h *MockHandle) Unload(_ context.Context) error {
	h.engine.mu.Lock()
	uerr := h.engine.unloadErr
	h.engine.mu.Unlock()
	if uerr != nil {
		return uerr
	}

	h.mu.Lock()
	if h.unloaded {
		h.mu.Unlock()
		return nil
	}
	h.unloaded = true
	h.playing = false
	h.mu.Unlock()

	h.engine.mu.Lock()
	h.engine.live--
	h.engine.mu.Unlock()
	return nil
}

// Test helpers

// Emit delivers a status report as the engine would, unless unloaded.
func (h *MockHandle) Emit(st Status) {
	h.mu.Lock()
	live := !h.unloaded
	h.mu.Unlock()
	if live && h.onStatus != nil {
		h.onStatus(st)
	}
}

// Finish simulates natural completion.
func (h *MockHandle) Finish() {
	h.Emit(Status{IsLoaded: true, DidJustFinish: true})
}

func (h *MockHandle) Playing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

func (h *MockHandle) Volume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.volume
}

func (h *MockHandle) Seeks() []time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]time.Duration(nil), h.seeks...)
}

func (h *MockHandle) Unloaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unloaded
}

// Verify implementations at compile time.
var (
	_ Engine = (*Mock)(nil)
	_ Engine = (*Beep)(nil)
	_ Handle = (*MockHandle)(nil)
	_ Handle = (*beepHandle)(nil)
)

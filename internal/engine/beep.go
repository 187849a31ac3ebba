package engine

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

// Defaults for Beep.
const (
	DefaultHTTPTimeout    = 60 * time.Second
	DefaultStatusInterval = 500 * time.Millisecond
	DefaultMaxStreamBytes = 200 << 20
)

// speaker state is process wide.
var (
	speakerMu         sync.Mutex
	speakerReady      bool
	speakerSampleRate beep.SampleRate
)

func initSpeaker(sr beep.SampleRate) (beep.SampleRate, error) {
	speakerMu.Lock()
	defer speakerMu.Unlock()
	if speakerReady {
		return speakerSampleRate, nil
	}
	if err := speaker.Init(sr, sr.N(time.Second/10)); err != nil {
		return 0, err
	}
	speakerReady = true
	speakerSampleRate = sr
	return sr, nil
}

// BeepConfig configures a Beep engine.
type BeepConfig struct {
	HTTPTimeout    time.Duration
	StatusInterval time.Duration
	MaxStreamBytes int64
	Logger         *log.Logger
}

// Beep streams audio over HTTP and plays it on the beep speaker.
type Beep struct {
	client   *http.Client
	interval time.Duration
	maxBytes int64
	log      *log.Logger
}

// NewBeep creates an engine. Zero config fields take their defaults.
func NewBeep(cfg BeepConfig) *Beep {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = DefaultStatusInterval
	}
	if cfg.MaxStreamBytes <= 0 {
		cfg.MaxStreamBytes = DefaultMaxStreamBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Beep{
		client:   &http.Client{Timeout: cfg.HTTPTimeout},
		interval: cfg.StatusInterval,
		maxBytes: cfg.MaxStreamBytes,
		log:      cfg.Logger,
	}
}

// Load downloads and decodes url, then starts playback if opts.AutoPlay.
func (b *Beep) Load(ctx context.Context, url string, opts Options, onStatus StatusFunc) (Handle, error) {
	src, contentType, err := fetch(ctx, b.client, url, b.maxBytes)
	if err != nil {
		return nil, err
	}

	c := detectCodec(url, contentType)
	streamer, format, err := decode(c, src)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", c, err)
	}

	outRate, err := initSpeaker(format.SampleRate)
	if err != nil {
		streamer.Close()
		return nil, fmt.Errorf("init speaker: %w", err)
	}

	var playStreamer beep.Streamer = streamer
	if format.SampleRate != outRate {
		playStreamer = beep.Resample(4, format.SampleRate, outRate, streamer)
	}

	if onStatus == nil {
		onStatus = func(Status) {}
	}

	h := &beepHandle{
		streamer: streamer,
		format:   format,
		onStatus: onStatus,
		stop:     make(chan struct{}),
		log:      b.log,
	}
	h.ctrl = &beep.Ctrl{Streamer: playStreamer, Paused: !opts.AutoPlay}
	h.volume = &effects.Volume{Streamer: h.ctrl, Base: 2, Volume: levelToVolume(ClampVolume(opts.Volume))}

	b.log.Debug("stream loaded", "url", url, "codec", c, "rate", format.SampleRate,
		"duration", format.SampleRate.D(streamer.Len()))

	speaker.Play(beep.Seq(h.volume, beep.Callback(func() {
		// Runs with the speaker locked; report from another goroutine.
		go h.finished()
	})))

	h.wg.Add(1)
	go h.tick(b.interval)

	return h, nil
}

type beepHandle struct {
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	onStatus StatusFunc
	log      *log.Logger

	mu       sync.Mutex
	unloaded bool
	stop     chan struct{}
	wg       sync.WaitGroup

	// reportMu is held while onStatus runs.
	reportMu sync.Mutex
}

func (h *beepHandle) status() Status {
	speaker.Lock()
	defer speaker.Unlock()
	return Status{
		IsLoaded:  true,
		IsPlaying: !h.ctrl.Paused,
		Position:  h.format.SampleRate.D(h.streamer.Position()),
		Duration:  h.format.SampleRate.D(h.streamer.Len()),
	}
}

func (h *beepHandle) tick(interval time.Duration) {
	defer h.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.report(h.status())
		}
	}
}

func (h *beepHandle) finished() {
	h.mu.Lock()
	if h.unloaded {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	h.log.Debug("stream finished")
	st := h.status()
	st.IsPlaying = false
	st.DidJustFinish = true
	st.Position = st.Duration
	h.report(st)
}

// report delivers st unless the handle was unloaded.
func (h *beepHandle) report(st Status) {
	h.reportMu.Lock()
	defer h.reportMu.Unlock()
	if h.checkLive() == nil {
		h.onStatus(st)
	}
}

func (h *beepHandle) checkLive() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unloaded {
		return ErrUnloaded
	}
	return nil
}

func (h *beepHandle) Play(_ context.Context) error {
	if err := h.checkLive(); err != nil {
		return err
	}
	speaker.Lock()
	h.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

func (h *beepHandle) Pause(_ context.Context) error {
	if err := h.checkLive(); err != nil {
		return err
	}
	speaker.Lock()
	h.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

func (h *beepHandle) Seek(_ context.Context, pos time.Duration) error {
	if err := h.checkLive(); err != nil {
		return err
	}
	speaker.Lock()
	defer speaker.Unlock()
	target := h.format.SampleRate.N(max(pos, 0))
	target = min(target, h.streamer.Len())
	return h.streamer.Seek(target)
}

func (h *beepHandle) SetVolume(_ context.Context, level float64) error {
	if err := h.checkLive(); err != nil {
		return err
	}
	speaker.Lock()
	h.volume.Volume = levelToVolume(ClampVolume(level))
	speaker.Unlock()
	return nil
}

func (h *beepHandle) Unload(_ context.Context) error {
	h.mu.Lock()
	if h.unloaded {
		h.mu.Unlock()
		return nil
	}
	h.unloaded = true
	close(h.stop)
	h.mu.Unlock()

	// Wait out a report already in progress.
	h.reportMu.Lock()
	h.reportMu.Unlock() //nolint:staticcheck // empty critical section is the barrier
	h.wg.Wait()
	speaker.Clear()
	return h.streamer.Close()
}

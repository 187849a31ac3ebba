// Package notify provides desktop notifications via D-Bus.
package notify

import "github.com/charmbracelet/log"

// AppName is the application name reported to the notification server.
const AppName = "soundshow"

// Urgency represents notification priority levels defined by freedesktop.org.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// Notification contains data for a desktop notification.
type Notification struct {
	Title      string  // Summary text (required)
	Body       string  // Body text (optional, supports basic markup)
	Icon       string  // Icon name or path, used when there is no artwork
	ArtworkURL string  // Track artwork; fetched into the cache and sent as image-path
	Timeout    int32   // ms, -1 = server default, 0 = never expire
	ReplacesID uint32  // 0 = new notification, >0 = replace existing
	Urgency    Urgency // Low, Normal, Critical
}

// Notifier sends desktop notifications.
type Notifier interface {
	// Notify sends a notification and returns its ID.
	// Returns 0 and nil error if notifications are disabled or unavailable.
	Notify(n Notification) (uint32, error)
	// Close closes a notification by ID.
	Close(id uint32) error
}

// NowPlayingIcon is the freedesktop icon name used for track notifications.
const NowPlayingIcon = "audio-x-generic"

// NowPlaying builds the notification shown when a track starts.
func NowPlaying(title, artist, artworkURL string) Notification {
	return Notification{
		Title:      title,
		Body:       artist,
		Icon:       NowPlayingIcon,
		ArtworkURL: artworkURL,
		Timeout:    5000,
		Urgency:    UrgencyLow,
	}
}

// Option configures a Notifier created by New.
type Option func(*options)

type options struct {
	artwork *Artwork
	log     *log.Logger
}

// WithArtwork attaches track artwork to notifications through cache.
func WithArtwork(cache *Artwork) Option {
	return func(o *options) { o.artwork = cache }
}

// WithLogger sets the logger used for artwork failures.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{log: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Disabled returns a notifier that drops every notification.
func Disabled() Notifier {
	return stubNotifier{}
}

// stubNotifier is used when D-Bus is unavailable.
type stubNotifier struct{}

func (stubNotifier) Notify(Notification) (uint32, error) { return 0, nil }

func (stubNotifier) Close(uint32) error { return nil }

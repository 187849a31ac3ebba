//go:build linux

package notify

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/godbus/dbus/v5"
)

const (
	busName   = "org.freedesktop.Notifications"
	busPath   = "/org/freedesktop/Notifications"
	busMethod = busName + ".Notify"
	busClose  = busName + ".CloseNotification"
)

type dbusNotifier struct {
	obj     dbus.BusObject
	artwork *Artwork
	log     *log.Logger
}

// New connects to the session bus. Without one it returns a notifier that
// drops everything, so callers never have to special-case headless runs.
func New(opts ...Option) (Notifier, error) {
	o := buildOptions(opts)
	conn, err := dbus.SessionBus()
	if err != nil {
		o.log.Debug("no session bus, notifications disabled", "err", err)
		return stubNotifier{}, nil
	}
	return &dbusNotifier{
		obj:     conn.Object(busName, busPath),
		artwork: o.artwork,
		log:     o.log,
	}, nil
}

// Notify calls org.freedesktop.Notifications.Notify(app_name, replaces_id,
// app_icon, summary, body, actions, hints, expire_timeout).
func (n *dbusNotifier) Notify(notif Notification) (uint32, error) {
	call := n.obj.Call(busMethod, 0,
		AppName,
		notif.ReplacesID,
		notif.Icon,
		notif.Title,
		notif.Body,
		[]string{},
		hints(notif, n.imagePath(notif.ArtworkURL)),
		notif.Timeout,
	)
	if call.Err != nil {
		return 0, call.Err
	}
	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (n *dbusNotifier) Close(id uint32) error {
	return n.obj.Call(busClose, 0, id).Err
}

// imagePath resolves artwork to a local file, or "" when there is none or
// it cannot be fetched in time.
func (n *dbusNotifier) imagePath(artworkURL string) string {
	if n.artwork == nil || artworkURL == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), DefaultArtworkTimeout)
	defer cancel()
	p, err := n.artwork.Path(ctx, artworkURL)
	if err != nil {
		n.log.Debug("artwork unavailable", "url", artworkURL, "err", err)
		return ""
	}
	return p
}

// hints builds the freedesktop hint map. image-path takes precedence over
// app_icon on conforming servers.
func hints(notif Notification, imagePath string) map[string]dbus.Variant {
	h := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(notif.Urgency)),
		"desktop-entry": dbus.MakeVariant(AppName),
	}
	if imagePath != "" {
		h["image-path"] = dbus.MakeVariant(imagePath)
	}
	return h
}

package app

import (
	"github.com/llehouerou/soundshow/internal/notify"
	"github.com/llehouerou/soundshow/internal/playback"
)

// watch runs the playback side effects until the subscription is closed.
func (a *App) watch() {
	defer a.wg.Done()
	for {
		select {
		case e := <-a.sub.TrackChanged:
			a.onTrackChanged(e)
		case e := <-a.sub.StatusChanged:
			a.onStatus(e)
		case e := <-a.sub.VolumeChanged:
			a.state.SaveVolume(e.Volume)
		case e := <-a.sub.Error:
			a.log.Warn("playback error", "op", e.Operation, "track", e.TrackID, "err", e.Err)
		case <-a.sub.Done:
			a.drainVolume()
			return
		}
	}
}

// drainVolume saves a volume change still buffered when the session closed.
func (a *App) drainVolume() {
	for {
		select {
		case e := <-a.sub.VolumeChanged:
			a.state.SaveVolume(e.Volume)
		default:
			return
		}
	}
}

func (a *App) onTrackChanged(e playback.TrackChange) {
	if e.Current == nil {
		if a.scrobbler != nil {
			a.scrobbler.Reset()
		}
		return
	}
	t := e.Current

	n := notify.NowPlaying(t.Title, t.Artist, t.ArtworkURL)
	a.mu.Lock()
	n.ReplacesID = a.notifyID
	a.mu.Unlock()
	id, err := a.notifier.Notify(n)
	if err != nil {
		a.log.Debug("notification failed", "err", err)
	} else {
		a.mu.Lock()
		a.notifyID = id
		a.mu.Unlock()
	}

	if a.scrobbler != nil {
		a.scrobbler.TrackStarted(t.ID, t.Artist, t.Title)
	}
}

func (a *App) onStatus(e playback.StatusChange) {
	if a.scrobbler == nil || !e.IsPlaying {
		return
	}
	if t := a.Playback.CurrentTrack(); t != nil {
		a.scrobbler.Progress(t.ID, e.Position, e.Duration)
	}
}

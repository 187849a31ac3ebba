package app

import (
	"context"

	"github.com/llehouerou/soundshow/internal/auth"
	"github.com/llehouerou/soundshow/internal/docstore"
	"github.com/llehouerou/soundshow/internal/playlists"
)

// onAuthStateChanged swaps the per-user state. A profile change for the same
// user only refreshes the cached user; any other change tears down the
// previous user's listener, selection and playback.
func (a *App) onAuthStateChanged(u *auth.User) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	prev := a.user
	if u != nil && prev != nil && u.ID == prev.ID {
		cp := *u
		a.user = &cp
		a.mu.Unlock()
		a.signal()
		return
	}

	a.gen++
	gen := a.gen
	stale := a.detachListenersLocked()
	a.lists = nil
	a.listErr = nil
	a.pending = nil
	a.user = nil
	if u != nil {
		cp := *u
		a.user = &cp
	}
	a.mu.Unlock()

	cancelAll(stale)
	if prev != nil {
		a.log.Info("session ended, stopping playback", "uid", prev.ID)
		ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		if err := a.Playback.Unload(ctx); err != nil {
			a.log.Warn("unload on sign-out failed", "err", err)
		}
		cancel()
	}
	a.signal()

	if u == nil {
		return
	}
	a.listen(u.ID, gen)
	a.listenCount(u.ID, gen)
}

// detachListenersLocked clears the per-user listeners and count and returns
// the listeners for the caller to cancel once a.mu is released.
func (a *App) detachListenersLocked() []*docstore.Listener {
	stale := []*docstore.Listener{a.listener, a.countListener}
	a.listener, a.countListener = nil, nil
	a.count, a.countOK = 0, false
	return stale
}

func cancelAll(ls []*docstore.Listener) {
	for _, l := range ls {
		if l != nil {
			l.Cancel()
		}
	}
}

// listen starts the playlist listener for uid, bound to generation gen.
func (a *App) listen(uid string, gen uint64) {
	l, err := a.Playlists.Listen(uid,
		func(lists []playlists.Playlist) {
			a.mu.Lock()
			if gen != a.gen {
				a.mu.Unlock()
				return
			}
			a.lists = lists
			a.listErr = nil
			a.mu.Unlock()
			a.signal()
		},
		func(err error) {
			a.mu.Lock()
			if gen != a.gen {
				a.mu.Unlock()
				return
			}
			a.listErr = err
			a.mu.Unlock()
			a.signal()
		})
	if err != nil {
		a.log.Error("playlist listener failed to start", "uid", uid, "err", err)
		a.mu.Lock()
		if gen == a.gen {
			a.listErr = err
		}
		a.mu.Unlock()
		return
	}

	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		l.Cancel()
		return
	}
	a.listener = l
	a.mu.Unlock()
}

// listenCount follows the number of playlists uid owns, bound to generation
// gen. Errors are reported through PlaylistsErr by the list listener.
func (a *App) listenCount(uid string, gen uint64) {
	l, err := a.Playlists.ListenCount(uid,
		func(n int) {
			a.mu.Lock()
			if gen != a.gen {
				a.mu.Unlock()
				return
			}
			a.count, a.countOK = n, true
			a.mu.Unlock()
			a.signal()
		}, nil)
	if err != nil {
		a.log.Error("playlist count listener failed to start", "uid", uid, "err", err)
		return
	}

	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		l.Cancel()
		return
	}
	a.countListener = l
	a.mu.Unlock()
}

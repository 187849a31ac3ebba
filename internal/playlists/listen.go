package playlists

import (
	"github.com/llehouerou/soundshow/internal/apperr"
	"github.com/llehouerou/soundshow/internal/docstore"
	"github.com/llehouerou/soundshow/internal/errmsg"
)

// Listen delivers the user's playlists, oldest first, now and after every
// change. onErr may be nil. Cancel the returned listener on teardown.
func (p *Playlists) Listen(userID string, fn func([]Playlist), onErr func(error)) (*docstore.Listener, error) {
	coll, err := collection(userID)
	if err != nil {
		return nil, err
	}
	return p.store.Listen(listQuery(coll), func(docs []docstore.Document, err error) {
		if err == nil {
			var lists []Playlist
			lists, err = fromDocuments(docs)
			if err == nil {
				fn(lists)
				return
			}
		}
		p.log.Warn("playlist listener failed", "user", userID, "err", err)
		if onErr != nil {
			onErr(apperr.Remote(errmsg.OpPlaylistListen, err))
		}
	})
}

// ListenCount delivers the number of playlists the user owns.
func (p *Playlists) ListenCount(userID string, fn func(int), onErr func(error)) (*docstore.Listener, error) {
	return p.Listen(userID, func(lists []Playlist) { fn(len(lists)) }, onErr)
}

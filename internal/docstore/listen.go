package docstore

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync"
)

// SnapshotFunc receives the current result of a listened query, or the error
// that prevented computing it.
type SnapshotFunc func(docs []Document, err error)

// Listener delivers query snapshots until canceled.
type Listener struct {
	store *Store
	query Query
	fn    SnapshotFunc

	wake chan struct{}
	done chan struct{}

	mu         sync.Mutex
	stopped    bool
	runner     uint64        // goroutine delivering snapshots
	delivering chan struct{} // closed when the in-flight callback returns
	once       sync.Once
}

// Listen runs q now and again after every committed write to its collection,
// passing each result to fn on a dedicated goroutine. Writes that land while
// a snapshot is being delivered coalesce into a single follow-up snapshot.
func (s *Store) Listen(q Query, fn SnapshotFunc) (*Listener, error) {
	if _, _, err := q.build(); err != nil {
		return nil, err
	}

	l := &Listener{
		store: s,
		query: q,
		fn:    fn,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	set, ok := s.listeners[q.Collection]
	if !ok {
		set = make(map[*Listener]struct{})
		s.listeners[q.Collection] = set
	}
	set[l] = struct{}{}
	s.mu.Unlock()

	l.wake <- struct{}{}
	go l.run()
	return l, nil
}

// Cancel stops the listener. Once it returns, the callback is not running
// and will not run again. It is safe to call more than once and from inside
// the listener's own callback; in that case it returns without waiting for
// the callback that called it.
func (l *Listener) Cancel() {
	l.store.mu.Lock()
	if set, ok := l.store.listeners[l.query.Collection]; ok {
		delete(set, l)
		if len(set) == 0 {
			delete(l.store.listeners, l.query.Collection)
		}
	}
	l.store.mu.Unlock()
	l.stop()
}

func (l *Listener) stop() {
	l.mu.Lock()
	l.stopped = true
	inflight, runner := l.delivering, l.runner
	l.mu.Unlock()
	l.once.Do(func() { close(l.done) })

	if inflight != nil && goroutineID() != runner {
		<-inflight
	}
}

func (l *Listener) poke() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Listener) run() {
	l.mu.Lock()
	l.runner = goroutineID()
	l.mu.Unlock()

	for {
		select {
		case <-l.done:
			return
		case <-l.wake:
		}

		docs, err := l.store.Query(context.Background(), l.query)

		l.mu.Lock()
		if l.stopped {
			l.mu.Unlock()
			return
		}
		delivered := make(chan struct{})
		l.delivering = delivered
		l.mu.Unlock()

		if err != nil {
			l.store.log.Warn("listener query failed", "collection", l.query.Collection, "err", err)
		}
		l.fn(docs, err)

		l.mu.Lock()
		l.delivering = nil
		l.mu.Unlock()
		close(delivered)
	}
}

// goroutineID parses the current goroutine's id from its stack header.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}

// notify wakes every listener of collection.
func (s *Store) notify(collection string) {
	s.mu.Lock()
	set := s.listeners[collection]
	targets := make([]*Listener, 0, len(set))
	for l := range set {
		targets = append(targets, l)
	}
	s.mu.Unlock()

	for _, l := range targets {
		l.poke()
	}
}

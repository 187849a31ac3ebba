// Package miniplayer is the terminal front end of the playback session: a
// bubbletea model that renders the session snapshot and sends commands.
package miniplayer

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/soundshow/internal/errmsg"
	"github.com/llehouerou/soundshow/internal/playback"
)

const (
	defaultWidth = 80
	seekStep     = 5 * time.Second
	volumeStep   = 0.05
	tickInterval = 250 * time.Millisecond
)

// Messages

type (
	// eventMsg reports that the session published an event.
	eventMsg struct{}
	// closedMsg reports that the session closed the subscription.
	closedMsg struct{}
	// tickMsg refreshes the position display.
	tickMsg time.Time
	// lineMsg is a captured stderr line.
	lineMsg string
	// resultMsg carries the outcome of a command.
	resultMsg struct {
		op  errmsg.Op
		err error
	}
)

// Model is the mini-player state.
type Model struct {
	ctx         context.Context
	session     playback.Service
	sub         *playback.Subscription
	snap        playback.Snapshot
	notice      errmsg.Notice
	keys        keyMap
	help        help.Model
	width       int
	lines       <-chan string
	quitOnEmpty bool
	seenTrack   bool
	quitting    bool
}

// Option configures the model.
type Option func(*Model)

// QuitWhenFinished makes the player exit once a loaded track is gone,
// whether it finished or was stopped.
func QuitWhenFinished() Option {
	return func(m *Model) { m.quitOnEmpty = true }
}

// WithMessages shows lines from ch as notices, such as captured stderr.
func WithMessages(ch <-chan string) Option {
	return func(m *Model) { m.lines = ch }
}

// New creates a mini-player bound to session. Commands run with ctx.
func New(ctx context.Context, session playback.Service, opts ...Option) Model {
	m := Model{
		ctx:     ctx,
		session: session,
		sub:     session.Subscribe(),
		snap:    session.Snapshot(),
		keys:    newKeyMap(),
		help:    newHelp(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.seenTrack = m.snap.State != playback.StateEmpty
	return m
}

// Close unsubscribes from the session.
func (m Model) Close() {
	m.session.Unsubscribe(m.sub)
}

// Snapshot returns the last rendered session snapshot.
func (m Model) Snapshot() playback.Snapshot {
	return m.snap
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.sub), waitForLine(m.lines), tick())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil
	case eventMsg:
		return m.refresh(waitForEvent(m.sub))
	case tickMsg:
		return m.refresh(tick())
	case closedMsg:
		m.quitting = true
		return m, tea.Quit
	case lineMsg:
		m.notice = errmsg.Notice{Kind: errmsg.KindError, Text: string(msg)}
		return m, waitForLine(m.lines)
	case resultMsg:
		m.notice = errmsg.NoticeFor(msg.op, msg.err)
		return m.refresh(nil)
	}
	return m, nil
}

func (m Model) refresh(next tea.Cmd) (tea.Model, tea.Cmd) {
	m.snap = m.session.Snapshot()
	if m.snap.State != playback.StateEmpty {
		m.seenTrack = true
	} else if m.quitOnEmpty && m.seenTrack {
		m.quitting = true
		return m, tea.Quit
	}
	return m, next
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.toggle):
		return m, m.run(errmsg.OpPlaybackToggle, m.session.TogglePlayPause)
	case key.Matches(msg, m.keys.seekBack):
		return m, m.seek(m.snap.Position - seekStep)
	case key.Matches(msg, m.keys.seekFwd):
		return m, m.seek(m.snap.Position + seekStep)
	case key.Matches(msg, m.keys.volumeUp):
		return m, m.volume(volumeStep)
	case key.Matches(msg, m.keys.volumeDown):
		return m, m.volume(-volumeStep)
	case key.Matches(msg, m.keys.stop):
		return m, m.run(errmsg.OpPlaybackStop, m.session.Unload)
	case key.Matches(msg, m.keys.quit):
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) seek(pos time.Duration) tea.Cmd {
	return m.run(errmsg.OpPlaybackSeek, func(ctx context.Context) error {
		return m.session.Seek(ctx, pos)
	})
}

func (m Model) volume(delta float64) tea.Cmd {
	level := m.snap.Volume + delta
	return m.run(errmsg.OpPlaybackVolume, func(ctx context.Context) error {
		return m.session.SetVolume(ctx, level)
	})
}

// run executes a session command off the UI goroutine.
func (m Model) run(op errmsg.Op, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return resultMsg{op: op, err: fn(ctx)}
	}
}

func newHelp() help.Model {
	h := help.New()
	h.Styles.ShortKey = artistStyle()
	h.Styles.ShortDesc = helpStyle()
	h.Styles.ShortSeparator = helpStyle()
	return h
}

// waitForEvent blocks until the session publishes anything.
func waitForEvent(sub *playback.Subscription) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-sub.StateChanged:
		case <-sub.TrackChanged:
		case <-sub.StatusChanged:
		case <-sub.VolumeChanged:
		case <-sub.Error:
		case <-sub.Done:
			return closedMsg{}
		}
		return eventMsg{}
	}
}

// waitForLine returns nil when there is nothing to read from.
func waitForLine(ch <-chan string) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		line, ok := <-ch
		if !ok {
			return nil
		}
		return lineMsg(line)
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

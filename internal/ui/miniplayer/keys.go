package miniplayer

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the mini-player.
type keyMap struct {
	toggle     key.Binding
	seekBack   key.Binding
	seekFwd    key.Binding
	volumeUp   key.Binding
	volumeDown key.Binding
	stop       key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		toggle:     key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "play/pause")),
		seekBack:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "-5s")),
		seekFwd:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "+5s")),
		volumeUp:   key.NewBinding(key.WithKeys("+", "=", "up"), key.WithHelp("+", "vol up")),
		volumeDown: key.NewBinding(key.WithKeys("-", "down"), key.WithHelp("-", "vol down")),
		stop:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		quit:       key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.seekBack, k.seekFwd, k.volumeUp, k.volumeDown, k.stop, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.toggle, k.stop},
		{k.seekBack, k.seekFwd},
		{k.volumeUp, k.volumeDown},
		{k.quit},
	}
}

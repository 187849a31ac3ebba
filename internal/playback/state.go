package playback

// State represents the session state.
//
//	Empty ──load──▶ Loading ──ok──▶ Playing ◀──toggle──▶ Paused
//	  ▲                │                 │                  │
//	  └──── failure ───┘                 └── unload/finish ─┴──▶ Empty
type State int

const (
	StateEmpty State = iota
	StateLoading
	StatePlaying
	StatePaused
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "Empty"
	case StateLoading:
		return "Loading"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// IsActive returns true if a track is loaded (playing or paused).
func (s State) IsActive() bool {
	return s == StatePlaying || s == StatePaused
}

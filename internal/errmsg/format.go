// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import (
	"errors"
	"fmt"

	"github.com/llehouerou/soundshow/internal/apperr"
)

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Catalog operations
	OpCatalogLoad   Op = "load tracks"
	OpCatalogTop    Op = "load top tracks"
	OpCatalogSeed   Op = "import tracks"
	OpPlayCountBump Op = "update play count"

	// Playlist operations
	OpPlaylistCreate   Op = "create playlist"
	OpPlaylistListen   Op = "load playlists"
	OpPlaylistAddTrack Op = "add track to playlist"
	OpPlaylistTracks   Op = "load playlist tracks"
	OpPlaylistLoad     Op = "load playlist"

	// Playback operations
	OpPlaybackStart  Op = "start playback"
	OpPlaybackToggle Op = "toggle playback"
	OpPlaybackSeek   Op = "seek"
	OpPlaybackVolume Op = "set volume"
	OpPlaybackStop   Op = "stop playback"

	// Account operations
	OpSignUp        Op = "sign up"
	OpSignIn        Op = "sign in"
	OpSignOut       Op = "sign out"
	OpProfileUpdate Op = "update profile"

	// Initialization
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}

// Kind classifies a notice for presentation.
type Kind int

const (
	KindInfo Kind = iota
	KindError
)

// Notice is a short message shown to the user after an action.
type Notice struct {
	Kind Kind
	Text string
}

// IsError returns true for error notices.
func (n Notice) IsError() bool {
	return n.Kind == KindError
}

// Info returns an informational notice.
func Info(format string, args ...any) Notice {
	return Notice{Kind: KindInfo, Text: fmt.Sprintf(format, args...)}
}

// NoticeFor converts an operation failure into a notice.
// Validation and not-authenticated errors keep their own wording since they
// are addressed to the user rather than reporting a fault.
func NoticeFor(op Op, err error) Notice {
	var ve *apperr.ValidationError
	switch {
	case err == nil:
		return Notice{}
	case errors.As(err, &ve):
		return Notice{Kind: KindError, Text: ve.Message}
	case errors.Is(err, apperr.ErrNotAuthenticated):
		return Notice{Kind: KindError, Text: "You are not signed in."}
	default:
		return Notice{Kind: KindError, Text: Format(op, err)}
	}
}

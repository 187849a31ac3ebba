// Package apperr defines the error taxonomy shared by soundshow services.
//
// Callers classify failures with errors.Is and errors.As:
//
//	ErrNotAuthenticated - operation attempted with no signed-in user
//	ErrRemote           - document store read/write/listen failure
//	ErrPlaybackEngine   - stream could not be loaded or decoded
//	ErrAlreadyMember    - informational, track already in playlist
//	ErrNotFound         - document does not exist
//	*ValidationError    - user input rejected before any remote call
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrRemote           = errors.New("remote operation failed")
	ErrPlaybackEngine   = errors.New("playback engine failure")
	ErrAlreadyMember    = errors.New("track already in playlist")
	ErrNotFound         = errors.New("not found")
)

// ValidationError reports invalid user input on a named field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid returns a ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// remoteError marks a store failure while keeping the cause reachable.
type remoteError struct {
	op  string
	err error
}

func (e *remoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *remoteError) Unwrap() []error {
	return []error{ErrRemote, e.err}
}

// Remote wraps a store error so that errors.Is(err, ErrRemote) holds.
// Errors already classified as remote, not-found or nil pass through unchanged.
func Remote[S ~string](op S, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRemote) || errors.Is(err, ErrNotFound) {
		return err
	}
	return &remoteError{op: string(op), err: err}
}

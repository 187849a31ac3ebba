// Package auth tracks the signed-in user.
package auth

import "context"

// User is a signed-in account.
type User struct {
	ID          string `json:"-"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Label returns the display name, or the email when none is set.
func (u User) Label() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// Provider is the identity provider seen by the rest of the app.
type Provider interface {
	// CurrentUser returns the signed-in user, or nil.
	CurrentUser() *User
	// OnAuthStateChanged calls fn with the current user now and after every
	// sign-in, sign-out or profile change. The returned func unregisters fn.
	OnAuthStateChanged(fn func(*User)) (cancel func())
	// UpdateProfile changes the signed-in user's display name.
	UpdateProfile(ctx context.Context, displayName string) (User, error)
}

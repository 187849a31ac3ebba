package main

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// SignUp creates an account and signs it in.
func (r *Runner) SignUp(ctx context.Context, cmd *cli.Command) error {
	if err := r.setup(ctx, cmd); err != nil {
		return err
	}
	u, err := r.auth.SignUp(ctx, cmd.String("email"), cmd.String("name"))
	if err != nil {
		return err
	}
	return r.writePlainln("Welcome, %s!", u.Label())
}

// SignIn signs in an existing account.
func (r *Runner) SignIn(ctx context.Context, cmd *cli.Command) error {
	if err := r.setup(ctx, cmd); err != nil {
		return err
	}
	u, err := r.auth.SignIn(ctx, cmd.String("email"))
	if err != nil {
		return err
	}
	return r.writePlainln("Signed in as %s", u.Label())
}

// SignOut ends the session.
func (r *Runner) SignOut(ctx context.Context, cmd *cli.Command) error {
	if err := r.setup(ctx, cmd); err != nil {
		return err
	}
	if r.auth.CurrentUser() == nil {
		return r.writePlainln("Not signed in.")
	}
	if err := r.auth.SignOut(ctx); err != nil {
		return err
	}
	return r.writePlainln("Signed out.")
}

// Whoami prints the signed-in account and how many playlists it owns.
func (r *Runner) Whoami(ctx context.Context, cmd *cli.Command) error {
	if err := r.setup(ctx, cmd); err != nil {
		return err
	}
	u := r.auth.CurrentUser()
	if u == nil {
		return r.writePlainln("Not signed in.")
	}
	a, err := r.openApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	n, err := waitForPlaylistCount(ctx, a)
	if err != nil {
		return err
	}
	if err := r.writePlainln("%s <%s>", u.Label(), u.Email); err != nil {
		return err
	}
	if n == 1 {
		return r.writePlainln("1 playlist created")
	}
	return r.writePlainln("%s playlists created", humanize.Comma(int64(n)))
}

// UpdateProfile changes the display name.
func (r *Runner) UpdateProfile(ctx context.Context, cmd *cli.Command) error {
	if err := r.setup(ctx, cmd); err != nil {
		return err
	}
	u, err := r.auth.UpdateProfile(ctx, cmd.String("name"))
	if err != nil {
		return err
	}
	return r.writePlainln("Display name set to %s", u.DisplayName)
}

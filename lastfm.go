package main

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/llehouerou/soundshow/internal/lastfm"
)

// authWait bounds how long lastfm-auth waits for the browser callback.
const authWait = 5 * time.Minute

// LastfmAuth links a Last.fm account through the web callback flow and
// stores the session for scrobbling.
func (r *Runner) LastfmAuth(ctx context.Context, cmd *cli.Command) error {
	if err := r.setup(ctx, cmd); err != nil {
		return err
	}

	if cmd.Bool("unlink") {
		if err := r.state.DeleteLastfmSession(ctx); err != nil {
			return err
		}
		return r.writePlainln("Last.fm account unlinked.")
	}

	if !r.cfg.HasLastfmConfig() {
		return errors.New("set lastfm.api_key and lastfm.api_secret in config.toml first")
	}
	client := lastfm.New(r.cfg.Lastfm.APIKey, r.cfg.Lastfm.APISecret)

	cb, err := lastfm.ListenCallback(r.cfg.Lastfm.CallbackAddr)
	if err != nil {
		return err
	}
	defer cb.Close()

	authURL := client.GetAuthURL(cb.URL())
	if err := lastfm.OpenBrowser(authURL); err != nil {
		r.logger.Debug("open browser failed", "err", err)
	}
	if err := r.writePlainln("Authorize soundshow in your browser:\n  %s", authURL); err != nil {
		return err
	}

	token, err := cb.Wait(ctx, authWait)
	if err != nil {
		return err
	}

	username, sessionKey, err := client.GetSession(token)
	if err != nil {
		return err
	}
	if err := r.state.SaveLastfmSession(ctx, username, sessionKey); err != nil {
		return err
	}
	return r.writePlainln("Scrobbling as %s.", username)
}

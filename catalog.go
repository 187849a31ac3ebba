package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/llehouerou/soundshow/internal/apperr"
	"github.com/llehouerou/soundshow/internal/catalog"
)

// Tracks lists the whole catalog.
func (r *Runner) Tracks(ctx context.Context, cmd *cli.Command) error {
	if err := r.setup(ctx, cmd); err != nil {
		return err
	}
	tracks, err := catalog.New(r.store).All(ctx)
	if err != nil {
		return err
	}
	return r.writeTracks(tracks)
}

// Top lists the most played tracks.
func (r *Runner) Top(ctx context.Context, cmd *cli.Command) error {
	if err := r.setup(ctx, cmd); err != nil {
		return err
	}
	n := int(cmd.Int("limit"))
	if n <= 0 {
		n = r.cfg.GetCatalogConfig().TopN
	}
	tracks, err := catalog.New(r.store).Top(ctx, n)
	if err != nil {
		return err
	}
	return r.writeTracks(tracks)
}

// Search lists the tracks matching the query words.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return apperr.Invalid("query", "Please enter something to search for.")
	}
	if err := r.setup(ctx, cmd); err != nil {
		return err
	}
	tracks, err := catalog.New(r.store).All(ctx)
	if err != nil {
		return err
	}
	return r.writeTracks(catalog.Search(tracks, query))
}

func (r *Runner) writeTracks(tracks []catalog.Track) error {
	if len(tracks) == 0 {
		return r.writePlainln("No tracks.")
	}
	for _, t := range tracks {
		plays := humanize.Comma(t.PlayCount) + " plays"
		if t.PlayCount == 1 {
			plays = "1 play"
		}
		if err := r.writePlainln("%-24s  %-40s  %s", t.ID, truncate(t.DisplayName(), 40), plays); err != nil {
			return err
		}
	}
	return nil
}

// resolveTrack accepts a track id, or a query matching exactly one track.
func (r *Runner) resolveTrack(ctx context.Context, cat *catalog.Catalog, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", apperr.Invalid("track", "Give a track id or words from its title, artist or genre.")
	}
	if _, err := cat.Get(ctx, ref); err == nil {
		return ref, nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return "", err
	}

	all, err := cat.All(ctx)
	if err != nil {
		return "", err
	}
	matches := catalog.Filter(all, ref)
	switch len(matches) {
	case 0:
		return "", apperr.Invalid("track", fmt.Sprintf("No track matches %q.", ref))
	case 1:
		return matches[0].ID, nil
	default:
		return "", apperr.Invalid("track",
			fmt.Sprintf("%d tracks match %q; use a track id from 'soundshow search'.", len(matches), ref))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

package main

import "github.com/urfave/cli/v3"

func tracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tracks",
		Usage:  "List every track in the catalog",
		Action: r.Tracks,
	}
}

func topCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "top",
		Usage: "List the most played tracks",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Number of tracks (default: catalog.top_n)",
			},
		},
		Action: r.Top,
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Find tracks by title, artist or genre (typos and accents tolerated)",
		ArgsUsage: "<query>",
		Action:    r.Search,
	}
}

func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play a track in the mini-player",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "track"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "stay",
				Usage: "Keep the player open after the track ends",
			},
		},
		Action: r.Play,
	}
}

func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Manage your playlists",
		Action:  r.PlaylistsList,
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List your playlists",
				Action: r.PlaylistsList,
			},
			{
				Name:      "create",
				Usage:     "Create an empty playlist",
				ArgsUsage: "<name>",
				Action:    r.PlaylistsCreate,
			},
			{
				Name:  "show",
				Usage: "List the tracks of a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
				},
				Action: r.PlaylistsShow,
			},
			{
				Name:  "add",
				Usage: "Add a track to a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
					&cli.StringArg{Name: "track"},
				},
				Action: r.PlaylistsAdd,
			},
		},
	}
}

func signUpCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "signup",
		Usage: "Create an account and sign in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
			&cli.StringFlag{Name: "name", Usage: "Display name", Required: true},
		},
		Action: r.SignUp,
	}
}

func signInCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "signin",
		Usage: "Sign in to an existing account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true},
		},
		Action: r.SignIn,
	}
}

func signOutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "signout",
		Usage:  "Sign out",
		Action: r.SignOut,
	}
}

func whoamiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "Show the signed-in account",
		Action: r.Whoami,
	}
}

func profileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "profile",
		Usage: "Change your display name",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "New display name", Required: true},
		},
		Action: r.UpdateProfile,
	}
}

func lastfmAuthCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "lastfm-auth",
		Usage: "Link a Last.fm account for scrobbling",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "unlink", Usage: "Forget the linked account"},
		},
		Action: r.LastfmAuth,
	}
}

// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func kindFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "kind",
		Aliases:  []string{"k"},
		Usage:    "Resource kind (channel, playlist or video)",
		Required: required,
	}
}

func idFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "id",
		Usage:    "YouTube ID of the resource",
		Required: true,
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

// setupCommand handles setup operations for the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage YouTube Data API credentials",
		Commands: []*cli.Command{
			{
				Name:    "youtube",
				Aliases: []string{"yt", "login"},
				Usage:   "Authorize with Google OAuth2 and store the refresh token in the config file",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
					},
				},
				Action: r.AuthYouTube,
			},
			{
				Name:   "status",
				Usage:  "Show which credentials are configured",
				Action: r.AuthStatus,
			},
		},
	}
}

// trackCommand starts tracking resources
func trackCommand(r *Runner) *cli.Command {
	sub := func(name, usage string) *cli.Command {
		return &cli.Command{
			Name:  name,
			Usage: usage,
			Flags: []cli.Flag{
				idFlag(),
				&cli.BoolFlag{
					Name:  "disabled",
					Usage: "Track without enabling sync",
				},
			},
			Action: r.Track,
		}
	}

	return &cli.Command{
		Name:  "track",
		Usage: "Start tracking a channel, playlist or video",
		Commands: []*cli.Command{
			sub("channel", "Track a channel's uploads"),
			sub("playlist", "Track a playlist"),
			sub("video", "Track a single video"),
		},
	}
}

func untrackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "untrack",
		Usage:  "Stop tracking a resource and forget its videos",
		Flags:  []cli.Flag{kindFlag(true), idFlag()},
		Action: r.Untrack,
	}
}

func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List tracked resources",
		Flags:   append([]cli.Flag{kindFlag(false)}, outputFlags()...),
		Action:  r.List,
	}
}

func toggleCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "toggle",
		Usage: "Enable or disable sync for a resource or one of its videos",
		Flags: []cli.Flag{
			kindFlag(true),
			idFlag(),
			&cli.StringFlag{
				Name:  "video",
				Usage: "YouTube ID of a video inside the channel or playlist",
			},
			&cli.BoolFlag{
				Name:  "disable",
				Usage: "Disable sync instead of enabling it",
			},
		},
		Action: r.Toggle,
	}
}

// syncCommand reconciles tracked resources against YouTube
func syncCommand(r *Runner) *cli.Command {
	sub := func(name, usage string) *cli.Command {
		return &cli.Command{
			Name:  name,
			Usage: usage,
			Flags: append([]cli.Flag{
				idFlag(),
				&cli.BoolFlag{
					Name:  "dry-run",
					Usage: "Reconcile and report without saving",
				},
			}, outputFlags()...),
			Action: r.Sync,
		}
	}

	return &cli.Command{
		Name:  "sync",
		Usage: "Reconcile tracked resources with their remote state",
		Commands: []*cli.Command{
			sub("channel", "Sync a tracked channel"),
			sub("playlist", "Sync a tracked playlist"),
			sub("video", "Sync a tracked video"),
			{
				Name:  "all",
				Usage: "Sync every tracked resource concurrently",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent workers (default from config)",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Reconcile and report without saving",
					},
				}, outputFlags()...),
				Action: r.SyncAll,
			},
		},
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recorded sync runs, newest first",
		Flags: append([]cli.Flag{
			kindFlag(false),
			&cli.StringFlag{
				Name:  "id",
				Usage: "Only runs for this YouTube ID",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 20,
			},
		}, outputFlags()...),
		Action: r.History,
	}
}

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a tracked resource and its videos",
		Flags: []cli.Flag{
			kindFlag(true),
			idFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (json, csv, markdown, txt)",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file path (default: {id}_videos.{ext})",
			},
			&cli.BoolFlag{
				Name:  "stdout",
				Usage: "Write to stdout instead of a file",
			},
		},
		Action: r.Export,
	}
}

// apiCommand handles direct YouTube Data API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct YouTube Data API calls for debugging",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET against the Data API base URL, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive syncing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for syncing tracked resources",
		Action:  r.TUI,
	}
}

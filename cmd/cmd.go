// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/jukebox/internal/formatter"
	"github.com/desertthunder/jukebox/internal/ui"
	"github.com/urfave/cli/v3"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
			Sources: cli.EnvVars("JUKEBOX_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Base URL of a running jukebox server",
			Value:   "http://127.0.0.1:3000",
			Sources: cli.EnvVars("JUKEBOX_SERVER"),
		},
		&cli.StringFlag{
			Name:    "password",
			Aliases: []string{"p"},
			Usage:   "Admin password for playback control and removal",
			Sources: cli.EnvVars("JUKEBOX_ADMIN_PASSWORD"),
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
}

// serveCommand runs the HTTP server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the jukebox HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Interface to listen on (overrides server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on (overrides server.port)",
			},
			&cli.StringFlag{
				Name:  "playlist-id",
				Usage: "Use an existing Spotify playlist as the radio playlist",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize the history database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write an example config.toml",
				Action: r.SetupConfig,
			},
		},
	}
}

// authURLCommand prints the login URL of a running server.
func authURLCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth-url",
		Usage: "Print the Spotify login URL of the jukebox server",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the URL in the default browser",
			},
		},
		Action: r.AuthURL,
	}
}

func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show whether the server holds Spotify tokens",
		Action: r.Status,
	}
}

// tokenCommand hands an authorization code to the server.
func tokenCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Exchange an authorization code on the server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "code",
				Usage:    "Authorization code from the Spotify redirect",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "redirect-uri",
				Usage: "Redirect URI registered with Spotify (defaults to spotify.redirect_uri)",
			},
		},
		Action: r.Token,
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search Spotify tracks through the server",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results",
				Value: 10,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Search,
	}
}

// queueCommand groups the queue operations.
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "queue",
		Aliases: []string{"q"},
		Usage:   "Queue operations",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "Show the reconciled queue",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, csv, markdown or json",
						Value:   string(formatter.FormatText),
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (defaults to stdout)",
					},
				},
				Action: r.QueueList,
			},
			{
				Name:  "add",
				Usage: "Queue a song by name, track URI or open.spotify.com link",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "song"},
				},
				Action: r.QueueAdd,
			},
			{
				Name:    "remove",
				Aliases: []string{"rm"},
				Usage:   "Remove a track by URI, link or id (needs --password)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "track"},
				},
				Action: r.QueueRemove,
			},
		},
	}
}

// controlCommand runs a playback action.
func controlCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "control",
		Usage: "Playback control: play, pause, next or volume (needs --password)",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "action"},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "volume",
				Usage: "Volume percent for the volume action",
				Value: -1,
			},
		},
		Action: r.Control,
	}
}

func nowPlayingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "now-playing",
		Aliases: []string{"np"},
		Usage:   "Show the current track",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.NowPlaying,
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent jukebox events, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of events (max 100)",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Only events of this kind: enqueue, remove or control",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text or json",
				Value:   string(formatter.FormatText),
			},
		},
		Action: r.History,
	}
}

// watchCommand launches the terminal console.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watch",
		Aliases: []string{"ui"},
		Usage:   "Live queue console (control keys need --password)",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Polling interval",
				Value: ui.DefaultInterval,
			},
		},
		Action: r.Watch,
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the jukebox server",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to the server, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
		},
	}
}

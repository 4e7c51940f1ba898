// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// keyFlag lets the caller put their own YouTube API key first in the pool.
func keyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "key",
		Aliases: []string{"k"},
		Usage:   "Your own YouTube API key, tried before the configured ones",
		Sources: cli.EnvVars("MELODYSYNCER_YOUTUBE_KEY"),
	}
}

func remoteFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "remote",
		Usage: "Base URL of a running melodysyncer server to ask instead of resolving locally",
	}
}

// serveCommand runs the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Interface to listen on (overrides config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// songCommand resolves one track.
func songCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "song",
		Aliases:   []string{"track"},
		Usage:     "Find the YouTube video for a Spotify track",
		ArgsUsage: "[spotify track id]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "id",
				Usage: "Spotify track ID",
			},
			keyFlag(),
			remoteFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Song,
	}
}

// playlistCommand resolves every track of a playlist.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "playlist",
		Usage:     "Find YouTube videos for every track of a Spotify playlist",
		ArgsUsage: "[spotify playlist id]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "id",
				Usage: "Spotify playlist ID",
			},
			keyFlag(),
			remoteFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, csv, markdown or json",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the export to this file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Write the export to {playlist id}_youtube.{ext}",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Hide per-track progress",
			},
		},
		Action: r.Playlist,
	}
}

// analyticsCommand prints the usage counters.
func analyticsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "analytics",
		Usage: "Show conversion counters from the analytics store",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
			&cli.IntFlag{
				Name:  "recent",
				Usage: "Also list this many recent conversions (sqlite driver only)",
			},
		},
		Action: r.Analytics,
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config.toml populated with defaults",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "status",
						Usage: "Show applied migrations without changing anything",
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Revert the most recent migration",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

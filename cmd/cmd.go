// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, csv or markdown",
		Value:   "text",
	}
}

func pageFlags(limit int) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "offset",
			Usage: "Index of the first result",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of results to return",
			Value: limit,
		},
	}
}

// setupCommand creates the config file and initializes the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and initialize the database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   configPath,
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles the PKCE login and the persisted session.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in to Spotify and manage the session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize plcover in the browser and wait for the redirect",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL without opening a browser",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the redirect",
						Value: 5 * time.Minute,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "complete",
				Usage: "Finish a login by pasting the URL the browser was redirected to",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "url",
						Usage:    "Full redirect URL including code and state",
						Required: true,
					},
				},
				Action: r.AuthComplete,
			},
			{
				Name:   "logout",
				Usage:  "Remove the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the session state",
				Flags:  outputFlags(),
				Action: r.AuthStatus,
			},
		},
	}
}

// albumsCommand handles album search.
func albumsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "albums",
		Usage: "Find albums",
		Commands: []*cli.Command{
			{
				Name:  "search",
				Usage: "Search the catalog for albums",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "query",
					},
				},
				Flags:  append(pageFlags(20), outputFlags()...),
				Action: r.AlbumsSearch,
			},
		},
	}
}

// playlistsCommand handles the user's playlists.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "Browse your playlists",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List your playlists",
				Flags:  append(pageFlags(20), outputFlags()...),
				Action: r.PlaylistsList,
			},
			{
				Name:  "albums",
				Usage: "List the distinct albums of a playlist's tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "playlist-id",
					},
				},
				Flags:  append(outputFlags(), formatFlag()),
				Action: r.PlaylistsAlbums,
			},
		},
	}
}

// selectCommand edits the album selection.
func selectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "select",
		Aliases: []string{"sel"},
		Usage:   "Pick up to four albums for the cover",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add an album by id",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "album-id",
					},
				},
				Action: r.SelectAdd,
			},
			{
				Name:    "remove",
				Aliases: []string{"rm"},
				Usage:   "Remove an album by id",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "album-id",
					},
				},
				Action: r.SelectRemove,
			},
			{
				Name:  "move",
				Usage: "Move the album at one grid position (1-4) to another",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "from",
					},
					&cli.StringArg{
						Name: "to",
					},
				},
				Action: r.SelectMove,
			},
			{
				Name:   "show",
				Usage:  "Show the selection as a grid",
				Flags:  outputFlags(),
				Action: r.SelectShow,
			},
			{
				Name:  "export",
				Usage: "Export the selection as text, CSV or Markdown",
				Flags: []cli.Flag{
					formatFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (defaults to stdout)",
					},
					&cli.StringFlag{
						Name:  "cover",
						Usage: "Cover image to reference from Markdown output",
					},
				},
				Action: r.SelectExport,
			},
			{
				Name:   "clear",
				Usage:  "Remove every album",
				Action: r.SelectClear,
			},
		},
	}
}

// coverCommand renders and uploads the composite.
func coverCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cover",
		Usage: "Render the selection as a cover image",
		Commands: []*cli.Command{
			{
				Name:  "render",
				Usage: "Write the composite to a JPEG file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "cover.jpg",
					},
					&cli.FloatFlag{
						Name:  "quality",
						Usage: "JPEG quality in (0, 1]",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "size",
						Usage: "Edge length in pixels (defaults to cover.size)",
					},
				},
				Action: r.CoverRender,
			},
			{
				Name:  "upload",
				Usage: "Replace a playlist's cover with the composite",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "playlist",
						Aliases:  []string{"p"},
						Usage:    "Playlist ID",
						Required: true,
					},
					&cli.FloatFlag{
						Name:  "quality",
						Usage: "JPEG quality in (0, 1] (defaults to cover.quality)",
					},
					&cli.BoolFlag{
						Name:  "auto-quality",
						Usage: "Lower the quality until the image fits the upload limit",
					},
				},
				Action: r.CoverUpload,
			},
		},
	}
}

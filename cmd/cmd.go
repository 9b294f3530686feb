// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand runs the MCP tool server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the MCP tool server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides config)",
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Requests per second per server before throttling",
				Value: 25,
			},
		},
		Action: r.Serve,
	}
}

// mcpCommand drives the outbound session client against a gateway.
func mcpCommand(r *Runner) *cli.Command {
	tokenFlag := &cli.StringFlag{
		Name:  "token",
		Usage: "Spotify access token (defaults to config credentials)",
	}
	endpointFlag := &cli.StringFlag{
		Name:  "endpoint",
		Usage: "MCP endpoint URL (defaults to config)",
	}

	return &cli.Command{
		Name:  "mcp",
		Usage: "Session client operations against an MCP gateway",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Open a session and print the handshake result",
				Flags: []cli.Flag{tokenFlag, endpointFlag,
					&cli.BoolFlag{
						Name:  "keep",
						Usage: "Leave the session open and print its id",
					},
				},
				Action: r.MCPInit,
			},
			{
				Name:  "tools",
				Usage: "List the tools the gateway advertises",
				Flags: []cli.Flag{tokenFlag, endpointFlag,
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.MCPTools,
			},
			{
				Name:  "call",
				Usage: "Invoke a tool by name",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{tokenFlag, endpointFlag,
					&cli.StringFlag{
						Name:    "args",
						Aliases: []string{"a"},
						Usage:   "JSON object of tool arguments",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.MCPCall,
			},
			{
				Name:  "close",
				Usage: "Close a previously opened session",
				Flags: []cli.Flag{tokenFlag, endpointFlag,
					&cli.StringFlag{
						Name:     "session",
						Usage:    "Session id to close",
						Required: true,
					},
				},
				Action: r.MCPClose,
			},
		},
	}
}

// recommendCommand runs the recommendation pipeline.
func recommendCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "recommend",
		Usage: "Generate track recommendations from preferences",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "genre",
				Aliases: []string{"g"},
				Usage:   "Preferred genre (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:    "artist",
				Aliases: []string{"a"},
				Usage:   "Favorite artist (repeatable)",
			},
			&cli.StringFlag{
				Name:  "mood",
				Usage: "Listening mood, e.g. 'late night drive'",
			},
			&cli.StringFlag{
				Name:  "era",
				Usage: "Preferred era, e.g. '90s'",
			},
			&cli.StringFlag{
				Name:  "playlist",
				Usage: "Create a Spotify playlist with this name from the matches",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Recommend,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "spotify",
				Usage: "Authenticate with Spotify using OAuth2",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.AuthSpotify,
			},
			{
				Name:   "status",
				Usage:  "Check the configured credentials against Spotify",
				Action: r.AuthStatus,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive tool browsing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive tool browser",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "token",
				Usage: "Spotify access token (defaults to config credentials)",
			},
			&cli.StringFlag{
				Name:  "endpoint",
				Usage: "MCP endpoint URL (defaults to config)",
			},
		},
		Action: r.TUI,
	}
}

// setupCommand bootstraps a config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create a starter configuration file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

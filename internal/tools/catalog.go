package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mixtape-sh/mixtape/internal/services"
	"github.com/mixtape-sh/mixtape/internal/shared"
)

// SpotifyFactory builds a Spotify client authenticated with the credential
// carried in ctx. Each request gets its own client so callers never share
// tokens.
type SpotifyFactory func(ctx context.Context) (*services.SpotifyService, error)

// NewSpotifyFactory returns the standard factory backed by the configured
// OAuth application credentials.
func NewSpotifyFactory(cfg shared.SpotifyConfig) SpotifyFactory {
	return func(ctx context.Context) (*services.SpotifyService, error) {
		credential, ok := shared.CredentialFrom(ctx)
		if !ok {
			return nil, fmt.Errorf("%w: no credential in request context", shared.ErrNotAuthenticated)
		}

		svc, err := services.NewSpotifyService(map[string]string{
			"client_id":     cfg.ClientID,
			"client_secret": cfg.ClientSecret,
			"redirect_uri":  cfg.RedirectURI,
		})
		if err != nil {
			return nil, err
		}

		if err := svc.Authenticate(ctx, map[string]string{"access_token": credential}); err != nil {
			return nil, err
		}

		return svc, nil
	}
}

// CatalogOpts holds the collaborators the tool catalog wraps.
type CatalogOpts struct {
	Spotify    SpotifyFactory
	Insights   *services.InsightsService
	Generative *services.GenerativeService
	Logger     *log.Logger
}

type searchArgs struct {
	Query string `json:"query" jsonschema:"description=Free-text catalog search query"`
	Kind  string `json:"kind,omitempty" jsonschema:"description=Result kinds (track artist album) joined by commas"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum results (1-50)"`
}

type createPlaylistArgs struct {
	Name        string `json:"name" jsonschema:"description=Playlist name"`
	Description string `json:"description,omitempty" jsonschema:"description=Playlist description"`
	Public      bool   `json:"public,omitempty" jsonschema:"description=Whether the playlist is public"`
}

type addTracksArgs struct {
	PlaylistID string   `json:"playlist_id" jsonschema:"description=Target playlist id"`
	URIs       []string `json:"uris" jsonschema:"description=Spotify track URIs to append"`
}

type topItemsArgs struct {
	Kind  string `json:"kind" jsonschema:"description=artists or tracks"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum results (1-50)"`
}

type playArgs struct {
	URIs []string `json:"uris,omitempty" jsonschema:"description=Track URIs to play; empty resumes current playback"`
}

type queueArgs struct {
	URI string `json:"uri" jsonschema:"description=Spotify track URI to enqueue"`
}

type similarArtistsArgs struct {
	Artist string `json:"artist" jsonschema:"description=Seed artist name"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum similar artists"`
}

type tagTopTracksArgs struct {
	Tag   string `json:"tag" jsonschema:"description=Tag or genre name"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum tracks"`
}

type generateArgs struct {
	Prompt string `json:"prompt" jsonschema:"description=Prompt for the language model"`
}

// NewCatalog registers the gateway's remote procedures and returns the
// populated registry.
func NewCatalog(opts CatalogOpts) *Registry {
	registry := NewRegistry()
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	registry.Register(Definition{
		Name:        "spotify_search",
		Description: "Search the Spotify catalog for tracks, artists, or albums.",
		InputSchema: SchemaFor(&searchArgs{}),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args searchArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
			}
			svc, err := opts.Spotify(ctx)
			if err != nil {
				return nil, err
			}
			return svc.Search(ctx, args.Query, args.Kind, args.Limit)
		},
	})

	registry.Register(Definition{
		Name:        "spotify_create_playlist",
		Description: "Create a playlist for the authenticated listener.",
		InputSchema: SchemaFor(&createPlaylistArgs{}),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args createPlaylistArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
			}
			svc, err := opts.Spotify(ctx)
			if err != nil {
				return nil, err
			}
			user, err := svc.UserProfile(ctx)
			if err != nil {
				return nil, err
			}
			return svc.CreatePlaylist(ctx, user.ID, args.Name, args.Description, args.Public)
		},
	})

	registry.Register(Definition{
		Name:        "spotify_add_tracks",
		Description: "Append tracks to an existing playlist.",
		InputSchema: SchemaFor(&addTracksArgs{}),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args addTracksArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
			}
			svc, err := opts.Spotify(ctx)
			if err != nil {
				return nil, err
			}
			if err := svc.AddTracks(ctx, args.PlaylistID, args.URIs); err != nil {
				return nil, err
			}
			return fmt.Sprintf("added %d tracks to %s", len(args.URIs), args.PlaylistID), nil
		},
	})

	registry.Register(Definition{
		Name:        "spotify_top_items",
		Description: "Fetch the listener's most played artists or tracks.",
		InputSchema: SchemaFor(&topItemsArgs{}),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args topItemsArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
			}
			svc, err := opts.Spotify(ctx)
			if err != nil {
				return nil, err
			}
			return svc.TopItems(ctx, args.Kind, args.Limit)
		},
	})

	registry.Register(Definition{
		Name:        "spotify_play",
		Description: "Start or resume playback on the active device.",
		InputSchema: SchemaFor(&playArgs{}),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args playArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
			}
			svc, err := opts.Spotify(ctx)
			if err != nil {
				return nil, err
			}
			return nil, svc.Play(ctx, args.URIs)
		},
	})

	registry.Register(Definition{
		Name:        "spotify_pause",
		Description: "Pause playback on the active device.",
		InputSchema: SchemaFor(&struct{}{}),
		Handler: func(ctx context.Context, _ json.RawMessage) (any, error) {
			svc, err := opts.Spotify(ctx)
			if err != nil {
				return nil, err
			}
			return nil, svc.Pause(ctx)
		},
	})

	registry.Register(Definition{
		Name:        "spotify_next",
		Description: "Skip to the next track on the active device.",
		InputSchema: SchemaFor(&struct{}{}),
		Handler: func(ctx context.Context, _ json.RawMessage) (any, error) {
			svc, err := opts.Spotify(ctx)
			if err != nil {
				return nil, err
			}
			return nil, svc.Next(ctx)
		},
	})

	registry.Register(Definition{
		Name:        "spotify_queue",
		Description: "Add a track to the playback queue.",
		InputSchema: SchemaFor(&queueArgs{}),
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args queueArgs
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
			}
			svc, err := opts.Spotify(ctx)
			if err != nil {
				return nil, err
			}
			return nil, svc.Queue(ctx, args.URI)
		},
	})

	if opts.Insights != nil {
		registry.Register(Definition{
			Name:        "insights_similar_artists",
			Description: "Find artists similar to a seed artist.",
			InputSchema: SchemaFor(&similarArtistsArgs{}),
			Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var args similarArtistsArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
				}
				return opts.Insights.SimilarArtists(ctx, args.Artist, args.Limit)
			},
		})

		registry.Register(Definition{
			Name:        "insights_tag_top_tracks",
			Description: "Fetch the most played tracks for a tag or genre.",
			InputSchema: SchemaFor(&tagTopTracksArgs{}),
			Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var args tagTopTracksArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
				}
				return opts.Insights.TagTopTracks(ctx, args.Tag, args.Limit)
			},
		})
	}

	if opts.Generative != nil {
		registry.Register(Definition{
			Name:        "generate_text",
			Description: "Generate free-form text from a prompt.",
			InputSchema: SchemaFor(&generateArgs{}),
			Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
				var args generateArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
				}
				return opts.Generative.Generate(ctx, args.Prompt)
			},
		})
	}

	logger.Debug("tool catalog registered", "tools", len(registry.defs))
	return registry
}

package main

import (
	"context"
	"fmt"

	"github.com/mixtape-sh/mixtape/internal/pipeline"
	"github.com/mixtape-sh/mixtape/internal/services"
	"github.com/mixtape-sh/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

// Recommend runs the recommendation pipeline and prints the suggestions.
func (r *Runner) Recommend(ctx context.Context, cmd *cli.Command) error {
	if r.generative == nil {
		return fmt.Errorf("%w: generative api_key must be set in config.toml", shared.ErrMissingCredentials)
	}

	prefs := services.Preferences{
		Genres:  cmd.StringSlice("genre"),
		Artists: cmd.StringSlice("artist"),
		Mood:    cmd.String("mood"),
		Era:     cmd.String("era"),
	}

	playlistName := cmd.String("playlist")

	var catalog pipeline.Catalog
	if r.spotify != nil && r.config.Credentials.Spotify.AccessToken != "" {
		if err := r.spotify.Authenticate(ctx, r.config.Credentials.Spotify.Map()); err != nil {
			return fmt.Errorf("spotify authentication failed: %w", err)
		}
		catalog = r.spotify
	} else if playlistName != "" {
		return fmt.Errorf("%w: --playlist needs Spotify credentials, run 'mixtape auth spotify'", shared.ErrMissingCredentials)
	}

	var insights pipeline.InsightSource
	if r.insights != nil {
		insights = r.insights
	}

	rec := pipeline.NewRecommender(insights, r.generative, catalog)

	progress := make(chan pipeline.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase.String())
		}
	}()

	result, err := rec.Run(ctx, prefs, playlistName, progress)
	close(progress)
	<-done
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlain("Suggestions (%d):\n\n", len(result.Suggestions))
	for i, suggestion := range result.Suggestions {
		r.writePlain("%d. %s - %s\n", i+1, suggestion.Artist, suggestion.Title)
		if suggestion.Reason != "" {
			r.writePlain("   %s\n", suggestion.Reason)
		}
	}

	if catalog != nil {
		r.writePlain("\nMatched on Spotify: %d/%d\n", result.MatchedCount, len(result.Suggestions))
	}
	if result.Playlist != nil {
		r.writePlainln("✓ Playlist created: %s (ID: %s)", result.Playlist.Name, result.Playlist.ID)
	}

	return nil
}

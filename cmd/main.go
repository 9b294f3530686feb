package main

import (
	"context"
	"errors"
	"os"

	"github.com/mixtape-sh/mixtape/internal/services"
	"github.com/mixtape-sh/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	var spotifyService *services.SpotifyService
	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map()); err == nil {
			spotifyService = svc
		}
	}

	var insightsService *services.InsightsService
	if config.Credentials.Insights.APIKey != "" {
		insightsService = services.NewInsightsService(config.Credentials.Insights.BaseURL, config.Credentials.Insights.APIKey)
	}

	var generativeService *services.GenerativeService
	if config.Credentials.Generative.APIKey != "" {
		generativeService = services.NewGenerativeService(
			config.Credentials.Generative.BaseURL,
			config.Credentials.Generative.APIKey,
			config.Credentials.Generative.Model,
		)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		Spotify:    spotifyService,
		Insights:   insightsService,
		Generative: generativeService,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "mixtape",
		Usage:    "Music recommendation gateway and MCP tool server",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}

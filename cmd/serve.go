package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mixtape-sh/mixtape/internal/server"
	"github.com/mixtape-sh/mixtape/internal/services"
	"github.com/mixtape-sh/mixtape/internal/shared"
	"github.com/mixtape-sh/mixtape/internal/tools"
	"github.com/urfave/cli/v3"
)

// Serve runs the MCP tool server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if _, err := os.Stat(configPath); err == nil {
		if loaded, err := shared.LoadConfig(configPath); err == nil {
			config = loaded
		} else {
			r.logger.Warn("failed to load config, using current", "error", err)
		}
	}

	if config.Credentials.Spotify.ClientID == "" || config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set", shared.ErrMissingCredentials)
	}

	validator, err := services.NewSpotifyService(config.Credentials.Spotify.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	var insights *services.InsightsService
	if config.Credentials.Insights.APIKey != "" {
		insights = services.NewInsightsService(config.Credentials.Insights.BaseURL, config.Credentials.Insights.APIKey)
	}
	var generative *services.GenerativeService
	if config.Credentials.Generative.APIKey != "" {
		generative = services.NewGenerativeService(
			config.Credentials.Generative.BaseURL,
			config.Credentials.Generative.APIKey,
			config.Credentials.Generative.Model,
		)
	}

	catalog := tools.NewCatalog(tools.CatalogOpts{
		Spotify:    tools.NewSpotifyFactory(config.Credentials.Spotify),
		Insights:   insights,
		Generative: generative,
		Logger:     r.logger,
	})

	registry := server.NewRegistry(server.RegistryOpts{Logger: r.logger})

	handler := server.NewMCPHandler(server.MCPHandlerOpts{
		Registry:  registry,
		Tools:     catalog,
		Validator: validator,
		Logger:    r.logger,
	})

	router := server.NewRouter()
	router.Use(server.Logging(r.logger))
	if perSecond := cmd.Float("rate"); perSecond > 0 {
		router.Use(server.RateLimit(perSecond, int(perSecond)*2))
	}
	router.Handler(handler)

	addr := cmd.String("addr")
	if addr == "" {
		addr = config.Server.Addr()
	}

	srv := server.NewServer(server.ServerOpts{
		Addr:     addr,
		Handler:  router,
		Registry: registry,
		Logger:   r.logger,
	})

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("starting tool server", "addr", addr, "tools", len(catalog.List()))
	return srv.Run(runCtx)
}

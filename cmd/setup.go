package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mixtape-sh/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates a starter configuration file from the embedded template.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil {
		r.writePlain("Config file already exists at %s\n", configPath)
		return nil
	}

	if err := shared.CreateConfigFile(configPath); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	r.logger.Info("config file created", "path", configPath)

	r.writePlain("✓ Created %s\n", configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Add your Spotify client_id and client_secret under [credentials.spotify]\n")
	r.writePlain("2. Run 'mixtape auth spotify' to authorize\n")
	r.writePlain("3. Run 'mixtape serve' to start the tool server\n")

	return nil
}

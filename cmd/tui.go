package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mixtape-sh/mixtape/internal/shared"
	"github.com/mixtape-sh/mixtape/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive tool browser against the configured gateway.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/mixtape-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	client, err := r.newSessionClient(cmd, "")
	if err != nil {
		return err
	}

	if _, err := client.Initialize(ctx); err != nil {
		return err
	}
	defer client.Close(ctx)

	model := ui.NewModel(ctx, client)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

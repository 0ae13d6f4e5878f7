package main

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/jukebox/internal/ui"
	"github.com/urfave/cli/v3"
)

// Watch launches the live queue console.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	// Logs would tear the alt screen apart.
	r.logger.SetOutput(io.Discard)

	admin := cmd.String("password") != ""
	model := ui.NewModel(ctx, r.api, admin, cmd.Duration("interval"))
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running console: %w", err)
	}

	return nil
}

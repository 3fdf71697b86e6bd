package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/desertthunder/ytsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI over the tracked resources.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	store, err := r.localStore()
	if err != nil {
		return err
	}
	// Redirect logs to file to avoid interfering with TUI rendering
	logPath := r.config.Log.File
	if logPath == "" {
		logPath = "./tmp/ytsync-tui.log"
	}
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	fetcher, err := r.fetcher(ctx)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, store, fetcher, ui.Options{
		Engine: r.engineOpts(),
		Bulk:   r.bulkOpts(0),
		Logger: r.logger,
	})

	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

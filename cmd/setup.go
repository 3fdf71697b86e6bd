package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded config template to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}

	r.logger.Info("config file created", "path", r.configPath)
	r.writePlain("✓ Config written to %s\n", r.configPath)
	r.writePlain("Next: set credentials.youtube.api_key, or client_id/client_secret and run `ytsync auth youtube`\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	store, err := r.localStore()
	if err != nil {
		return err
	}

	runs, err := store.Runs.List(map[string]any{"limit": 1})
	if err != nil {
		return fmt.Errorf("database check failed: %w", err)
	}

	r.logger.Debug("database ready", "has_history", len(runs) > 0)
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/melodysyncer/melodysyncer/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes a default config.toml to the configured path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = defaultConfigPath
	}

	if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
		return fmt.Errorf("%w: %s already exists (use --force to overwrite)", shared.ErrInvalidArgument, path)
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("%s %s\n", styles.ok.Render("✓ Config written to"), path)
	r.writePlain("%s\n", styles.help.Render("Fill in credentials.spotify and credentials.youtube.api_keys, or set SPOTIPY_CLIENT_ID, SPOTIPY_CLIENT_SECRET and YOUTUBE_API_KEY."))
	return nil
}

// SetupDatabase initializes the database and runs migrations.
//
// --status lists migrations without applying them; --rollback reverts the newest one.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path := r.config.Database.Path
	r.logger.Info("initializing database", "path", path)

	db, err := shared.NewDatabase(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	switch {
	case cmd.Bool("rollback"):
		r.logger.Info("rolling back latest migration")
		if err := shared.RollbackMigration(ctx, db); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
	case !cmd.Bool("status"):
		r.logger.Info("running database migrations")
		if err := shared.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	states, err := shared.MigrationStatus(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	r.writePlainHeader("Migrations: " + path)
	for _, s := range states {
		mark := styles.warn.Render("pending")
		if s.Applied {
			mark = styles.ok.Render("applied")
		}
		r.writePlain("%04d  %-28s %s\n", s.Version, s.Name, mark)
	}
	return nil
}

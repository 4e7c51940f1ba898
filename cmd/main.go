package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/melodysyncer/melodysyncer/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

// loadConfig reads path when it exists, then applies environment overrides.
func loadConfig(path string, lookup func(string) (string, bool)) (*shared.Config, error) {
	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = shared.LoadConfig(path); err != nil {
			return nil, err
		}
	}

	config.ApplyEnv(lookup)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func main() {
	logger := shared.NewLogger(nil)

	configPath := defaultConfigPath
	if p, ok := os.LookupEnv("MELODYSYNCER_CONFIG"); ok && p != "" {
		configPath = p
	}

	config, err := loadConfig(configPath, os.LookupEnv)
	if err != nil {
		logger.Fatalf("configuration error: %v", err)
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "melodysyncer",
		Usage:    "Find Spotify tracks and playlists on YouTube",
		Version:  "1.0.0",
		Commands: runner.register(),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(logger, log.DebugLevel)
			}
			return ctx, nil
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, styles.err.Render("error: "+err.Error()))
		logger.Fatalf("application error: %v", err)
	}
}

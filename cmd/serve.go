package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/melodysyncer/melodysyncer/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = port
	}

	resolver, recorder, err := r.resolver(ctx)
	if err != nil {
		return err
	}
	defer r.closeRecorder(recorder)

	api := server.NewAPI(resolver, recorder, r.logger)
	srv := server.New(cfg, server.NewHandler(api, cfg, r.logger), r.logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("starting server",
		"addr", srv.Addr(),
		"analytics", r.config.Analytics.Driver,
		"keys", len(r.config.Credentials.YouTube.APIKeys),
	)
	return srv.ListenAndServe(ctx)
}

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/ougirez/muniportal/internal/api"
	"github.com/ougirez/muniportal/internal/pkg/logger"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Apply migrations and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := connectSessions(ctx, cfg)
	if err != nil {
		return err
	}
	defer sessions.Close()

	deps := api.Deps{Store: st, Sessions: sessions}
	if cfg.DB.ReplicaDSN != "" {
		deps.Replica = db
	}

	var (
		srv   *api.APIService
		errCh = make(chan error, 1)
	)
	if srv, err = api.NewAPIService(cfg, deps); err != nil {
		return err
	}

	go func() {
		logger.Infof(ctx, "listening on %s", cfg.HTTP.Addr)
		errCh <- srv.Serve(cfg.HTTP.Addr)
	}()

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Infof(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

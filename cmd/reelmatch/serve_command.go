package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"reelmatch/internal/api"
	"reelmatch/internal/config"
	"reelmatch/internal/logging"
	"reelmatch/internal/preflight"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recommendations over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Paths.APIBind = bind
			}
			return runServe(cmd.Context(), ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides paths.api_bind)")
	return cmd
}

func runServe(cmdCtx context.Context, ctx *commandContext, cfg *config.Config) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reelmatch server is already running for this cache directory")
	}
	defer lock.Unlock()

	logger, err := ctx.newLogger(cfg, true)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if removed := logging.PruneLogs(logger, cfg.Paths.LogDir, "reelmatch*.log", cfg.LogPath(), cfg.Logging.RetentionDays); removed > 0 {
		logger.Info("pruned old logs", logging.Int("removed", removed))
	}

	for _, result := range preflight.Failed(preflight.RunAll(signalCtx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}

	a, err := openApp(signalCtx, cfg, logger, appOptions{posters: true})
	if err != nil {
		logging.ErrorWithContext(logger, "dataset unavailable", "serve_startup_failed", logging.Error(err))
		return err
	}
	defer a.Close()

	router := api.NewRouter(api.Deps{
		Recommender: a.recommender,
		Catalog:     a.data.Catalog,
		Status:      a.status,
	}, api.RouterOptions{
		Token:              cfg.Paths.APIToken,
		RequestTimeout:     cfg.APIRequestTimeout(),
		RateLimitPerMinute: cfg.API.RateLimitPerMinute,
		CORSOrigins:        cfg.API.CORSOrigins,
		Logger:             logger,
	})
	server, err := api.NewServer(cfg.Paths.APIBind, router, cfg.APIRequestTimeout(), logger)
	if err != nil {
		return err
	}
	if err := server.Start(signalCtx); err != nil {
		return err
	}
	logger.Info("reelmatch ready",
		logging.Int("movies", a.data.Len()),
		logging.String("address", server.Addr()),
		logging.Bool("tmdb", a.tmdbReady),
	)

	<-signalCtx.Done()
	server.Stop()
	logger.Info("reelmatch server shutting down")
	return nil
}

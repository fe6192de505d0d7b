package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/benithors/dotquote/internal/api"
	"github.com/benithors/dotquote/internal/logger"
	"github.com/benithors/dotquote/internal/preload"
)

func newServeCmd(o *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the checker over HTTP/JSON",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			defer o.engine.Close()

			opts := api.NewOptions(o.cfg)
			if addr != "" {
				opts.Addr = addr
			}
			srv := api.NewServer(o.engine, opts)

			var job *preload.Job
			if o.cfg.Preload {
				job = preload.New(o.engine, preload.Options{})
				job.Start(ctx)
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info(ctx, "listening", zap.String("addr", opts.Addr),
					zap.String("primary", o.engine.PrimaryName()), zap.Strings("pricing", o.engine.Providers()))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return failure(cmd, fmt.Errorf("server failed: %w", err))
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info(ctx, "shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.GracefulShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error(ctx, "graceful shutdown failed", zap.Error(err))
			}
			if job != nil {
				sum, err := job.Wait(shutdownCtx)
				if err != nil {
					logger.Warn(ctx, "preload did not finish", zap.Error(err))
				} else {
					logger.Info(ctx, "preload finished", zap.Int("loaded", sum.Loaded), zap.Int("failed", sum.Failed))
				}
			}
			return nil
		},
	}

	cmd.SetFlagErrorFunc(usageErr)
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

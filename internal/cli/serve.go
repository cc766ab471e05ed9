// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/interview-coach/internal/config"
	"github.com/jeranaias/interview-coach/internal/logging"
	"github.com/jeranaias/interview-coach/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			config.SetGlobal(cfg)

			logger, closer, err := logging.Init(cfg.Logging)
			if err != nil {
				logger.Warn("log_file_unavailable", "error", err)
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := buildStack(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.limiter.Close()
			if cfg.RateLimit.SweepIntervalSecs > 0 {
				st.limiter.StartJanitor(time.Duration(cfg.RateLimit.SweepIntervalSecs) * time.Second)
			}
			if cfg.RateLimit.Identifier == config.IdentifierRandom {
				logger.Warn("rate_limit_ineffective", "identifier", cfg.RateLimit.Identifier,
					"detail", "every request gets a fresh identifier")
			}

			srv, err := server.New(server.Options{
				Orchestrator: st.orch,
				Limiter:      st.limiter,
				Server:       cfg.Server,
				Identifier:   cfg.RateLimit.Identifier,
				Logger:       logger,
			})
			if err != nil {
				return configError(err)
			}

			if path := a.watchPath(); path != "" {
				w, err := config.Watch(path, st.apply, func(err error) {
					logger.Warn("config_reload_failed", "path", path, "error", err)
				})
				if err != nil {
					logger.Warn("config_watch_unavailable", "path", path, "error", err)
				} else {
					defer w.Close()
				}
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(),
				time.Duration(cfg.Server.ShutdownTimeoutSecs)*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

// watchPath returns the config file to watch, or "" if there is none.
func (a *app) watchPath() string {
	path, err := a.resolvedConfigPath()
	if err != nil {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

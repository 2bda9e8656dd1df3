package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/subjects/internal/application"
	"github.com/JonMunkholm/subjects/internal/config"
	"github.com/JonMunkholm/subjects/internal/logging"
	"github.com/JonMunkholm/subjects/internal/web"
)

type configLoader func() (*config.Config, error)

func openApp(cfg *config.Config, reg prometheus.Registerer) (*application.App, error) {
	if envLoaded {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	app, err := application.New(application.Options{
		StorePath:  cfg.Store.Path,
		ExportPath: cfg.Export.Path,
		Sync:       cfg.Store.Sync,
		Registerer: reg,
		Logger:     slog.Default(),
	})
	if err != nil {
		return nil, err
	}
	slog.Info("store opened", "path", cfg.Store.Path, "subjects", len(app.Subjects()))
	return app, nil
}

func closeApp(app *application.App) {
	if err := app.Close(); err != nil {
		slog.Error("close store", "error", err)
	}
}

func consoleCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Run the interactive console",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			// Logs go to stderr so they do not interleave with prompts.
			logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

			app, err := openApp(cfg, nil)
			if err != nil {
				return err
			}
			defer closeApp(app)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return application.NewConsole(app, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
		},
	}
}

func serveCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP form and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
			slog.Info("configuration loaded", "config", cfg.String())

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			app, err := openApp(cfg, reg)
			if err != nil {
				return err
			}
			defer closeApp(app)

			server := web.NewServer(app, cfg.Server, cfg.Security, reg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				slog.Info("server starting", "addr", cfg.Server.Addr())
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			})
			// Graceful shutdown on signal or listener failure.
			g.Go(func() error {
				<-gctx.Done()
				slog.Info("shutting down...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})

			if err := g.Wait(); err != nil {
				return err
			}
			slog.Info("server stopped")
			return nil
		},
	}
}

func exportCmd(load configLoader) *cobra.Command {
	var sorted bool

	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Export the stored subjects once and exit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

			app, err := openApp(cfg, nil)
			if err != nil {
				return err
			}
			defer closeApp(app)

			var path string
			if len(args) == 1 {
				path = args[0]
			}

			res, err := app.Export(cmd.Context(), path, sorted)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d subjects to %s (id %s)\n", res.Count, res.Path, res.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&sorted, "sorted", true, "Sort by surname, name, patronymic and birth date")
	return cmd
}

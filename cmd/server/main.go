/*
main.go - Application entry point

PURPOSE:
  Starts the worklog engine server: configuration, dependency wiring,
  HTTP serving, graceful shutdown.

STARTUP SEQUENCE:
  1. Load config (TOML file + environment overrides)
  2. Open SQLite store, run migrations, seed the bootstrap developer
  3. Wire services, notifier, metrics, router
  4. Serve until SIGINT/SIGTERM, then drain with a timeout

EXAMPLES:
  worklog-server serve
  worklog-server serve --db ./data/worklog.db --port 3000
  worklog-server serve --config ./worklog.toml
*/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/warp/worklog-engine/api"
	"github.com/warp/worklog-engine/config"
	"github.com/warp/worklog-engine/core"
	"github.com/warp/worklog-engine/logging"
	"github.com/warp/worklog-engine/notify"
	"github.com/warp/worklog-engine/store/sqlite"
)

func main() {
	root := &cobra.Command{
		Use:          "worklog-server",
		Short:        "Work interval tracking, approval, and payment reconciliation",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var (
		configPath string
		dbPath     string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.DB.Path = dbPath
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			return run(cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "worklog.toml", "TOML config file (optional)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides config)")
	return cmd
}

func run(cfg *config.Config) error {
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	clock := core.RealClock{}
	if err := api.SeedDeveloper(context.Background(), store, clock.Now()); err != nil {
		return err
	}

	handler := api.NewHandler(store, notify.NewLog(log), clock, log)
	handler.Metrics = api.NewMetrics()
	router := api.NewRouter(handler, cfg.Server.CORSOrigins)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/cloudsystem/cloudsystem/internal/app"
	"github.com/cloudsystem/cloudsystem/internal/config"
	"github.com/cloudsystem/cloudsystem/internal/database"
)

// shutdownTimeout is how long in-flight requests may drain on SIGINT/SIGTERM.
const shutdownTimeout = 10 * time.Second

// newRootCmd builds the command tree. Running the root command serves HTTP.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cloudsystem",
		Short:         "Multi-tenant file upload and download API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newRoutesCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var rollback int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.NewMariaDB(cfg.Database)
			if err != nil {
				slog.Error("failed to connect to MariaDB", slog.Any("error", err))
				return err
			}
			defer db.Close()

			if rollback > 0 {
				return database.RollbackMigrations(db, cfg.MigrationsPath, rollback)
			}
			return database.RunMigrations(db, cfg.MigrationsPath)
		},
	}
	cmd.Flags().IntVar(&rollback, "rollback", 0, "revert this many applied migrations instead of applying")
	return cmd
}

func newRoutesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the registered route table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// Routes are registered without connecting; nothing is served.
			application := app.New(cfg, nil, nil)
			if err := application.RegisterRoutes(app.Deps{}); err != nil {
				return err
			}
			printRoutes(cmd, application)
			return nil
		},
	}
}

// printRoutes writes "METHOD path" lines sorted by path then method,
// skipping echo's internal not-found handlers.
func printRoutes(cmd *cobra.Command, application *app.App) {
	var lines []string
	for _, r := range application.Echo.Routes() {
		if r.Method == echo.RouteNotFound {
			continue
		}
		lines = append(lines, fmt.Sprintf("%-7s %s", r.Method, r.Path))
	}
	sort.Slice(lines, func(i, j int) bool {
		pi, pj := strings.Fields(lines[i])[1], strings.Fields(lines[j])[1]
		if pi != pj {
			return pi < pj
		}
		return lines[i] < lines[j]
	})
	for _, l := range lines {
		fmt.Fprintln(cmd.OutOrStdout(), l)
	}
}

// loadConfig reads configuration and installs the global logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		return nil, err
	}
	setupLogging(cfg)
	return cfg, nil
}

// runServe connects every dependency in order and serves until a signal.
func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slog.Info("starting Cloud System",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
	)

	// --- Connect to MariaDB ---
	db, err := database.NewMariaDB(cfg.Database)
	if err != nil {
		slog.Error("failed to connect to MariaDB", slog.Any("error", err))
		return err
	}
	slog.Info("connected to MariaDB")

	if err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
		slog.Error("failed to run migrations", slog.Any("error", err))
		db.Close()
		return err
	}

	// --- Connect to Redis ---
	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to Redis", slog.Any("error", err))
		db.Close()
		return err
	}
	slog.Info("connected to Redis")

	// --- Create Application ---
	application := app.New(cfg, db, rdb)
	if err := application.RegisterRoutes(app.Deps{}); err != nil {
		slog.Error("failed to register routes", slog.Any("error", err))
		rdb.Close()
		db.Close()
		return err
	}

	// --- Graceful Shutdown ---
	// Stop accepting, drain, then close Redis before the DB.
	done := make(chan struct{})
	go func() {
		defer close(done)
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		sig := <-quit

		slog.Info("shutting down server...", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := application.Shutdown(ctx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	// --- Start Server ---
	if err := application.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", slog.Any("error", err))
		rdb.Close()
		db.Close()
		return err
	}
	<-done

	if err := rdb.Close(); err != nil {
		slog.Warn("closing redis", slog.Any("error", err))
	}
	if err := db.Close(); err != nil {
		slog.Warn("closing database", slog.Any("error", err))
	}
	slog.Info("server stopped")
	return nil
}

// setupLogging configures the global slog logger. Development uses text
// format for readability; other environments use JSON for aggregation.
// LOG_LEVEL picks the threshold.
func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// parseLevel maps LOG_LEVEL to a slog level, defaulting to info.
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

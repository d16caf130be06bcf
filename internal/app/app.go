// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (DB pool, Redis client,
// Echo instance, metrics registry) and wires together all plugins.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/cloudsystem/cloudsystem/internal/apperror"
	"github.com/cloudsystem/cloudsystem/internal/config"
	"github.com/cloudsystem/cloudsystem/internal/middleware"
	"github.com/cloudsystem/cloudsystem/internal/validate"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool shared by all plugins.
	DB *sql.DB

	// Redis is the Redis client backing sessions and reset OTPs.
	Redis *redis.Client

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	// Registry collects HTTP and session metrics served on /metrics.
	Registry *prometheus.Registry

	httpMetrics *middleware.HTTPMetrics
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) *App {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	e.Validator = validate.New()

	// Rate limiting keys on c.RealIP(), which must see through the proxy.
	middleware.TrustedProxies(e, middleware.DefaultTrustedProxies)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := &App{
		Config:      cfg,
		DB:          db,
		Redis:       rdb,
		Echo:        e,
		Registry:    reg,
		httpMetrics: middleware.NewHTTPMetrics(reg, reg),
	}

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())
	a.Echo.Use(middleware.RequestLogger())
	a.Echo.Use(a.httpMetrics.Middleware())
	a.Echo.Use(middleware.SecurityHeaders())

	// Browser clients on any origin; bearer tokens need no credentials mode.
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: []string{"*"},
	}))
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to JSON responses and masks anything unexpected behind the
// generic message.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	req := c.Request()

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", req.URL.Path),
			)
		}
		_ = c.JSON(appErr.Code, errorBody{Message: appErr.Message, Data: appErr.Data})

	case errors.As(err, &echoErr):
		// Unmatched routes answer in plain text like the health checks.
		if echoErr.Code == http.StatusNotFound || echoErr.Code == http.StatusMethodNotAllowed {
			_ = c.String(http.StatusNotFound, fmt.Sprintf("Cannot %s %s", req.Method, req.URL.Path))
			return
		}
		message := http.StatusText(echoErr.Code)
		if msg, ok := echoErr.Message.(string); ok {
			message = msg
		}
		if echoErr.Code >= http.StatusInternalServerError {
			slog.Error("http error", slog.Any("error", err), slog.String("path", req.URL.Path))
			message = apperror.GenericMessage
		}
		_ = c.JSON(echoErr.Code, errorBody{Message: message})

	default:
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", req.URL.Path),
		)
		_ = c.JSON(http.StatusInternalServerError, errorBody{Message: apperror.GenericMessage})
	}
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting server",
		slog.String("app", a.Config.AppName),
		slog.String("addr", addr),
		slog.String("base_url", a.Config.BaseURL),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}

// Shutdown stops accepting connections and drains in-flight requests until
// ctx is done.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cloudsystem/cloudsystem/internal/plugins/auth"
	"github.com/cloudsystem/cloudsystem/internal/plugins/files"
	"github.com/cloudsystem/cloudsystem/internal/plugins/histories"
	"github.com/cloudsystem/cloudsystem/internal/plugins/media"
	"github.com/cloudsystem/cloudsystem/internal/plugins/smtp"
	"github.com/cloudsystem/cloudsystem/internal/session"
)

// healthTimeout bounds each dependency check of the health endpoints.
const healthTimeout = 3 * time.Second

// Deps are the collaborators the routes are built on. Nil fields are built
// from the App's pools and config; tests swap in fakes.
type Deps struct {
	Users     auth.UserRepository
	Files     files.FileRepository
	Histories histories.HistoryRepository
	Media     media.MediaService
	Mail      auth.MailSender
	Sessions  session.SessionService
}

// RegisterRoutes sets up all application routes. It registers the health
// checks and metrics directly and delegates to each plugin's route
// registration function under the API version prefix.
func (a *App) RegisterRoutes(deps Deps) error {
	if err := a.fillDeps(&deps); err != nil {
		return err
	}
	e := a.Echo
	cfg := a.Config

	// --- Plugin Services ---

	authService := auth.NewAuthService(deps.Users, deps.Sessions, auth.Options{
		Mail:       deps.Mail,
		Port:       cfg.Port,
		APIVersion: cfg.APIVersion,
	})
	historyService := histories.NewHistoryService(deps.Histories)
	fileService := files.NewFileService(deps.Files, deps.Media, historyService, authService, files.Options{
		RootFolder: cfg.Media.Folder,
		MaxSize:    cfg.Media.MaxUploadSize,
	})

	// --- Health and Metrics ---

	checks := a.healthChecks(deps.Sessions)
	e.GET("/", healthHandler(checks, "Pong!"))
	e.GET(cfg.APIVersion, healthHandler(checks, "Ping<>Pong"))
	e.GET("/metrics", a.httpMetrics.Handler())

	// --- Plugin Routes ---

	api := e.Group(cfg.APIVersion)
	requireAuth := auth.RequireAuth(authService)

	auth.RegisterRoutes(api, auth.NewHandler(authService), authService)
	files.RegisterRoutes(api, files.NewHandler(fileService), requireAuth, cfg.Media.MaxUploadSize)
	histories.RegisterRoutes(api, histories.NewHandler(historyService), requireAuth)

	return nil
}

// fillDeps builds every collaborator the caller left nil.
func (a *App) fillDeps(deps *Deps) error {
	cfg := a.Config
	if deps.Users == nil {
		deps.Users = auth.NewUserRepository(a.DB)
	}
	if deps.Files == nil {
		deps.Files = files.NewFileRepository(a.DB)
	}
	if deps.Histories == nil {
		deps.Histories = histories.NewHistoryRepository(a.DB)
	}
	if deps.Media == nil {
		m, err := media.NewMediaService(cfg.Media.CloudinaryURL)
		if err != nil {
			return err
		}
		deps.Media = m
	}
	if deps.Mail == nil {
		deps.Mail = smtp.NewMailService(smtp.Settings{
			Host:       cfg.Mail.Host,
			Port:       cfg.Mail.Port,
			Username:   cfg.Mail.Username,
			Password:   cfg.Mail.Password,
			From:       cfg.Mail.From,
			FromName:   cfg.Mail.FromName,
			Encryption: cfg.Mail.Encryption,
		})
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewSessionService(
			session.NewRedisStore(a.Redis),
			session.NewSigner(cfg.Session.Secret),
			session.NewTokenCodec(cfg.Session.Secret, cfg.AppName, cfg.Session.MaxAge),
			cfg.Session.TTL,
			session.NewMetrics(a.Registry),
		)
	}
	return nil
}

// healthCheck is one named dependency probe.
type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

// healthChecks probes Redis through the session store and MariaDB with a
// trivial query.
func (a *App) healthChecks(sessions session.SessionService) []healthCheck {
	return []healthCheck{
		{name: "redis", check: sessions.Ping},
		{name: "database", check: func(ctx context.Context) error {
			if a.DB == nil {
				return fmt.Errorf("no database pool")
			}
			var now time.Time
			return a.DB.QueryRowContext(ctx, "SELECT NOW()").Scan(&now)
		}},
	}
}

// healthHandler answers body when every check passes, otherwise 500 with
// the first failing dependency.
func healthHandler(checks []healthCheck, body string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()

		for _, hc := range checks {
			if err := hc.check(ctx); err != nil {
				return c.String(http.StatusInternalServerError, hc.name+" is not ready")
			}
		}
		return c.String(http.StatusOK, body)
	}
}

package files

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cloudsystem/cloudsystem/internal/middleware"
	"github.com/cloudsystem/cloudsystem/internal/plugins/auth"
	"github.com/cloudsystem/cloudsystem/internal/session"
)

// RegisterRoutes sets up the file routes under g. Every route needs a
// session; removing rows also needs the admin role.
//
// maxUploadSize limits the request body of uploads with a 10% margin for
// multipart encoding overhead.
func RegisterRoutes(g *echo.Group, h *Handler, authMw echo.MiddlewareFunc, maxUploadSize int64) {
	fg := g.Group("/files", authMw)

	uploadRateLimit := middleware.RateLimit(30, time.Minute)
	bodyLimit := middleware.BodyLimit(maxUploadSize + maxUploadSize/10)

	fg.POST("", h.Upload, uploadRateLimit, bodyLimit)
	fg.GET("", h.List)
	fg.GET("/download/:id", h.Download)
	fg.PATCH("/unsafe", h.RemoveUnsafe, auth.RequireRole(session.RoleAdmin))
}

package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cloudsystem/cloudsystem/internal/middleware"
)

// RegisterRoutes sets up all auth routes under g. The middleware is exported
// separately for other plugins to use on their route groups.
//
// POST endpoints are rate-limited to slow brute-force and credential
// stuffing: 10 attempts per IP per minute for login, 5 for signup and reset.
func RegisterRoutes(g *echo.Group, h *Handler, service AuthService) {
	auth := g.Group("/auth")

	auth.POST("/signup", h.Signup, middleware.RateLimit(5, time.Minute))
	auth.POST("/login", h.Login, middleware.RateLimit(10, time.Minute))
	auth.GET("/forgot-password", h.ForgotPassword, middleware.RateLimit(5, time.Minute))
	auth.POST("/reset-password", h.ResetPassword, middleware.RateLimit(5, time.Minute))

	requireAuth := RequireAuth(service)
	auth.POST("/logout", h.Logout, requireAuth)
	auth.GET("/me", h.Me, requireAuth)
}

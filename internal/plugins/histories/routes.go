package histories

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the history routes under g. authMw must resolve the
// caller's session; every history route requires one.
func RegisterRoutes(g *echo.Group, h *Handler, authMw echo.MiddlewareFunc) {
	hg := g.Group("/histories", authMw)
	hg.GET("", h.List)
}

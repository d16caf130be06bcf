package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins is the list of origins permitted to make cross-origin
	// requests. ["*"] allows all.
	AllowedOrigins []string

	// AllowCredentials indicates whether the browser may send credentials.
	// Bearer tokens travel in a header, so this is normally false.
	AllowCredentials bool
}

// CORS returns middleware that handles Cross-Origin Resource Sharing headers.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	allowAll := false
	originSet := make(map[string]bool)
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowAll = true
		}
		originSet[o] = true
	}

	// Wildcard origin with credentials would let any site make
	// authenticated requests.
	if allowAll && cfg.AllowCredentials {
		slog.Warn("CORS misconfiguration: AllowedOrigins=['*'] with AllowCredentials=true; credentials will not be allowed")
		cfg.AllowCredentials = false
	}

	allowMethods := strings.Join([]string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			origin := req.Header.Get("Origin")

			// No Origin header means same-origin request -- skip CORS.
			if origin == "" {
				return next(c)
			}
			if !allowAll && !originSet[origin] {
				return next(c)
			}

			if allowAll && !cfg.AllowCredentials {
				res.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				res.Header().Set("Access-Control-Allow-Origin", origin)
				res.Header().Add("Vary", "Origin")
			}
			if cfg.AllowCredentials {
				res.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if req.Method == http.MethodOptions {
				res.Header().Set("Access-Control-Allow-Methods", allowMethods)

				// Reflect the requested headers when present.
				if h := req.Header.Get("Access-Control-Request-Headers"); h != "" {
					res.Header().Set("Access-Control-Allow-Headers", h)
				} else {
					res.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				}
				res.Header().Set("Access-Control-Max-Age", "3600")

				return c.NoContent(http.StatusNoContent)
			}

			return next(c)
		}
	}
}

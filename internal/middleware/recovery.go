package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/cloudsystem/cloudsystem/internal/apperror"
)

// Recovery returns middleware that recovers from panics, logs the stack
// trace, and returns the generic 500 body to the client.
func Recovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (returnErr error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic recovered",
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
						slog.String("method", c.Request().Method),
						slog.String("path", c.Request().URL.Path),
					)

					if c.Response().Committed {
						returnErr = nil
						return
					}
					returnErr = c.JSON(http.StatusInternalServerError, map[string]string{
						"message": apperror.GenericMessage,
					})
				}
			}()

			return next(c)
		}
	}
}

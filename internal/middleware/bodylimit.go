package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cloudsystem/cloudsystem/internal/apperror"
)

// BodyLimit returns middleware that rejects request bodies exceeding
// maxBytes. A declared Content-Length over the limit is refused before the
// body is read; otherwise the body is wrapped so reads past the limit fail
// with *http.MaxBytesError.
func BodyLimit(maxBytes int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().ContentLength > maxBytes {
				return apperror.NewTooLarge(
					fmt.Sprintf("Request body too large; maximum is %d MB", maxBytes/(1024*1024)))
			}
			c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, maxBytes)
			return next(c)
		}
	}
}

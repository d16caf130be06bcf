package auth

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cloudsystem/cloudsystem/internal/apperror"
	"github.com/cloudsystem/cloudsystem/internal/session"
)

// Context keys for storing session data in Echo context. Other plugins
// use these keys (via the exported getter functions below) to access
// the authenticated user's information.
const (
	contextKeySession = "auth_session"
	contextKeyUserID  = "auth_user_id"
)

// bearerScheme is the only accepted Authorization scheme. Matching is
// case-sensitive.
const bearerScheme = "Bearer"

// Role gate messages.
const (
	msgNotAuthenticated = "Not authenticated"
	msgForbidden        = "You do not have access to this resource"
)

// RequireAuth returns middleware that validates the bearer token and
// injects the session subject into the request context. A successful
// validation also slides the session's expiry.
func RequireAuth(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			parts := strings.Fields(header)
			if len(parts) == 0 {
				return apperror.NewUnauthorized(msgMissingAuth)
			}

			scheme, token := parts[0], ""
			if len(parts) > 1 {
				token = parts[1]
			}
			if scheme != bearerScheme {
				return apperror.NewUnauthorized(fmt.Sprintf("%s is not supported. Please use the Bearer scheme", scheme))
			}

			subject, err := service.ValidateSession(c.Request().Context(), token)
			if err != nil {
				return err
			}

			SetSession(c, subject)

			return next(c)
		}
	}
}

// RequireRole returns middleware that admits only sessions holding role.
// It must run after RequireAuth.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := Authorize(GetSession(c), role); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// Authorize checks that subject exists and holds role.
func Authorize(subject *session.Subject, role string) error {
	if subject == nil {
		return apperror.NewUnauthorized(msgNotAuthenticated)
	}
	if subject.AccountType != role {
		return apperror.NewForbidden(msgForbidden)
	}
	return nil
}

// --- Exported getters for other plugins ---

// SetSession stores subject in the Echo context for downstream handlers.
func SetSession(c echo.Context, subject *session.Subject) {
	c.Set(contextKeySession, subject)
	c.Set(contextKeyUserID, subject.ID)
}

// GetSession retrieves the authenticated session from the Echo context.
// Returns nil if the request is not authenticated (middleware not applied).
func GetSession(c echo.Context) *session.Subject {
	subject, ok := c.Get(contextKeySession).(*session.Subject)
	if !ok {
		return nil
	}
	return subject
}

// GetUserID retrieves the authenticated user's ID from the Echo context.
// Returns empty string if the request is not authenticated.
func GetUserID(c echo.Context) string {
	id, ok := c.Get(contextKeyUserID).(string)
	if !ok {
		return ""
	}
	return id
}

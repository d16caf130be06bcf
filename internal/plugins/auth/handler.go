package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cloudsystem/cloudsystem/internal/apperror"
	"github.com/cloudsystem/cloudsystem/internal/validate"
)

// Handler handles HTTP requests for authentication. Handlers are thin: they
// bind the request, call the service, and render the response. No business
// logic lives here.
type Handler struct {
	service AuthService
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service AuthService) *Handler {
	return &Handler{service: service}
}

// Signup creates an account and starts a session (POST /auth/signup).
func (h *Handler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := validate.Body(c, &req); err != nil {
		return err
	}

	out, err := h.service.Signup(c.Request().Context(), SignupInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Login authenticates and starts a session (POST /auth/login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := validate.Body(c, &req); err != nil {
		return err
	}

	out, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// ForgotPassword emails reset instructions (GET /auth/forgot-password).
// The response is identical whether or not the account exists.
func (h *Handler) ForgotPassword(c echo.Context) error {
	var q ForgotPasswordQuery
	if err := validate.Query(c, &q); err != nil {
		return err
	}

	if err := h.service.ForgotPassword(c.Request().Context(), q.Email, c.Scheme()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Message{Message: msgForgotPassword})
}

// ResetPassword sets a new password (POST /auth/reset-password).
func (h *Handler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := validate.Body(c, &req); err != nil {
		return err
	}

	out, err := h.service.ResetPassword(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Logout revokes every session of the caller (POST /auth/logout).
func (h *Handler) Logout(c echo.Context) error {
	subject := GetSession(c)
	if subject == nil {
		return apperror.NewMissingContext()
	}

	if err := h.service.Logout(c.Request().Context(), subject.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Message{Message: "OK"})
}

// Me returns the caller's session subject (GET /auth/me).
func (h *Handler) Me(c echo.Context) error {
	subject := GetSession(c)
	if subject == nil {
		return apperror.NewMissingContext()
	}
	return c.JSON(http.StatusOK, subject)
}

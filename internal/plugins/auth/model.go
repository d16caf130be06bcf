// Package auth handles user accounts and the HTTP side of authentication for
// the cloud system: signup, login, password reset and logout, plus the
// bearer-token and role middleware every other plugin mounts. The session
// lifecycle itself lives in internal/session.
//
// This is a CORE plugin -- always enabled, cannot be disabled.
package auth

import (
	"strings"
	"time"

	"github.com/cloudsystem/cloudsystem/internal/session"
)

// User represents a registered user. Database scanning and JSON marshaling
// use this struct directly.
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON responses.
	AccountType  string    `json:"account_type"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Subject returns the identity stored in this user's sessions.
func (u *User) Subject() session.Subject {
	return session.Subject{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		AccountType: u.AccountType,
	}
}

// --- Request DTOs (bound from HTTP requests) ---

// SignupRequest holds the data submitted to POST /auth/signup.
type SignupRequest struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

// Normalize trims every field and lower-cases the email.
func (r *SignupRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Password = strings.TrimSpace(r.Password)
}

// LoginRequest holds the data submitted to POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Normalize trims both fields and lower-cases the email.
func (r *LoginRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
	r.Password = strings.TrimSpace(r.Password)
}

// ForgotPasswordQuery holds the query of GET /auth/forgot-password.
type ForgotPasswordQuery struct {
	Email string `query:"email" validate:"required,email"`
}

// Normalize lower-cases the email.
func (q *ForgotPasswordQuery) Normalize() {
	q.Email = normalizeEmail(q.Email)
}

// ResetPasswordRequest holds the data submitted to POST /auth/reset-password.
type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// Normalize trims both fields and lower-cases the email.
func (r *ResetPasswordRequest) Normalize() {
	r.Email = normalizeEmail(r.Email)
	r.Password = strings.TrimSpace(r.Password)
}

// --- Service Input DTOs (passed from handler to service) ---

// SignupInput is the validated input for creating a new user.
type SignupInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// LoginInput is the validated input for authenticating a user.
type LoginInput struct {
	Email    string
	Password string
}

// --- Responses ---

// UserToken is returned by every operation that starts a session.
type UserToken struct {
	User     *User  `json:"user"`
	Token    string `json:"token"`
	TokenTTL int    `json:"token_ttl"`
}

// Message is a plain acknowledgement body.
type Message struct {
	Message string `json:"message"`
}

// resetOTP is the value stashed under the forgot-password key.
type resetOTP struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

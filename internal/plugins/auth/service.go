package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cloudsystem/cloudsystem/internal/apperror"
	"github.com/cloudsystem/cloudsystem/internal/session"
)

// Client-facing messages.
const (
	msgInvalidCredentials = "Invalid email / password"
	msgDuplicateUser      = "A user with the given details already exists"
	msgForgotPassword     = "You will receive an email shortly if you have an account with us"
	msgInvalidUser        = "Invalid user details"
	msgInvalidOTP         = "Invalid or expired OTP sent"
	msgCouldNotAuth       = "Could not authenticate"
	msgMissingAuth        = "We could not authenticate your request"
	msgInvalidToken       = "Invalid authentication token"
	msgExpiredToken       = "Your authentication has expired"
	msgBadSignature       = "We could not verify your authentication"
)

// resetSubject is the subject line of the password reset email.
const resetSubject = "Reset your password"

// MailSender is the subset of the SMTP plugin's MailService that auth needs.
// Defined here to avoid importing the smtp package directly.
type MailSender interface {
	SendMail(ctx context.Context, to []string, subject, body string) error
	IsConfigured(ctx context.Context) bool
}

// AuthService defines the business logic contract for authentication.
// Handlers call these methods -- they never touch the repository directly.
type AuthService interface {
	Signup(ctx context.Context, input SignupInput) (*UserToken, error)
	Login(ctx context.Context, input LoginInput) (*UserToken, error)

	// ForgotPassword stashes a reset OTP and emails the user. It succeeds
	// for unknown emails too so callers cannot probe for accounts. scheme is
	// the request protocol used in the emailed link.
	ForgotPassword(ctx context.Context, email, scheme string) error

	// ResetPassword sets a new password when a live OTP exists for email
	// and starts a fresh session.
	ResetPassword(ctx context.Context, email, password string) (*UserToken, error)

	// Logout revokes every session of the user owning email.
	Logout(ctx context.Context, email string) error

	// ValidateSession resolves a bearer token to its subject.
	ValidateSession(ctx context.Context, token string) (*session.Subject, error)

	// FindUser returns the user with the given ID.
	FindUser(ctx context.Context, id string) (*User, error)
}

// Options configures the reset link and email sender.
type Options struct {
	// Mail sends reset emails. Nil disables sending.
	Mail MailSender

	// Port and APIVersion build the reset link.
	Port       int
	APIVersion string
}

// authService implements AuthService with argon2id hashing and Redis sessions.
type authService struct {
	repo       UserRepository
	sessions   session.SessionService
	mail       MailSender
	port       int
	apiVersion string
	now        func() time.Time
}

// NewAuthService creates a new auth service with the given dependencies.
func NewAuthService(repo UserRepository, sessions session.SessionService, opts Options) AuthService {
	return &authService{
		repo:       repo,
		sessions:   sessions,
		mail:       opts.Mail,
		port:       opts.Port,
		apiVersion: opts.APIVersion,
		now:        time.Now,
	}
}

// Signup creates a new account with the default role and starts a session.
func (s *authService) Signup(ctx context.Context, input SignupInput) (*UserToken, error) {
	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	user := &User{
		ID:           uuid.NewString(),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        normalizeEmail(input.Email),
		PasswordHash: hash,
		AccountType:  session.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, apperror.NewConflict(msgDuplicateUser)
		}
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return s.startSession(ctx, user)
}

// Login authenticates a user by email and password.
func (s *authService) Login(ctx context.Context, input LoginInput) (*UserToken, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		// Don't reveal whether the email exists -- use generic message.
		if isNotFound(err) {
			return nil, apperror.NewUnauthorized(msgInvalidCredentials)
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if !verifyPassword(input.Password, user.PasswordHash) {
		return nil, apperror.NewUnauthorized(msgInvalidCredentials)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return s.startSession(ctx, user)
}

// ForgotPassword stashes {id, first_name} under the user's reset key for one
// session TTL and emails the reset instructions. Mail failures are logged,
// never returned.
func (s *authService) ForgotPassword(ctx context.Context, email, scheme string) error {
	email = normalizeEmail(email)
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	otp := resetOTP{ID: user.ID, FirstName: user.FirstName}
	if err := s.sessions.Stash(ctx, otpName(email), otp, s.sessions.TTL()); err != nil {
		return apperror.NewInternal(fmt.Errorf("storing reset otp: %w", err))
	}

	if s.mail == nil || !s.mail.IsConfigured(ctx) {
		slog.Warn("password reset requested but mail is not configured",
			slog.String("user_id", user.ID),
		)
		return nil
	}

	body := s.resetMessage(scheme)
	if err := s.mail.SendMail(ctx, []string{user.Email}, resetSubject, body); err != nil {
		slog.Error("failed to send password reset email",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return nil
	}

	slog.Info("password reset email sent", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword checks for a live OTP, stores the new hash and starts a
// session. The OTP is left in place until it expires.
func (s *authService) ResetPassword(ctx context.Context, email, password string) (*UserToken, error) {
	email = normalizeEmail(email)
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NewBadRequest(msgInvalidUser)
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	var otp resetOTP
	if err := s.sessions.Peek(ctx, otpName(email), &otp); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, apperror.NewValidation(msgInvalidOTP)
		}
		return nil, apperror.NewInternal(fmt.Errorf("reading reset otp: %w", err))
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("updating password: %w", err))
	}
	user.PasswordHash = hash

	slog.Info("password reset completed", slog.String("user_id", user.ID))
	return s.startSession(ctx, user)
}

// Logout re-resolves the user so a deleted account cannot log out, then
// revokes every session in its index.
func (s *authService) Logout(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return apperror.NewUnauthorized(msgCouldNotAuth)
		}
		return apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if err := s.sessions.Revoke(ctx, user.ID); err != nil {
		return apperror.NewInternal(fmt.Errorf("revoking sessions: %w", err))
	}

	slog.Info("user logged out", slog.String("user_id", user.ID))
	return nil
}

// ValidateSession maps session failures onto their client messages.
func (s *authService) ValidateSession(ctx context.Context, token string) (*session.Subject, error) {
	subject, err := s.sessions.Validate(ctx, token)
	switch {
	case err == nil:
		return subject, nil
	case errors.Is(err, session.ErrNotFound):
		return nil, apperror.NewUnauthorized(msgInvalidToken)
	case errors.Is(err, session.ErrExpired):
		return nil, apperror.NewUnauthorized(msgExpiredToken)
	case errors.Is(err, session.ErrInvalidToken):
		return nil, apperror.NewUnauthorized(msgBadSignature)
	default:
		return nil, apperror.NewInternal(fmt.Errorf("validating session: %w", err))
	}
}

// FindUser returns the user with the given ID.
func (s *authService) FindUser(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NewNotFound("user not found")
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}
	return user, nil
}

// startSession issues a session for user and wraps it for the response.
func (s *authService) startSession(ctx context.Context, user *User) (*UserToken, error) {
	token, ttl, err := s.sessions.Issue(ctx, user.Subject())
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("issuing session: %w", err))
	}
	return &UserToken{User: user, Token: token, TokenTTL: ttl}, nil
}

// resetMessage is the plain-text reset email body.
func (s *authService) resetMessage(scheme string) string {
	if scheme == "" {
		scheme = "http"
	}
	link := fmt.Sprintf("%s://localhost:%d%s/auth/reset-password", scheme, s.port, s.apiVersion)
	return "Forgot password submit a Post request with your new password to: " + link +
		"\n if you didn't forget your password, please ignore this email"
}

// otpName is the logical name of a user's password reset OTP.
func otpName(email string) string {
	return "forgot-password." + email
}

// isNotFound reports whether err carries an apperror with status 404.
func isNotFound(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == 404
}

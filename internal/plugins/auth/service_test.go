package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/cloudsystem/cloudsystem/internal/apperror"
	"github.com/cloudsystem/cloudsystem/internal/session"
)

const testSecret = "test-session-secret-at-least-32-characters"

// --- Mock Repository ---

// mockUserRepo implements UserRepository for testing.
type mockUserRepo struct {
	createFn         func(ctx context.Context, user *User) error
	findByIDFn       func(ctx context.Context, id string) (*User, error)
	findByEmailFn    func(ctx context.Context, email string) (*User, error)
	updatePasswordFn func(ctx context.Context, userID, passwordHash string) error
}

func (m *mockUserRepo) Create(ctx context.Context, user *User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, apperror.NewNotFound("user not found")
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, userID, passwordHash)
	}
	return nil
}

// --- Mock Mail Sender ---

// mockMailSender implements MailSender for testing.
type mockMailSender struct {
	sendMailFn     func(ctx context.Context, to []string, subject, body string) error
	isConfiguredFn func(ctx context.Context) bool
	// Capture fields for assertions.
	lastTo      []string
	lastSubject string
	lastBody    string
	sendCount   int
}

func (m *mockMailSender) SendMail(ctx context.Context, to []string, subject, body string) error {
	m.lastTo = to
	m.lastSubject = subject
	m.lastBody = body
	m.sendCount++
	if m.sendMailFn != nil {
		return m.sendMailFn(ctx, to, subject, body)
	}
	return nil
}

func (m *mockMailSender) IsConfigured(ctx context.Context) bool {
	if m.isConfiguredFn != nil {
		return m.isConfiguredFn(ctx)
	}
	return true
}

// --- Test Helpers ---

// newTestSessions builds a real session service over miniredis.
func newTestSessions(t *testing.T) (session.SessionService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return session.NewSessionService(
		session.NewRedisStore(client),
		session.NewSigner(testSecret),
		session.NewTokenCodec(testSecret, "test", 0),
		time.Hour,
		nil,
	), mr
}

// newTestAuthService creates an authService with a mock repo, a mock mail
// sender and miniredis-backed sessions.
func newTestAuthService(t *testing.T, repo *mockUserRepo) (*authService, *mockMailSender, *miniredis.Miniredis) {
	t.Helper()
	sessions, mr := newTestSessions(t)
	mail := &mockMailSender{}
	svc := NewAuthService(repo, sessions, Options{
		Mail:       mail,
		Port:       8080,
		APIVersion: "/api/v1",
	}).(*authService)
	return svc, mail, mr
}

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) *apperror.AppError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
	return appErr
}

// userWithPassword returns a stored user whose hash matches password.
func userWithPassword(t *testing.T, password string) *User {
	t.Helper()
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	return &User{
		ID:           "6f1c2b5e-8a4d-4d3e-9b2a-1c0d9e8f7a6b",
		FirstName:    "Alice",
		LastName:     "Liddell",
		Email:        "alice@example.com",
		PasswordHash: hash,
		AccountType:  session.RoleUser,
	}
}

// --- Signup Tests ---

func TestSignup_Success(t *testing.T) {
	var created *User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			created = user
			return nil
		},
	}
	svc, _, _ := newTestAuthService(t, repo)

	out, err := svc.Signup(context.Background(), SignupInput{
		Email:     "Alice@Example.com ",
		FirstName: "Alice",
		LastName:  "Liddell",
		Password:  "secure-password-123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created == nil {
		t.Fatal("expected user to be persisted")
	}
	if created.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %s", created.Email)
	}
	if created.AccountType != session.RoleUser {
		t.Errorf("expected default role user, got %s", created.AccountType)
	}
	if !strings.HasPrefix(created.PasswordHash, "$argon2id$") {
		t.Errorf("expected argon2id hash, got %s", created.PasswordHash)
	}
	if out.Token == "" || out.TokenTTL != 3600 {
		t.Errorf("unexpected token response %+v", out)
	}

	subject, err := svc.ValidateSession(context.Background(), out.Token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if subject.ID != created.ID || subject.FirstName != "Alice" {
		t.Errorf("unexpected subject %+v", subject)
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			return ErrDuplicateEmail
		},
	}
	svc, _, _ := newTestAuthService(t, repo)

	_, err := svc.Signup(context.Background(), SignupInput{
		Email: "alice@example.com", FirstName: "A", LastName: "L", Password: "password1",
	})
	appErr := assertAppError(t, err, http.StatusConflict)
	if appErr.Message != msgDuplicateUser {
		t.Errorf("unexpected message %q", appErr.Message)
	}
}

func TestSignup_CreateError(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *User) error {
			return errors.New("connection refused")
		},
	}
	svc, _, _ := newTestAuthService(t, repo)

	_, err := svc.Signup(context.Background(), SignupInput{
		Email: "alice@example.com", FirstName: "A", LastName: "L", Password: "password1",
	})
	appErr := assertAppError(t, err, http.StatusInternalServerError)
	if appErr.Message != apperror.GenericMessage {
		t.Errorf("internal error leaked %q", appErr.Message)
	}
}

// --- Login Tests ---

func TestLogin_Success(t *testing.T) {
	user := userWithPassword(t, "correct-horse")
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			if email != "alice@example.com" {
				t.Errorf("expected normalized lookup, got %s", email)
			}
			return user, nil
		},
	}
	svc, _, _ := newTestAuthService(t, repo)

	out, err := svc.Login(context.Background(), LoginInput{Email: " ALICE@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.User.ID != user.ID || out.Token == "" {
		t.Errorf("unexpected response %+v", out)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	user := userWithPassword(t, "correct-horse")
	tests := map[string]*mockUserRepo{
		"unknown email": {},
		"wrong password": {
			findByEmailFn: func(ctx context.Context, email string) (*User, error) {
				return user, nil
			},
		},
	}
	for name, repo := range tests {
		t.Run(name, func(t *testing.T) {
			svc, _, _ := newTestAuthService(t, repo)
			_, err := svc.Login(context.Background(), LoginInput{Email: "alice@example.com", Password: "battery-staple"})
			appErr := assertAppError(t, err, http.StatusUnauthorized)
			if appErr.Message != msgInvalidCredentials {
				t.Errorf("unexpected message %q", appErr.Message)
			}
		})
	}
}

func TestLogin_LegacyBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("old-password"), 10)
	if err != nil {
		t.Fatal(err)
	}
	user := &User{ID: "u-1", Email: "bob@example.com", PasswordHash: string(hash), AccountType: session.RoleUser}
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return user, nil
		},
	}
	svc, _, _ := newTestAuthService(t, repo)

	if _, err := svc.Login(context.Background(), LoginInput{Email: user.Email, Password: "old-password"}); err != nil {
		t.Fatalf("bcrypt hash should verify: %v", err)
	}
}

// --- Password Reset Tests ---

func TestForgotPassword_KnownEmail(t *testing.T) {
	user := userWithPassword(t, "whatever1")
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return user, nil
		},
	}
	svc, mail, _ := newTestAuthService(t, repo)

	if err := svc.ForgotPassword(context.Background(), "Alice@Example.com", "https"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var otp resetOTP
	if err := svc.sessions.Peek(context.Background(), otpName("alice@example.com"), &otp); err != nil {
		t.Fatalf("expected otp to be stashed: %v", err)
	}
	if otp.ID != user.ID || otp.FirstName != "Alice" {
		t.Errorf("unexpected otp %+v", otp)
	}

	if mail.sendCount != 1 {
		t.Fatalf("expected 1 email sent, got %d", mail.sendCount)
	}
	if mail.lastSubject != resetSubject {
		t.Errorf("unexpected subject %q", mail.lastSubject)
	}
	if len(mail.lastTo) != 1 || mail.lastTo[0] != "alice@example.com" {
		t.Errorf("unexpected recipients %v", mail.lastTo)
	}
	if !strings.Contains(mail.lastBody, "https://localhost:8080/api/v1/auth/reset-password") {
		t.Errorf("reset link missing from body: %q", mail.lastBody)
	}
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	svc, mail, mr := newTestAuthService(t, &mockUserRepo{})

	if err := svc.ForgotPassword(context.Background(), "nobody@example.com", "http"); err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	if mail.sendCount != 0 {
		t.Error("no email should be sent for unknown accounts")
	}
	if len(mr.Keys()) != 0 {
		t.Errorf("no keys should be written, got %v", mr.Keys())
	}
}

func TestForgotPassword_MailFailureIsSwallowed(t *testing.T) {
	user := userWithPassword(t, "whatever1")
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return user, nil
		},
	}
	svc, mail, _ := newTestAuthService(t, repo)
	mail.sendMailFn = func(ctx context.Context, to []string, subject, body string) error {
		return errors.New("smtp down")
	}

	if err := svc.ForgotPassword(context.Background(), user.Email, "http"); err != nil {
		t.Fatalf("mail failure must not surface: %v", err)
	}
}

func TestForgotPassword_MailNotConfigured(t *testing.T) {
	user := userWithPassword(t, "whatever1")
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return user, nil
		},
	}
	svc, mail, _ := newTestAuthService(t, repo)
	mail.isConfiguredFn = func(ctx context.Context) bool { return false }

	if err := svc.ForgotPassword(context.Background(), user.Email, "http"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mail.sendCount != 0 {
		t.Error("should not send when mail is not configured")
	}
}

func TestResetPassword_Success(t *testing.T) {
	user := userWithPassword(t, "old-password")
	var storedHash string
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return user, nil
		},
		updatePasswordFn: func(ctx context.Context, userID, passwordHash string) error {
			if userID != user.ID {
				t.Errorf("expected %s, got %s", user.ID, userID)
			}
			storedHash = passwordHash
			return nil
		},
	}
	svc, _, _ := newTestAuthService(t, repo)

	if err := svc.ForgotPassword(context.Background(), user.Email, "http"); err != nil {
		t.Fatal(err)
	}

	out, err := svc.ResetPassword(context.Background(), user.Email, "new-password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verifyPassword("new-password", storedHash) {
		t.Error("stored hash does not match new password")
	}
	if out.Token == "" {
		t.Error("expected a session token")
	}

	// The OTP is not consumed: a second reset inside the TTL also succeeds.
	if _, err := svc.ResetPassword(context.Background(), user.Email, "newer-password"); err != nil {
		t.Errorf("second reset within TTL failed: %v", err)
	}
}

func TestResetPassword_UnknownUser(t *testing.T) {
	svc, _, _ := newTestAuthService(t, &mockUserRepo{})

	_, err := svc.ResetPassword(context.Background(), "nobody@example.com", "new-password")
	appErr := assertAppError(t, err, http.StatusBadRequest)
	if appErr.Message != msgInvalidUser {
		t.Errorf("unexpected message %q", appErr.Message)
	}
}

func TestResetPassword_NoOTP(t *testing.T) {
	user := userWithPassword(t, "old-password")
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return user, nil
		},
	}
	svc, _, _ := newTestAuthService(t, repo)

	_, err := svc.ResetPassword(context.Background(), user.Email, "new-password")
	appErr := assertAppError(t, err, http.StatusUnprocessableEntity)
	if appErr.Message != msgInvalidOTP {
		t.Errorf("unexpected message %q", appErr.Message)
	}
}

func TestResetPassword_ExpiredOTP(t *testing.T) {
	user := userWithPassword(t, "old-password")
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return user, nil
		},
	}
	svc, _, mr := newTestAuthService(t, repo)

	if err := svc.ForgotPassword(context.Background(), user.Email, "http"); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(time.Hour + time.Second)

	_, err := svc.ResetPassword(context.Background(), user.Email, "new-password")
	assertAppError(t, err, http.StatusUnprocessableEntity)
}

// --- Logout Tests ---

func TestLogout_RevokesAllSessions(t *testing.T) {
	user := userWithPassword(t, "correct-horse")
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*User, error) {
			return user, nil
		},
	}
	svc, _, _ := newTestAuthService(t, repo)
	ctx := context.Background()

	first, err := svc.Login(ctx, LoginInput{Email: user.Email, Password: "correct-horse"})
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := svc.Login(ctx, LoginInput{Email: user.Email, Password: "correct-horse"})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Logout(ctx, user.Email); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, tok := range []string{first.Token, second.Token} {
		_, err := svc.ValidateSession(ctx, tok)
		appErr := assertAppError(t, err, http.StatusUnauthorized)
		if appErr.Message != msgInvalidToken {
			t.Errorf("unexpected message %q", appErr.Message)
		}
	}
}

func TestLogout_UserGone(t *testing.T) {
	svc, _, _ := newTestAuthService(t, &mockUserRepo{})

	err := svc.Logout(context.Background(), "gone@example.com")
	appErr := assertAppError(t, err, http.StatusUnauthorized)
	if appErr.Message != msgCouldNotAuth {
		t.Errorf("unexpected message %q", appErr.Message)
	}
}

// --- Session Validation Tests ---

func TestValidateSession_ErrorMessages(t *testing.T) {
	svc, _, _ := newTestAuthService(t, &mockUserRepo{})

	_, err := svc.ValidateSession(context.Background(), "not-a-token")
	appErr := assertAppError(t, err, http.StatusUnauthorized)
	if appErr.Message != msgBadSignature {
		t.Errorf("garbage token: unexpected message %q", appErr.Message)
	}

	expiring := session.NewTokenCodec(testSecret, "test", time.Millisecond)
	tok, err := expiring.Encode("some-key", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.ValidateSession(context.Background(), tok)
	appErr = assertAppError(t, err, http.StatusUnauthorized)
	if appErr.Message != msgExpiredToken {
		t.Errorf("expired token: unexpected message %q", appErr.Message)
	}

	unknown := session.NewTokenCodec(testSecret, "test", 0)
	tok, err = unknown.Encode("never-stored", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.ValidateSession(context.Background(), tok)
	appErr = assertAppError(t, err, http.StatusUnauthorized)
	if appErr.Message != msgInvalidToken {
		t.Errorf("unknown session: unexpected message %q", appErr.Message)
	}
}

// --- Password Hashing Tests ---

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := hashPassword("my-secure-password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !verifyPassword("my-secure-password", hash) {
		t.Error("expected password to verify")
	}
	if verifyPassword("wrong-password", hash) {
		t.Error("expected wrong password to fail")
	}
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	tests := []string{
		"",
		"not-a-hash",
		"$argon2id$v=19$m=65536,t=3,p=4$invalid",
		"$argon2i$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"$2b$10$short",
	}
	for _, hash := range tests {
		if verifyPassword("password", hash) {
			t.Errorf("expected %q to fail verification", hash)
		}
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	a, _ := hashPassword("same")
	b, _ := hashPassword("same")
	if a == b {
		t.Error("expected different hashes for the same password")
	}
}

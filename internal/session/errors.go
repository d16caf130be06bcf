package session

import "errors"

var (
	// ErrNotFound is returned when the store holds no live record for a key.
	// Expired and revoked sessions both surface as ErrNotFound.
	ErrNotFound = errors.New("session not found")

	// ErrExpired is returned when a bearer token carries a valid signature
	// but is past its hard expiry.
	ErrExpired = errors.New("session token expired")

	// ErrInvalidToken is returned when a bearer token fails signature or
	// format verification.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrMissingSubject is returned by Issue when the subject has no ID.
	ErrMissingSubject = errors.New("session subject id is required")

	// ErrIndexContention is returned when the active-token index could not
	// be updated after repeated optimistic-lock conflicts.
	ErrIndexContention = errors.New("active-token index update contended")
)

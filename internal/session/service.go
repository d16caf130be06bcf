package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SessionService issues, validates and revokes bearer sessions, and offers
// derived-key storage for other short-lived secrets such as password reset
// OTPs.
type SessionService interface {
	// Issue stores a new session for subject, records it in the subject's
	// active-token index and returns the bearer token with its TTL in seconds.
	Issue(ctx context.Context, subject Subject) (token string, ttlSeconds int, err error)

	// Validate resolves a bearer token to its subject and slides the
	// session TTL back to its full value.
	Validate(ctx context.Context, token string) (*Subject, error)

	// Revoke deletes every session listed in the user's active-token index
	// and then the index itself. Revoking a user with no index is a no-op.
	Revoke(ctx context.Context, userID string) error

	// Stash JSON-encodes value under the key derived from name.
	Stash(ctx context.Context, name string, value any, ttl time.Duration) error

	// Peek decodes the value stored under the key derived from name into
	// out. Returns ErrNotFound when absent or expired.
	Peek(ctx context.Context, name string, out any) error

	// TTL is the configured session lifetime.
	TTL() time.Duration

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}

// sessionService implements SessionService on a Store.
type sessionService struct {
	store   Store
	signer  *Signer
	codec   *TokenCodec
	ttl     time.Duration
	metrics *Metrics
	now     func() time.Time
}

// NewSessionService creates a session service. metrics may be nil.
func NewSessionService(store Store, signer *Signer, codec *TokenCodec, ttl time.Duration, metrics *Metrics) SessionService {
	return &sessionService{
		store:   store,
		signer:  signer,
		codec:   codec,
		ttl:     ttl,
		metrics: metrics,
		now:     time.Now,
	}
}

// Issue writes the session record, then appends to the active-token index.
// A failed index write is logged and tolerated: the session stays usable
// until it expires but will not be reached by Revoke.
func (s *sessionService) Issue(ctx context.Context, subject Subject) (string, int, error) {
	if subject.ID == "" {
		return "", 0, ErrMissingSubject
	}

	// Store writes must finish even if the client goes away mid-request.
	ctx = context.WithoutCancel(ctx)

	now := s.now()
	ts := now.UnixMilli()
	key := s.signer.DeriveKey(recordName(subject.ID, ts))

	data, err := json.Marshal(subject)
	if err != nil {
		return "", 0, fmt.Errorf("marshaling session subject: %w", err)
	}
	if err := s.store.Set(ctx, key, data, s.ttl); err != nil {
		return "", 0, fmt.Errorf("storing session: %w", err)
	}

	token, err := s.codec.Encode(key, now)
	if err != nil {
		return "", 0, err
	}

	indexKey := s.signer.DeriveKey(indexName(subject.ID))
	err = s.store.Update(ctx, indexKey, IndexTTL, func(current []byte) ([]byte, error) {
		var entries []TokenEntry
		if current != nil {
			if err := json.Unmarshal(current, &entries); err != nil {
				// A corrupt index cannot be appended to; start over.
				slog.Warn("discarding unreadable active-token index",
					slog.String("user_id", subject.ID),
					slog.Any("error", err),
				)
				entries = nil
			}
		}
		entries = append(entries, TokenEntry{Timestamp: ts, Token: token})
		return json.Marshal(entries)
	})
	if err != nil {
		slog.Warn("session issued but not indexed",
			slog.String("user_id", subject.ID),
			slog.Any("error", err),
		)
	}

	s.metrics.incIssued()
	return token, int(s.ttl / time.Second), nil
}

// Validate decodes the token, then reads the record and resets its TTL
// atomically.
func (s *sessionService) Validate(ctx context.Context, token string) (*Subject, error) {
	key, err := s.codec.Decode(token)
	if err != nil {
		if errors.Is(err, ErrExpired) {
			s.metrics.incValidated("expired")
		} else {
			s.metrics.incValidated("invalid")
		}
		return nil, err
	}

	data, err := s.store.Touch(context.WithoutCancel(ctx), key, s.ttl)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.incValidated("not_found")
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var subject Subject
	if err := json.Unmarshal(data, &subject); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}

	s.metrics.incValidated("ok")
	return &subject, nil
}

// Revoke enumerates the index and deletes the listed records together with
// the index. Sessions issued after the index is read survive.
func (s *sessionService) Revoke(ctx context.Context, userID string) error {
	ctx = context.WithoutCancel(ctx)
	indexKey := s.signer.DeriveKey(indexName(userID))

	data, err := s.store.Get(ctx, indexKey)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading active-token index: %w", err)
	}

	var entries []TokenEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("active-token index unreadable, dropping it",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	keys := make([]string, 0, len(entries)+1)
	for _, e := range entries {
		keys = append(keys, s.signer.DeriveKey(recordName(userID, e.Timestamp)))
	}
	keys = append(keys, indexKey)

	if err := s.store.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("deleting sessions: %w", err)
	}

	s.metrics.incRevoked()
	slog.Info("sessions revoked",
		slog.String("user_id", userID),
		slog.Int("count", len(entries)),
	)
	return nil
}

// Stash stores value under a derived key.
func (s *sessionService) Stash(ctx context.Context, name string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling %q: %w", name, err)
	}
	return s.store.Set(context.WithoutCancel(ctx), s.signer.DeriveKey(name), data, ttl)
}

// Peek reads a value stored by Stash.
func (s *sessionService) Peek(ctx context.Context, name string, out any) error {
	data, err := s.store.Get(ctx, s.signer.DeriveKey(name))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshaling %q: %w", name, err)
	}
	return nil
}

// TTL returns the session lifetime.
func (s *sessionService) TTL() time.Duration {
	return s.ttl
}

// Ping checks the store.
func (s *sessionService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

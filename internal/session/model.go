// Package session owns the bearer-token lifecycle: deriving store keys,
// issuing sessions, sliding their TTL on use, and revoking every session a
// user holds. All state lives in Redis; nothing is cached in process.
package session

import (
	"fmt"
	"time"
)

// IndexTTL is the fixed lifetime of a user's active-token index. It is
// rewritten on every issue and may outlive the sessions it lists.
const IndexTTL = 30 * 24 * time.Hour

// Account types carried on a Subject.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Subject is the identity stored as the value of a session record and
// attached to every authenticated request.
type Subject struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	AccountType string `json:"account_type"`
}

// TokenEntry is one element of a user's active-token index.
type TokenEntry struct {
	Timestamp int64  `json:"timestamp"`
	Token     string `json:"token"`
}

// recordName is the logical name of a session record before key derivation.
func recordName(userID string, issuedAtMillis int64) string {
	return fmt.Sprintf("%s:%d", userID, issuedAtMillis)
}

// indexName is the logical name of a user's active-token index.
func indexName(userID string) string {
	return "AUTH_TOKENS::" + userID
}

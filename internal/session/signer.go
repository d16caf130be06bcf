package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer derives store keys from logical names so that Redis never holds
// raw user IDs or emails as lookup keys.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer keyed with the application session secret.
// The secret must be stable across restarts or every live key is orphaned.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// DeriveKey returns the hex-encoded HMAC-SHA256 of name.
func (s *Signer) DeriveKey(name string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(name))
	return hex.EncodeToString(mac.Sum(nil))
}

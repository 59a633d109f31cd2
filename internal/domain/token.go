package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// TokenPrefixLen is how many characters of a raw token are kept for display.
const TokenPrefixLen = 6

// APIToken is a hashed bearer token that authorizes the intake webhook.
type APIToken struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	TokenHash string     `json:"token_hash"`
	Prefix    string     `json:"token_prefix"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Active reports whether the token has not been revoked.
func (t *APIToken) Active() bool {
	return t.RevokedAt == nil
}

// HashToken returns the hex SHA-256 digest stored for a raw token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// TokenPrefix returns the display prefix of a raw token.
func TokenPrefix(raw string) string {
	if len(raw) <= TokenPrefixLen {
		return raw
	}
	return raw[:TokenPrefixLen]
}

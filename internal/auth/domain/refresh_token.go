package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// RefreshToken is the server-side record of an issued refresh token. The raw
// token is never stored; TokenHash is its SHA-256 hex digest.
type RefreshToken struct {
	ID        string
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (t RefreshToken) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

package domain

import (
	"crypto/sha256"
	"time"

	"github.com/google/uuid"
)

// Session backs a signed token so that logout and password changes can
// revoke it before it expires. Only the token digest is persisted.
type Session struct {
	ID        int64     `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"userId"`
	Token     string    `db:"-" json:"-"`
	TokenHash []byte    `db:"token_hash" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
	IsActive  bool      `db:"is_active" json:"isActive"`
}

func (s Session) IsLive(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}

// TokenDigest is the lookup key stored for a bearer token.
func TokenDigest(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}

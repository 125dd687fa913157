package domain

import (
	"time"

	"github.com/google/uuid"
)

// CodePurpose separates emailed codes so one flow cannot spend another's code.
type CodePurpose string

const (
	PurposePasswordReset CodePurpose = "password_reset"
	PurposeAdminSetup    CodePurpose = "admin_setup"
)

// PasswordReset is an emailed verification code. Only a salted hash of the
// code is kept.
type PasswordReset struct {
	ID        int64       `db:"id" json:"id"`
	UserID    uuid.UUID   `db:"user_id" json:"userId"`
	Purpose   CodePurpose `db:"purpose" json:"purpose"`
	OTPHash   []byte      `db:"otp_hash" json:"-"`
	OTPSalt   []byte      `db:"otp_salt" json:"-"`
	ExpiresAt time.Time   `db:"expires_at" json:"expiresAt"`
	Consumed  bool        `db:"consumed" json:"consumed"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

func (r PasswordReset) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

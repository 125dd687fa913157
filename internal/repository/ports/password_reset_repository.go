package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rootseed/pos-otp-relay/internal/domain"
)

// PasswordResetRepository stores emailed codes, one live code per user and purpose.
type PasswordResetRepository interface {
	Create(ctx context.Context, userID uuid.UUID, purpose domain.CodePurpose, otpHash, otpSalt []byte, expiresAt time.Time) (*domain.PasswordReset, error)
	// FindActiveByUser returns the newest unconsumed code, expired or not, so
	// callers can tell an expired code from a wrong one. sql.ErrNoRows when none.
	FindActiveByUser(ctx context.Context, userID uuid.UUID, purpose domain.CodePurpose) (*domain.PasswordReset, error)
	MarkConsumed(ctx context.Context, id int64) error
	ConsumeByUser(ctx context.Context, userID uuid.UUID, purpose domain.CodePurpose) error
}

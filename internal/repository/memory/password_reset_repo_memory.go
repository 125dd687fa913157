package memory

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/repository/ports"
)

type PasswordResetRepository struct {
	mu     sync.Mutex
	nextID int64
	resets []domain.PasswordReset
}

func NewPasswordResetRepo() *PasswordResetRepository {
	return &PasswordResetRepository{}
}

func (r *PasswordResetRepository) Create(_ context.Context, userID uuid.UUID, purpose domain.CodePurpose, otpHash, otpSalt []byte, expiresAt time.Time) (*domain.PasswordReset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	reset := domain.PasswordReset{
		ID:        r.nextID,
		UserID:    userID,
		Purpose:   purpose,
		OTPHash:   append([]byte(nil), otpHash...),
		OTPSalt:   append([]byte(nil), otpSalt...),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	r.resets = append(r.resets, reset)
	out := reset
	return &out, nil
}

func (r *PasswordResetRepository) FindActiveByUser(_ context.Context, userID uuid.UUID, purpose domain.CodePurpose) (*domain.PasswordReset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.resets) - 1; i >= 0; i-- {
		reset := r.resets[i]
		if reset.UserID == userID && reset.Purpose == purpose && !reset.Consumed {
			out := reset
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *PasswordResetRepository) MarkConsumed(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.resets {
		if r.resets[i].ID == id {
			r.resets[i].Consumed = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r *PasswordResetRepository) ConsumeByUser(_ context.Context, userID uuid.UUID, purpose domain.CodePurpose) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.resets {
		if r.resets[i].UserID == userID && r.resets[i].Purpose == purpose {
			r.resets[i].Consumed = true
		}
	}
	return nil
}

var _ ports.PasswordResetRepository = (*PasswordResetRepository)(nil)

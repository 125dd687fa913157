package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/repository/ports"
)

const resetColumns = `id, user_id, purpose, otp_hash, otp_salt, expires_at, consumed, created_at`

type PasswordResetRepository struct {
	db *sqlx.DB
}

func NewPasswordResetRepo(db *sqlx.DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

func (r *PasswordResetRepository) Create(ctx context.Context, userID uuid.UUID, purpose domain.CodePurpose, otpHash, otpSalt []byte, expiresAt time.Time) (*domain.PasswordReset, error) {
	query := `
        INSERT INTO password_reset (user_id, purpose, otp_hash, otp_salt, expires_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING ` + resetColumns
	var reset domain.PasswordReset
	if err := r.db.QueryRowxContext(ctx, query, userID, purpose, otpHash, otpSalt, expiresAt).StructScan(&reset); err != nil {
		return nil, err
	}
	return &reset, nil
}

// FindActiveByUser does not filter on expires_at.
func (r *PasswordResetRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID, purpose domain.CodePurpose) (*domain.PasswordReset, error) {
	query := `
        SELECT ` + resetColumns + `
        FROM password_reset
        WHERE user_id = $1 AND purpose = $2 AND consumed = FALSE
        ORDER BY created_at DESC, id DESC
        LIMIT 1
    `
	var reset domain.PasswordReset
	if err := r.db.GetContext(ctx, &reset, query, userID, purpose); err != nil {
		return nil, err
	}
	return &reset, nil
}

func (r *PasswordResetRepository) MarkConsumed(ctx context.Context, id int64) error {
	const query = `UPDATE password_reset SET consumed = TRUE, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PasswordResetRepository) ConsumeByUser(ctx context.Context, userID uuid.UUID, purpose domain.CodePurpose) error {
	const query = `
        UPDATE password_reset SET consumed = TRUE, updated_at = NOW()
        WHERE user_id = $1 AND purpose = $2 AND consumed = FALSE
    `
	_, err := r.db.ExecContext(ctx, query, userID, purpose)
	return err
}

var _ ports.PasswordResetRepository = (*PasswordResetRepository)(nil)

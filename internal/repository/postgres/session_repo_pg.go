package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/repository/ports"
)

const sessionColumns = `id, user_id, token_hash, created_at, expires_at, is_active`

// SessionRepository keeps bearer-token sessions keyed by token digest.
type SessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) CreateSession(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*domain.Session, error) {
	var session domain.Session
	err := r.db.GetContext(ctx, &session, `
        INSERT INTO sessions (user_id, token_hash, expires_at)
        VALUES ($1, $2, $3)
        RETURNING `+sessionColumns,
		userID, domain.TokenDigest(token), expiresAt.UTC())
	if err != nil {
		return nil, err
	}
	session.Token = token
	return &session, nil
}

func (r *SessionRepository) FindActiveSession(ctx context.Context, token string) (*domain.Session, error) {
	var session domain.Session
	err := r.db.GetContext(ctx, &session, `
        SELECT `+sessionColumns+` FROM sessions
        WHERE token_hash = $1 AND is_active AND expires_at > NOW()`,
		domain.TokenDigest(token))
	if err != nil {
		return nil, err
	}
	session.Token = token
	return &session, nil
}

func (r *SessionRepository) DeactivateSession(ctx context.Context, token string) error {
	return r.revoke(ctx, `token_hash = $1`, domain.TokenDigest(token))
}

func (r *SessionRepository) DeactivateUserSessions(ctx context.Context, userID uuid.UUID) error {
	return r.revoke(ctx, `user_id = $1`, userID)
}

func (r *SessionRepository) revoke(ctx context.Context, where string, arg any) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = false, expires_at = NOW() WHERE is_active AND `+where, arg)
	return err
}

var _ ports.SessionRepository = (*SessionRepository)(nil)

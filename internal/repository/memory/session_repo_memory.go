package memory

import (
	"context"
	"database/sql"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/repository/ports"
)

// SessionRepository mirrors the postgres table, keyed by hex token digest.
type SessionRepository struct {
	mu       sync.Mutex
	nextID   int64
	sessions map[string]domain.Session
}

func NewSessionRepo() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]domain.Session)}
}

func (r *SessionRepository) CreateSession(_ context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s := domain.Session{
		ID:        r.nextID,
		UserID:    userID,
		Token:     token,
		TokenHash: domain.TokenDigest(token),
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
		IsActive:  true,
	}
	r.sessions[digestKey(token)] = s
	return &s, nil
}

func (r *SessionRepository) DeactivateSession(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := digestKey(token)
	if s, ok := r.sessions[key]; ok && s.IsActive {
		s.IsActive = false
		s.ExpiresAt = time.Now().UTC()
		r.sessions[key] = s
	}
	return nil
}

func (r *SessionRepository) FindActiveSession(_ context.Context, token string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[digestKey(token)]
	if !ok || !s.IsLive(time.Now()) {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (r *SessionRepository) DeactivateUserSessions(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for key, s := range r.sessions {
		if s.UserID == userID && s.IsActive {
			s.IsActive = false
			s.ExpiresAt = now
			r.sessions[key] = s
		}
	}
	return nil
}

func digestKey(token string) string {
	return hex.EncodeToString(domain.TokenDigest(token))
}

var _ ports.SessionRepository = (*SessionRepository)(nil)

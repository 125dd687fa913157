package memory

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/repository/ports"
)

// UserRepository mirrors the postgres repository's contract, including
// sql.ErrNoRows for missing rows, so services behave identically on both.
type UserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]domain.User
}

func NewUserRepo() *UserRepository {
	return &UserRepository{users: make(map[uuid.UUID]domain.User)}
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(user.Email))
	for _, existing := range r.users {
		if existing.Email == email {
			return nil, ports.ErrConflict
		}
	}
	u := *user
	u.ID = uuid.New()
	u.Email = email
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.users[u.ID] = u
	out := u
	return &out, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r *UserRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id })
}

func (r *UserRepository) FindByCashierID(_ context.Context, cashierID string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.CashierID != nil && *u.CashierID == cashierID })
}

func (r *UserRepository) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error {
	return r.mutate(id, func(u *domain.User) {
		u.PasswordHash = append([]byte(nil), passwordHash...)
		u.PasswordSalt = append([]byte(nil), passwordSalt...)
	})
}

func (r *UserRepository) ClearDefaultFlags(_ context.Context, id uuid.UUID) error {
	return r.mutate(id, func(u *domain.User) {
		u.IsDefaultAdmin = false
		u.IsDefaultCashier = false
	})
}

func (r *UserRepository) find(match func(domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			out := u
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *UserRepository) mutate(id uuid.UUID, fn func(u *domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

var _ ports.UserRepository = (*UserRepository)(nil)

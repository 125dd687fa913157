package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/rootseed/pos-otp-relay/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByCashierID(ctx context.Context, cashierID string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error
	ClearDefaultFlags(ctx context.Context, id uuid.UUID) error
}

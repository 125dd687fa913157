package ports

import (
	"context"

	"github.com/rootseed/pos-otp-relay/internal/domain"
)

type MessageRepository interface {
	Create(ctx context.Context, msg domain.Message) (*domain.Message, error)
	// ListAll returns the full current snapshot, latest timestamp first.
	ListAll(ctx context.Context) ([]domain.Message, error)
	FindByID(ctx context.Context, id string) (*domain.Message, error)
	UpdateByID(ctx context.Context, id string, patch domain.MessagePatch) (*domain.Message, error)
	// UpdateIfStatus applies patch only while the stored status is one of
	// expected. It returns ErrConflict when the status has moved on.
	UpdateIfStatus(ctx context.Context, id string, patch domain.MessagePatch, expected ...domain.MessageStatus) (*domain.Message, error)
}

// MessageTransactor is implemented by stores that can run several writes as
// one unit. fn receives a repository bound to the transaction.
type MessageTransactor interface {
	InTx(ctx context.Context, fn func(repo MessageRepository) error) error
}

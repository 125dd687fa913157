package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/repository/ports"
)

type MessageRepository struct {
	mu       sync.Mutex
	messages map[string]domain.Message
	now      func() time.Time
}

func NewMessageRepo() *MessageRepository {
	return &MessageRepository{
		messages: make(map[string]domain.Message),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the clock used for CreatedAt/UpdatedAt stamps.
func (r *MessageRepository) WithClock(now func() time.Time) *MessageRepository {
	r.now = now
	return r
}

func (r *MessageRepository) Create(_ context.Context, msg domain.Message) (*domain.Message, error) {
	msg, ok := msg.ForStorage()
	if !ok {
		return nil, ports.ErrValidation
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	msg.ID = uuid.NewString()
	msg.CreatedAt = r.now()
	msg.UpdatedAt = nil
	r.messages[msg.ID] = cloneMessage(msg)
	out := cloneMessage(msg)
	return &out, nil
}

func (r *MessageRepository) ListAll(_ context.Context) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Message, 0, len(r.messages))
	for _, m := range r.messages {
		out = append(out, cloneMessage(m))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (r *MessageRepository) FindByID(_ context.Context, id string) (*domain.Message, error) {
	id, err := canonicalID(id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.messages[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	out := cloneMessage(m)
	return &out, nil
}

func (r *MessageRepository) UpdateByID(_ context.Context, id string, patch domain.MessagePatch) (*domain.Message, error) {
	return r.update(id, patch, nil)
}

func (r *MessageRepository) UpdateIfStatus(_ context.Context, id string, patch domain.MessagePatch, expected ...domain.MessageStatus) (*domain.Message, error) {
	if len(expected) == 0 {
		return nil, ports.ErrValidation
	}
	return r.update(id, patch, expected)
}

func (r *MessageRepository) update(id string, patch domain.MessagePatch, expected []domain.MessageStatus) (*domain.Message, error) {
	id, err := canonicalID(id)
	if err != nil {
		return nil, err
	}
	if patch.Status != "" && !patch.Status.Valid() {
		return nil, ports.ErrValidation
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.messages[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	if expected != nil && !slices.Contains(expected, existing.Status) {
		return nil, ports.ErrConflict
	}
	updated := existing.Apply(patch, r.now())
	r.messages[id] = cloneMessage(updated)
	out := cloneMessage(updated)
	return &out, nil
}

// canonicalID resolves id to the key messages are stored under.
func canonicalID(id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", ports.ErrInvalidID
	}
	return parsed.String(), nil
}

// cloneMessage detaches pointer fields so callers cannot mutate stored state.
func cloneMessage(m domain.Message) domain.Message {
	m.SenderName = cloneString(m.SenderName)
	m.RecipientID = cloneString(m.RecipientID)
	m.OTP = cloneString(m.OTP)
	m.ExpiresAt = cloneTime(m.ExpiresAt)
	m.UpdatedAt = cloneTime(m.UpdatedAt)
	return m
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

var _ ports.MessageRepository = (*MessageRepository)(nil)

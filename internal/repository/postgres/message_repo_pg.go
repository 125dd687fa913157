package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/repository/ports"
)

const messageColumns = `id, type, sender_id, sender_name, recipient_id, otp, status, "timestamp", expires_at, created_at, updated_at`

// MessageRepository stores relay messages in relay_message. It runs against
// either the pool or an open transaction.
type MessageRepository struct {
	db sqlx.ExtContext
	tx func(ctx context.Context) (*sqlx.Tx, error)
}

func NewMessageRepo(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{
		db: db,
		tx: func(ctx context.Context) (*sqlx.Tx, error) { return db.BeginTxx(ctx, nil) },
	}
}

func (r *MessageRepository) Create(ctx context.Context, msg domain.Message) (*domain.Message, error) {
	msg, ok := msg.ForStorage()
	if !ok {
		return nil, ports.ErrValidation
	}

	query := `
        INSERT INTO relay_message (type, sender_id, sender_name, recipient_id, otp, status, "timestamp", expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING ` + messageColumns

	var created domain.Message
	err := sqlx.GetContext(ctx, r.db, &created, query,
		msg.Type,
		msg.SenderID,
		nullString(msg.SenderName),
		nullString(msg.RecipientID),
		nullString(msg.OTP),
		msg.Status,
		msg.Timestamp,
		nullTime(msg.ExpiresAt),
	)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *MessageRepository) ListAll(ctx context.Context) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM relay_message ORDER BY "timestamp" DESC, created_at DESC`
	var rows []domain.Message
	if err := sqlx.SelectContext(ctx, r.db, &rows, query); err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.Message{}
	}
	return rows, nil
}

func (r *MessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	msgID, err := parseMessageID(id)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + messageColumns + ` FROM relay_message WHERE id = $1`
	var msg domain.Message
	if err := sqlx.GetContext(ctx, r.db, &msg, query, msgID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepository) UpdateByID(ctx context.Context, id string, patch domain.MessagePatch) (*domain.Message, error) {
	return r.update(ctx, id, patch, nil)
}

func (r *MessageRepository) UpdateIfStatus(ctx context.Context, id string, patch domain.MessagePatch, expected ...domain.MessageStatus) (*domain.Message, error) {
	if len(expected) == 0 {
		return nil, ports.ErrValidation
	}
	return r.update(ctx, id, patch, expected)
}

func (r *MessageRepository) update(ctx context.Context, id string, patch domain.MessagePatch, expected []domain.MessageStatus) (*domain.Message, error) {
	msgID, err := parseMessageID(id)
	if err != nil {
		return nil, err
	}
	if patch.Status != "" && !patch.Status.Valid() {
		return nil, ports.ErrValidation
	}

	query, args := updateQuery(msgID, patch, expected)
	var updated domain.Message
	err = sqlx.GetContext(ctx, r.db, &updated, query, args...)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if expected == nil {
		return nil, ports.ErrNotFound
	}
	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, ports.ErrConflict
}

// InTx runs fn against a repository bound to a single transaction. Nested
// calls reuse the outer transaction.
func (r *MessageRepository) InTx(ctx context.Context, fn func(repo ports.MessageRepository) error) error {
	if _, nested := r.db.(*sqlx.Tx); nested {
		return fn(r)
	}
	tx, err := r.tx(ctx)
	if err != nil {
		return err
	}
	scoped := &MessageRepository{db: tx, tx: r.tx}
	if err := fn(scoped); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// updateQuery builds the patch statement. Nil fields keep the stored value.
// A non-nil expected adds a status guard as $7.
func updateQuery(id uuid.UUID, patch domain.MessagePatch, expected []domain.MessageStatus) (string, []any) {
	const queryTemplate = `
        UPDATE relay_message
        SET status = COALESCE(NULLIF($2::text, ''), status),
            otp = CASE WHEN $3::boolean THEN $4::text ELSE COALESCE($4::text, otp) END,
            recipient_id = COALESCE($5::text, recipient_id),
            expires_at = COALESCE($6::timestamptz, expires_at),
            updated_at = NOW()
        WHERE id = $1 %s
        RETURNING ` + messageColumns

	where := ""
	args := []any{
		id,
		string(patch.Status),
		patch.ClearOTP,
		nullString(patch.OTP),
		nullString(patch.RecipientID),
		nullTime(patch.ExpiresAt),
	}
	if expected != nil {
		statuses := make([]string, 0, len(expected))
		for _, s := range expected {
			statuses = append(statuses, string(s))
		}
		where = "AND status = ANY($7)"
		args = append(args, pq.Array(statuses))
	}
	return fmt.Sprintf(queryTemplate, where), args
}

func parseMessageID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, ports.ErrInvalidID
	}
	return parsed, nil
}

var (
	_ ports.MessageRepository = (*MessageRepository)(nil)
	_ ports.MessageTransactor = (*MessageRepository)(nil)
)

//go:build container
// +build container

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/repository/ports"
)

func setupPostgres(t *testing.T) *MessageRepository {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "relay",
			"POSTGRES_PASSWORD": "relay",
			"POSTGRES_DB":       "relay",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	db, err := New(fmt.Sprintf("postgres://relay:relay@%s:%s/relay?sslmode=disable", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(ctx, db))

	return NewMessageRepo(db)
}

func TestMessageRepoAgainstPostgres(t *testing.T) {
	repo := setupPostgres(t)
	ctx := context.Background()

	t.Run("empty status stored as pending", func(t *testing.T) {
		created, err := repo.Create(ctx, domain.Message{
			Type:      domain.MessageTypeOTPRequest,
			SenderID:  "CS001",
			Timestamp: time.Now().UTC(),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.MessageStatusPending, created.Status)
	})

	t.Run("guarded update conflicts on status mismatch", func(t *testing.T) {
		created, err := repo.Create(ctx, domain.Message{
			Type:      domain.MessageTypeOTPRequest,
			SenderID:  "CS002",
			Timestamp: time.Now().UTC(),
		})
		require.NoError(t, err)

		code := "482913"
		updated, err := repo.UpdateIfStatus(ctx, created.ID,
			domain.MessagePatch{Status: domain.MessageStatusGenerated, OTP: &code},
			domain.MessageStatusPending)
		require.NoError(t, err)
		assert.Equal(t, domain.MessageStatusGenerated, updated.Status)
		require.NotNil(t, updated.OTP)
		assert.Equal(t, code, *updated.OTP)

		_, err = repo.UpdateIfStatus(ctx, created.ID,
			domain.MessagePatch{Status: domain.MessageStatusGenerated},
			domain.MessageStatusPending)
		assert.ErrorIs(t, err, ports.ErrConflict)

		_, err = repo.UpdateIfStatus(ctx, "6f1e6a0e-2b7c-4d5e-9f10-1234567890ab",
			domain.MessagePatch{Status: domain.MessageStatusUsed},
			domain.MessageStatusPending)
		assert.ErrorIs(t, err, ports.ErrNotFound)
	})

	t.Run("nil fields keep stored values", func(t *testing.T) {
		code, recipient := "111222", "CS003"
		created, err := repo.Create(ctx, domain.Message{
			Type:        domain.MessageTypeOTPResponse,
			SenderID:    "ADMIN",
			RecipientID: &recipient,
			OTP:         &code,
			Timestamp:   time.Now().UTC(),
		})
		require.NoError(t, err)

		updated, err := repo.UpdateByID(ctx, created.ID, domain.MessagePatch{Status: domain.MessageStatusDelivered})
		require.NoError(t, err)
		assert.Equal(t, domain.MessageStatusDelivered, updated.Status)
		require.NotNil(t, updated.OTP)
		assert.Equal(t, code, *updated.OTP)
		require.NotNil(t, updated.RecipientID)
		assert.Equal(t, recipient, *updated.RecipientID)

		cleared, err := repo.UpdateByID(ctx, created.ID, domain.MessagePatch{ClearOTP: true})
		require.NoError(t, err)
		assert.Nil(t, cleared.OTP)
	})

	t.Run("failed transaction rolls back", func(t *testing.T) {
		created, err := repo.Create(ctx, domain.Message{
			Type:      domain.MessageTypeOTPRequest,
			SenderID:  "CS004",
			Timestamp: time.Now().UTC(),
		})
		require.NoError(t, err)

		boom := errors.New("boom")
		err = repo.InTx(ctx, func(tx ports.MessageRepository) error {
			if _, err := tx.UpdateByID(ctx, created.ID, domain.MessagePatch{Status: domain.MessageStatusUsed}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		after, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.MessageStatusPending, after.Status)
	})
}

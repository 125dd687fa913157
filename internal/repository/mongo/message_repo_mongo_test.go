package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/repository/ports"
)

func TestParseObjectIDRejectsMalformed(t *testing.T) {
	for _, id := range []string{"", "abc", "6f1e6a0e-2b7c-4d5e-9f10-1234567890ab", "zzzzzzzzzzzzzzzzzzzzzzzz"} {
		_, err := parseObjectID(id)
		assert.ErrorIs(t, err, ports.ErrInvalidID, id)
	}
}

func TestParseObjectIDAcceptsHex(t *testing.T) {
	oid := primitive.NewObjectID()
	got, err := parseObjectID(" " + oid.Hex() + " ")
	require.NoError(t, err)
	assert.Equal(t, oid, got)
}

func TestDocumentToDomain(t *testing.T) {
	oid := primitive.NewObjectID()
	code := "482913"
	recipient := "CS001"
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	exp := ts.Add(5 * time.Minute)

	msg := messageDocument{
		ID:          oid,
		Type:        string(domain.MessageTypeOTPResponse),
		SenderID:    "admin",
		RecipientID: &recipient,
		OTP:         &code,
		Status:      string(domain.MessageStatusPending),
		Timestamp:   ts,
		ExpiresAt:   &exp,
		CreatedAt:   ts,
	}.toDomain()

	assert.Equal(t, oid.Hex(), msg.ID)
	assert.Equal(t, domain.MessageTypeOTPResponse, msg.Type)
	assert.Equal(t, "482913", msg.Code())
	assert.True(t, msg.IsLiveResponseFor("CS001", ts.Add(time.Minute)))
}

func TestStatusFilter(t *testing.T) {
	oid := primitive.NewObjectID()

	assert.Equal(t, bson.M{"_id": oid}, statusFilter(oid, nil))
	assert.Equal(t,
		bson.M{"_id": oid, "status": bson.M{"$in": []string{"pending", "delivered"}}},
		statusFilter(oid, []domain.MessageStatus{domain.MessageStatusPending, domain.MessageStatusDelivered}))
}

func TestUpdateDocument(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	code, recipient := "482913", "CS001"
	exp := now.Add(5 * time.Minute)

	t.Run("status only", func(t *testing.T) {
		got := updateDocument(domain.MessagePatch{Status: domain.MessageStatusUsed}, now)
		assert.Equal(t, bson.M{"$set": bson.M{"updatedAt": now, "status": "used"}}, got)
	})

	t.Run("full patch", func(t *testing.T) {
		got := updateDocument(domain.MessagePatch{
			Status:      domain.MessageStatusGenerated,
			OTP:         &code,
			RecipientID: &recipient,
			ExpiresAt:   &exp,
		}, now)
		assert.Equal(t, bson.M{"$set": bson.M{
			"updatedAt":   now,
			"status":      "generated",
			"otp":         code,
			"recipientId": recipient,
			"expiresAt":   exp,
		}}, got)
	})

	t.Run("clear code", func(t *testing.T) {
		got := updateDocument(domain.MessagePatch{Status: domain.MessageStatusPending, ClearOTP: true}, now)
		assert.Equal(t, bson.M{
			"$set":   bson.M{"updatedAt": now, "status": "pending"},
			"$unset": bson.M{"otp": ""},
		}, got)
	})

	t.Run("new code beats clear", func(t *testing.T) {
		got := updateDocument(domain.MessagePatch{OTP: &code, ClearOTP: true}, now)
		assert.NotContains(t, got, "$unset")
		assert.Equal(t, code, got["$set"].(bson.M)["otp"])
	})
}

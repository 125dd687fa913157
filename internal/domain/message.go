package domain

import (
	"strings"
	"time"
)

type MessageType string

const (
	MessageTypeOTPRequest  MessageType = "OTP_REQUEST"
	MessageTypeOTPResponse MessageType = "OTP_RESPONSE"
)

func (t MessageType) Valid() bool {
	return t == MessageTypeOTPRequest || t == MessageTypeOTPResponse
}

type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusGenerated MessageStatus = "generated"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusUsed      MessageStatus = "used"
	MessageStatusExpired   MessageStatus = "expired"
)

func (s MessageStatus) Valid() bool {
	switch s {
	case MessageStatusPending, MessageStatusGenerated, MessageStatusDelivered, MessageStatusUsed, MessageStatusExpired:
		return true
	}
	return false
}

// Message is one relay record. Requests are broadcast to every admin; responses
// target a single cashier through RecipientID.
type Message struct {
	ID          string        `db:"id" json:"id"`
	Type        MessageType   `db:"type" json:"type"`
	SenderID    string        `db:"sender_id" json:"senderId"`
	SenderName  *string       `db:"sender_name" json:"senderName,omitempty"`
	RecipientID *string       `db:"recipient_id" json:"recipientId,omitempty"`
	OTP         *string       `db:"otp" json:"otp,omitempty"`
	Status      MessageStatus `db:"status" json:"status"`
	Timestamp   time.Time     `db:"timestamp" json:"timestamp"`
	ExpiresAt   *time.Time    `db:"expires_at" json:"expiresAt,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   *time.Time    `db:"updated_at" json:"updatedAt,omitempty"`
}

// MessagePatch is a partial update. Nil fields are left untouched.
type MessagePatch struct {
	Status      MessageStatus
	OTP         *string
	RecipientID *string
	ExpiresAt   *time.Time
	// ClearOTP drops a previously stored code. Used when a half-finished
	// generation is rolled back.
	ClearOTP bool
}

func (m Message) IsExpired(now time.Time) bool {
	return m.ExpiresAt != nil && now.After(*m.ExpiresAt)
}

// IsActionable reports whether a consumer may still act on the message.
func (m Message) IsActionable(now time.Time) bool {
	if m.IsExpired(now) {
		return false
	}
	return m.Status != MessageStatusUsed && m.Status != MessageStatusExpired
}

func (m Message) IsPendingRequest(now time.Time) bool {
	return m.Type == MessageTypeOTPRequest && m.Status == MessageStatusPending && !m.IsExpired(now)
}

// IsLiveResponseFor reports whether m is an unexpired, unused code addressed to cashierID.
func (m Message) IsLiveResponseFor(cashierID string, now time.Time) bool {
	if m.Type != MessageTypeOTPResponse || m.RecipientID == nil || *m.RecipientID != cashierID {
		return false
	}
	return m.IsActionable(now)
}

func (m Message) Code() string {
	if m.OTP == nil {
		return ""
	}
	return *m.OTP
}

// ForStorage checks the fields every store requires and defaults an empty
// status to pending. ok is false when m cannot be stored.
func (m Message) ForStorage() (out Message, ok bool) {
	if !m.Type.Valid() || strings.TrimSpace(m.SenderID) == "" {
		return m, false
	}
	switch {
	case m.Status == "":
		m.Status = MessageStatusPending
	case !m.Status.Valid():
		return m, false
	}
	return m, true
}

// Apply returns a copy of m with patch applied and UpdatedAt stamped.
func (m Message) Apply(patch MessagePatch, now time.Time) Message {
	if patch.Status != "" {
		m.Status = patch.Status
	}
	if patch.ClearOTP {
		m.OTP = nil
	}
	if patch.OTP != nil {
		otp := *patch.OTP
		m.OTP = &otp
	}
	if patch.RecipientID != nil {
		rid := *patch.RecipientID
		m.RecipientID = &rid
	}
	if patch.ExpiresAt != nil {
		exp := *patch.ExpiresAt
		m.ExpiresAt = &exp
	}
	stamp := now
	m.UpdatedAt = &stamp
	return m
}

package domain

import "time"

// RelayActivity summarises relay events found in the log index.
type RelayActivity struct {
	Since       time.Time         `json:"since"`
	Until       time.Time         `json:"until"`
	Events      map[string]int64  `json:"events"`
	TopCashiers []CashierActivity `json:"topCashiers"`
}

type CashierActivity struct {
	CashierID string `json:"cashierId"`
	Requests  int64  `json:"requests"`
}

// ArchivedMessage is the archive form of a message. Codes are never written
// out; HasOTP records whether one was set.
type ArchivedMessage struct {
	ID          string        `json:"id"`
	Type        MessageType   `json:"type"`
	SenderID    string        `json:"senderId"`
	RecipientID *string       `json:"recipientId,omitempty"`
	Status      MessageStatus `json:"status"`
	HasOTP      bool          `json:"hasOtp"`
	Timestamp   time.Time     `json:"timestamp"`
	ExpiresAt   *time.Time    `json:"expiresAt,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   *time.Time    `json:"updatedAt,omitempty"`
}

func ArchiveOf(m Message) ArchivedMessage {
	return ArchivedMessage{
		ID:          m.ID,
		Type:        m.Type,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Status:      m.Status,
		HasOTP:      m.Code() != "",
		Timestamp:   m.Timestamp,
		ExpiresAt:   m.ExpiresAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type ArchiveResult struct {
	Object     string    `json:"object"`
	URL        string    `json:"url"`
	Format     string    `json:"format"`
	Count      int       `json:"count"`
	ExportedAt time.Time `json:"exportedAt"`
}

package domain

import "time"

type MessageSender string

const (
	SenderHost  MessageSender = "HOST"
	SenderGuest MessageSender = "GUEST"
)

type Message struct {
	ID         int64         `json:"id"`
	BookingID  int64         `json:"bookingId"`
	ExternalID *string       `json:"smoobuMessageId,omitempty"`
	Sender     MessageSender `json:"sender"`
	Subject    *string       `json:"subject,omitempty"`
	Content    string        `json:"content"`
	SentAt     time.Time     `json:"sentAt"`
	SyncedAt   *time.Time    `json:"syncedAt,omitempty"`
}

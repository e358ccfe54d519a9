package domain

import (
	"encoding/json"
	"time"
)

type OutboxEventType string

const (
	EventBookingAcceptance   OutboxEventType = "booking.acceptance"
	EventBookingConfirmation OutboxEventType = "booking.confirmation"
)

type OutboxStatus string

const (
	OutboxNew        OutboxStatus = "new"
	OutboxProcessing OutboxStatus = "processing"
	OutboxSent       OutboxStatus = "sent"
	OutboxDead       OutboxStatus = "dead"
)

// OutboxEvent is a pending notification written in the same transaction as
// the booking change that caused it.
type OutboxEvent struct {
	ID            string          `json:"id"`
	BookingID     string          `json:"booking_id"`
	BusinessID    string          `json:"business_id"`
	Type          OutboxEventType `json:"type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Status        OutboxStatus    `json:"status"`
	Attempts      int             `json:"attempts"`
	NextAttemptAt time.Time       `json:"next_attempt_at"`
	LastError     string          `json:"last_error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NotificationPayload is the snapshot carried by an outbox event so the
// message reflects the state at commit time, not at delivery time.
type NotificationPayload struct {
	TransactionID string `json:"transaction_id,omitempty"`
	RoomNumber    string `json:"room_number,omitempty"`
}

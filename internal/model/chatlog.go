package model

import (
	"time"
)

// ChatLog is one row of the append-only audit record of every message
// exchanged with a customer. Rows are never updated or deleted.
type ChatLog struct {
	ID            string        `db:"id" json:"id"`
	CustomerID    string        `db:"customer_id" json:"customerId"`
	EventID       *string       `db:"event_id" json:"eventId,omitempty"`
	Direction     ChatDirection `db:"direction" json:"direction"`
	MessageType   MessageType   `db:"message_type" json:"messageType"`
	Body          string        `db:"body" json:"body"`
	SourceEventID *string       `db:"source_event_id" json:"sourceEventId,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
}

type CreateChatLogParams struct {
	CustomerID    string
	EventID       *string
	Direction     ChatDirection
	MessageType   MessageType
	Body          string
	SourceEventID *string
}

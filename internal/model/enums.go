package model

type CustomerStatus string

const (
	CustomerStatusNew     CustomerStatus = "new"
	CustomerStatusPending CustomerStatus = "pending"
	CustomerStatusActive  CustomerStatus = "active"
	CustomerStatusBlocked CustomerStatus = "blocked"
)

type EventStatus string

const (
	EventStatusDraft      EventStatus = "draft"
	EventStatusConfirmed  EventStatus = "confirmed"
	EventStatusInProgress EventStatus = "in-progress"
	EventStatusCompleted  EventStatus = "completed"
	EventStatusCancelled  EventStatus = "cancelled"
)

// IsTerminal reports whether an event in this status no longer accepts
// inbound conversation linking.
func (s EventStatus) IsTerminal() bool {
	return s == EventStatusCompleted || s == EventStatusCancelled
}

type ChatDirection string

const (
	ChatDirectionInbound  ChatDirection = "inbound"
	ChatDirectionOutbound ChatDirection = "outbound"
)

// MessageType tags a chat log row with the shape of its body.
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeSticker  MessageType = "sticker"
	MessageTypePostback MessageType = "postback"

	MessageTypeEventCard    MessageType = "event-card"
	MessageTypeStatusUpdate MessageType = "status"
	MessageTypeQuotation    MessageType = "quotation"
	MessageTypeAdminMessage MessageType = "admin-message"
	MessageTypeChat         MessageType = "chat"
	MessageTypeCustom       MessageType = "custom"
)

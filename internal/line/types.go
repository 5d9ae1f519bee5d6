package line

// Platform ceilings. One API call carries at most MaxMessagesPerRequest
// message objects; a multicast addresses at most MaxMulticastRecipients.
const (
	MaxMessagesPerRequest  = 5
	MaxMulticastRecipients = 500
)

// Webhook request types

type WebhookRequest struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

type EventType string

const (
	EventTypeMessage  EventType = "message"
	EventTypeFollow   EventType = "follow"
	EventTypeUnfollow EventType = "unfollow"
	EventTypePostback EventType = "postback"
)

type Event struct {
	Type            EventType        `json:"type"`
	WebhookEventID  string           `json:"webhookEventId,omitempty"`
	Timestamp       int64            `json:"timestamp"`
	Source          *Source          `json:"source,omitempty"`
	ReplyToken      string           `json:"replyToken,omitempty"`
	Message         *MessageContent  `json:"message,omitempty"`
	Postback        *Postback        `json:"postback,omitempty"`
	DeliveryContext *DeliveryContext `json:"deliveryContext,omitempty"`
}

type Source struct {
	Type   string `json:"type"`
	UserID string `json:"userId,omitempty"`
}

type MessageContent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	PackageID string `json:"packageId,omitempty"`
	StickerID string `json:"stickerId,omitempty"`
}

type Postback struct {
	Data   string            `json:"data"`
	Params map[string]string `json:"params,omitempty"`
}

type DeliveryContext struct {
	IsRedelivery bool `json:"isRedelivery"`
}

// UserID returns the sender's external user id, or "" when the event has no
// resolvable sender.
func (e *Event) UserID() string {
	if e.Source == nil {
		return ""
	}
	return e.Source.UserID
}

// Outbound message objects

// Message is one deliverable unit of an outbound batch. The omitempty tags
// keep each serialized object down to the fields its type requires.
type Message struct {
	Type               string `json:"type"`
	Text               string `json:"text,omitempty"`
	OriginalContentURL string `json:"originalContentUrl,omitempty"`
	PreviewImageURL    string `json:"previewImageUrl,omitempty"`
	AltText            string `json:"altText,omitempty"`
	Contents           any    `json:"contents,omitempty"`
}

func NewTextMessage(text string) Message {
	return Message{Type: "text", Text: text}
}

func NewImageMessage(contentURL, previewURL string) Message {
	if previewURL == "" {
		previewURL = contentURL
	}
	return Message{
		Type:               "image",
		OriginalContentURL: contentURL,
		PreviewImageURL:    previewURL,
	}
}

func NewFlexMessage(altText string, contents any) Message {
	return Message{Type: "flex", AltText: altText, Contents: contents}
}

// Profile endpoint response

type Profile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl,omitempty"`
	StatusMessage string `json:"statusMessage,omitempty"`
}

// Follower listing response. Next is the continuation cursor; empty means the
// listing is exhausted.
type FollowerIDs struct {
	UserIDs []string `json:"userIds"`
	Next    string   `json:"next,omitempty"`
}

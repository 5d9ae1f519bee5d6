package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brightstage/line-gateway/internal/model"
	"github.com/brightstage/line-gateway/internal/repository"
	"github.com/brightstage/line-gateway/internal/sse"
)

// outboundLogTimeout bounds the detached audit write after a send.
const outboundLogTimeout = 10 * time.Second

type ChatLogService struct {
	repo   repository.ChatLogRepository
	broker *sse.Broker
}

func NewChatLogService(repo repository.ChatLogRepository, broker *sse.Broker) *ChatLogService {
	return &ChatLogService{repo: repo, broker: broker}
}

type AppendInboundParams struct {
	CustomerID    string
	EventID       *string
	MessageType   model.MessageType
	Body          string
	SourceEventID *string
}

func (s *ChatLogService) AppendInbound(ctx context.Context, params AppendInboundParams) (*model.ChatLog, error) {
	entry, err := s.repo.Create(ctx, model.CreateChatLogParams{
		CustomerID:    params.CustomerID,
		EventID:       params.EventID,
		Direction:     model.ChatDirectionInbound,
		MessageType:   params.MessageType,
		Body:          params.Body,
		SourceEventID: params.SourceEventID,
	})
	if err != nil {
		return nil, fmt.Errorf("append inbound chat log: %w", err)
	}

	log.Info().
		Str("chatLogId", entry.ID).
		Str("customerId", params.CustomerID).
		Str("messageType", string(params.MessageType)).
		Msg("inbound chat log created")

	s.publish(ctx, entry)

	return entry, nil
}

type AppendOutboundParams struct {
	CustomerID  string
	EventID     *string
	MessageType model.MessageType
	Body        string
}

// AppendOutboundBestEffort records an outbound send in the audit log without
// blocking or failing the delivery path. A logging failure must never make a
// successfully delivered message look failed, so errors are logged and
// dropped here.
func (s *ChatLogService) AppendOutboundBestEffort(params AppendOutboundParams) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), outboundLogTimeout)
		defer cancel()

		entry, err := s.repo.Create(ctx, model.CreateChatLogParams{
			CustomerID:  params.CustomerID,
			EventID:     params.EventID,
			Direction:   model.ChatDirectionOutbound,
			MessageType: params.MessageType,
			Body:        params.Body,
		})
		if err != nil {
			log.Warn().
				Err(err).
				Str("customerId", params.CustomerID).
				Msg("outbound chat log write failed, message was still delivered")
			return
		}

		s.publish(ctx, entry)
	}()
}

type ChatHistoryResult struct {
	Entries []model.ChatLog `json:"entries"`
	Total   int             `json:"total"`
	HasMore bool            `json:"hasMore"`
}

func (s *ChatLogService) History(ctx context.Context, customerID string, limit, offset int) (*ChatHistoryResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	entries, err := s.repo.ListByCustomerID(ctx, customerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list chat logs: %w", err)
	}

	total, err := s.repo.CountByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("count chat logs: %w", err)
	}

	return &ChatHistoryResult{
		Entries: entries,
		Total:   total,
		HasMore: offset+len(entries) < total,
	}, nil
}

// SeenSourceEvent reports whether a platform event id was already persisted.
// Used to drop webhook redeliveries.
func (s *ChatLogService) SeenSourceEvent(ctx context.Context, sourceEventID string) (bool, error) {
	return s.repo.ExistsBySourceEventID(ctx, sourceEventID)
}

func (s *ChatLogService) publish(ctx context.Context, entry *model.ChatLog) {
	if s.broker == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := s.broker.Publish(ctx, sse.Event{Type: "chat", Data: data}); err != nil {
		log.Warn().Err(err).Str("chatLogId", entry.ID).Msg("failed to publish chat event")
	}
}

// Envelope is the JSON shape stored in the body of outbound structured sends.
type Envelope struct {
	Type       string   `json:"type"`
	Text       string   `json:"text,omitempty"`
	SenderName string   `json:"senderName,omitempty"`
	ImageURLs  []string `json:"imageUrls,omitempty"`
	EventID    string   `json:"eventId,omitempty"`
}

// DecodeEnvelope parses a chat log body as an outbound envelope. A plain-text
// body returns nil; that is the normal case for inbound rows, not an error.
func DecodeEnvelope(body string) *Envelope {
	trimmed := strings.TrimSpace(body)
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}

	var env Envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return nil
	}
	if env.Type == "" {
		return nil
	}
	return &env
}

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brightstage/line-gateway/internal/line"
	"github.com/brightstage/line-gateway/internal/model"
	"github.com/brightstage/line-gateway/internal/service"
)

// WebhookHandler ingests platform event batches. It always answers
// 200 {"success":true} once the batch has been walked: a non-2xx would make
// the platform redeliver the whole batch, including events already persisted.
type WebhookHandler struct {
	profiles  *service.ProfileResolver
	customers *service.CustomerService
	events    *service.EventService
	chatlogs  *service.ChatLogService
}

func NewWebhookHandler(
	profiles *service.ProfileResolver,
	customers *service.CustomerService,
	events *service.EventService,
	chatlogs *service.ChatLogService,
) *WebhookHandler {
	return &WebhookHandler{
		profiles:  profiles,
		customers: customers,
		events:    events,
		chatlogs:  chatlogs,
	}
}

func (h *WebhookHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var req line.WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("invalid webhook request body")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	log.Info().Int("events", len(req.Events)).Msg("received webhook batch")

	ctx := r.Context()
	for i := range req.Events {
		// One event's failure never aborts the rest of the batch.
		if err := h.handleEvent(ctx, &req.Events[i]); err != nil {
			log.Error().
				Err(err).
				Str("eventType", string(req.Events[i].Type)).
				Str("lineUid", req.Events[i].UserID()).
				Msg("webhook event processing failed")
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *WebhookHandler) handleEvent(ctx context.Context, ev *line.Event) error {
	if ev.WebhookEventID != "" {
		seen, err := h.chatlogs.SeenSourceEvent(ctx, ev.WebhookEventID)
		if err != nil {
			log.Warn().Err(err).Str("webhookEventId", ev.WebhookEventID).Msg("dedupe lookup failed, processing anyway")
		} else if seen {
			log.Debug().
				Str("webhookEventId", ev.WebhookEventID).
				Bool("redelivery", ev.DeliveryContext != nil && ev.DeliveryContext.IsRedelivery).
				Msg("duplicate webhook event dropped")
			return nil
		}
	}

	switch ev.Type {
	case line.EventTypeMessage:
		return h.handleMessage(ctx, ev)
	case line.EventTypeFollow:
		return h.handleFollow(ctx, ev)
	case line.EventTypeUnfollow:
		return h.handleUnfollow(ctx, ev)
	case line.EventTypePostback:
		return h.handlePostback(ctx, ev)
	default:
		log.Debug().Str("eventType", string(ev.Type)).Msg("unhandled webhook event type ignored")
		return nil
	}
}

func (h *WebhookHandler) handleMessage(ctx context.Context, ev *line.Event) error {
	lineUID := ev.UserID()
	if lineUID == "" || ev.Message == nil {
		log.Debug().Msg("message event without sender or content dropped")
		return nil
	}

	profile := h.profiles.Resolve(ctx, lineUID)

	cust, err := h.customers.Upsert(ctx, lineUID, profile, model.CustomerStatusPending, eventTime(ev))
	if err != nil {
		return err
	}

	var eventID *string
	activeID, err := h.events.FindActiveEventID(ctx, cust.ID)
	if err != nil {
		log.Warn().Err(err).Str("customerId", cust.ID).Msg("active event lookup failed, logging unlinked")
	} else if activeID != "" {
		eventID = &activeID
	}

	msgType, body := normalizeMessage(ev.Message)

	var sourceID *string
	if ev.WebhookEventID != "" {
		sourceID = &ev.WebhookEventID
	}

	_, err = h.chatlogs.AppendInbound(ctx, service.AppendInboundParams{
		CustomerID:    cust.ID,
		EventID:       eventID,
		MessageType:   msgType,
		Body:          body,
		SourceEventID: sourceID,
	})
	return err
}

func (h *WebhookHandler) handleFollow(ctx context.Context, ev *line.Event) error {
	lineUID := ev.UserID()
	if lineUID == "" {
		return nil
	}

	profile := h.profiles.Resolve(ctx, lineUID)

	cust, err := h.customers.Upsert(ctx, lineUID, profile, model.CustomerStatusNew, eventTime(ev))
	if err != nil {
		return err
	}

	log.Info().Str("customerId", cust.ID).Str("lineUid", lineUID).Msg("follow event processed")
	return nil
}

func (h *WebhookHandler) handleUnfollow(ctx context.Context, ev *line.Event) error {
	lineUID := ev.UserID()
	if lineUID == "" {
		return nil
	}
	return h.customers.MarkBlocked(ctx, lineUID)
}

// handlePostback records the postback payload against the customer's log when
// the sender is already known. Unknown senders only produce an audit line.
func (h *WebhookHandler) handlePostback(ctx context.Context, ev *line.Event) error {
	lineUID := ev.UserID()
	if lineUID == "" || ev.Postback == nil {
		return nil
	}

	log.Info().Str("lineUid", lineUID).Str("data", ev.Postback.Data).Msg("postback received")

	cust, err := h.customers.FindByLineUID(ctx, lineUID)
	if err != nil {
		return err
	}
	if cust == nil {
		return nil
	}

	var sourceID *string
	if ev.WebhookEventID != "" {
		sourceID = &ev.WebhookEventID
	}

	_, err = h.chatlogs.AppendInbound(ctx, service.AppendInboundParams{
		CustomerID:    cust.ID,
		MessageType:   model.MessageTypePostback,
		Body:          ev.Postback.Data,
		SourceEventID: sourceID,
	})
	return err
}

// normalizeMessage maps a platform message to a log type tag and body. Binary
// content is never stored; non-text types keep only the platform's content
// reference.
func normalizeMessage(msg *line.MessageContent) (model.MessageType, string) {
	switch msg.Type {
	case "text":
		return model.MessageTypeText, msg.Text
	case "image":
		return model.MessageTypeImage, "image:" + msg.ID
	case "sticker":
		return model.MessageTypeSticker, fmt.Sprintf("sticker:%s/%s", msg.PackageID, msg.StickerID)
	default:
		return model.MessageType(msg.Type), fmt.Sprintf("%s:%s", msg.Type, msg.ID)
	}
}

// eventTime converts the platform's epoch-millis timestamp, falling back to
// zero (the directory substitutes the wall clock) when absent.
func eventTime(ev *line.Event) time.Time {
	if ev.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ev.Timestamp)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	apperrors "github.com/brightstage/line-gateway/internal/errors"
	"github.com/brightstage/line-gateway/internal/jobs"
	"github.com/brightstage/line-gateway/internal/line"
	"github.com/brightstage/line-gateway/internal/model"
	"github.com/brightstage/line-gateway/internal/service"
)

// SyncRunner triggers one follower reconciliation pass.
type SyncRunner interface {
	Run(ctx context.Context) (*jobs.SyncResult, error)
}

// BackofficeHandler is the token-authenticated API the admin frontend talks
// to: outbound sends, the customer directory, chat history, and the follower
// sync trigger.
type BackofficeHandler struct {
	customers  *service.CustomerService
	events     *service.EventService
	chatlogs   *service.ChatLogService
	dispatcher *service.Dispatcher
	sync       SyncRunner
	validate   *validator.Validate
}

func NewBackofficeHandler(
	customers *service.CustomerService,
	events *service.EventService,
	chatlogs *service.ChatLogService,
	dispatcher *service.Dispatcher,
	sync SyncRunner,
) *BackofficeHandler {
	return &BackofficeHandler{
		customers:  customers,
		events:     events,
		chatlogs:   chatlogs,
		dispatcher: dispatcher,
		sync:       sync,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *BackofficeHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/messages/send", h.SendMessage)
	r.Get("/customers", h.ListCustomers)
	r.Get("/customers/{id}/chatlogs", h.ListChatLogs)
	r.Post("/events", h.CreateEvent)
	r.Post("/followers/sync", h.SyncFollowers)

	return r
}

// sendMessageRequest is the outbound send body. Exactly one of customerId and
// lineUid addresses the recipient, except admin-message which broadcasts to
// every subscriber.
type sendMessageRequest struct {
	CustomerID string `json:"customerId"`
	LineUID    string `json:"lineUid"`
	Type       string `json:"type" validate:"required,oneof=text image event-card status quotation admin-message chat custom"`
	EventID    string `json:"eventId"`

	Text       string                   `json:"text"`
	SenderName string                   `json:"senderName"`
	ImageURLs  []string                 `json:"imageUrls" validate:"omitempty,dive,url"`
	Progress   int                      `json:"progress" validate:"min=0,max=100"`
	Files      []service.FileLink       `json:"files" validate:"omitempty,dive"`
	Quotation  *service.QuotationParams `json:"quotation"`
	Broadcast  *service.BroadcastParams `json:"broadcast"`
	Messages   []line.Message           `json:"messages"`
}

func (h *BackofficeHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, apperrors.ValidationError(err.Error()))
		return
	}

	ctx := r.Context()

	if req.Type == "admin-message" {
		h.sendBroadcast(ctx, w, req)
		return
	}

	cust, err := h.resolveRecipient(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}

	messages, appErr := h.compose(ctx, req)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	result := h.dispatcher.PushToOne(ctx, cust.LineUID, messages)
	if !result.Success {
		writeError(w, apperrors.PushFailed(result.Error))
		return
	}

	h.appendOutboundLog(cust.ID, req)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *BackofficeHandler) sendBroadcast(ctx context.Context, w http.ResponseWriter, req sendMessageRequest) {
	if req.Broadcast == nil {
		writeError(w, apperrors.MissingRequired("broadcast"))
		return
	}
	if err := h.validate.Struct(req.Broadcast); err != nil {
		writeError(w, apperrors.ValidationError(err.Error()))
		return
	}

	result := h.dispatcher.BroadcastToAll(ctx, service.ComposeAdminBroadcast(*req.Broadcast))
	if !result.Success {
		writeError(w, apperrors.PushFailed(result.Error))
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// resolveRecipient maps the request's addressing fields to a customer row.
// A bare lineUid for a user the directory has never seen is still
// deliverable; a synthetic record keyed by the uid alone comes back so the
// caller can push without logging against a directory row.
func (h *BackofficeHandler) resolveRecipient(ctx context.Context, req sendMessageRequest) (*model.Customer, error) {
	switch {
	case req.CustomerID != "":
		cust, err := h.customers.FindByID(ctx, req.CustomerID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if cust == nil {
			return nil, apperrors.NotFound("Customer")
		}
		return cust, nil

	case req.LineUID != "":
		cust, err := h.customers.FindByLineUID(ctx, req.LineUID)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if cust == nil {
			return &model.Customer{LineUID: req.LineUID}, nil
		}
		return cust, nil

	default:
		return nil, apperrors.MissingRequired("customerId or lineUid")
	}
}

func (h *BackofficeHandler) compose(ctx context.Context, req sendMessageRequest) ([]line.Message, *apperrors.AppError) {
	switch req.Type {
	case "text", "chat":
		if req.Text == "" {
			return nil, apperrors.MissingRequired("text")
		}
		return service.ComposeText(req.Text), nil

	case "image":
		if len(req.ImageURLs) == 0 {
			return nil, apperrors.MissingRequired("imageUrls")
		}
		return service.ComposeImageSet(req.ImageURLs, req.Text), nil

	case "event-card":
		ev, appErr := h.findEvent(ctx, req.EventID)
		if appErr != nil {
			return nil, appErr
		}
		return service.ComposeEventCard(ev), nil

	case "status":
		ev, appErr := h.findEvent(ctx, req.EventID)
		if appErr != nil {
			return nil, appErr
		}
		return service.ComposeStatusUpdate(ev, req.Progress, req.ImageURLs, req.Files), nil

	case "quotation":
		if req.Quotation == nil {
			return nil, apperrors.MissingRequired("quotation")
		}
		if err := h.validate.Struct(req.Quotation); err != nil {
			return nil, apperrors.ValidationError(err.Error())
		}
		return service.ComposeQuotation(*req.Quotation), nil

	case "custom":
		if len(req.Messages) == 0 {
			return nil, apperrors.MissingRequired("messages")
		}
		return service.CapEnvelopes(req.Messages), nil

	default:
		return nil, apperrors.InvalidInput("type", "unknown message type")
	}
}

func (h *BackofficeHandler) findEvent(ctx context.Context, eventID string) (*model.Event, *apperrors.AppError) {
	if eventID == "" {
		return nil, apperrors.MissingRequired("eventId")
	}

	ev, err := h.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if ev == nil {
		return nil, apperrors.NotFound("Event")
	}
	return ev, nil
}

// appendOutboundLog records the send against the directory row. A recipient
// addressed by bare lineUid with no directory entry produces no row.
func (h *BackofficeHandler) appendOutboundLog(customerID string, req sendMessageRequest) {
	if customerID == "" {
		return
	}

	body, err := json.Marshal(service.Envelope{
		Type:       req.Type,
		Text:       req.Text,
		SenderName: req.SenderName,
		ImageURLs:  req.ImageURLs,
		EventID:    req.EventID,
	})
	if err != nil {
		return
	}

	var eventID *string
	if req.EventID != "" {
		id := req.EventID
		eventID = &id
	}

	h.chatlogs.AppendOutboundBestEffort(service.AppendOutboundParams{
		CustomerID:  customerID,
		EventID:     eventID,
		MessageType: model.MessageType(req.Type),
		Body:        string(body),
	})
}

func (h *BackofficeHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)

	result, err := h.customers.List(r.Context(), p.Limit, p.Offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list customers")
		writeError(w, apperrors.Database(err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *BackofficeHandler) ListChatLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p := ParsePagination(r)

	cust, err := h.customers.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, apperrors.Database(err))
		return
	}
	if cust == nil {
		writeError(w, apperrors.NotFound("Customer"))
		return
	}

	result, err := h.chatlogs.History(r.Context(), cust.ID, p.Limit, p.Offset)
	if err != nil {
		log.Error().Err(err).Str("customerId", id).Msg("failed to list chat logs")
		writeError(w, apperrors.Database(err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type createEventRequest struct {
	CustomerID  string `json:"customerId" validate:"required"`
	Name        string `json:"name" validate:"required"`
	TargetDate  string `json:"targetDate" validate:"omitempty"`
	Venue       string `json:"venue"`
	Description string `json:"description"`
}

func (h *BackofficeHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, apperrors.ValidationError(err.Error()))
		return
	}

	var targetDate *time.Time
	if req.TargetDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.TargetDate)
		if err != nil {
			writeError(w, apperrors.InvalidInput("targetDate", "must be RFC 3339"))
			return
		}
		targetDate = &parsed
	}

	cust, err := h.customers.FindByID(r.Context(), req.CustomerID)
	if err != nil {
		writeError(w, apperrors.Database(err))
		return
	}
	if cust == nil {
		writeError(w, apperrors.NotFound("Customer"))
		return
	}

	ev, err := h.events.Create(r.Context(), service.CreateEventParams{
		CustomerID:  cust.ID,
		Name:        req.Name,
		TargetDate:  targetDate,
		Venue:       req.Venue,
		Description: req.Description,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create event")
		writeError(w, apperrors.Database(err))
		return
	}

	writeJSON(w, http.StatusCreated, ev)
}

func (h *BackofficeHandler) SyncFollowers(w http.ResponseWriter, r *http.Request) {
	result, err := h.sync.Run(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("follower sync failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brightstage/line-gateway/internal/model"
	"github.com/brightstage/line-gateway/internal/repository"
	"github.com/brightstage/line-gateway/internal/util"
)

// EventService manages project/job threads and links inbound conversation to
// the customer's current one.
type EventService struct {
	repo repository.EventRepository
}

func NewEventService(repo repository.EventRepository) *EventService {
	return &EventService{repo: repo}
}

// FindActiveEventID returns the id of the customer's most recent event
// outside the terminal status set, or "" when the customer has none. Pure
// read; no side effects.
func (s *EventService) FindActiveEventID(ctx context.Context, customerID string) (string, error) {
	ev, err := s.repo.FindActiveByCustomerID(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("find active event: %w", err)
	}
	if ev == nil {
		return "", nil
	}
	return ev.ID, nil
}

func (s *EventService) FindByID(ctx context.Context, id string) (*model.Event, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *EventService) ListByCustomerID(ctx context.Context, customerID string) ([]model.Event, error) {
	return s.repo.ListByCustomerID(ctx, customerID)
}

type CreateEventParams struct {
	CustomerID  string
	Name        string
	TargetDate  *time.Time
	Venue       string
	Description string
}

// Create assigns a fresh invite code and stores the event as a draft. The
// invite code is immutable after this point.
func (s *EventService) Create(ctx context.Context, params CreateEventParams) (*model.Event, error) {
	code, err := util.GenerateInviteCode()
	if err != nil {
		return nil, fmt.Errorf("generate invite code: %w", err)
	}

	ev, err := s.repo.Create(ctx, model.CreateEventParams{
		CustomerID:  params.CustomerID,
		Name:        params.Name,
		InviteCode:  code,
		TargetDate:  params.TargetDate,
		Venue:       params.Venue,
		Description: params.Description,
		Status:      model.EventStatusDraft,
	})
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	log.Info().
		Str("eventId", ev.ID).
		Str("customerId", ev.CustomerID).
		Str("inviteCode", ev.InviteCode).
		Msg("event created")

	return ev, nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/brightstage/line-gateway/internal/line"
	"github.com/brightstage/line-gateway/internal/model"
	"github.com/brightstage/line-gateway/internal/repository"
)

// CustomerService is the directory of subscribers keyed by their LINE user id.
type CustomerService struct {
	repo repository.CustomerRepository
}

func NewCustomerService(repo repository.CustomerRepository) *CustomerService {
	return &CustomerService{repo: repo}
}

// Upsert creates the customer on first contact or refreshes the profile
// mirror fields on subsequent contacts. firstContact should be the platform
// event timestamp when one is available; it is only honored on creation.
func (s *CustomerService) Upsert(
	ctx context.Context,
	lineUID string,
	profile *line.Profile,
	status model.CustomerStatus,
	firstContact time.Time,
) (*model.Customer, error) {
	if firstContact.IsZero() {
		firstContact = time.Now()
	}

	params := model.UpsertCustomerParams{
		LineUID:        lineUID,
		Status:         status,
		FirstContactAt: firstContact,
	}
	if profile != nil {
		params.DisplayName = profile.DisplayName
		params.AvatarURL = profile.PictureURL
	}

	cust, err := s.repo.Upsert(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("upsert customer: %w", err)
	}
	return cust, nil
}

// MarkBlocked transitions the customer to blocked. A missing customer is a
// silent no-op: the platform can deliver unfollow events for users this
// system never recorded.
func (s *CustomerService) MarkBlocked(ctx context.Context, lineUID string) error {
	affected, err := s.repo.UpdateStatus(ctx, lineUID, model.CustomerStatusBlocked)
	if err != nil {
		return fmt.Errorf("mark blocked: %w", err)
	}

	if affected == 0 {
		log.Debug().Str("lineUid", lineUID).Msg("unfollow for unknown customer ignored")
		return nil
	}

	log.Info().Str("lineUid", lineUID).Msg("customer blocked")
	return nil
}

func (s *CustomerService) FindByID(ctx context.Context, id string) (*model.Customer, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *CustomerService) FindByLineUID(ctx context.Context, lineUID string) (*model.Customer, error) {
	return s.repo.FindByLineUID(ctx, lineUID)
}

type CustomerListResult struct {
	Customers []model.Customer `json:"customers"`
	Total     int              `json:"total"`
	HasMore   bool             `json:"hasMore"`
}

func (s *CustomerService) List(ctx context.Context, limit, offset int) (*CustomerListResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	customers, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}

	return &CustomerListResult{
		Customers: customers,
		Total:     total,
		HasMore:   offset+len(customers) < total,
	}, nil
}

package handler

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"

	"github.com/brightstage/line-gateway/internal/line"
	"github.com/brightstage/line-gateway/internal/model"
)

type mockCustomerRepo struct {
	mock.Mock
}

func (m *mockCustomerRepo) FindByID(ctx context.Context, id string) (*model.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *mockCustomerRepo) FindByLineUID(ctx context.Context, lineUID string) (*model.Customer, error) {
	args := m.Called(ctx, lineUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *mockCustomerRepo) List(ctx context.Context, limit, offset int) ([]model.Customer, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Customer), args.Error(1)
}

func (m *mockCustomerRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockCustomerRepo) Upsert(ctx context.Context, params model.UpsertCustomerParams) (*model.Customer, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Customer), args.Error(1)
}

func (m *mockCustomerRepo) UpdateStatus(ctx context.Context, lineUID string, status model.CustomerStatus) (int64, error) {
	args := m.Called(ctx, lineUID, status)
	return args.Get(0).(int64), args.Error(1)
}

type mockEventRepo struct {
	mock.Mock
}

func (m *mockEventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *mockEventRepo) FindByInviteCode(ctx context.Context, code string) (*model.Event, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *mockEventRepo) FindActiveByCustomerID(ctx context.Context, customerID string) (*model.Event, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *mockEventRepo) ListByCustomerID(ctx context.Context, customerID string) ([]model.Event, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Event), args.Error(1)
}

func (m *mockEventRepo) Create(ctx context.Context, params model.CreateEventParams) (*model.Event, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

type mockChatLogRepo struct {
	mock.Mock
}

func (m *mockChatLogRepo) Create(ctx context.Context, params model.CreateChatLogParams) (*model.ChatLog, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatLog), args.Error(1)
}

func (m *mockChatLogRepo) ListByCustomerID(ctx context.Context, customerID string, limit, offset int) ([]model.ChatLog, error) {
	args := m.Called(ctx, customerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ChatLog), args.Error(1)
}

func (m *mockChatLogRepo) CountByCustomerID(ctx context.Context, customerID string) (int, error) {
	args := m.Called(ctx, customerID)
	return args.Int(0), args.Error(1)
}

func (m *mockChatLogRepo) ExistsBySourceEventID(ctx context.Context, sourceEventID string) (bool, error) {
	args := m.Called(ctx, sourceEventID)
	return args.Bool(0), args.Error(1)
}

type fakeProfileAPI struct {
	profiles map[string]*line.Profile
	calls    int
}

func (f *fakeProfileAPI) GetProfile(ctx context.Context, userID string) (*line.Profile, error) {
	f.calls++
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return nil, errors.New("profile not found")
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brightstage/line-gateway/internal/line"
	"github.com/brightstage/line-gateway/internal/model"
	"github.com/brightstage/line-gateway/internal/service"
)

type webhookFixture struct {
	handler  *WebhookHandler
	custRepo *mockCustomerRepo
	evRepo   *mockEventRepo
	logRepo  *mockChatLogRepo
	api      *fakeProfileAPI
}

func newWebhookFixture() *webhookFixture {
	custRepo := new(mockCustomerRepo)
	evRepo := new(mockEventRepo)
	logRepo := new(mockChatLogRepo)
	api := &fakeProfileAPI{profiles: map[string]*line.Profile{}}

	h := NewWebhookHandler(
		service.NewProfileResolver(api, nil, time.Hour),
		service.NewCustomerService(custRepo),
		service.NewEventService(evRepo),
		service.NewChatLogService(logRepo, nil),
	)

	return &webhookFixture{handler: h, custRepo: custRepo, evRepo: evRepo, logRepo: logRepo, api: api}
}

func (f *webhookFixture) post(t *testing.T, req line.WebhookRequest) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/line/webhook", bytes.NewReader(body))
	w := httptest.NewRecorder()
	f.handler.Webhook(w, r)
	return w
}

func assertSuccessBody(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp["success"])
}

func TestWebhookInboundTextMessage(t *testing.T) {
	f := newWebhookFixture()

	f.api.profiles["U123"] = &line.Profile{UserID: "U123", DisplayName: "คุณเมย์"}

	f.custRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(p model.UpsertCustomerParams) bool {
		return p.LineUID == "U123" &&
			p.DisplayName == "คุณเมย์" &&
			p.Status == model.CustomerStatusPending
	})).Return(&model.Customer{ID: "cust-1", LineUID: "U123", Status: model.CustomerStatusPending}, nil)

	f.evRepo.On("FindActiveByCustomerID", mock.Anything, "cust-1").
		Return(&model.Event{ID: "EVENT001", Status: model.EventStatusConfirmed}, nil)

	f.logRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateChatLogParams) bool {
		return p.CustomerID == "cust-1" &&
			p.Direction == model.ChatDirectionInbound &&
			p.MessageType == model.MessageTypeText &&
			p.Body == "สวัสดี" &&
			p.EventID != nil && *p.EventID == "EVENT001"
	})).Return(&model.ChatLog{ID: "log-1"}, nil)

	w := f.post(t, line.WebhookRequest{Events: []line.Event{{
		Type:      line.EventTypeMessage,
		Timestamp: time.Now().UnixMilli(),
		Source:    &line.Source{Type: "user", UserID: "U123"},
		Message:   &line.MessageContent{ID: "m1", Type: "text", Text: "สวัสดี"},
	}}})

	assertSuccessBody(t, w)
	f.custRepo.AssertExpectations(t)
	f.logRepo.AssertExpectations(t)
}

func TestWebhookBatchIsolation(t *testing.T) {
	// Three message events; the middle sender's directory write fails. The
	// other two must still be logged and the response stays 200.
	f := newWebhookFixture()

	for _, uid := range []string{"U1", "U3"} {
		uid := uid
		f.custRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(p model.UpsertCustomerParams) bool {
			return p.LineUID == uid
		})).Return(&model.Customer{ID: "cust-" + uid, LineUID: uid}, nil)
		f.evRepo.On("FindActiveByCustomerID", mock.Anything, "cust-"+uid).Return(nil, nil)
	}
	f.custRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(p model.UpsertCustomerParams) bool {
		return p.LineUID == "U2"
	})).Return(nil, errors.New("db down"))

	f.logRepo.On("Create", mock.Anything, mock.Anything).Return(&model.ChatLog{ID: "log"}, nil)

	events := make([]line.Event, 0, 3)
	for _, uid := range []string{"U1", "U2", "U3"} {
		events = append(events, line.Event{
			Type:    line.EventTypeMessage,
			Source:  &line.Source{Type: "user", UserID: uid},
			Message: &line.MessageContent{ID: "m-" + uid, Type: "text", Text: "hi"},
		})
	}

	w := f.post(t, line.WebhookRequest{Events: events})

	assertSuccessBody(t, w)
	f.logRepo.AssertNumberOfCalls(t, "Create", 2)
}

func TestWebhookMessageWithoutSender(t *testing.T) {
	f := newWebhookFixture()

	w := f.post(t, line.WebhookRequest{Events: []line.Event{{
		Type:    line.EventTypeMessage,
		Message: &line.MessageContent{ID: "m1", Type: "text", Text: "hi"},
	}}})

	assertSuccessBody(t, w)
	f.custRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.logRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestWebhookNonTextMessageBodies(t *testing.T) {
	f := newWebhookFixture()

	f.custRepo.On("Upsert", mock.Anything, mock.Anything).
		Return(&model.Customer{ID: "cust-1", LineUID: "U123"}, nil)
	f.evRepo.On("FindActiveByCustomerID", mock.Anything, "cust-1").Return(nil, nil)

	f.logRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateChatLogParams) bool {
		return p.MessageType == model.MessageTypeImage && p.Body == "image:m-img"
	})).Return(&model.ChatLog{ID: "log-1"}, nil).Once()
	f.logRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateChatLogParams) bool {
		return p.MessageType == model.MessageTypeSticker && p.Body == "sticker:1070/17839"
	})).Return(&model.ChatLog{ID: "log-2"}, nil).Once()

	w := f.post(t, line.WebhookRequest{Events: []line.Event{
		{
			Type:    line.EventTypeMessage,
			Source:  &line.Source{Type: "user", UserID: "U123"},
			Message: &line.MessageContent{ID: "m-img", Type: "image"},
		},
		{
			Type:    line.EventTypeMessage,
			Source:  &line.Source{Type: "user", UserID: "U123"},
			Message: &line.MessageContent{ID: "m-stk", Type: "sticker", PackageID: "1070", StickerID: "17839"},
		},
	}})

	assertSuccessBody(t, w)
	f.logRepo.AssertExpectations(t)
}

func TestWebhookFollow(t *testing.T) {
	f := newWebhookFixture()

	f.api.profiles["U123"] = &line.Profile{UserID: "U123", DisplayName: "คุณเมย์"}

	f.custRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(p model.UpsertCustomerParams) bool {
		return p.LineUID == "U123" && p.Status == model.CustomerStatusNew
	})).Return(&model.Customer{ID: "cust-1", LineUID: "U123"}, nil)

	w := f.post(t, line.WebhookRequest{Events: []line.Event{{
		Type:   line.EventTypeFollow,
		Source: &line.Source{Type: "user", UserID: "U123"},
	}}})

	assertSuccessBody(t, w)
	f.custRepo.AssertExpectations(t)
	f.logRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestWebhookUnfollow(t *testing.T) {
	t.Run("existing customer is blocked", func(t *testing.T) {
		f := newWebhookFixture()

		f.custRepo.On("UpdateStatus", mock.Anything, "U123", model.CustomerStatusBlocked).Return(int64(1), nil)

		w := f.post(t, line.WebhookRequest{Events: []line.Event{{
			Type:   line.EventTypeUnfollow,
			Source: &line.Source{Type: "user", UserID: "U123"},
		}}})

		assertSuccessBody(t, w)
		f.custRepo.AssertExpectations(t)
	})

	t.Run("unknown customer is a silent no-op", func(t *testing.T) {
		f := newWebhookFixture()

		f.custRepo.On("UpdateStatus", mock.Anything, "Unope", model.CustomerStatusBlocked).Return(int64(0), nil)

		w := f.post(t, line.WebhookRequest{Events: []line.Event{{
			Type:   line.EventTypeUnfollow,
			Source: &line.Source{Type: "user", UserID: "Unope"},
		}}})

		assertSuccessBody(t, w)
	})
}

func TestWebhookPostback(t *testing.T) {
	t.Run("known customer gets an audit row", func(t *testing.T) {
		f := newWebhookFixture()

		f.custRepo.On("FindByLineUID", mock.Anything, "U123").
			Return(&model.Customer{ID: "cust-1", LineUID: "U123"}, nil)
		f.logRepo.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateChatLogParams) bool {
			return p.MessageType == model.MessageTypePostback && p.Body == "action=confirm&eventId=evt-1"
		})).Return(&model.ChatLog{ID: "log-1"}, nil)

		w := f.post(t, line.WebhookRequest{Events: []line.Event{{
			Type:     line.EventTypePostback,
			Source:   &line.Source{Type: "user", UserID: "U123"},
			Postback: &line.Postback{Data: "action=confirm&eventId=evt-1"},
		}}})

		assertSuccessBody(t, w)
		f.logRepo.AssertExpectations(t)
	})

	t.Run("unknown sender only logs", func(t *testing.T) {
		f := newWebhookFixture()

		f.custRepo.On("FindByLineUID", mock.Anything, "Unope").Return(nil, nil)

		w := f.post(t, line.WebhookRequest{Events: []line.Event{{
			Type:     line.EventTypePostback,
			Source:   &line.Source{Type: "user", UserID: "Unope"},
			Postback: &line.Postback{Data: "x"},
		}}})

		assertSuccessBody(t, w)
		f.logRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestWebhookDedupe(t *testing.T) {
	f := newWebhookFixture()

	f.logRepo.On("ExistsBySourceEventID", mock.Anything, "wh-dup").Return(true, nil)

	w := f.post(t, line.WebhookRequest{Events: []line.Event{{
		Type:            line.EventTypeMessage,
		WebhookEventID:  "wh-dup",
		Source:          &line.Source{Type: "user", UserID: "U123"},
		Message:         &line.MessageContent{ID: "m1", Type: "text", Text: "hi"},
		DeliveryContext: &line.DeliveryContext{IsRedelivery: true},
	}}})

	assertSuccessBody(t, w)
	f.custRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	f.logRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestWebhookUnknownEventTypeIgnored(t *testing.T) {
	f := newWebhookFixture()

	w := f.post(t, line.WebhookRequest{Events: []line.Event{{
		Type:   line.EventType("memberJoined"),
		Source: &line.Source{Type: "group"},
	}}})

	assertSuccessBody(t, w)
}

func TestWebhookInvalidBody(t *testing.T) {
	f := newWebhookFixture()

	r := httptest.NewRequest(http.MethodPost, "/line/webhook", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	f.handler.Webhook(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookEventTimeFallsBackToNow(t *testing.T) {
	f := newWebhookFixture()

	before := time.Now()
	f.custRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(p model.UpsertCustomerParams) bool {
		return !p.FirstContactAt.Before(before)
	})).Return(&model.Customer{ID: "cust-1"}, nil)
	f.evRepo.On("FindActiveByCustomerID", mock.Anything, "cust-1").Return(nil, nil)
	f.logRepo.On("Create", mock.Anything, mock.Anything).Return(&model.ChatLog{ID: "log-1"}, nil)

	err := f.handler.handleEvent(context.Background(), &line.Event{
		Type:    line.EventTypeMessage,
		Source:  &line.Source{Type: "user", UserID: "U123"},
		Message: &line.MessageContent{ID: "m1", Type: "text", Text: "hi"},
	})

	require.NoError(t, err)
	f.custRepo.AssertExpectations(t)
}

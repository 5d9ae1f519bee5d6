package line

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/brightstage/line-gateway/internal/errors"
)

func TestClientPush(t *testing.T) {
	t.Run("sends authenticated request with retry key", func(t *testing.T) {
		var gotAuth, gotRetryKey string
		var gotBody pushRequest

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v2/bot/message/push", r.URL.Path)
			gotAuth = r.Header.Get("Authorization")
			gotRetryKey = r.Header.Get("X-Line-Retry-Key")
			json.NewDecoder(r.Body).Decode(&gotBody)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClientWithBaseURL("test-token", server.URL)
		err := client.Push(context.Background(), "U123", []Message{NewTextMessage("hello")})

		require.NoError(t, err)
		assert.Equal(t, "Bearer test-token", gotAuth)
		assert.NotEmpty(t, gotRetryKey)
		assert.Equal(t, "U123", gotBody.To)
		require.Len(t, gotBody.Messages, 1)
		assert.Equal(t, "text", gotBody.Messages[0].Type)
	})

	t.Run("truncates message batch to five", func(t *testing.T) {
		var gotBody pushRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&gotBody)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		msgs := make([]Message, 7)
		for i := range msgs {
			msgs[i] = NewTextMessage(fmt.Sprintf("msg %d", i))
		}

		client := NewClientWithBaseURL("test-token", server.URL)
		err := client.Push(context.Background(), "U123", msgs)

		require.NoError(t, err)
		assert.Len(t, gotBody.Messages, MaxMessagesPerRequest)
		assert.Equal(t, "msg 0", gotBody.Messages[0].Text)
		assert.Equal(t, "msg 4", gotBody.Messages[4].Text)
	})

	t.Run("converts non-2xx to error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClientWithBaseURL("test-token", server.URL)
		err := client.Push(context.Background(), "U123", []Message{NewTextMessage("hello")})

		assert.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeExternal, apperrors.GetCode(err))
	})

	t.Run("maps 401 to unauthorized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := NewClientWithBaseURL("bad-token", server.URL)
		err := client.Push(context.Background(), "U123", []Message{NewTextMessage("hello")})

		assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.GetCode(err))
	})
}

func TestClientMulticast(t *testing.T) {
	t.Run("truncates recipients to five hundred and messages to five", func(t *testing.T) {
		var gotBody multicastRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v2/bot/message/multicast", r.URL.Path)
			json.NewDecoder(r.Body).Decode(&gotBody)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		ids := make([]string, 600)
		for i := range ids {
			ids[i] = fmt.Sprintf("U%03d", i)
		}
		msgs := make([]Message, 7)
		for i := range msgs {
			msgs[i] = NewTextMessage(fmt.Sprintf("msg %d", i))
		}

		client := NewClientWithBaseURL("test-token", server.URL)
		err := client.Multicast(context.Background(), ids, msgs)

		require.NoError(t, err)
		assert.Len(t, gotBody.To, MaxMulticastRecipients)
		assert.Len(t, gotBody.Messages, MaxMessagesPerRequest)
		assert.Equal(t, "U000", gotBody.To[0])
		assert.Equal(t, "U499", gotBody.To[499])
	})
}

func TestClientBroadcast(t *testing.T) {
	t.Run("posts to broadcast endpoint", func(t *testing.T) {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClientWithBaseURL("test-token", server.URL)
		err := client.Broadcast(context.Background(), []Message{NewTextMessage("hello all")})

		require.NoError(t, err)
		assert.Equal(t, "/v2/bot/message/broadcast", gotPath)
	})
}

func TestClientGetProfile(t *testing.T) {
	t.Run("decodes profile", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v2/bot/profile/U123", r.URL.Path)
			json.NewEncoder(w).Encode(Profile{
				UserID:      "U123",
				DisplayName: "Somchai",
				PictureURL:  "https://cdn.example.com/p.jpg",
			})
		}))
		defer server.Close()

		client := NewClientWithBaseURL("test-token", server.URL)
		profile, err := client.GetProfile(context.Background(), "U123")

		require.NoError(t, err)
		assert.Equal(t, "Somchai", profile.DisplayName)
		assert.Equal(t, "https://cdn.example.com/p.jpg", profile.PictureURL)
	})

	t.Run("returns error on 404", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewClientWithBaseURL("test-token", server.URL)
		profile, err := client.GetProfile(context.Background(), "Ugone")

		assert.Error(t, err)
		assert.Nil(t, profile)
	})
}

func TestClientFollowerIDs(t *testing.T) {
	t.Run("pages with continuation cursor", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v2/bot/followers/ids", r.URL.Path)
			if r.URL.Query().Get("start") == "" {
				json.NewEncoder(w).Encode(FollowerIDs{UserIDs: []string{"U1", "U2"}, Next: "cursor-1"})
				return
			}
			assert.Equal(t, "cursor-1", r.URL.Query().Get("start"))
			json.NewEncoder(w).Encode(FollowerIDs{UserIDs: []string{"U3"}})
		}))
		defer server.Close()

		client := NewClientWithBaseURL("test-token", server.URL)

		page1, err := client.FollowerIDs(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, []string{"U1", "U2"}, page1.UserIDs)
		assert.Equal(t, "cursor-1", page1.Next)

		page2, err := client.FollowerIDs(context.Background(), page1.Next)
		require.NoError(t, err)
		assert.Equal(t, []string{"U3"}, page2.UserIDs)
		assert.Empty(t, page2.Next)
	})

	t.Run("maps 403 to account tier error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		client := NewClientWithBaseURL("test-token", server.URL)
		_, err := client.FollowerIDs(context.Background(), "")

		assert.Equal(t, apperrors.ErrCodeAccountTier, apperrors.GetCode(err))
	})
}

package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/brightstage/line-gateway/internal/errors"
)

const (
	defaultBaseURL = "https://api.line.me"
	requestTimeout = 10 * time.Second
)

// Client talks to the LINE Messaging API with a channel access token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewClient(token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    defaultBaseURL,
		token:      token,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a local server.
func NewClientWithBaseURL(token, baseURL string) *Client {
	c := NewClient(token)
	c.baseURL = baseURL
	return c
}

type pushRequest struct {
	To       string    `json:"to"`
	Messages []Message `json:"messages"`
}

type multicastRequest struct {
	To       []string  `json:"to"`
	Messages []Message `json:"messages"`
}

type broadcastRequest struct {
	Messages []Message `json:"messages"`
}

// Push delivers messages to a single recipient.
func (c *Client) Push(ctx context.Context, to string, messages []Message) error {
	return c.send(ctx, "/v2/bot/message/push", pushRequest{
		To:       to,
		Messages: capMessages(messages),
	})
}

// Multicast delivers messages to a bounded list of recipients. The list is
// truncated to the platform ceiling, never rejected.
func (c *Client) Multicast(ctx context.Context, to []string, messages []Message) error {
	if len(to) > MaxMulticastRecipients {
		log.Warn().
			Int("requested", len(to)).
			Int("sent", MaxMulticastRecipients).
			Msg("multicast recipient list truncated")
		to = to[:MaxMulticastRecipients]
	}
	return c.send(ctx, "/v2/bot/message/multicast", multicastRequest{
		To:       to,
		Messages: capMessages(messages),
	})
}

// Broadcast delivers messages to every subscriber of the channel.
func (c *Client) Broadcast(ctx context.Context, messages []Message) error {
	return c.send(ctx, "/v2/bot/message/broadcast", broadcastRequest{
		Messages: capMessages(messages),
	})
}

func (c *Client) send(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	// Idempotency key so the platform can drop our own network-level retries.
	req.Header.Set("X-Line-Retry-Key", uuid.NewString())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		log.Error().Err(err).Str("path", path).Dur("elapsed", elapsed).Msg("line api request error")
		return apperrors.External("line", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := readErrorBody(resp.Body)
		log.Error().
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("detail", detail).
			Dur("elapsed", elapsed).
			Msg("line api request failed")
		return c.statusError(resp.StatusCode, detail)
	}

	log.Debug().Str("path", path).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("line api request ok")
	return nil
}

// GetProfile fetches a subscriber's display identity by external user id.
func (c *Client) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v2/bot/profile/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.External("line", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusError(resp.StatusCode, readErrorBody(resp.Body))
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}

// FollowerIDs fetches one page of the channel's subscriber id listing.
// Pass "" as start for the first page.
func (c *Client) FollowerIDs(ctx context.Context, start string) (*FollowerIDs, error) {
	endpoint := c.baseURL + "/v2/bot/followers/ids"
	if start != "" {
		endpoint += "?start=" + url.QueryEscape(start)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.External("line", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		// The listing endpoint rejects non-verified account tiers.
		return nil, apperrors.AccountTierUnsupported()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusError(resp.StatusCode, readErrorBody(resp.Body))
	}

	var ids FollowerIDs
	if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
		return nil, fmt.Errorf("decode follower ids: %w", err)
	}
	return &ids, nil
}

func (c *Client) statusError(status int, detail string) error {
	switch status {
	case http.StatusUnauthorized:
		return apperrors.Unauthorized("LINE rejected the channel access token")
	case http.StatusForbidden:
		return apperrors.Forbidden("LINE rejected the request")
	default:
		return apperrors.External("line", fmt.Errorf("status %d: %s", status, detail))
	}
}

func capMessages(messages []Message) []Message {
	if len(messages) > MaxMessagesPerRequest {
		log.Warn().
			Int("requested", len(messages)).
			Int("sent", MaxMessagesPerRequest).
			Msg("message batch truncated to platform ceiling")
		return messages[:MaxMessagesPerRequest]
	}
	return messages
}

func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 2048))
	if err != nil {
		return ""
	}
	return string(data)
}

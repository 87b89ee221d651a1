package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the chat platform's message REST API:
//
//	POST  {base}/channels/{channel}/messages      -> {"id": "..."}
//	PATCH {base}/channels/{channel}/messages/{id}
//
// It implements Resolver; each resolved sink is bound to one channel.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a gateway client. Returns nil when baseURL is empty so
// an unconfigured gateway resolves nothing and publishing stays a no-op.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Resolve returns a sink for the given channel id, or nil when either the
// client or the channel id is unconfigured.
func (c *Client) Resolve(channelID string) Sink {
	if c == nil || channelID == "" {
		return nil
	}
	return &channelSink{client: c, channelID: channelID}
}

// channelSink binds the client to one channel.
type channelSink struct {
	client    *Client
	channelID string
}

type messageResponse struct {
	ID string `json:"id"`
}

func (s *channelSink) CreateMessage(ctx context.Context, m Message) (string, error) {
	url := fmt.Sprintf("%s/channels/%s/messages", s.client.baseURL, s.channelID)
	body, err := s.client.do(ctx, http.MethodPost, url, m)
	if err != nil {
		return "", err
	}
	var resp messageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("gateway unmarshal: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("gateway: create returned no message id")
	}
	return resp.ID, nil
}

func (s *channelSink) EditMessage(ctx context.Context, messageID string, m Message) error {
	url := fmt.Sprintf("%s/channels/%s/messages/%s", s.client.baseURL, s.channelID, messageID)
	_, err := s.client.do(ctx, http.MethodPatch, url, m)
	return err
}

// do performs one authenticated JSON call and returns the response body.
func (c *Client) do(ctx context.Context, method, url string, m Message) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("gateway marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway http: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

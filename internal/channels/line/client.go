package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultAPIBase     = "https://api.line.me"
	defaultHTTPTimeout = 10 * time.Second

	// The Messaging API rejects reply calls carrying more than five messages.
	maxReplyMessages = 5
)

// Client sends replies via the LINE Messaging API.
type Client struct {
	channelAccessToken string
	apiBase            string
	httpClient         *http.Client
}

// NewClient creates a new Messaging API client.
func NewClient(channelAccessToken string) *Client {
	return &Client{
		channelAccessToken: channelAccessToken,
		apiBase:            defaultAPIBase,
		httpClient:         &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// SetAPIBase overrides the Messaging API base URL (useful for testing).
func (c *Client) SetAPIBase(base string) {
	c.apiBase = base
}

// Reply sends messages bound to a reply token. Tokens are single-use and
// short-lived, so the caller gets exactly one shot per inbound event.
func (c *Client) Reply(ctx context.Context, replyToken string, messages []Message) error {
	if replyToken == "" {
		return fmt.Errorf("line: reply token is empty")
	}
	if len(messages) == 0 {
		return fmt.Errorf("line: no messages to send")
	}
	if len(messages) > maxReplyMessages {
		return fmt.Errorf("line: %d messages exceeds reply limit of %d", len(messages), maxReplyMessages)
	}

	body, err := json.Marshal(ReplyRequest{ReplyToken: replyToken, Messages: messages})
	if err != nil {
		return fmt.Errorf("line: marshal reply request: %w", err)
	}

	url := c.apiBase + "/v2/bot/message/reply"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("line: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.channelAccessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("line: send reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("line: reply failed with status %d", resp.StatusCode)
	}

	var apiErr APIError
	if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("line: API error %d: %s", resp.StatusCode, apiErr.Message)
	}
	return fmt.Errorf("line: unexpected status %d: %s", resp.StatusCode, string(respBody))
}

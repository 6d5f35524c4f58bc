package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultEndpoint is the Brevo transactional email endpoint.
const DefaultEndpoint = "https://api.brevo.com/v3/smtp/email"

// ErrNotConfigured is returned when no Brevo API key is set.
var ErrNotConfigured = errors.New("email service not configured")

// Address is a named mailbox.
type Address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Message is one transactional email.
type Message struct {
	Sender      Address   `json:"sender"`
	To          []Address `json:"to"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"htmlContent"`
	TextContent string    `json:"textContent,omitempty"`
}

// SendResult is the Brevo acknowledgement.
type SendResult struct {
	MessageID string `json:"messageId"`
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) (*SendResult, error)
}

// BrevoClient sends mail through the Brevo HTTP API.
type BrevoClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewBrevoClient creates a client. An empty endpoint uses DefaultEndpoint.
func NewBrevoClient(apiKey, endpoint string, httpClient *http.Client) *BrevoClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &BrevoClient{apiKey: apiKey, endpoint: endpoint, httpClient: httpClient}
}

// Send implements Sender. A non-2xx reply is an error carrying the body.
func (c *BrevoClient) Send(ctx context.Context, msg Message) (*SendResult, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("Brevo API error: %d - %s", resp.StatusCode, respBody)
	}

	var result SendResult
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return &result, nil
}

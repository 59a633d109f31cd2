// Package resend delivers report emails through the Resend API.
package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/valueminer/valueminer/internal/config"
	"github.com/valueminer/valueminer/internal/retry"
)

// ErrNotConfigured is returned when the API key or sender is missing.
var ErrNotConfigured = errors.New("resend: missing API key or sender address")

// APIError is a non-2xx response from the Resend API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("resend: API error (status %d): %s", e.StatusCode, e.Body)
}

// Email is a single outgoing message. Text is derived from HTML when empty.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Client sends email through Resend.
type Client struct {
	apiKey     string
	from       string
	baseURL    string
	httpClient *http.Client
	policy     retry.Policy
}

// NewClient creates a new Resend client.
func NewClient(cfg config.ResendConfig) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		from:    cfg.From,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		policy: retry.DefaultPolicy(),
	}
}

// Configured reports whether the client can send.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.from != ""
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send delivers msg and returns the provider message id.
func (c *Client) Send(ctx context.Context, msg Email) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	text := msg.Text
	if text == "" && msg.HTML != "" {
		md, err := htmltomarkdown.ConvertString(msg.HTML)
		if err == nil {
			text = strings.TrimSpace(md)
		}
	}

	body, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    text,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]byte, error) {
		return c.post(ctx, body)
	}, retryable)
	if err != nil {
		return "", err
	}

	var resp sendResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return resp.ID, nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return retry.StatusRetryable(apiErr.StatusCode)
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Package searchapi fetches YouTube transcripts through SearchAPI.
package searchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/valueminer/valueminer/internal/config"
	"github.com/valueminer/valueminer/internal/retry"
)

const engine = "youtube_transcripts"

var (
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("searchapi: missing API key")

	// ErrNoTranscript is returned when the response carries no transcript.
	ErrNoTranscript = errors.New("searchapi: transcript not available")
)

// APIError is a non-2xx response from SearchAPI.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("searchapi: API error (status %d): %s", e.StatusCode, e.Body)
}

// Segment is one timed line of a transcript.
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Transcript is a normalized transcript. Either Segments or Text is set,
// depending on the shape SearchAPI returned.
type Transcript struct {
	VideoID  string
	Segments []Segment
	Text     string
	Language string
	Type     string
}

// PlainText joins segment text with single spaces.
func (t *Transcript) PlainText() string {
	if len(t.Segments) == 0 {
		return t.Text
	}
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

// Client fetches transcripts over HTTP.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	policy     retry.Policy
}

// NewClient creates a new SearchAPI client.
func NewClient(cfg config.SearchAPIConfig) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		policy: retry.DefaultPolicy(),
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// searchResponse covers the transcript shapes SearchAPI has returned.
type searchResponse struct {
	Transcripts       []Segment       `json:"transcripts"`
	Transcript        json.RawMessage `json:"transcript"`
	Language          string          `json:"language"`
	TranscriptType    string          `json:"transcript_type"`
	TranscriptTypeAlt string          `json:"transcriptType"`
}

// Transcript fetches the transcript for a video. lang is optional.
func (c *Client) Transcript(ctx context.Context, videoID, lang string) (*Transcript, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	q := url.Values{}
	q.Set("engine", engine)
	q.Set("api_key", c.apiKey)
	q.Set("video_id", videoID)
	if lang != "" {
		q.Set("lang", lang)
	}
	endpoint := c.baseURL + "/search?" + q.Encode()

	body, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, endpoint)
	}, retryable)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("searchapi: parse response: %w", err)
	}

	t, err := normalize(&resp)
	if err != nil {
		return nil, err
	}
	t.VideoID = videoID
	return t, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("searchapi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searchapi: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("searchapi: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func normalize(resp *searchResponse) (*Transcript, error) {
	t := &Transcript{
		Language: resp.Language,
		Type:     resp.TranscriptTypeAlt,
	}
	if t.Type == "" {
		t.Type = resp.TranscriptType
	}

	if resp.Transcripts != nil {
		t.Segments = resp.Transcripts
		return t, nil
	}

	raw := strings.TrimSpace(string(resp.Transcript))
	switch {
	case raw == "" || raw == "null":
		return nil, ErrNoTranscript
	case strings.HasPrefix(raw, "["):
		var segments []Segment
		if err := json.Unmarshal(resp.Transcript, &segments); err != nil {
			return nil, fmt.Errorf("searchapi: parse transcript segments: %w", err)
		}
		t.Segments = segments
	case strings.HasPrefix(raw, `"`):
		var text string
		if err := json.Unmarshal(resp.Transcript, &text); err != nil {
			return nil, fmt.Errorf("searchapi: parse transcript text: %w", err)
		}
		t.Text = text
	default:
		return nil, ErrNoTranscript
	}
	return t, nil
}

// retryable retries transport failures and 429/5xx responses.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return retry.StatusRetryable(apiErr.StatusCode)
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

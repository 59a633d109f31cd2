// Package openai summarizes transcripts with an OpenAI-compatible chat API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/valueminer/valueminer/internal/config"
	"github.com/valueminer/valueminer/internal/retry"
)

const systemPrompt = "You output strict JSON only."

var (
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("openai: missing API key")

	// ErrInvalidJSON is returned when the model reply is not JSON.
	ErrInvalidJSON = errors.New("openai returned invalid JSON")

	// ErrIncomplete is returned when the reply lacks an analysis or action plan.
	ErrIncomplete = errors.New("openai returned an incomplete response")
)

// APIError is a non-2xx response from the chat API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openai: API error (status %d): %s", e.StatusCode, e.Body)
}

// ContentError carries the raw model reply alongside a parse failure.
type ContentError struct {
	Err     error
	Content string
}

func (e *ContentError) Error() string {
	return e.Err.Error()
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// Summarizer turns a transcript into an analysis, action plan and category.
type Summarizer interface {
	Summarize(ctx context.Context, req SummarizeRequest) (*Result, error)
}

// SummarizeRequest is the input to Summarize.
type SummarizeRequest struct {
	Transcript string
	Categories []string
}

// Result is the parsed model reply. Category is returned as the model
// wrote it; callers normalize it against their allow-list.
type Result struct {
	Analysis   string
	ActionPlan []string
	Category   string
	Content    string

	planIsArray bool
}

// Validate reports ErrIncomplete when the analysis is empty or the action
// plan was missing or not an array.
func (r *Result) Validate() error {
	if strings.TrimSpace(r.Analysis) == "" || !r.planIsArray {
		return &ContentError{Err: ErrIncomplete, Content: r.Content}
	}
	return nil
}

// HTTPClient implements Summarizer using the chat completions endpoint.
type HTTPClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	jsonMode    bool
	httpClient  *http.Client
	policy      retry.Policy
}

// NewClient creates a new chat API client.
func NewClient(cfg config.OpenAIConfig) *HTTPClient {
	return &HTTPClient{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		jsonMode:    cfg.JSONMode,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		policy: retry.DefaultPolicy(),
	}
}

// Configured reports whether an API key is set.
func (c *HTTPClient) Configured() bool {
	return c.apiKey != ""
}

// chatRequest is the request body for the chat API.
type chatRequest struct {
	Model          string          `json:"model"`
	Temperature    float64         `json:"temperature"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the response from the chat API.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// summaryReply is the JSON shape the prompt asks for. Fields stay raw so
// a reply with an oddly typed field still parses.
type summaryReply struct {
	Analysis   json.RawMessage `json:"analysis"`
	ActionPlan json.RawMessage `json:"actionPlan"`
	Category   json.RawMessage `json:"category"`
}

// Summarize sends the transcript with the fixed prompt and parses the reply.
// The returned Result is lenient: call Validate for strict checking.
func (c *HTTPClient) Summarize(ctx context.Context, req SummarizeRequest) (*Result, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	chatReq := chatRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(req.Transcript, req.Categories)},
		},
	}
	if c.jsonMode {
		chatReq.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]byte, error) {
		return c.post(ctx, body)
	}, retryable)
	if err != nil {
		return nil, err
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("openai: API error: %s", chatResp.Error.Message)
	}

	var content string
	if len(chatResp.Choices) > 0 {
		content = chatResp.Choices[0].Message.Content
	}
	return ParseReply(content)
}

func (c *HTTPClient) post(ctx context.Context, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
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

// BuildPrompt renders the summarization prompt for a transcript.
func BuildPrompt(transcript string, categories []string) string {
	var b strings.Builder
	b.WriteString("You are a concise assistant.\n")
	b.WriteString("Return JSON with keys: analysis (exactly 3 sentences), actionPlan (array of exactly 3 steps), and category.\n")
	b.WriteString("Choose category from this exact list only: ")
	b.WriteString(strings.Join(categories, ", "))
	b.WriteString(".\n")
	b.WriteString("If unsure or mixed topic, set category to \"Other\".\n")
	b.WriteString("Focus on turning the transcript into actionable guidance.\n")
	b.WriteString("Transcript:\n")
	b.WriteString(transcript)
	return b.String()
}

// ParseReply parses a model reply, unwrapping a markdown code fence first.
// The reply must be a JSON object. A non-string analysis or category is
// kept as its JSON text. A non-array actionPlan yields an empty plan; plans
// are capped at 3 steps.
func ParseReply(content string) (*Result, error) {
	cleaned := strings.TrimSpace(content)
	// Clean up potential markdown code blocks
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var reply summaryReply
	if !strings.HasPrefix(cleaned, "{") || json.Unmarshal([]byte(cleaned), &reply) != nil {
		return nil, &ContentError{Err: ErrInvalidJSON, Content: content}
	}

	result := &Result{
		Analysis:   jsonText(reply.Analysis),
		ActionPlan: []string{},
		Category:   jsonText(reply.Category),
		Content:    content,
	}

	raw := bytes.TrimSpace(reply.ActionPlan)
	if len(raw) > 0 && raw[0] == '[' {
		var steps []json.RawMessage
		if err := json.Unmarshal(raw, &steps); err == nil {
			result.planIsArray = true
			for _, step := range steps {
				if len(result.ActionPlan) == 3 {
					break
				}
				if text := stepText(step); text != "" {
					result.ActionPlan = append(result.ActionPlan, text)
				}
			}
		}
	}

	return result, nil
}

// jsonText returns a JSON string's value, or the compact JSON text of any
// other value. Missing and null values are empty.
func jsonText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// stepText renders one action plan step. Objects such as
// {"step": "..."} contribute their step or text field.
func stepText(raw json.RawMessage) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil && obj != nil {
		for _, key := range []string{"step", "text"} {
			if text := jsonText(obj[key]); text != "" {
				return text
			}
		}
	}
	return jsonText(raw)
}

func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return retry.StatusRetryable(apiErr.StatusCode)
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

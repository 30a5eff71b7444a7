package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultOpenAIBaseURL is the OpenAI REST endpoint.
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultOpenRouterBaseURL is the OpenRouter OpenAI-compatible endpoint.
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

var defaultHostedBackoff = Backoff{MaxAttempts: 3, Base: 500 * time.Millisecond, Max: 4 * time.Second}

// Client talks to any OpenAI-compatible chat completions API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	backoff    Backoff
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateRequest is a chat completion request. N > 1 asks for several
// independent choices, which become chart candidates.
type GenerateRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	N           int       `json:"n,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Choice struct {
	Index   int     `json:"index"`
	Message Message `json:"message"`
}

type GenerateResponse struct {
	ID        string   `json:"id"`
	Choices   []Choice `json:"choices"`
	Usage     Usage    `json:"usage"`
	RequestID string   `json:"-"`
}

// APIError is a non-2xx answer from a provider.
type APIError struct {
	StatusCode int            `json:"-"`
	Code       string         `json:"code,omitempty"`
	Message    string         `json:"message,omitempty"`
	Raw        map[string]any `json:"-"`
	RequestID  string         `json:"-"`
}

func (e *APIError) Error() string {
	parts := []string{fmt.Sprintf("status=%d", e.StatusCode)}
	if e.Code != "" {
		parts = append(parts, "code="+e.Code)
	}
	if e.RequestID != "" {
		parts = append(parts, "request_id="+e.RequestID)
	}
	if e.Message != "" {
		parts = append(parts, "message="+e.Message)
	}
	return "api error: " + strings.Join(parts, " ")
}

// NewClient returns a client for baseURL ("" means api.openai.com). Zero
// timeout or backoff fields take the hosted defaults.
func NewClient(apiKey, baseURL string, httpTimeout time.Duration, b Backoff) *Client {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: httpTimeout},
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		backoff:    b.orDefault(defaultHostedBackoff),
	}
}

// Generate posts req to /chat/completions, retrying 429, 5xx and transient
// network failures with exponential backoff.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, &AuthError{APIError: &APIError{StatusCode: http.StatusUnauthorized, Message: "OPENAI_API_KEY is missing"}}
	}
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.baseURL + "/chat/completions"

	var lastErr error
	for attempt := 1; attempt <= c.backoff.MaxAttempts; attempt++ {
		out, wait, err := c.post(ctx, endpoint, payload)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == c.backoff.MaxAttempts || !retryable(err) {
			break
		}
		// A server asking for a longer pause than the policy allows gets the
		// error back with its RetryAfter.
		if wait > c.backoff.Max {
			break
		}
		if wait <= 0 {
			wait = c.backoff.delay(attempt)
		}
		if serr := sleep(ctx, wait); serr != nil {
			return nil, serr
		}
	}
	if !IsProviderError(lastErr) && !errors.Is(lastErr, context.Canceled) && !errors.Is(lastErr, context.DeadlineExceeded) {
		lastErr = &TransportError{Endpoint: endpoint, Err: lastErr}
	}
	return nil, lastErr
}

// post performs one attempt. wait is the server-requested delay, if any.
func (c *Client) post(ctx context.Context, endpoint string, payload []byte) (*GenerateResponse, time.Duration, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Title", "DataStatX")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		if isRetryableNetErr(err) {
			return nil, 0, err
		}
		return nil, 0, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		wait, _ := retryAfter(resp.Header)
		return nil, wait, classifyAPIError(decodeAPIError(resp), wait)
	}
	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, 0, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("decode response: %w", err)}
	}
	out.RequestID = extractRequestID(resp)
	return &out, 0, nil
}

func retryable(err error) bool {
	var (
		rl  *RateLimitError
		srv *ServerError
	)
	return errors.As(err, &rl) || errors.As(err, &srv) || isRetryableNetErr(err)
}

// decodeAPIError reads a bounded error body in either {"error":{...}} or flat form.
func decodeAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	apiErr := &APIError{StatusCode: resp.StatusCode, Raw: raw, RequestID: extractRequestID(resp)}
	src := raw
	if nested, ok := raw["error"].(map[string]any); ok {
		src = nested
	} else if msg, ok := raw["error"].(string); ok {
		apiErr.Message = msg
	}
	if msg, ok := src["message"].(string); ok && apiErr.Message == "" {
		apiErr.Message = msg
	}
	if code, ok := src["code"].(string); ok {
		apiErr.Code = code
	}
	return apiErr
}

// classifyAPIError maps an APIError to the typed failure the UI explains.
func classifyAPIError(apiErr *APIError, wait time.Duration) error {
	sc, msg, code := apiErr.StatusCode, apiErr.Message, apiErr.Code
	switch {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		return &AuthError{APIError: apiErr}
	case code == "insufficient_quota" || code == "quota_exceeded" || containsAnyFold(msg, "quota", "billing"):
		return &QuotaExceededError{APIError: apiErr}
	case sc == http.StatusTooManyRequests:
		return &RateLimitError{APIError: apiErr, RetryAfter: wait}
	case sc == http.StatusNotFound && (code == "model_not_found" || containsAllFold(msg, "model", "not", "found")):
		return &ModelNotFoundError{APIError: apiErr}
	case sc == http.StatusBadRequest:
		return &BadRequestError{APIError: apiErr}
	case sc >= 500 && sc <= 599:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

func containsAllFold(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if !strings.Contains(s, strings.ToLower(sub)) {
			return false
		}
	}
	return s != ""
}

func containsAnyFold(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if s != "" && strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// extractRequestID pulls a request ID from the usual provider headers.
func extractRequestID(resp *http.Response) string {
	for _, k := range []string{"X-Request-Id", "OpenAI-Request-ID", "Openrouter-Request-ID"} {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}

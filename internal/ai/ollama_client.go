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

	"github.com/google/uuid"
)

// DefaultOllamaHost is where a local Ollama listens by default.
const DefaultOllamaHost = "http://127.0.0.1:11434"

var defaultLocalBackoff = Backoff{MaxAttempts: 2, Base: 200 * time.Millisecond, Max: time.Second}

// OllamaClient runs chat completions against a local Ollama, so a local
// model can stand in for the hosted API.
type OllamaClient struct {
	httpClient *http.Client
	host       string
	backoff    Backoff
}

// NewOllamaClient targets host ("" means DefaultOllamaHost).
func NewOllamaClient(host string, httpTimeout time.Duration, b Backoff) *OllamaClient {
	if host == "" {
		host = DefaultOllamaHost
	}
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	return &OllamaClient{
		httpClient: &http.Client{Timeout: httpTimeout},
		host:       strings.TrimRight(host, "/"),
		backoff:    b.orDefault(defaultLocalBackoff),
	}
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

// Generate maps req onto /api/chat. Ollama answers with one message per
// call, so N > 1 issues N sequential chats and numbers the choices.
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	oreq := ollamaChatRequest{Model: req.Model, Messages: req.Messages, Options: map[string]any{}}
	if req.Temperature > 0 {
		oreq.Options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		oreq.Options["num_predict"] = req.MaxTokens
	}
	payload, err := json.Marshal(oreq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	n := req.N
	if n < 1 {
		n = 1
	}
	out := &GenerateResponse{ID: "ollama_" + uuid.NewString()}
	out.RequestID = out.ID
	for i := 0; i < n; i++ {
		msg, err := c.chat(ctx, payload)
		if err != nil {
			return nil, err
		}
		out.Choices = append(out.Choices, Choice{Index: i, Message: msg})
	}
	return out, nil
}

// chat runs one /api/chat call, retrying server errors and timeouts.
func (c *OllamaClient) chat(ctx context.Context, payload []byte) (Message, error) {
	endpoint := c.host + "/api/chat"
	var lastErr error
	for attempt := 1; attempt <= c.backoff.MaxAttempts; attempt++ {
		msg, err := c.post(ctx, endpoint, payload)
		if err == nil {
			return msg, nil
		}
		lastErr = err
		if attempt == c.backoff.MaxAttempts || !retryable(err) {
			break
		}
		if serr := sleep(ctx, c.backoff.delay(attempt)); serr != nil {
			return Message{}, serr
		}
	}
	if isRetryableNetErr(lastErr) {
		lastErr = &UnreachableError{Host: c.host, Err: lastErr}
	}
	return Message{}, lastErr
}

func (c *OllamaClient) post(ctx context.Context, endpoint string, payload []byte) (Message, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Message{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Message{}, ctx.Err()
		}
		if isRetryableNetErr(err) {
			return Message{}, err
		}
		return Message{}, &UnreachableError{Host: c.host, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp)
		switch {
		case resp.StatusCode == http.StatusNotFound:
			// Ollama answers 404 for models that were never pulled.
			return Message{}, &ModelNotFoundError{APIError: apiErr}
		case resp.StatusCode >= 500:
			return Message{}, &ServerError{APIError: apiErr}
		case resp.StatusCode == http.StatusBadRequest:
			return Message{}, &BadRequestError{APIError: apiErr}
		}
		return Message{}, apiErr
	}
	var oresp ollamaChatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 16<<20)).Decode(&oresp); err != nil {
		return Message{}, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("decode response: %w", err)}
	}
	if oresp.Message.Role == "" {
		oresp.Message.Role = "assistant"
	}
	return oresp.Message, nil
}

package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client abstracts chat-completion providers used by the coaching agents.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Image is an inline image attached to a request. Data holds raw bytes.
type Image struct {
	MimeType string
	Data     []byte
}

// Request is one system + user prompt exchange.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	Images      []Image
	// Model overrides the client's default model when set.
	Model string
}

type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Response is the first choice returned by the provider.
type Response struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage *Usage `json:"usage,omitempty"`
}

var (
	// ErrNotConfigured is returned when no API key is available.
	ErrNotConfigured = errors.New("llm: NIM_API_KEY not found")
	ErrTimeout       = errors.New("llm: request timeout")
	ErrAuth          = errors.New("llm: unauthorized")
	ErrEmptyResponse = errors.New("llm: empty response")
)

// HTTPError carries a non-success status from the provider.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("llm: http status %d: %s", e.StatusCode, body)
}

// PlaceholderClient is used when no provider is configured.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(ctx context.Context, req Request) (Response, error) {
	_ = ctx
	_ = req
	return Response{}, ErrNotConfigured
}

package nim

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"fitflow-backend/internal/llm"
	"fitflow-backend/internal/shared/metrics"
	"fitflow-backend/internal/shared/telemetry"
)

var apiURL = "https://integrate.api.nvidia.com/v1/chat/completions"

const (
	defaultTimeout       = 30 * time.Second
	defaultVisionTimeout = 45 * time.Second
	maxErrorBody         = 4 << 10
)

// Client implements llm.Client against the NVIDIA NIM chat-completions API.
type Client struct {
	model         string
	url           string
	timeout       time.Duration
	visionTimeout time.Duration
	httpClient    *http.Client
}

// NewClient constructs a NIM client. An empty baseURL uses the public endpoint.
func NewClient(apiKey, model, baseURL string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, llm.ErrNotConfigured
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for NIM")
	}
	timeout := defaultTimeout
	if raw := strings.TrimSpace(os.Getenv("LLM_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	visionTimeout := defaultVisionTimeout
	if timeout > visionTimeout {
		visionTimeout = timeout
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"})
	return &Client{
		model:         model,
		url:           strings.TrimSpace(baseURL),
		timeout:       timeout,
		visionTimeout: visionTimeout,
		httpClient: &http.Client{
			Transport: &oauth2.Transport{Source: src, Base: http.DefaultTransport},
		},
	}, nil
}

type textPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	start := time.Now()
	resp, err := c.complete(ctx, req)
	metrics.ObserveLLMRequest(outcome(err), float64(time.Since(start).Milliseconds()))
	return resp, err
}

func (c *Client) complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	model := c.model
	if strings.TrimSpace(req.Model) != "" {
		model = req.Model
	}
	payload, err := json.Marshal(buildRequest(model, req))
	if err != nil {
		return llm.Response{}, err
	}

	timeout := c.timeout
	if len(req.Images) > 0 {
		timeout = c.visionTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := apiURL
	if c.url != "" {
		endpoint = c.url
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return llm.Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return llm.Response{}, fmt.Errorf("nim request timeout after %s: %w", timeout, llm.ErrTimeout)
		}
		return llm.Response{}, fmt.Errorf("nim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return llm.Response{}, fmt.Errorf("nim status %d: %w", resp.StatusCode, llm.ErrAuth)
		}
		return llm.Response{}, &llm.HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return llm.Response{}, fmt.Errorf("nim read timeout: %w", llm.ErrTimeout)
		}
		return llm.Response{}, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return llm.Response{}, fmt.Errorf("nim response parse: %w", err)
	}
	if parsed.Error != nil {
		return llm.Response{}, fmt.Errorf("nim error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return llm.Response{}, fmt.Errorf("nim response missing choices: %w", llm.ErrEmptyResponse)
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return llm.Response{}, llm.ErrEmptyResponse
	}

	out := llm.Response{Text: content, Model: parsed.Model}
	if out.Model == "" {
		out.Model = model
	}
	if parsed.Usage != nil {
		out.Usage = &llm.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}
	}
	logUsage(out.Model, out.Usage)
	return out, nil
}

func buildRequest(model string, req llm.Request) chatRequest {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	if len(req.Images) == 0 {
		messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})
	} else {
		parts := make([]textPart, 0, len(req.Images)+1)
		for _, img := range req.Images {
			parts = append(parts, textPart{Type: "image_url", ImageURL: &imageURL{URL: DataURI(img)}})
		}
		parts = append(parts, textPart{Type: "text", Text: req.Prompt})
		messages = append(messages, chatMessage{Role: "user", Content: parts})
	}
	return chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}

// DataURI encodes an image as a base64 data URI, defaulting to JPEG.
func DataURI(img llm.Image) string {
	mime := strings.TrimSpace(img.MimeType)
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func outcome(err error) string {
	var httpErr *llm.HTTPError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, llm.ErrTimeout):
		return "timeout"
	case errors.Is(err, llm.ErrAuth):
		return "auth"
	case errors.As(err, &httpErr):
		return "http_error"
	default:
		return "error"
	}
}

func logUsage(model string, usage *llm.Usage) {
	if usage == nil {
		telemetry.Info("llm.response", map[string]any{"model": model})
		return
	}
	telemetry.Info("llm.response", map[string]any{
		"model":             model,
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
		"total_tokens":      usage.TotalTokens,
	})
}

var _ llm.Client = (*Client)(nil)

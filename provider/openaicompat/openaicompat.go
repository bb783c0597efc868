// Package openaicompat is a universal OpenAI-compatible API adapter.
// Works with OpenAI, Grok/xAI, OpenRouter, Ollama, and others.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/moonpour/tarotbar"
)

// Provider implements tarotbar.Provider over an OpenAI-compatible API.
type Provider struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

var _ tarotbar.Provider = (*Provider)(nil)

// Option configures the provider.
type Option func(*Provider)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// New creates a new OpenAI-compatible provider.
func New(name, baseURL string, opts ...Option) *Provider {
	p := &Provider{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewOpenAI creates a provider for OpenAI.
func NewOpenAI(opts ...Option) *Provider {
	return New("openai", "https://api.openai.com/v1", opts...)
}

// NewOpenRouter creates a provider for OpenRouter.
func NewOpenRouter(opts ...Option) *Provider {
	return New("openrouter", "https://openrouter.ai/api/v1", opts...)
}

func (p *Provider) Name() string { return p.name }

// apiRequest is the OpenAI chat completion request format.
type apiRequest struct {
	Model          string             `json:"model"`
	Messages       []apiMessage       `json:"messages"`
	Temperature    *float64           `json:"temperature,omitempty"`
	MaxTokens      *int               `json:"max_tokens,omitempty"`
	ResponseFormat *apiResponseFormat `json:"response_format,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponseFormat struct {
	Type string `json:"type"`
}

// apiResponse is the OpenAI chat completion response format.
type apiResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int        `json:"index"`
		Message      apiMessage `json:"message"`
		FinishReason string     `json:"finish_reason"`
	} `json:"choices"`
}

// Complete performs a synchronous chat completion.
func (p *Provider) Complete(ctx context.Context, req tarotbar.ProviderRequest) (tarotbar.ProviderResponse, error) {
	body := p.buildRequest(req)

	httpResp, err := p.doRequest(ctx, req.Auth, body)
	if err != nil {
		return tarotbar.ProviderResponse{}, err
	}
	defer httpResp.Body.Close()

	if err := mapHTTPError(httpResp); err != nil {
		return tarotbar.ProviderResponse{}, err
	}

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return tarotbar.ProviderResponse{}, fmt.Errorf("%w: decode response: %v", tarotbar.ErrSchemaViolation, err)
	}

	if len(resp.Choices) == 0 {
		return tarotbar.ProviderResponse{}, fmt.Errorf("%w: empty choices in response", tarotbar.ErrSchemaViolation)
	}

	return tarotbar.ProviderResponse{
		ID:           resp.ID,
		Content:      resp.Choices[0].Message.Content,
		FinishReason: resp.Choices[0].FinishReason,
		Model:        resp.Model,
	}, nil
}

func (p *Provider) buildRequest(req tarotbar.ProviderRequest) apiRequest {
	msgs := make([]apiMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = apiMessage{Role: m.Role, Content: m.Content}
	}
	out := apiRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONObject {
		out.ResponseFormat = &apiResponseFormat{Type: "json_object"}
	}
	return out
}

func (p *Provider) doRequest(ctx context.Context, auth tarotbar.Auth, body apiRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", tarotbar.ErrInvalidRequest, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tarotbar.ErrInvalidRequest, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+auth.APIKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", tarotbar.ErrProviderUnavailable, err)
	}

	return resp, nil
}

func mapHTTPError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Read body for error context, but don't fail if we can't.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return tarotbar.ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return tarotbar.ErrAuthFailed
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", tarotbar.ErrInvalidRequest, string(body))
	default:
		return tarotbar.ErrProviderUnavailable
	}
}

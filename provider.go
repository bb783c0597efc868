package tarotbar

import "context"

// Provider is the interface that LLM provider adapters must implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "openai").
	Name() string

	// Complete performs a synchronous completion and returns the raw
	// text payload of the model's reply.
	Complete(ctx context.Context, req ProviderRequest) (ProviderResponse, error)
}

// Auth holds authentication credentials for a provider account.
type Auth struct {
	APIKey string `yaml:"api_key" json:"api_key"`
}

// Message is a single chat message in a provider request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProviderRequest is the request sent to a provider adapter.
// JSONObject asks the provider to constrain output to a single JSON
// object, where supported.
type ProviderRequest struct {
	Auth     Auth
	Model    string
	Messages []Message

	Temperature *float64
	MaxTokens   *int
	JSONObject  bool
}

// ProviderResponse is the response from a provider adapter.
type ProviderResponse struct {
	ID           string
	Content      string
	FinishReason string
	Model        string
}

// IntPtr returns a pointer to the given int.
func IntPtr(v int) *int { return &v }

// Float64Ptr returns a pointer to the given float64.
func Float64Ptr(v float64) *float64 { return &v }

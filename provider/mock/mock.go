// Package mock is an in-memory LLM provider for testing.
package mock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/moonpour/tarotbar"
)

// Provider is a mock LLM provider for testing.
type Provider struct {
	name         string
	latency      time.Duration
	staticErr    error
	content      string
	callCount    atomic.Int64
	responseFunc func(req tarotbar.ProviderRequest) (tarotbar.ProviderResponse, error)
}

var _ tarotbar.Provider = (*Provider)(nil)

// Option configures a mock Provider.
type Option func(*Provider)

// New creates a mock provider with the given options.
func New(opts ...Option) *Provider {
	p := &Provider{
		name:    "mock",
		content: `{}`,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithName sets the provider name.
func WithName(name string) Option {
	return func(p *Provider) { p.name = name }
}

// WithLatency adds simulated latency to each call.
func WithLatency(d time.Duration) Option {
	return func(p *Provider) { p.latency = d }
}

// WithError makes the provider always return this error.
func WithError(err error) Option {
	return func(p *Provider) { p.staticErr = err }
}

// WithContent sets the raw payload returned by every call.
func WithContent(content string) Option {
	return func(p *Provider) { p.content = content }
}

// WithResponseFunc sets a custom response function. The call count at
// the time of the call is available via CallCount.
func WithResponseFunc(fn func(req tarotbar.ProviderRequest) (tarotbar.ProviderResponse, error)) Option {
	return func(p *Provider) { p.responseFunc = fn }
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Complete(ctx context.Context, req tarotbar.ProviderRequest) (tarotbar.ProviderResponse, error) {
	if p.latency > 0 {
		select {
		case <-time.After(p.latency):
		case <-ctx.Done():
			return tarotbar.ProviderResponse{}, ctx.Err()
		}
	}

	p.callCount.Add(1)

	if p.staticErr != nil {
		return tarotbar.ProviderResponse{}, p.staticErr
	}

	if p.responseFunc != nil {
		return p.responseFunc(req)
	}

	return tarotbar.ProviderResponse{
		ID:           "mock-response-id",
		Content:      p.content,
		FinishReason: "stop",
		Model:        req.Model,
	}, nil
}

// CallCount returns the number of calls made to the provider.
func (p *Provider) CallCount() int64 { return p.callCount.Load() }

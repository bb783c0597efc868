package tarotbar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reader orchestrates generation requests against an LLM provider.
// It is stateless apart from its configuration: concurrent calls share
// no mutable state and may proceed fully in parallel.
type Reader struct {
	cfg      Config
	provider Provider
	meter    Meter
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures a Reader.
type Option func(*Reader)

// WithMeter sets the meter.
func WithMeter(m Meter) Option {
	return func(r *Reader) { r.meter = m }
}

// WithSleep overrides the inter-attempt sleep function. Used in tests
// to avoid real backoff delays.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Reader) { r.sleep = fn }
}

// NewReader creates a Reader with the given config and provider.
// Missing provider/generation settings fall back to the package
// defaults; a noop meter is used unless overridden via options.
func NewReader(cfg Config, provider Provider, opts ...Option) (*Reader, error) {
	if provider == nil {
		return nil, fmt.Errorf("tarotbar: a provider is required")
	}
	cfg.applyDefaults()
	if cfg.Generation.BackoffCap < cfg.Generation.BackoffBase {
		return nil, fmt.Errorf("tarotbar: generation.backoff_cap must be >= backoff_base")
	}

	r := &Reader{
		cfg:      cfg,
		provider: provider,
	}

	for _, opt := range opts {
		opt(r)
	}

	// Apply defaults after options.
	if r.meter == nil {
		r.meter = &noopMeter{}
	}
	if r.sleep == nil {
		r.sleep = sleepCtx
	}

	return r, nil
}

// Basic generates a single-card reading with a drink recommendation.
func (r *Reader) Basic(ctx context.Context) (BasicReading, error) {
	var reading BasicReading
	err := r.generate(ctx, KindBasic, basicMessages(), func(raw string) error {
		parsed, err := parseBasic(raw)
		if err != nil {
			return err
		}
		reading = parsed
		return nil
	})
	if err != nil {
		return BasicReading{}, err
	}
	reading.ID = uuid.New().String()
	reading.CreatedAt = time.Now().UTC()
	return reading, nil
}

// Premium generates a three-card past/present/future reading. The
// context string (typically a birth date) is inserted into the prompt
// verbatim; it must be non-empty but is otherwise not validated.
func (r *Reader) Premium(ctx context.Context, userContext string) (PremiumReading, error) {
	if userContext == "" {
		return PremiumReading{}, ErrEmptyContext
	}

	var reading PremiumReading
	err := r.generate(ctx, KindPremium, premiumMessages(userContext), func(raw string) error {
		parsed, err := parsePremium(raw)
		if err != nil {
			return err
		}
		reading = parsed
		return nil
	})
	if err != nil {
		return PremiumReading{}, err
	}
	reading.ID = uuid.New().String()
	reading.Context = userContext
	reading.CreatedAt = time.Now().UTC()
	return reading, nil
}

// generate runs the attempt loop: call the provider, parse the payload,
// and retry transport failures and schema violations with exponential
// backoff until the attempt budget is exhausted. A parse failure
// triggers a fresh provider call; malformed output is never repaired.
func (r *Reader) generate(ctx context.Context, kind ReadingKind, msgs []Message, parse func(raw string) error) error {
	gen := r.cfg.Generation
	start := time.Now()

	var lastErr error
	var lastPayload string
	attempts := 0

	for attempt := 1; attempt <= gen.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := r.sleep(ctx, backoffDelay(gen.BackoffBase, gen.BackoffCap, attempt-2)); err != nil {
				// Caller gave up mid-backoff; keep the last attempt's
				// error as the failure cause.
				if lastErr == nil {
					lastErr = fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
				}
				break
			}
		}
		attempts = attempt

		r.meter.OnAttempt(AttemptEvent{
			Kind:       kind,
			Model:      r.cfg.Provider.Model,
			AttemptNum: attempt,
		})

		resp, err := r.complete(ctx, msgs)
		if err != nil {
			lastErr = err
			if IsFatal(err) {
				break
			}
			continue
		}

		lastPayload = resp.Content
		if err := parse(resp.Content); err != nil {
			lastErr = err
			continue
		}

		r.meter.OnResult(ResultEvent{
			Kind:     kind,
			Model:    r.cfg.Provider.Model,
			Success:  true,
			Attempts: attempt,
			Duration: time.Since(start),
		})
		return nil
	}

	genErr := &GenerationError{
		Err:         lastErr,
		Kind:        kind,
		Reason:      reasonFor(lastErr),
		Attempts:    attempts,
		LastPayload: lastPayload,
	}

	r.meter.OnResult(ResultEvent{
		Kind:     kind,
		Model:    r.cfg.Provider.Model,
		Success:  false,
		Attempts: attempts,
		Duration: time.Since(start),
		Reason:   genErr.Reason,
		Error:    genErr,
	})
	return genErr
}

// complete performs one provider call bounded by the per-attempt
// timeout. A timed-out or cancelled call is reported as a transport
// failure and consumes its attempt.
func (r *Reader) complete(ctx context.Context, msgs []Message) (ProviderResponse, error) {
	if t := r.cfg.Generation.AttemptTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	resp, err := r.provider.Complete(ctx, ProviderRequest{
		Auth:        Auth{APIKey: r.cfg.Provider.APIKey},
		Model:       r.cfg.Provider.Model,
		Messages:    msgs,
		Temperature: Float64Ptr(r.cfg.Provider.Temperature),
		MaxTokens:   IntPtr(r.cfg.Provider.MaxTokens),
		JSONObject:  true,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return ProviderResponse{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return ProviderResponse{}, err
	}
	if resp.Content == "" {
		return resp, schemaErrf("empty completion")
	}
	return resp, nil
}

// backoffDelay returns base doubled n times, capped at ceil.
func backoffDelay(base, ceil time.Duration, n int) time.Duration {
	d := base
	for i := 0; i < n; i++ {
		d *= 2
		if d >= ceil {
			return ceil
		}
	}
	if d > ceil {
		return ceil
	}
	return d
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

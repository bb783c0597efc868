package tarotbar

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrRateLimited         = errors.New("tarotbar: rate limited by provider")
	ErrProviderUnavailable = errors.New("tarotbar: provider unavailable")
	ErrAuthFailed          = errors.New("tarotbar: authentication failed")
	ErrInvalidRequest      = errors.New("tarotbar: invalid request")
	ErrSchemaViolation     = errors.New("tarotbar: response failed schema validation")
	ErrEmptyContext        = errors.New("tarotbar: premium context must not be empty")
)

// FailureReason categorizes why a generation attempt (or the whole
// operation) failed.
type FailureReason string

const (
	ReasonNetwork   FailureReason = "network"
	ReasonRateLimit FailureReason = "rate_limit"
	ReasonSchema    FailureReason = "schema"
	ReasonFatal     FailureReason = "fatal"
)

// GenerationError is returned when a generation operation exhausts its
// attempt budget (or hits a fatal error). LastPayload holds the raw
// text of the final provider response, if any, for observability.
type GenerationError struct {
	Err         error
	Kind        ReadingKind
	Reason      FailureReason
	Attempts    int
	LastPayload string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("tarotbar: %s reading failed: reason=%s attempts=%d: %v",
		e.Kind, e.Reason, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the error should not be retried.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrInvalidRequest)
}

// IsRetryable returns true if the error can be retried with a fresh
// provider call.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrProviderUnavailable) ||
		errors.Is(err, ErrSchemaViolation)
}

// reasonFor maps an attempt error to its failure category.
func reasonFor(err error) FailureReason {
	switch {
	case errors.Is(err, ErrRateLimited):
		return ReasonRateLimit
	case errors.Is(err, ErrSchemaViolation):
		return ReasonSchema
	case IsFatal(err):
		return ReasonFatal
	default:
		return ReasonNetwork
	}
}

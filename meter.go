package tarotbar

import "time"

// Meter observes generation events for monitoring/logging.
type Meter interface {
	// OnAttempt is called before each provider call.
	OnAttempt(event AttemptEvent)

	// OnResult is called once per generation operation, after the
	// final attempt.
	OnResult(event ResultEvent)
}

// AttemptEvent describes a single provider call about to be made.
type AttemptEvent struct {
	Kind       ReadingKind
	Model      string
	AttemptNum int
}

// ResultEvent describes the final outcome of a generation operation.
type ResultEvent struct {
	Kind     ReadingKind
	Model    string
	Success  bool
	Attempts int
	Duration time.Duration
	Reason   FailureReason // set when Success is false
	Error    error         // set when Success is false
}

// noopMeter is the default meter; it does nothing.
type noopMeter struct{}

func (m *noopMeter) OnAttempt(AttemptEvent) {}
func (m *noopMeter) OnResult(ResultEvent)   {}

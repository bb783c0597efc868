package meter

import (
	"log/slog"

	"github.com/moonpour/tarotbar"
)

// LogMeter logs generation events using slog.
type LogMeter struct {
	Logger *slog.Logger
}

var _ tarotbar.Meter = (*LogMeter)(nil)

// NewLogMeter creates a LogMeter with the given logger.
// If logger is nil, slog.Default() is used.
func NewLogMeter(logger *slog.Logger) *LogMeter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMeter{Logger: logger}
}

func (m *LogMeter) OnAttempt(e tarotbar.AttemptEvent) {
	m.Logger.Info("attempt",
		"kind", e.Kind,
		"model", e.Model,
		"attempt", e.AttemptNum,
	)
}

func (m *LogMeter) OnResult(e tarotbar.ResultEvent) {
	if e.Success {
		m.Logger.Info("result",
			"kind", e.Kind,
			"model", e.Model,
			"attempts", e.Attempts,
			"duration_ms", e.Duration.Milliseconds(),
		)
	} else {
		m.Logger.Warn("result_error",
			"kind", e.Kind,
			"model", e.Model,
			"attempts", e.Attempts,
			"duration_ms", e.Duration.Milliseconds(),
			"reason", e.Reason,
			"error", e.Error,
		)
	}
}

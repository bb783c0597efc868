package meter

import "github.com/moonpour/tarotbar"

// NoopMeter is a meter that does nothing.
type NoopMeter struct{}

var _ tarotbar.Meter = (*NoopMeter)(nil)

func (m *NoopMeter) OnAttempt(tarotbar.AttemptEvent) {}
func (m *NoopMeter) OnResult(tarotbar.ResultEvent)   {}

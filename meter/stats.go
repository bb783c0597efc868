package meter

import (
	"sync"
	"time"

	"github.com/moonpour/tarotbar"
)

// StatsMeter aggregates generation counters in memory. Useful for an
// admin/stats command or a periodic log line.
type StatsMeter struct {
	mu            sync.Mutex
	totalAttempts int64
	total         int64
	succeeded     int64
	failed        int64
	byReason      map[tarotbar.FailureReason]int64
	totalDuration time.Duration
}

var _ tarotbar.Meter = (*StatsMeter)(nil)

// NewStatsMeter creates an empty StatsMeter.
func NewStatsMeter() *StatsMeter {
	return &StatsMeter{
		byReason: make(map[tarotbar.FailureReason]int64),
	}
}

func (m *StatsMeter) OnAttempt(tarotbar.AttemptEvent) {
	m.mu.Lock()
	m.totalAttempts++
	m.mu.Unlock()
}

func (m *StatsMeter) OnResult(e tarotbar.ResultEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.totalDuration += e.Duration
	if e.Success {
		m.succeeded++
	} else {
		m.failed++
		m.byReason[e.Reason]++
	}
}

// Stats is a point-in-time copy of the aggregated counters.
type Stats struct {
	TotalAttempts    int64
	TotalOperations  int64
	Succeeded        int64
	Failed           int64
	FailuresByReason map[tarotbar.FailureReason]int64
	AverageDuration  time.Duration
}

// Snapshot returns a copy of the current counters.
func (m *StatsMeter) Snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	byReason := make(map[tarotbar.FailureReason]int64, len(m.byReason))
	for k, v := range m.byReason {
		byReason[k] = v
	}

	var avg time.Duration
	if m.total > 0 {
		avg = m.totalDuration / time.Duration(m.total)
	}

	return Stats{
		TotalAttempts:    m.totalAttempts,
		TotalOperations:  m.total,
		Succeeded:        m.succeeded,
		Failed:           m.failed,
		FailuresByReason: byReason,
		AverageDuration:  avg,
	}
}

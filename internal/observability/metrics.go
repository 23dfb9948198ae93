package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for the HTTP layer and the
// assignment protocol.
type Metrics struct {
	mu              sync.Mutex
	requestCount    map[string]int64
	errorCount      map[string]int64
	claimOutcomes   map[string]int64
	mirrorRefreshes int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		claimOutcomes: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordClaimOutcome counts assignment protocol outcomes
// (claimed, reclaimed, stolen, contended, released, decided).
func (m *Metrics) RecordClaimOutcome(outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claimOutcomes[outcome]++
}

// RecordMirrorRefresh counts request-mirror mutations, whether from a feed
// event or a reconciliation sweep.
func (m *Metrics) RecordMirrorRefresh() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mirrorRefreshes++
}

// MirrorRefreshes returns the mirror mutation counter.
func (m *Metrics) MirrorRefreshes() int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mirrorRefreshes
}

// ClaimOutcomes returns a copy of the protocol outcome counters.
func (m *Metrics) ClaimOutcomes() map[string]int64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.claimOutcomes))
	for k, v := range m.claimOutcomes {
		out[k] = v
	}
	return out
}

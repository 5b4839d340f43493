package monitoring

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Monitor keeps the outcome of the most recent batch run for the health
// endpoints. Partial failures do not flip the health status; a batch that
// produced some plans is a working system.
type Monitor struct {
	mu             sync.RWMutex
	lastRunSuccess bool
	lastRunTime    time.Time
	lastSummary    string
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) RecordSuccess(summary string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRunSuccess = true
	m.lastRunTime = time.Now()
	m.lastSummary = summary

	log.Printf("Run completed successfully - %s (took %v)", summary, duration)
}

func (m *Monitor) RecordPartialFailure(summary string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRunSuccess = true
	m.lastRunTime = time.Now()
	m.lastSummary = summary

	log.Printf("PARTIAL FAILURE: %s (took %v)", summary, duration)
}

func (m *Monitor) RecordCriticalFailure(err error, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRunSuccess = false
	m.lastRunTime = time.Now()
	m.lastSummary = err.Error()

	log.Printf("CRITICAL FAILURE: %s (took %v)", err.Error(), duration)
}

func (m *Monitor) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastRunTime.IsZero() {
		return true // No runs yet
	}
	return m.lastRunSuccess
}

func (m *Monitor) GetStatusSummary() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastRunTime.IsZero() {
		return "No runs yet"
	}
	if m.lastRunSuccess {
		return fmt.Sprintf("Last run %s: %s", m.lastRunTime.Format("Jan 2 15:04"), m.lastSummary)
	}
	return fmt.Sprintf("Last run FAILED %s: %s", m.lastRunTime.Format("Jan 2 15:04"), m.lastSummary)
}

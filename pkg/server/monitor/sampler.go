package monitor

import (
	"sync"
	"time"

	"github.com/nicktill/hikelog/pkg/config"
)

// SamplerMonitor tracks sensor reads made by the sampler.
type SamplerMonitor struct {
	mu                sync.RWMutex
	started           time.Time
	lastSuccess       time.Time
	lastAttempt       time.Time
	consecutiveErrors int
	lastError         string
	samples           uint64
	snapshots         uint64
	failures          uint64
}

// NewSamplerMonitor returns a monitor whose staleness clock starts now.
func NewSamplerMonitor() *SamplerMonitor {
	return &SamplerMonitor{started: time.Now()}
}

// RecordSample records a stored minute sample.
func (sm *SamplerMonitor) RecordSample() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.recordSuccess()
	sm.samples++
}

// RecordSnapshot records a stored snapshot.
func (sm *SamplerMonitor) RecordSnapshot() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.recordSuccess()
	sm.snapshots++
}

func (sm *SamplerMonitor) recordSuccess() {
	now := time.Now()
	sm.lastSuccess = now
	sm.lastAttempt = now
	sm.consecutiveErrors = 0
	sm.lastError = ""
}

// RecordFailure records a skipped tick.
func (sm *SamplerMonitor) RecordFailure(err error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.lastAttempt = time.Now()
	sm.consecutiveErrors++
	sm.failures++
	if err != nil {
		sm.lastError = err.Error()
	}
}

// IsHealthy reports whether the sampler is storing readings.
// Unhealthy conditions:
//   - config.SamplerUnhealthyFailures or more consecutive failures
//   - no success for config.SamplerStaleAfter (counted from start if none yet)
func (sm *SamplerMonitor) IsHealthy() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.healthy()
}

func (sm *SamplerMonitor) healthy() bool {
	if sm.consecutiveErrors >= config.SamplerUnhealthyFailures {
		return false
	}
	since := sm.lastSuccess
	if since.IsZero() {
		since = sm.started
	}
	return time.Since(since) <= config.SamplerStaleAfter
}

// SamplerStatus is the sampler section of the health check.
type SamplerStatus struct {
	Healthy           bool   `json:"healthy"`
	Samples           uint64 `json:"samples"`
	Snapshots         uint64 `json:"snapshots"`
	Failures          uint64 `json:"failures"`
	LastSuccess       string `json:"last_success,omitempty"`
	TimeSinceSuccess  string `json:"time_since_success,omitempty"`
	LastAttempt       string `json:"last_attempt,omitempty"`
	ConsecutiveErrors int    `json:"consecutive_errors,omitempty"`
	LastError         string `json:"last_error,omitempty"`
}

// Status returns the current sampler status.
func (sm *SamplerMonitor) Status() SamplerStatus {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	status := SamplerStatus{
		Healthy:   sm.healthy(),
		Samples:   sm.samples,
		Snapshots: sm.snapshots,
		Failures:  sm.failures,
	}
	if !sm.lastSuccess.IsZero() {
		status.LastSuccess = sm.lastSuccess.Format(time.RFC3339)
		status.TimeSinceSuccess = time.Since(sm.lastSuccess).Round(time.Second).String()
	}
	if !sm.lastAttempt.IsZero() {
		status.LastAttempt = sm.lastAttempt.Format(time.RFC3339)
	}
	if sm.consecutiveErrors > 0 {
		status.ConsecutiveErrors = sm.consecutiveErrors
		status.LastError = sm.lastError
	}
	return status
}

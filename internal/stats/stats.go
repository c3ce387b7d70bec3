// Package stats tracks API request outcomes with lock-free counters.
package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"
)

// PerformanceStats counts terminal request outcomes. A request that
// eventually succeeds after several retryable failures counts as one
// success; the intermediate attempts only bump the retry counter.
// All methods are safe for concurrent use.
type PerformanceStats struct {
	totalRequests      atomic.Uint64
	successfulRequests atomic.Uint64
	failedRequests     atomic.Uint64
	retriedAttempts    atomic.Uint64
	totalDurationMS    atomic.Uint64
}

func New() *PerformanceStats {
	return &PerformanceStats{}
}

// RecordSuccess registers one terminally successful request and its latency.
func (s *PerformanceStats) RecordSuccess(d time.Duration) {
	s.totalRequests.Add(1)
	s.successfulRequests.Add(1)
	s.totalDurationMS.Add(uint64(d.Milliseconds()))
}

// RecordFailure registers one terminally failed request.
func (s *PerformanceStats) RecordFailure() {
	s.totalRequests.Add(1)
	s.failedRequests.Add(1)
}

// RecordRetry registers a retryable attempt that did not end the request.
func (s *PerformanceStats) RecordRetry() {
	s.retriedAttempts.Add(1)
}

func (s *PerformanceStats) TotalRequests() uint64      { return s.totalRequests.Load() }
func (s *PerformanceStats) SuccessfulRequests() uint64 { return s.successfulRequests.Load() }
func (s *PerformanceStats) FailedRequests() uint64     { return s.failedRequests.Load() }
func (s *PerformanceStats) RetriedAttempts() uint64    { return s.retriedAttempts.Load() }

// AverageDuration returns the mean latency of successful requests,
// or zero when none have completed.
func (s *PerformanceStats) AverageDuration() time.Duration {
	succ := s.successfulRequests.Load()
	if succ == 0 {
		return 0
	}
	return time.Duration(s.totalDurationMS.Load()/succ) * time.Millisecond
}

// SuccessRate returns the percentage of successful requests.
// With no requests recorded it reports 100.
func (s *PerformanceStats) SuccessRate() float64 {
	total := s.totalRequests.Load()
	if total == 0 {
		return 100.0
	}
	return float64(s.successfulRequests.Load()) / float64(total) * 100.0
}

// Snapshot is a point-in-time copy of the counters for reporting.
type Snapshot struct {
	TotalRequests      uint64  `json:"total_requests"`
	SuccessfulRequests uint64  `json:"successful_requests"`
	FailedRequests     uint64  `json:"failed_requests"`
	RetriedAttempts    uint64  `json:"retried_attempts"`
	AverageDurationMS  int64   `json:"average_duration_ms"`
	SuccessRatePct     float64 `json:"success_rate_pct"`
}

func (s *PerformanceStats) Snapshot() Snapshot {
	return Snapshot{
		TotalRequests:      s.TotalRequests(),
		SuccessfulRequests: s.SuccessfulRequests(),
		FailedRequests:     s.FailedRequests(),
		RetriedAttempts:    s.RetriedAttempts(),
		AverageDurationMS:  s.AverageDuration().Milliseconds(),
		SuccessRatePct:     s.SuccessRate(),
	}
}

// ToJSON renders the snapshot as indented JSON.
func (s *PerformanceStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal stats: %w", err)
	}
	return string(data), nil
}

// Print outputs the summary to stdout.
func (s *PerformanceStats) Print() {
	s.PrintTo(os.Stdout)
}

// PrintTo writes a human-readable summary, used at shutdown.
func (s *PerformanceStats) PrintTo(w io.Writer) {
	snap := s.Snapshot()
	fmt.Fprintf(w, "\nAPI statistics:\n")
	fmt.Fprintf(w, "  Requests:    %d (%d ok, %d failed)\n",
		snap.TotalRequests, snap.SuccessfulRequests, snap.FailedRequests)
	fmt.Fprintf(w, "  Retries:     %d\n", snap.RetriedAttempts)
	fmt.Fprintf(w, "  Avg latency: %dms\n", snap.AverageDurationMS)
	fmt.Fprintf(w, "  Success:     %.1f%%\n", snap.SuccessRatePct)
}

package stats

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEmptyStats(t *testing.T) {
	s := New()

	if got := s.SuccessRate(); got != 100.0 {
		t.Errorf("SuccessRate with no requests = %v, want 100", got)
	}
	if got := s.AverageDuration(); got != 0 {
		t.Errorf("AverageDuration with no successes = %v, want 0", got)
	}
	if got := s.TotalRequests(); got != 0 {
		t.Errorf("TotalRequests = %d, want 0", got)
	}
}

func TestTerminalOutcomeCounting(t *testing.T) {
	s := New()

	// Two retried attempts followed by one terminal success.
	s.RecordRetry()
	s.RecordRetry()
	s.RecordSuccess(200 * time.Millisecond)

	if got := s.SuccessfulRequests(); got != 1 {
		t.Errorf("SuccessfulRequests = %d, want 1", got)
	}
	if got := s.FailedRequests(); got != 0 {
		t.Errorf("FailedRequests = %d, want 0", got)
	}
	if got := s.RetriedAttempts(); got != 2 {
		t.Errorf("RetriedAttempts = %d, want 2", got)
	}
	if got := s.SuccessRate(); got != 100.0 {
		t.Errorf("SuccessRate = %v, want 100", got)
	}
}

func TestAverageDuration(t *testing.T) {
	s := New()
	s.RecordSuccess(100 * time.Millisecond)
	s.RecordSuccess(300 * time.Millisecond)

	if got := s.AverageDuration(); got != 200*time.Millisecond {
		t.Errorf("AverageDuration = %v, want 200ms", got)
	}
}

func TestSuccessRateMixed(t *testing.T) {
	s := New()
	s.RecordSuccess(10 * time.Millisecond)
	s.RecordFailure()
	s.RecordFailure()
	s.RecordSuccess(10 * time.Millisecond)

	if got := s.SuccessRate(); got != 50.0 {
		t.Errorf("SuccessRate = %v, want 50", got)
	}
}

func TestConcurrentRecording(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.RecordSuccess(time.Millisecond)
				s.RecordFailure()
				s.RecordRetry()
			}
		}()
	}
	wg.Wait()

	if got := s.TotalRequests(); got != 10000 {
		t.Errorf("TotalRequests = %d, want 10000", got)
	}
	if got := s.SuccessfulRequests(); got != 5000 {
		t.Errorf("SuccessfulRequests = %d, want 5000", got)
	}
	if got := s.RetriedAttempts(); got != 5000 {
		t.Errorf("RetriedAttempts = %d, want 5000", got)
	}
}

func TestToJSON(t *testing.T) {
	s := New()
	s.RecordSuccess(50 * time.Millisecond)

	out, err := s.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	if !strings.Contains(out, `"total_requests": 1`) {
		t.Errorf("JSON missing total_requests: %s", out)
	}
}

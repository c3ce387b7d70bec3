package llm

import "testing"

func TestRetryableKinds(t *testing.T) {
	cases := []struct {
		kind      ErrorKind
		retryable bool
	}{
		{ErrRateLimit, true},
		{ErrOverloaded, true},
		{ErrNetwork, true},
		{ErrTimeout, true},
		{ErrHTTP, false},
		{ErrAuthentication, false},
		{ErrInvalidRequest, false},
		{ErrParse, false},
	}
	for _, tc := range cases {
		err := &APIError{Kind: tc.kind}
		if got := err.Retryable(); got != tc.retryable {
			t.Errorf("%s.Retryable() = %v, want %v", tc.kind, got, tc.retryable)
		}
	}
}

func TestClassifyStatus(t *testing.T) {
	if e := classifyStatus(429, "", 0); e.Kind != ErrRateLimit || e.RetryAfter != DefaultRetryAfterSeconds {
		t.Errorf("429 -> %+v", e)
	}
	if e := classifyStatus(429, "", 5); e.RetryAfter != 5 {
		t.Errorf("429 with hint -> RetryAfter %d", e.RetryAfter)
	}
	if e := classifyStatus(401, "", 0); e.Kind != ErrAuthentication {
		t.Errorf("401 -> %v", e.Kind)
	}
	if e := classifyStatus(400, "bad", 0); e.Kind != ErrInvalidRequest {
		t.Errorf("400 -> %v", e.Kind)
	}
	if e := classifyStatus(529, "", 0); e.Kind != ErrOverloaded {
		t.Errorf("529 -> %v", e.Kind)
	}
	if e := classifyStatus(503, "oops", 0); e.Kind != ErrHTTP || e.Status != 503 {
		t.Errorf("503 -> %+v", e)
	}
}

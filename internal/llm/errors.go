package llm

import "fmt"

// ErrorKind is the closed set of API failure classes.
type ErrorKind int

const (
	// ErrHTTP covers non-2xx statuses without a more specific class.
	ErrHTTP ErrorKind = iota
	// ErrRateLimit is a 429; RetryAfter carries the server hint.
	ErrRateLimit
	// ErrAuthentication is a 401.
	ErrAuthentication
	// ErrOverloaded is a 529.
	ErrOverloaded
	// ErrInvalidRequest is a 400.
	ErrInvalidRequest
	// ErrNetwork is a transport-level failure before any status arrived.
	ErrNetwork
	// ErrTimeout means the request deadline elapsed.
	ErrTimeout
	// ErrParse means the response body was not the expected JSON.
	ErrParse
)

func (k ErrorKind) String() string {
	switch k {
	case ErrHTTP:
		return "http"
	case ErrRateLimit:
		return "rate_limit"
	case ErrAuthentication:
		return "authentication"
	case ErrOverloaded:
		return "overloaded"
	case ErrInvalidRequest:
		return "invalid_request"
	case ErrNetwork:
		return "network"
	case ErrTimeout:
		return "timeout"
	case ErrParse:
		return "parse"
	default:
		return "unknown"
	}
}

// DefaultRetryAfterSeconds is used when a 429 lacks a usable Retry-After.
const DefaultRetryAfterSeconds = 60

// APIError is the typed failure returned by the client.
type APIError struct {
	Kind   ErrorKind
	Status int    // HTTP status, when one was received
	Body   string // response body, when one was received

	// RetryAfter is the 429 hint in seconds.
	RetryAfter int
	// TimeoutSeconds is the elapsed budget for ErrTimeout.
	TimeoutSeconds int

	// Err is the underlying cause for ErrNetwork and ErrParse.
	Err error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case ErrRateLimit:
		return fmt.Sprintf("rate limited, retry after %ds", e.RetryAfter)
	case ErrAuthentication:
		return "authentication failed: invalid API key"
	case ErrOverloaded:
		return "API overloaded"
	case ErrInvalidRequest:
		return fmt.Sprintf("invalid request: %s", e.Body)
	case ErrNetwork:
		return fmt.Sprintf("network error: %v", e.Err)
	case ErrTimeout:
		return fmt.Sprintf("request timed out after %ds", e.TimeoutSeconds)
	case ErrParse:
		return fmt.Sprintf("parse response: %v", e.Err)
	default:
		return fmt.Sprintf("API error: status %d: %s", e.Status, e.Body)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// Retryable reports whether a retry can plausibly succeed. Rate limits,
// overload, network faults, and timeouts are transient; everything else
// is permanent.
func (e *APIError) Retryable() bool {
	switch e.Kind {
	case ErrRateLimit, ErrOverloaded, ErrNetwork, ErrTimeout:
		return true
	default:
		return false
	}
}

// classifyStatus maps a non-2xx response to its error class.
func classifyStatus(status int, body string, retryAfter int) *APIError {
	switch status {
	case 429:
		if retryAfter <= 0 {
			retryAfter = DefaultRetryAfterSeconds
		}
		return &APIError{Kind: ErrRateLimit, Status: status, Body: body, RetryAfter: retryAfter}
	case 401:
		return &APIError{Kind: ErrAuthentication, Status: status, Body: body}
	case 400:
		return &APIError{Kind: ErrInvalidRequest, Status: status, Body: body}
	case 529:
		return &APIError{Kind: ErrOverloaded, Status: status, Body: body}
	default:
		return &APIError{Kind: ErrHTTP, Status: status, Body: body}
	}
}

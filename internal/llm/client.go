package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kvit-s/kvit-agent/internal/security"
	"github.com/kvit-s/kvit-agent/internal/stats"
)

const (
	messagesPath     = "/v1/messages"
	anthropicVersion = "2023-06-01"
)

// RetryConfig shapes the exponential backoff schedule.
type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxElapsedTime  time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval: 1000 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		MaxElapsedTime:  120 * time.Second,
	}
}

// Client talks to the messages endpoint with retries and outcome counting.
type Client struct {
	apiKey    security.ValidatedKey
	baseURL   string
	model     string
	maxTokens int
	tools     []ToolSpec

	httpClient *http.Client
	retry      RetryConfig
	requestID  string
	stats      *stats.PerformanceStats
	logger     *zap.Logger
}

// Options configures a Client. Zero-value fields fall back to defaults.
type Options struct {
	APIKey    security.ValidatedKey
	BaseURL   string
	Model     string
	MaxTokens int
	Tools     []ToolSpec
	Retry     *RetryConfig
	Timeout   time.Duration
	// Stats receives the outcome counters; clients given the same handle
	// share one ledger. Defaults to a fresh PerformanceStats.
	Stats  *stats.PerformanceStats
	Logger *zap.Logger
}

func NewClient(opts Options) *Client {
	retry := DefaultRetryConfig()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.anthropic.com"
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 8192
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Stats == nil {
		opts.Stats = stats.New()
	}
	return &Client{
		apiKey:    opts.APIKey,
		baseURL:   opts.BaseURL,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		tools:     opts.Tools,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DisableKeepAlives: true,
			},
		},
		retry:     retry,
		requestID: uuid.NewString(),
		stats:     opts.Stats,
		logger:    logger,
	}
}

// Stats exposes the outcome counters for reporting.
func (c *Client) Stats() *stats.PerformanceStats { return c.stats }

// RequestID is the correlation id attached to every request.
func (c *Client) RequestID() string { return c.requestID }

// Messages sends the conversation and retries transient failures with
// exponential backoff until the elapsed budget runs out. Exactly one
// terminal outcome is recorded per call.
func (c *Client) Messages(ctx context.Context, messages []Message) (*MessagesResponse, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.retry.InitialInterval
	expo.MaxInterval = c.retry.MaxInterval
	expo.Multiplier = c.retry.Multiplier
	expo.MaxElapsedTime = c.retry.MaxElapsedTime
	expo.Reset()

	var resp *MessagesResponse
	var lastDuration time.Duration

	operation := func() error {
		start := time.Now()
		r, err := c.send(ctx, messages)
		lastDuration = time.Since(start)
		if err == nil {
			resp = r
			return nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Retryable() {
			c.stats.RecordRetry()
			c.logger.Warn("retryable API failure",
				zap.String("kind", apiErr.Kind.String()),
				zap.Int("status", apiErr.Status),
				zap.String("request_id", c.requestID))
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(operation, backoff.WithContext(expo, ctx))
	if err != nil {
		c.stats.RecordFailure()
		return nil, fmt.Errorf("messages request: %w", err)
	}
	c.stats.RecordSuccess(lastDuration)
	return resp, nil
}

func (c *Client) send(ctx context.Context, messages []Message) (*MessagesResponse, error) {
	reqBody := MessagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  messages,
		Tools:     c.tools,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+messagesPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey.Reveal())
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("x-request-id", c.requestID)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classifyTransportError(ctx, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &APIError{Kind: ErrNetwork, Err: fmt.Errorf("read body: %w", err)}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		retryAfter := parseRetryAfter(httpResp.Header.Get("Retry-After"))
		return nil, classifyStatus(httpResp.StatusCode, string(body), retryAfter)
	}

	var resp MessagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &APIError{Kind: ErrParse, Err: err}
	}
	return &resp, nil
}

func (c *Client) classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{
			Kind:           ErrTimeout,
			TimeoutSeconds: int(c.httpClient.Timeout.Seconds()),
			Err:            err,
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &APIError{
			Kind:           ErrTimeout,
			TimeoutSeconds: int(c.httpClient.Timeout.Seconds()),
			Err:            err,
		}
	}
	return &APIError{Kind: ErrNetwork, Err: err}
}

func parseRetryAfter(header string) int {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return secs
}

// Package alert delivers kernel hyperperiod reports and deadline-miss
// events to an optional external webhook, HMAC-signed and guarded by a
// circuit breaker so an unreachable or slow sink degrades to a no-op
// instead of blocking the dispatcher.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/crypto/blake2b"

	"rtkernel/pkg/kernel"
)

const (
	defaultTimeout    = 2 * time.Second
	defaultMaxAttempt = 3
	defaultBackoff    = 200 * time.Millisecond
	breakerTimeout    = 30 * time.Second
	breakerThreshold  = 3
	signatureHeader   = "X-Rtkernel-Signature"
)

var (
	errRetryableStatus  = errors.New("alert: retryable status code")
	errUnexpectedStatus = errors.New("alert: unexpected status code")
	errExhaustedRetries = errors.New("alert: exhausted retry budget")
	errRequestFailed    = errors.New("alert: request execution failed")
)

type clientConfig struct {
	maxAttempt int
	backoff    time.Duration
	secret     []byte
}

// Option mutates the Notifier configuration during construction.
type Option func(*clientConfig)

// WithMaxAttempts overrides the retry budget for webhook deliveries.
func WithMaxAttempts(attempts int) Option {
	return func(cfg *clientConfig) {
		if attempts > 0 {
			cfg.maxAttempt = attempts
		}
	}
}

// WithBackoff overrides the delay between retry attempts.
func WithBackoff(delay time.Duration) Option {
	return func(cfg *clientConfig) {
		if delay > 0 {
			cfg.backoff = delay
		}
	}
}

// WithSigningSecret sets the key used to HMAC-sign (blake2b-keyed) the
// webhook body. Delivery is unsigned if no secret is configured.
func WithSigningSecret(secret []byte) Option {
	return func(cfg *clientConfig) {
		if len(secret) > 0 {
			cfg.secret = secret
		}
	}
}

// Notifier implements kernel.ReportNotifier, posting JSON events to a
// configured webhook URL.
type Notifier struct {
	http   *http.Client
	url    string
	secret []byte

	maxAttempt int
	backoff    time.Duration

	breaker *gobreaker.CircuitBreaker
}

// NewNotifier constructs a Notifier posting to url. A nil httpClient uses a
// private instance with a conservative timeout. An empty url produces a
// Notifier whose Notify* methods are no-ops, so callers can wire it
// unconditionally regardless of whether alerting is configured.
func NewNotifier(httpClient *http.Client, url string, opts ...Option) *Notifier {
	cfg := clientConfig{
		maxAttempt: defaultMaxAttempt,
		backoff:    defaultBackoff,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	settings := gobreaker.Settings{
		Name:    "rtkernel-alert-webhook",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > breakerThreshold
		},
	}

	return &Notifier{
		http:       httpClient,
		url:        strings.TrimSpace(url),
		secret:     cfg.secret,
		maxAttempt: cfg.maxAttempt,
		backoff:    cfg.backoff,
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}
}

type webhookPayload struct {
	Event          string `json:"event"`
	DeadlineMisses int    `json:"deadlineMisses,omitempty"`
	JobsRun        int    `json:"jobsRun,omitempty"`
	TaskID         uint16 `json:"taskId,omitempty"`
}

// NotifyReport delivers a completed hyperperiod report. Safe to call from
// any goroutine; delivery failures are absorbed by the circuit breaker and
// never propagated to the caller, since alerting must never block or fail
// the dispatcher.
func (n *Notifier) NotifyReport(r kernel.Report) {
	if n == nil || n.url == "" {
		return
	}

	n.deliver(webhookPayload{
		Event:          "hyperperiod_report",
		DeadlineMisses: r.DeadlineMisses,
		JobsRun:        r.JobsRun,
	})
}

// NotifyDeadlineMiss delivers a single deadline-miss event.
func (n *Notifier) NotifyDeadlineMiss(id kernel.TaskID) {
	if n == nil || n.url == "" {
		return
	}

	n.deliver(webhookPayload{
		Event:  "deadline_miss",
		TaskID: uint16(id),
	})
}

func (n *Notifier) deliver(payload webhookPayload) {
	_, _ = n.breaker.Execute(func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()

		return nil, n.post(ctx, payload)
	})
}

func (n *Notifier) post(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var lastErr error

	for attempt := 1; attempt <= n.maxAttempt; attempt++ {
		retry, tryErr := n.tryPost(ctx, body)
		if tryErr == nil {
			return nil
		}

		if !retry {
			return tryErr
		}

		lastErr = tryErr

		if attempt == n.maxAttempt {
			break
		}

		if waitErr := n.wait(ctx); waitErr != nil {
			return fmt.Errorf("retry wait: %w", waitErr)
		}
	}

	if lastErr == nil {
		return errExhaustedRetries
	}

	return fmt.Errorf("%w: %w", errExhaustedRetries, lastErr)
}

func (n *Notifier) tryPost(ctx context.Context, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if signature := n.sign(body); signature != "" {
		req.Header.Set(signatureHeader, signature)
	}

	resp, err := n.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, fmt.Errorf("%w: %w", errRequestFailed, ctx.Err())
		}

		return true, fmt.Errorf("%w: %w", errRequestFailed, err)
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	closeErr := resp.Body.Close()
	if closeErr != nil {
		return false, fmt.Errorf("close webhook response body: %w", closeErr)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return false, nil
	}

	if isRetryable(resp.StatusCode) {
		return true, fmt.Errorf("%w: status %d", errRetryableStatus, resp.StatusCode)
	}

	return false, fmt.Errorf("%w: status %d", errUnexpectedStatus, resp.StatusCode)
}

func (n *Notifier) wait(ctx context.Context) error {
	timer := time.NewTimer(n.backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("context done while waiting to retry: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (n *Notifier) sign(body []byte) string {
	if len(n.secret) == 0 {
		return ""
	}

	mac, err := blake2b.New256(n.secret)
	if err != nil {
		return ""
	}

	mac.Write(body)

	return fmt.Sprintf("%x", mac.Sum(nil))
}

func isRetryable(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	default:
		return status >= http.StatusInternalServerError && status != http.StatusNotImplemented
	}
}

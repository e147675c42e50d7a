// Package upstream holds the call policy shared by every third-party client:
// a per-attempt timeout, a fixed-delay retry for transient failures only, and
// the mapping of transport/status failures onto domain error kinds.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/atharvad999/adcreative/internal/domain"
	"github.com/atharvad999/adcreative/internal/infra"
	"github.com/atharvad999/adcreative/internal/metrics"
)

// maxBodyBytes bounds how much of an upstream response is buffered.
const maxBodyBytes = 32 << 20

// Policy configures timeouts and retries for one kind of upstream call.
type Policy struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultPolicy is one retry after 500ms with the given per-attempt timeout.
func DefaultPolicy(timeout time.Duration) Policy {
	return Policy{Timeout: timeout, MaxRetries: 1, RetryDelay: 500 * time.Millisecond}
}

// Caller executes attempts against a single named upstream.
type Caller struct {
	name    string
	logger  *infra.Logger
	metrics *metrics.Collector
	sleep   func(context.Context, time.Duration) error
}

// NewCaller builds a Caller. logger and collector may be nil.
func NewCaller(name string, logger *infra.Logger, collector *metrics.Collector) *Caller {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Caller{name: name, logger: logger, metrics: collector, sleep: sleepContext}
}

// Logger returns the logger the caller writes to.
func (c *Caller) Logger() *infra.Logger { return c.logger }

// Call runs fn under policy. Each attempt gets its own timeout; an attempt
// that fails with a retryable error is repeated after RetryDelay, at most
// MaxRetries times. Non-retryable errors are returned immediately.
func Call[T any](ctx context.Context, c *Caller, operation string, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			c.metrics.ObserveRetry(c.name, operation)
			c.logger.Warn().
				Str("upstream", c.name).
				Str("operation", operation).
				Int("attempt", attempt+1).
				Err(lastErr).
				Msg("upstream: retrying after transient failure")
			if err := c.sleep(ctx, policy.RetryDelay); err != nil {
				return zero, c.canceled(err)
			}
		}
		result, err := runAttempt(ctx, c, operation, policy.Timeout, fn)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return zero, c.canceled(ctx.Err())
		}
		var de *domain.Error
		if !errors.As(err, &de) || !de.Retryable() {
			return zero, err
		}
	}
	return zero, lastErr
}

func runAttempt[T any](ctx context.Context, c *Caller, operation string, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	attemptCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	start := time.Now()
	result, err := fn(attemptCtx)
	elapsed := time.Since(start)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		err = domain.Upstream(domain.KindUpstreamUnavailable, c.name, 0,
			fmt.Sprintf("%s timed out after %s", operation, timeout), err)
	}

	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	c.metrics.ObserveUpstream(c.name, operation, outcome, elapsed)
	event := c.logger.Debug()
	if err != nil && domain.KindOf(err) == domain.KindUpstreamContractViolation {
		event = c.logger.Error()
	}
	event.Str("upstream", c.name).
		Str("operation", operation).
		Str("outcome", outcome).
		Dur("elapsed", elapsed).
		Err(err).
		Msg("upstream: attempt finished")
	return result, err
}

func (c *Caller) canceled(err error) error {
	return domain.Upstream(domain.KindUpstreamUnavailable, c.name, 0, "request canceled", err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do sends req with client and buffers the body. Transport failures come back
// as UpstreamUnavailable; the status code is left for the caller to classify.
func (c *Caller) Do(client *http.Client, req *http.Request) (int, http.Header, []byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, nil, c.TransportError(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, resp.Header, nil, c.TransportError(fmt.Errorf("read response: %w", err))
	}
	return resp.StatusCode, resp.Header, raw, nil
}

// TransportError maps a network-level failure onto UpstreamUnavailable.
func (c *Caller) TransportError(err error) error {
	msg := "upstream unreachable"
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		msg = "upstream timed out"
	}
	return domain.Upstream(domain.KindUpstreamUnavailable, c.name, 0, msg, err)
}

// StatusError maps a non-2xx status onto the error taxonomy: 4xx is a
// rejection surfaced with the upstream's message, everything else is
// treated as the upstream being unavailable.
func (c *Caller) StatusError(status int, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = http.StatusText(status)
	}
	if status >= 400 && status < 500 {
		return domain.Upstream(domain.KindUpstreamRejected, c.name, status, message, nil)
	}
	return domain.Upstream(domain.KindUpstreamUnavailable, c.name, status, message, nil)
}

// ContractError reports an upstream payload that could not be understood.
func (c *Caller) ContractError(message string, cause error) error {
	return domain.Upstream(domain.KindUpstreamContractViolation, c.name, 0, message, cause)
}

// Snippet shortens a raw body for inclusion in error messages.
func Snippet(raw []byte) string {
	const limit = 300
	s := strings.TrimSpace(string(raw))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}

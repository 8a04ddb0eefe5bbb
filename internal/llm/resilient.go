package llm

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/sells-group/agent-cli/internal/resilience"
)

// ResilientOptions tunes the decorated client.
type ResilientOptions struct {
	// MaxAttempts bounds retries of one CreateMessage call (including the
	// first try). Zero means the package default of 3.
	MaxAttempts int
	// RequestsPerMinute throttles calls to the backend. Zero disables the
	// limiter.
	RequestsPerMinute int
	// Breaker optionally short-circuits a persistently failing backend.
	Breaker *resilience.CircuitBreaker
}

// ResilientClient decorates a Client with bounded retry, rate limiting,
// and an optional circuit breaker. Retries happen only on transient
// failures; a model response that simply keeps requesting tools is not a
// failure and never retried here.
type ResilientClient struct {
	inner   Client
	retry   resilience.RetryConfig
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
}

// NewResilient wraps inner with the configured decorators.
func NewResilient(inner Client, opts ResilientOptions) *ResilientClient {
	retryCfg := resilience.DefaultRetryConfig()
	if opts.MaxAttempts > 0 {
		retryCfg.MaxAttempts = opts.MaxAttempts
	}
	retryCfg.OnRetry = resilience.RetryLogger("llm", "create_message")

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), 1)
	}

	return &ResilientClient{
		inner:   inner,
		retry:   retryCfg,
		limiter: limiter,
		breaker: opts.Breaker,
	}
}

func (c *ResilientClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*MessageResponse, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		if c.breaker == nil {
			return c.inner.CreateMessage(ctx, req)
		}

		var resp *MessageResponse
		err := c.breaker.Execute(ctx, func(ctx context.Context) error {
			var innerErr error
			resp, innerErr = c.inner.CreateMessage(ctx, req)
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
}

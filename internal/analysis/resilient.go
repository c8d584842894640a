package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/skillforge/skillforge/internal/domain"
)

// ResilientAnalyzer wraps an analyzer with resilience patterns from fortify
type ResilientAnalyzer struct {
	analyzer       Analyzer
	circuitBreaker circuitbreaker.CircuitBreaker[*domain.AnalysisResult]
	retrier        retry.Retry[*domain.AnalysisResult]
	bulkhead       bulkhead.Bulkhead[*domain.AnalysisResult]
	rateLimit      ratelimit.RateLimiter
	logger         *slog.Logger
	name           string
}

// ResilientConfig holds configuration for the resilient analyzer wrapper
type ResilientConfig struct {
	// EnableCircuitBreaker enables circuit breaker pattern
	EnableCircuitBreaker bool

	// EnableRetry enables retry with backoff
	EnableRetry bool

	// EnableBulkhead enables concurrency limiting
	EnableBulkhead bool

	// EnableRateLimit enables rate limiting
	EnableRateLimit bool

	// MaxConcurrent for bulkhead (default: 8)
	MaxConcurrent int

	// RatePerSecond for rate limiting (default: 5)
	RatePerSecond int

	// Logger for resilience events
	Logger *slog.Logger
}

// DefaultResilientConfig returns sensible defaults for analysis resilience
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		EnableCircuitBreaker: true,
		EnableRetry:          true,
		EnableBulkhead:       true,
		EnableRateLimit:      true,
		MaxConcurrent:        8,
		RatePerSecond:        5,
	}
}

// NewResilientAnalyzer wraps an analyzer with resilience patterns using fortify
func NewResilientAnalyzer(analyzer Analyzer, cfg ResilientConfig) *ResilientAnalyzer {
	ra := &ResilientAnalyzer{
		analyzer: analyzer,
		logger:   cfg.Logger,
		name:     analyzer.Name(),
	}

	if cfg.EnableCircuitBreaker {
		ra.circuitBreaker = circuitbreaker.New[*domain.AnalysisResult](circuitbreaker.Config{
			MaxRequests: 2,
			Interval:    10 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				if ra.logger != nil {
					ra.logger.Warn("circuit breaker state change",
						"analyzer", analyzer.Name(),
						"from", from.String(),
						"to", to.String())
				}
			},
		})
	}

	if cfg.EnableRetry {
		ra.retrier = retry.New[*domain.AnalysisResult](retry.Config{
			MaxAttempts:   3,
			InitialDelay:  1 * time.Second,
			MaxDelay:      30 * time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable: func(err error) bool {
				return isRetryableHTTPError(err)
			},
		})
	}

	if cfg.EnableBulkhead {
		maxConcurrent := cfg.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = 8
		}
		ra.bulkhead = bulkhead.New[*domain.AnalysisResult](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
			MaxQueue:      maxConcurrent * 2,
			QueueTimeout:  30 * time.Second,
		})
	}

	if cfg.EnableRateLimit {
		rate := cfg.RatePerSecond
		if rate <= 0 {
			rate = 5
		}
		ra.rateLimit = ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Burst:    rate * 3,
			Interval: time.Second,
		})
	}

	return ra
}

func (a *ResilientAnalyzer) Name() string {
	return a.analyzer.Name()
}

// Analyze runs the wrapped analyzer under the configured resilience
// policies.
func (a *ResilientAnalyzer) Analyze(ctx context.Context, req *Request) (*domain.AnalysisResult, error) {
	if a.rateLimit != nil {
		if !a.rateLimit.Allow(ctx, a.name) {
			return nil, fmt.Errorf("rate limit exceeded for analyzer %s", a.name)
		}
	}

	operation := func(ctx context.Context) (*domain.AnalysisResult, error) {
		return a.analyzer.Analyze(ctx, req)
	}

	if a.bulkhead != nil {
		operation = func(ctx context.Context) (*domain.AnalysisResult, error) {
			return a.bulkhead.Execute(ctx, func(ctx context.Context) (*domain.AnalysisResult, error) {
				return a.analyzer.Analyze(ctx, req)
			})
		}
	}

	if a.circuitBreaker != nil && a.retrier != nil {
		return a.circuitBreaker.Execute(ctx, func(ctx context.Context) (*domain.AnalysisResult, error) {
			return a.retrier.Do(ctx, operation)
		})
	}

	if a.circuitBreaker != nil {
		return a.circuitBreaker.Execute(ctx, operation)
	}

	if a.retrier != nil {
		return a.retrier.Do(ctx, operation)
	}

	return operation(ctx)
}

// Close releases resources held by the resilient analyzer
func (a *ResilientAnalyzer) Close() error {
	if a.rateLimit != nil {
		return a.rateLimit.Close()
	}
	return nil
}

// isRetryableHTTPError checks if an error is retryable based on HTTP semantics
func isRetryableHTTPError(err error) bool {
	if err == nil {
		return false
	}

	code := extractStatusCode(err)
	retryableCodes := []int{
		http.StatusTooManyRequests,     // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout,      // 504
	}

	for _, rc := range retryableCodes {
		if code == rc {
			return true
		}
	}

	return false
}

// extractStatusCode tries to extract HTTP status code from error message
func extractStatusCode(err error) int {
	if err == nil {
		return 0
	}

	errStr := err.Error()

	statusCodes := map[string]int{
		"status 429": http.StatusTooManyRequests,
		"status 500": http.StatusInternalServerError,
		"status 502": http.StatusBadGateway,
		"status 503": http.StatusServiceUnavailable,
		"status 504": http.StatusGatewayTimeout,
	}

	for pattern, code := range statusCodes {
		if strings.Contains(errStr, pattern) {
			return code
		}
	}

	return 0
}

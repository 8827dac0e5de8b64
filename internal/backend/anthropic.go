package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// DefaultModel is the model used for conversions when none is configured.
const DefaultModel = "claude-sonnet-4-5-20250929"

// RetryConfig holds retry configuration for completion calls.
type RetryConfig struct {
	MaxRetries        int           // Maximum number of retries (default: 3)
	InitialBackoff    time.Duration // Initial backoff duration (default: 1s)
	MaxBackoff        time.Duration // Maximum backoff duration (default: 30s)
	BackoffMultiplier float64       // Backoff multiplier (default: 2.0)
	Timeout           time.Duration // Per-request timeout (default: 120s)

	// Circuit breaker settings
	FailureThreshold int           // Failures before opening circuit (default: 5)
	SuccessThreshold int           // Successes in half-open before closing (default: 2)
	OpenTimeout      time.Duration // How long to keep circuit open (default: 30s)

	// Shared-client access limits. The backend client is shared by all file
	// workers, so concurrency and rate are gated here, not per worker.
	MaxConcurrentCalls int     // Maximum concurrent completion calls (default: 3, 0 = unlimited)
	RequestsPerSecond  float64 // Rate limit across all workers (0 = unlimited)
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:         3,
		InitialBackoff:     1 * time.Second,
		MaxBackoff:         30 * time.Second,
		BackoffMultiplier:  2.0,
		Timeout:            120 * time.Second,
		FailureThreshold:   5,
		SuccessThreshold:   2,
		OpenTimeout:        30 * time.Second,
		MaxConcurrentCalls: 3,
	}
}

// Config holds direct-endpoint backend configuration.
type Config struct {
	APIKey    string // if empty, reads from ANTHROPIC_API_KEY env var
	Model     string // default: DefaultModel
	Endpoint  string // optional base URL override for gateway deployments
	MaxTokens int    // completion budget per call (default: 4096)
	Retry     RetryConfig
}

// Anthropic is the direct-endpoint completion backend.
type Anthropic struct {
	client         anthropic.Client
	model          string
	maxTokens      int
	retry          RetryConfig
	circuitBreaker *CircuitBreaker
	concurrencySem *semaphore.Weighted
	limiter        *rate.Limiter
}

// NewAnthropic creates a direct-endpoint backend.
func NewAnthropic(cfg *Config) (*Anthropic, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		retry = DefaultRetryConfig()
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}

	b := &Anthropic{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		retry:     retry,
	}
	if retry.FailureThreshold > 0 {
		b.circuitBreaker = NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout)
	}
	if retry.MaxConcurrentCalls > 0 {
		b.concurrencySem = semaphore.NewWeighted(int64(retry.MaxConcurrentCalls))
	}
	if retry.RequestsPerSecond > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(retry.RequestsPerSecond), 1)
	}
	return b, nil
}

// Complete sends one completion request with retry, backoff and circuit
// breaking. The returned text is the concatenation of the response's text
// blocks.
func (b *Anthropic) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if b.concurrencySem != nil {
		if err := b.concurrencySem.Acquire(ctx, 1); err != nil {
			return "", fmt.Errorf("failed to acquire completion slot: %w", err)
		}
		defer b.concurrencySem.Release(1)
	}

	var response *anthropic.Message
	err := b.retryWithBackoff(ctx, func(attemptCtx context.Context) error {
		resp, apiErr := b.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(b.model),
			MaxTokens: int64(b.maxTokens),
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("completion call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

// retryWithBackoff executes an operation with retry and exponential backoff.
func (b *Anthropic) retryWithBackoff(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	backoff := b.retry.InitialBackoff

	for attempt := 0; attempt <= b.retry.MaxRetries; attempt++ {
		if b.circuitBreaker != nil {
			if err := b.circuitBreaker.Allow(); err != nil {
				fmt.Fprintf(os.Stderr, "completion call blocked by circuit breaker (state=%s)\n", b.circuitBreaker.State())
				return err
			}
		}

		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter wait canceled: %w", err)
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, b.retry.Timeout)
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			if b.circuitBreaker != nil {
				b.circuitBreaker.RecordSuccess()
			}
			return nil
		}

		lastErr = err

		// Non-retriable errors (auth failures, bad requests) don't count
		// against the circuit breaker.
		if !isRetriableError(err) {
			fmt.Fprintf(os.Stderr, "completion call failed with non-retriable error: %v\n", err)
			return err
		}
		if b.circuitBreaker != nil {
			b.circuitBreaker.RecordFailure()
		}

		if attempt == b.retry.MaxRetries {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("completion canceled: %w", ctx.Err())
		}

		fmt.Printf("completion call failed (attempt %d/%d), retrying in %v: %v\n",
			attempt+1, b.retry.MaxRetries+1, backoff, err)

		select {
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * b.retry.BackoffMultiplier)
			if backoff > b.retry.MaxBackoff {
				backoff = b.retry.MaxBackoff
			}
		case <-ctx.Done():
			return fmt.Errorf("completion canceled during backoff: %w", ctx.Err())
		}
	}

	return fmt.Errorf("completion failed after %d attempts: %w", b.retry.MaxRetries+1, lastErr)
}

// isRetriableError determines if an error is transient.
func isRetriableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := err.Error()

	// Rate limits (429) are retriable
	if strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit") {
		return true
	}

	// Server errors (5xx) are retriable
	if strings.Contains(errStr, "500") || strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") || strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "gateway timeout") {
		return true
	}

	// Network/connection errors are retriable
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "temporary failure") {
		return true
	}

	// 4xx client errors (except rate limits) won't succeed on retry.
	return false
}

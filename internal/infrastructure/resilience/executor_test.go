package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func TestExecuteRetriesTemporaryFailure(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{
			Retryable:     errors.Is(err, errTemp),
			RecordFailure: true,
		}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errPermanent
	}, func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteUsesOperationPolicyOverride(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    5,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		Operations: map[string]RetryPolicy{
			"ollama.": {MaxAttempts: 2, InitialBackoff: 1 * time.Millisecond},
		},
		BreakerEnabled: false,
	})

	errTemp := errors.New("temporary")
	alwaysRetry := func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}

	attempts := 0
	_ = exec.Execute(context.Background(), "ollama.generate_summary", func(context.Context) error {
		attempts++
		return errTemp
	}, alwaysRetry)
	if attempts != 2 {
		t.Fatalf("expected 2 attempts under ollama policy, got %d", attempts)
	}

	attempts = 0
	_ = exec.Execute(context.Background(), "airtable.create_record", func(context.Context) error {
		attempts++
		return errTemp
	}, alwaysRetry)
	if attempts != 5 {
		t.Fatalf("expected 5 attempts under base policy, got %d", attempts)
	}
}

func TestRetryPolicyLongestPrefixWins(t *testing.T) {
	cfg := Config{
		RetryMaxAttempts:    5,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		Operations: map[string]RetryPolicy{
			"ollama.":                {MaxAttempts: 4},
			"ollama.extract_fields":  {MaxAttempts: 2},
			"airtable.create_record": {MaxAttempts: 3},
		},
	}

	if got := cfg.retryPolicyFor("ollama.extract_fields").MaxAttempts; got != 2 {
		t.Fatalf("expected specific override to win, got %d attempts", got)
	}
	if got := cfg.retryPolicyFor("ollama.generate_summary").MaxAttempts; got != 4 {
		t.Fatalf("expected prefix override, got %d attempts", got)
	}
	if got := cfg.retryPolicyFor("nats.publish").MaxAttempts; got != 5 {
		t.Fatalf("expected base policy, got %d attempts", got)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     1 * time.Millisecond,
		RetryMaxBackoff:         1 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	errTemp := errors.New("temporary")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: true,
		}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "op", func(context.Context) error {
			return errTemp
		}, classifier)
		if !errors.Is(err, errTemp) {
			t.Fatalf("expected temporary error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, classifier)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
}

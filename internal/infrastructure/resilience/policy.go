package resilience

import (
	"strings"
	"time"
)

// RetryPolicy bounds the retry loop for one class of operations.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

type Config struct {
	// Base retry policy, used when no per-operation override matches.
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	// Operations overrides the retry policy by operation-name prefix, so
	// "ollama." covers every generation call. Longest matching prefix wins.
	// Zero fields in an override inherit from the base policy.
	Operations map[string]RetryPolicy

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// DefaultConfig carries the retry tuning for this service's three outbound
// call classes. The base policy suits quick REST/queue I/O (airtable, nats);
// generation calls get fewer, slower retries because a single ollama request
// already runs for seconds and the caller is an interactive turn.
func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     1 * time.Second,
		RetryMultiplier:     2.0,

		Operations: map[string]RetryPolicy{
			"ollama.": {
				MaxAttempts:    2,
				InitialBackoff: 500 * time.Millisecond,
				MaxBackoff:     2 * time.Second,
			},
			"airtable.": {
				InitialBackoff: 250 * time.Millisecond,
				MaxBackoff:     2 * time.Second,
			},
		},

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// retryPolicyFor resolves the effective policy for one operation name.
func (c Config) retryPolicyFor(operation string) RetryPolicy {
	policy := RetryPolicy{
		MaxAttempts:    c.RetryMaxAttempts,
		InitialBackoff: c.RetryInitialBackoff,
		MaxBackoff:     c.RetryMaxBackoff,
		Multiplier:     c.RetryMultiplier,
	}

	matched := ""
	for prefix := range c.Operations {
		if strings.HasPrefix(operation, prefix) && len(prefix) > len(matched) {
			matched = prefix
		}
	}
	if matched != "" {
		override := c.Operations[matched]
		if override.MaxAttempts > 0 {
			policy.MaxAttempts = override.MaxAttempts
		}
		if override.InitialBackoff > 0 {
			policy.InitialBackoff = override.InitialBackoff
		}
		if override.MaxBackoff > 0 {
			policy.MaxBackoff = override.MaxBackoff
		}
		if override.Multiplier >= 1.0 {
			policy.Multiplier = override.Multiplier
		}
	}
	if policy.MaxBackoff < policy.InitialBackoff {
		policy.MaxBackoff = policy.InitialBackoff
	}
	return policy
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if out.RetryMaxBackoff <= 0 {
		out.RetryMaxBackoff = def.RetryMaxBackoff
	}
	if out.RetryMaxBackoff < out.RetryInitialBackoff {
		out.RetryMaxBackoff = out.RetryInitialBackoff
	}
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}

	return out
}

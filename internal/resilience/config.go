package resilience

import (
	"time"

	"github.com/sells-group/site-feasibility/internal/config"
)

// PolicyFromConfig builds a retry policy, keeping defaults for unset values.
func PolicyFromConfig(cfg config.ResilienceConfig) RetryPolicy {
	p := DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialBackoffMs > 0 {
		p.InitialBackoff = time.Duration(cfg.InitialBackoffMs) * time.Millisecond
	}
	if cfg.MaxBackoffMs > 0 {
		p.MaxBackoff = time.Duration(cfg.MaxBackoffMs) * time.Millisecond
	}
	if cfg.Multiplier > 0 {
		p.Multiplier = cfg.Multiplier
	}
	if cfg.JitterFraction >= 0 {
		p.JitterFraction = cfg.JitterFraction
	}
	return p
}

// BreakerFromConfig builds a breaker config, keeping defaults for unset values.
func BreakerFromConfig(cfg config.ResilienceConfig) BreakerConfig {
	b := DefaultBreakerConfig()
	if cfg.FailureThreshold > 0 {
		b.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.ResetTimeoutSecs > 0 {
		b.Cooldown = time.Duration(cfg.ResetTimeoutSecs) * time.Second
	}
	return b
}

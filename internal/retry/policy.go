// Package retry holds the per-model backoff schedule used by the dispatcher.
package retry

import (
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/ppiankov/codecritic/internal/llm"
	"github.com/ppiankov/codecritic/internal/model"
)

// Policy configures attempts and backoff for one model.
// The defaults were tuned against one provider's observed rate limits,
// which is why every value is configurable.
type Policy struct {
	// MaxAttempts per model (default: 2)
	MaxAttempts int
	// BaseDelay is slept before the first attempt and scales every backoff (default: 5s)
	BaseDelay time.Duration
	// MaxBackoff caps a single backoff before jitter (default: 2m)
	MaxBackoff time.Duration
	// MaxJitter is the maximum random jitter added to a backoff (default: 0)
	MaxJitter time.Duration

	// Multipliers applied on top of the exponential schedule
	RateLimitMultiplier int // RateLimited (default: 10)
	TransientMultiplier int // ServiceUnavailable, UnexpectedStatus (default: 1)
	NetworkMultiplier   int // Timeout, NetworkError (default: 3)

	// FallbackCooldown is slept between exhausting the primary and trying the fallback (default: 30s)
	FallbackCooldown time.Duration
}

// Validate checks that the policy has usable values.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return errors.New("max attempts must be at least 1")
	}
	if p.BaseDelay < 0 {
		return errors.New("base delay cannot be negative")
	}
	if p.MaxBackoff < 0 {
		return errors.New("max backoff cannot be negative")
	}
	if p.MaxJitter < 0 {
		return errors.New("max jitter cannot be negative")
	}
	if p.FallbackCooldown < 0 {
		return errors.New("fallback cooldown cannot be negative")
	}
	if p.RateLimitMultiplier < 1 || p.TransientMultiplier < 1 || p.NetworkMultiplier < 1 {
		return errors.New("backoff multipliers must be at least 1")
	}
	return nil
}

// Defaults returns the policy the dispatcher uses when nothing is configured.
func Defaults() Policy {
	return Policy{
		MaxAttempts:         2,
		BaseDelay:           5 * time.Second,
		MaxBackoff:          2 * time.Minute,
		RateLimitMultiplier: 10,
		TransientMultiplier: 1,
		NetworkMultiplier:   3,
		FallbackCooldown:    30 * time.Second,
	}
}

// FromConfig builds a policy from the retry section of the config file.
// Zero values fall back to Defaults.
func FromConfig(cfg model.RetryConfig) Policy {
	p := Defaults()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelay > 0 {
		p.BaseDelay = cfg.BaseDelay
	}
	if cfg.MaxBackoff > 0 {
		p.MaxBackoff = cfg.MaxBackoff
	}
	if cfg.MaxJitter > 0 {
		p.MaxJitter = cfg.MaxJitter
	}
	if cfg.RateLimitMultiplier > 0 {
		p.RateLimitMultiplier = cfg.RateLimitMultiplier
	}
	if cfg.TransientMultiplier > 0 {
		p.TransientMultiplier = cfg.TransientMultiplier
	}
	if cfg.NetworkMultiplier > 0 {
		p.NetworkMultiplier = cfg.NetworkMultiplier
	}
	if cfg.FallbackCooldown > 0 {
		p.FallbackCooldown = cfg.FallbackCooldown
	}
	return p
}

// Multiplier returns the backoff factor for an outcome kind.
func (p Policy) Multiplier(kind llm.Kind) int {
	switch kind {
	case llm.KindRateLimited:
		return p.RateLimitMultiplier
	case llm.KindTimeout, llm.KindNetworkError:
		return p.NetworkMultiplier
	default:
		return p.TransientMultiplier
	}
}

// Backoff returns BaseDelay * 2^(attempt-1) * multiplier(kind), capped at MaxBackoff.
// attempt is 1-based: the attempt that just failed.
func (p Policy) Backoff(attempt int, kind llm.Kind) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := min(attempt-1, 20)
	backoff := (p.BaseDelay << shift) * time.Duration(p.Multiplier(kind))
	if p.MaxBackoff > 0 && (backoff > p.MaxBackoff || backoff < 0) {
		backoff = p.MaxBackoff
	}
	return backoff
}

// PreAttemptDelay is the mandatory sleep before attempt n of a model.
// The first attempt waits BaseDelay; later attempts wait the backoff for
// the previous attempt's outcome kind.
func (p Policy) PreAttemptDelay(attempt int, previous llm.Kind) time.Duration {
	if attempt <= 1 {
		return p.BaseDelay
	}
	return p.Backoff(attempt-1, previous) + p.Jitter()
}

// Jitter returns a random duration in [0, MaxJitter).
func (p Policy) Jitter() time.Duration {
	if p.MaxJitter <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(p.MaxJitter)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}

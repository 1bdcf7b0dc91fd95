package retry_test

import (
	"testing"
	"time"

	"github.com/ppiankov/codecritic/internal/llm"
	"github.com/ppiankov/codecritic/internal/model"
	"github.com/ppiankov/codecritic/internal/retry"
)

func testPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:         2,
		BaseDelay:           time.Second,
		MaxBackoff:          time.Minute,
		RateLimitMultiplier: 10,
		TransientMultiplier: 1,
		NetworkMultiplier:   3,
		FallbackCooldown:    6 * time.Second,
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()
	p := testPolicy()

	tests := []struct {
		name    string
		attempt int
		kind    llm.Kind
		want    time.Duration
	}{
		{"transient first", 1, llm.KindServiceUnavailable, time.Second},
		{"transient second", 2, llm.KindServiceUnavailable, 2 * time.Second},
		{"unexpected status", 1, llm.KindUnexpectedStatus, time.Second},
		{"rate limited", 1, llm.KindRateLimited, 10 * time.Second},
		{"rate limited second", 2, llm.KindRateLimited, 20 * time.Second},
		{"timeout", 1, llm.KindTimeout, 3 * time.Second},
		{"network", 2, llm.KindNetworkError, 6 * time.Second},
		{"capped", 4, llm.KindRateLimited, time.Minute},
		{"huge attempt capped", 500, llm.KindRateLimited, time.Minute},
		{"zero attempt treated as first", 0, llm.KindServiceUnavailable, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Backoff(tt.attempt, tt.kind); got != tt.want {
				t.Errorf("Backoff(%d, %s) = %v, want %v", tt.attempt, tt.kind, got, tt.want)
			}
		})
	}
}

func TestRateLimitBackoffIsOrderOfMagnitudeLonger(t *testing.T) {
	t.Parallel()
	p := testPolicy()
	if p.Backoff(1, llm.KindRateLimited) < 10*p.Backoff(1, llm.KindServiceUnavailable) {
		t.Error("rate limited backoff should be at least 10x the transient backoff")
	}
}

func TestPreAttemptDelay(t *testing.T) {
	t.Parallel()
	p := testPolicy()

	if got := p.PreAttemptDelay(1, llm.KindSuccess); got != time.Second {
		t.Errorf("first attempt should wait BaseDelay, got %v", got)
	}
	if got := p.PreAttemptDelay(2, llm.KindRateLimited); got != 10*time.Second {
		t.Errorf("second attempt after 429 should wait 10s, got %v", got)
	}
}

func TestJitter(t *testing.T) {
	t.Parallel()
	p := testPolicy()
	if p.Jitter() != 0 {
		t.Error("no jitter configured, expected 0")
	}

	p.MaxJitter = 5 * time.Millisecond
	for range 50 {
		if j := p.Jitter(); j < 0 || j >= p.MaxJitter {
			t.Fatalf("jitter %v out of range", j)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	if err := retry.Defaults().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*retry.Policy)
	}{
		{"zero attempts", func(p *retry.Policy) { p.MaxAttempts = 0 }},
		{"negative base", func(p *retry.Policy) { p.BaseDelay = -1 }},
		{"negative max backoff", func(p *retry.Policy) { p.MaxBackoff = -1 }},
		{"negative jitter", func(p *retry.Policy) { p.MaxJitter = -1 }},
		{"negative cooldown", func(p *retry.Policy) { p.FallbackCooldown = -1 }},
		{"zero multiplier", func(p *retry.Policy) { p.RateLimitMultiplier = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := retry.Defaults()
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	p := retry.FromConfig(model.RetryConfig{})
	if p != retry.Defaults() {
		t.Errorf("empty config should yield defaults, got %+v", p)
	}

	p = retry.FromConfig(model.RetryConfig{
		MaxAttempts:         3,
		BaseDelay:           time.Millisecond,
		RateLimitMultiplier: 20,
		FallbackCooldown:    time.Second,
	})
	if p.MaxAttempts != 3 || p.BaseDelay != time.Millisecond || p.RateLimitMultiplier != 20 || p.FallbackCooldown != time.Second {
		t.Errorf("config values not applied: %+v", p)
	}
	if p.NetworkMultiplier != 3 {
		t.Errorf("unset values should keep defaults, got %+v", p)
	}
}

func TestDefaultsMatchConfigDefaults(t *testing.T) {
	t.Parallel()
	if got := retry.FromConfig(model.DefaultConfig().Retry); got != retry.Defaults() {
		t.Errorf("model.DefaultConfig retry section drifted from retry.Defaults: %+v", got)
	}
}

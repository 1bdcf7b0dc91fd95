// Package dispatch serializes model calls process-wide and escalates from a
// primary model to a fallback model when the primary is exhausted.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/ppiankov/codecritic/internal/cache"
	"github.com/ppiankov/codecritic/internal/llm"
	"github.com/ppiankov/codecritic/internal/metrics"
	"github.com/ppiankov/codecritic/internal/model"
	"github.com/ppiankov/codecritic/internal/retry"
)

// ErrServiceUnavailable is returned when every model exhausted its attempts
var ErrServiceUnavailable = errors.New("LLM service unavailable, all models overloaded")

// Target is one model reachable through one gateway
type Target struct {
	Model   string
	Gateway llm.Gateway
}

func (t Target) valid() bool {
	return t.Model != "" && t.Gateway != nil
}

// Request carries the prompt and generation parameters of one dispatch
type Request struct {
	Prompt          string
	Temperature     float64
	MaxOutputTokens int
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithSleeper replaces the real sleep, mainly for tests
func WithSleeper(s Sleeper) Option {
	return func(d *Dispatcher) { d.sleep = s }
}

// WithCache answers repeated dispatches from c without touching the gate
func WithCache(c *cache.ResultCache) Option {
	return func(d *Dispatcher) { d.cache = c }
}

// WithMetrics records attempts, outcomes and gate wait
func WithMetrics(r *metrics.Recorder) Option {
	return func(d *Dispatcher) { d.metrics = r }
}

// WithAllowEmpty accepts a successful call with empty text as final
func WithAllowEmpty(allow bool) Option {
	return func(d *Dispatcher) { d.allowEmpty = allow }
}

// WithStateHook is called on every state transition
func WithStateHook(fn func(State)) Option {
	return func(d *Dispatcher) { d.onState = fn }
}

// Dispatcher runs the primary → cooldown → fallback escalation for one request
// at a time, holding the shared Gate for the whole dispatch including sleeps.
type Dispatcher struct {
	gate     *Gate
	primary  Target
	fallback Target
	policy   retry.Policy

	sleep      Sleeper
	cache      *cache.ResultCache
	metrics    *metrics.Recorder
	allowEmpty bool
	onState    func(State)
}

// New creates a dispatcher. fallback may be the zero Target to disable escalation.
func New(gate *Gate, primary, fallback Target, policy retry.Policy, opts ...Option) (*Dispatcher, error) {
	if gate == nil {
		return nil, errors.New("dispatch gate is required")
	}
	if !primary.valid() {
		return nil, errors.New("primary model and gateway are required")
	}
	if fallback != (Target{}) && !fallback.valid() {
		return nil, errors.New("fallback needs both a model and a gateway")
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("validate retry policy: %w", err)
	}

	d := &Dispatcher{
		gate:     gate,
		primary:  primary,
		fallback: fallback,
		policy:   policy,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

type dispatchOutcome struct {
	result model.DispatchResult
	err    error
}

// Dispatch produces at most one DispatchResult for the request.
//
// Waiting for the gate honors ctx. Once the gate is held the dispatch runs to
// completion on a context detached from ctx; if ctx ends first the caller gets
// ctx.Err() and the gate is released when the background dispatch finishes.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (model.DispatchResult, error) {
	log := clog.FromContext(ctx).With("primary", d.primary.Model).With("fallback", d.fallback.Model)

	key := ""
	if d.cache != nil {
		key = cache.DispatchKey(d.primary.Model, d.fallback.Model, req.Temperature, req.MaxOutputTokens, req.Prompt)
		if result, ok := d.cache.Get(key); ok {
			log.With("model_used", result.ModelUsed).Info("Dispatch served from cache")
			d.metrics.CacheHit()
			d.metrics.Dispatch("cached")
			return result, nil
		}
	}

	d.transition(StateAwaitingLock)
	waitStart := time.Now()
	if !d.gate.TryAcquire() {
		log.Info("Another dispatch holds the gate, waiting")
		if err := d.gate.Acquire(ctx); err != nil {
			d.metrics.Dispatch("canceled")
			return model.DispatchResult{}, fmt.Errorf("acquire dispatch gate: %w", err)
		}
	}
	d.metrics.GateWait(time.Since(waitStart))
	d.metrics.Enter()

	done := make(chan dispatchOutcome, 1)
	go func() {
		defer func() {
			d.metrics.Leave()
			d.gate.Release()
		}()
		result, err := d.run(context.WithoutCancel(ctx), req)
		if err == nil && key != "" {
			if cerr := d.cache.Put(key, result); cerr != nil {
				log.With("error", cerr.Error()).Warn("Failed to cache dispatch result")
			}
		}
		done <- dispatchOutcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		log.Warn("Caller stopped waiting; dispatch continues in background")
		return model.DispatchResult{}, ctx.Err()
	}
}

// run is the body executed while holding the gate
func (d *Dispatcher) run(ctx context.Context, req Request) (model.DispatchResult, error) {
	log := clog.FromContext(ctx)

	d.transition(StateAttemptingPrimary)
	result, last, ok := d.attemptModel(ctx, d.primary, req)
	if ok {
		return d.succeed(result, "primary"), nil
	}

	if d.fallback.valid() {
		d.transition(StateCoolingDownBeforeFallback)
		log.With("model", d.primary.Model).
			With("last_outcome", last.String()).
			With("cooldown", d.policy.FallbackCooldown).
			Warn("Primary model exhausted, cooling down before fallback")
		if err := d.sleep(ctx, d.policy.FallbackCooldown); err != nil {
			d.transition(StateFailed)
			return model.DispatchResult{}, fmt.Errorf("fallback cooldown: %w", err)
		}

		d.transition(StateAttemptingFallback)
		result, last, ok = d.attemptModel(ctx, d.fallback, req)
		if ok {
			return d.succeed(result, "fallback"), nil
		}
	}

	log.With("last_outcome", last.String()).Error("All models exhausted")
	return model.DispatchResult{}, d.fail(last)
}

func (d *Dispatcher) succeed(result model.DispatchResult, which string) model.DispatchResult {
	d.transition(StateSucceeded)
	d.metrics.Dispatch(which)
	return result
}

func (d *Dispatcher) fail(last llm.Outcome) error {
	d.transition(StateFailed)
	d.metrics.Dispatch("failed")
	return fmt.Errorf("%w (last outcome: %s)", ErrServiceUnavailable, last)
}

// attemptModel runs the per-model attempt loop. It returns the last outcome
// so the caller can report why the model was abandoned.
func (d *Dispatcher) attemptModel(ctx context.Context, target Target, req Request) (model.DispatchResult, llm.Outcome, bool) {
	log := clog.FromContext(ctx).With("model", target.Model).With("provider", target.Gateway.Name())

	var last llm.Outcome
	previous := llm.KindSuccess
	for attempt := 1; attempt <= d.policy.MaxAttempts; attempt++ {
		delay := d.policy.PreAttemptDelay(attempt, previous)
		if err := d.sleep(ctx, delay); err != nil {
			return model.DispatchResult{}, llm.FromTransportError(err), false
		}
		if err := d.gate.Pace(ctx); err != nil {
			return model.DispatchResult{}, llm.FromTransportError(err), false
		}

		started := time.Now()
		out := target.Gateway.Call(ctx, llm.CallRequest{
			Model:           target.Model,
			Prompt:          req.Prompt,
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxOutputTokens,
		})
		if out.OK() && !d.allowEmpty && strings.TrimSpace(out.Text) == "" {
			out = llm.Outcome{Kind: llm.KindUnexpectedStatus, StatusCode: http.StatusOK, Detail: "empty response"}
		}
		d.metrics.Attempt(target.Model, out.Kind.String())
		last = out

		attemptLog := log.With("attempt", attempt).
			With("max_attempts", d.policy.MaxAttempts).
			With("elapsed", time.Since(started).Round(time.Millisecond))

		if out.OK() {
			attemptLog.With("total_tokens", out.Usage.TotalTokens).Info("Model call succeeded")
			return model.DispatchResult{
				RawText:   out.Text,
				ModelUsed: target.Model,
				Usage:     out.Usage,
			}, out, true
		}

		if !out.Retriable() {
			attemptLog.With("outcome", out.String()).Warn("Non-retriable outcome, abandoning model")
			return model.DispatchResult{}, out, false
		}

		attemptLog.With("outcome", out.String()).Warn("Model call failed")
		previous = out.Kind
	}

	return model.DispatchResult{}, last, false
}

func (d *Dispatcher) transition(s State) {
	if d.onState != nil {
		d.onState(s)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

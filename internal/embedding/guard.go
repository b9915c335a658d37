package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// InferenceObserver is called after every guarded model call with its latency and outcome.
type InferenceObserver func(d time.Duration, err error)

type guardSettings struct {
	dimensions       int
	timeout          time.Duration
	maxConcurrent    int
	rateLimit        float64
	failureThreshold uint32
	openTimeout      time.Duration
}

// inferenceGuard wraps a Model with a per-call timeout, a concurrency bound, an optional rate
// limit, a circuit breaker and panic recovery. Every error it returns is an *Error.
type inferenceGuard struct {
	model    Model
	dims     int
	timeout  time.Duration
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[[]float32]
	metrics  *Metrics
	observer InferenceObserver
	logger   *zap.Logger
}

func newInferenceGuard(model Model, s guardSettings, metrics *Metrics, observer InferenceObserver, logger *zap.Logger) *inferenceGuard {
	g := &inferenceGuard{
		model:    model,
		dims:     s.dimensions,
		timeout:  s.timeout,
		sem:      semaphore.NewWeighted(int64(max(1, s.maxConcurrent))),
		metrics:  metrics,
		observer: observer,
		logger:   logger,
	}
	if s.rateLimit > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(s.rateLimit), max(1, s.maxConcurrent))
	}
	threshold := s.failureThreshold
	g.breaker = gobreaker.NewCircuitBreaker[[]float32](gobreaker.Settings{
		Name:        "inference",
		MaxRequests: 1,
		Timeout:     s.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Caller cancellation says nothing about model health either way.
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("inference breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			metrics.BreakerState.Set(breakerStateValue(to))
		},
	})
	return g
}

// Infer runs one guarded model call.
func (g *inferenceGuard) Infer(ctx context.Context, inputIDs, attentionMask []int64) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextError("infer", err)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, contextError("acquire", err)
	}
	// The slot passes to the model goroutine once it starts.
	held := true
	defer func() {
		if held {
			g.sem.Release(1)
		}
	}()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, contextError("rate limit", ctxErr)
			}
			// Wait fails early when the deadline cannot be met.
			return nil, newError(ErrTimeout, "rate limit", err)
		}
	}

	start := time.Now()
	vec, err := g.breaker.Execute(func() ([]float32, error) {
		held = false
		return g.call(ctx, inputIDs, attentionMask)
	})
	d := time.Since(start)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = newError(ErrInferenceFailure, "infer", err)
	}
	g.metrics.InferenceDuration.Observe(d.Seconds())
	if g.observer != nil {
		g.observer(d, err)
	}
	if err != nil {
		return nil, err
	}
	return vec, nil
}

type inferResult struct {
	vec []float32
	err error
}

// call runs the model on its own goroutine so an expired deadline returns promptly even when
// the model ignores ctx. A late result is dropped. The caller's semaphore slot is released
// only when the model returns, so abandoned calls still count against max_concurrent.
func (g *inferenceGuard) call(ctx context.Context, inputIDs, attentionMask []int64) ([]float32, error) {
	ch := make(chan inferResult, 1)
	go func() {
		defer g.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				ch <- inferResult{err: fmt.Errorf("model panic: %v", r)}
			}
		}()
		vec, err := g.model.Infer(ctx, inputIDs, attentionMask)
		ch <- inferResult{vec: vec, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, contextError("infer", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, contextError("infer", ctxErr)
			}
			return nil, newError(ErrInferenceFailure, "infer", r.err)
		}
		if len(r.vec) != g.dims {
			return nil, newError(ErrInferenceFailure, "infer",
				fmt.Errorf("model returned %d values, want %d", len(r.vec), g.dims))
		}
		return r.vec, nil
	}
}

// State returns the breaker state.
func (g *inferenceGuard) State() gobreaker.State {
	return g.breaker.State()
}

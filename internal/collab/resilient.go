package collab

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"

	"github.com/HendryAvila/specgate/internal/config"
	"github.com/HendryAvila/specgate/internal/specs"
)

// Resilient wraps Capabilities with a retry policy inside an overall
// timeout. Failures that survive the retries are returned unchanged; the
// engine classifies them.
type Resilient struct {
	inner        Capabilities
	maxAttempts  int
	initialDelay time.Duration
	timeout      time.Duration
}

// NewResilient wraps inner.
func NewResilient(inner Capabilities, maxAttempts int, callTimeout time.Duration) *Resilient {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	return &Resilient{
		inner:        inner,
		maxAttempts:  maxAttempts,
		initialDelay: 500 * time.Millisecond,
		timeout:      callTimeout,
	}
}

// Extract implements Extractor.
func (r *Resilient) Extract(ctx context.Context, raw string, pc ProjectContext) ([]specs.Proposal, error) {
	return guarded(ctx, r, func(ctx context.Context) ([]specs.Proposal, error) {
		return r.inner.Extract(ctx, raw, pc)
	})
}

// Check implements ContradictionChecker.
func (r *Resilient) Check(ctx context.Context, q ContradictionQuery) (Verdict, error) {
	return guarded(ctx, r, func(ctx context.Context) (Verdict, error) {
		return r.inner.Check(ctx, q)
	})
}

// Classify implements FacetClassifier.
func (r *Resilient) Classify(ctx context.Context, cat specs.Category, facets []config.Facet, current []specs.Specification) (map[string]float64, error) {
	return guarded(ctx, r, func(ctx context.Context) (map[string]float64, error) {
		return r.inner.Classify(ctx, cat, facets, current)
	})
}

func guarded[T any](ctx context.Context, r *Resilient, fn func(context.Context) (T, error)) (T, error) {
	rt := retry.New[T](retry.Config{
		MaxAttempts:   r.maxAttempts,
		InitialDelay:  r.initialDelay,
		BackoffPolicy: retry.BackoffExponential,
	})
	to := timeout.New[T](timeout.Config{
		DefaultTimeout: r.timeout,
	})
	return to.Execute(ctx, r.timeout, func(ctx context.Context) (T, error) {
		return rt.Do(ctx, fn)
	})
}

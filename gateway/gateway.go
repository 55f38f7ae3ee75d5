// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/poiesic/photoflow/core"
	"github.com/poiesic/photoflow/inference"
)

// Gateway executes inference calls under three simultaneous limits: a
// request rate, a cost-unit rate, and an in-flight cap. Both rate
// budgets are token buckets refilled lazily from elapsed wall-clock
// time on each admission check; there is no background refill
// goroutine. Transient failures are retried with capped exponential
// backoff, and repeated prompts are served from a bounded cache.
type Gateway struct {
	backend inference.Backend
	params  inference.Params
	cfg     Config

	requests *rate.Limiter
	cost     *rate.Limiter
	inflight *semaphore.Weighted

	cache   *lru.Cache[string, core.Analysis]
	metrics *Metrics
	logger  *slog.Logger

	// Test hooks. sleep waits out backoff delays; jitter spreads them.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the gateway's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger.With("component", "gateway")
	}
}

// WithMetrics sets the metrics tracker. Defaults to an in-memory one.
func WithMetrics(m *Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// withSleep replaces the backoff sleeper in tests.
func withSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Gateway) {
		g.sleep = sleep
	}
}

// withJitter replaces the jitter source in tests.
func withJitter(jitter func() float64) Option {
	return func(g *Gateway) {
		g.jitter = jitter
	}
}

// New creates a gateway over the given backend.
func New(backend inference.Backend, params inference.Params, cfg Config, opts ...Option) (*Gateway, error) {
	cfg.normalize()

	cache, err := newAnalysisCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		backend:  backend,
		params:   params,
		cfg:      cfg,
		requests: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1),
		cost:     rate.NewLimiter(rate.Limit(float64(cfg.CostUnitsPerMinute)/60.0), cfg.CostBurst),
		inflight: semaphore.NewWeighted(int64(cfg.MaxInflight)),
		cache:    cache,
		metrics:  NewMetrics(""),
		logger:   slog.Default().With("component", "gateway"),
		sleep:    sleepContext,
		jitter:   defaultJitter,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Metrics returns the gateway's metrics tracker.
func (g *Gateway) Metrics() *Metrics {
	return g.metrics
}

// ResetCache clears the prompt cache. Called between batches to bound
// memory.
func (g *Gateway) ResetCache() {
	g.cache.Purge()
}

// Analyze runs one inference call for the item against the schema and
// returns the extracted structured analysis.
//
// Failures carry the item taxonomy: exhausted transient retries and
// admission timeouts are fatal for the item; unparsable output after
// all retries is returned as a malformed-output failure wrapping the
// raw text. Retries of the same item are strictly sequential.
func (g *Gateway) Analyze(ctx context.Context, item *core.SourceItem, schema *core.TargetSchema) (core.Analysis, error) {
	prompt := BuildPrompt(schema, item, g.cfg.IncludeAttributes)
	key := cacheKey(schema.Version, g.cfg.IncludeAttributes, core.FingerprintBytes(item.Payload))

	if cached, ok := g.cache.Get(key); ok {
		g.metrics.RecordCacheHit()
		return cached, nil
	}

	inputUnits := estimateInputUnits(prompt)
	demand := inputUnits + g.params.MaxTokens
	if demand > g.cfg.CostBurst {
		g.logger.Warn("cost estimate exceeds bucket ceiling, clamping",
			"item", item.Name, "estimate", demand, "ceiling", g.cfg.CostBurst)
		demand = g.cfg.CostBurst
	}

	var (
		lastErr    error
		honorWait  time.Duration
		maxAttempt = g.cfg.MaxAttempts
	)

	for attempt := 1; attempt <= maxAttempt; attempt++ {
		if attempt > 1 {
			wait := g.backoff(attempt - 1)
			if honorWait > 0 {
				wait = honorWait
				honorWait = 0
			}
			if err := g.sleep(ctx, wait); err != nil {
				return nil, core.NewFailure(core.FailureTransient, err)
			}
		}

		raw, err := g.attempt(ctx, prompt, item.Payload, demand)
		if err == nil {
			g.metrics.RecordRequest(inputUnits, len(raw)/costUnitBytes)

			analysis, xerr := extractAnalysis(raw)
			if xerr == nil {
				g.cache.Add(key, analysis)
				return analysis, nil
			}

			lastErr = xerr
			g.logger.Warn("unparsable model output",
				"item", item.Name, "attempt", attempt, "err", xerr)
			continue
		}

		if errors.Is(err, ErrCapacityExceeded) {
			return nil, core.NewFailure(core.FailureFatal, err)
		}
		if ctx.Err() != nil {
			return nil, core.NewFailure(core.FailureTransient, ctx.Err())
		}

		g.metrics.RecordError()
		lastErr = err

		if be, ok := inference.AsBackendError(err); ok {
			if !be.Retryable() {
				return nil, core.NewFailure(core.FailureFatal, err)
			}
			if be.Category == inference.CategoryRateLimit && be.RetryAfter > 0 {
				honorWait = be.RetryAfter
			}
		}
		g.logger.Warn("inference attempt failed",
			"item", item.Name, "attempt", attempt, "err", err)
	}

	var malformed *MalformedOutputError
	if errors.As(lastErr, &malformed) {
		return nil, core.NewFailure(core.FailureMalformedOutput, lastErr)
	}
	return nil, core.NewFailure(core.FailureFatal,
		fmt.Errorf("%d attempts exhausted: %w", maxAttempt, lastErr))
}

// attempt admits and executes a single backend call.
func (g *Gateway) attempt(ctx context.Context, prompt string, image []byte, demand int) (string, error) {
	if err := g.admit(ctx, demand); err != nil {
		return "", err
	}
	defer g.inflight.Release(1)

	cctx, cancel := context.WithTimeout(ctx, g.cfg.AttemptTimeout)
	defer cancel()
	return g.backend.Complete(cctx, prompt, image, g.params)
}

// admit blocks until a request slot, enough cost budget, and an
// in-flight slot are all available, bounded by the admission timeout.
func (g *Gateway) admit(ctx context.Context, demand int) error {
	actx, cancel := context.WithTimeout(ctx, g.cfg.AdmissionTimeout)
	defer cancel()

	if err := g.requests.Wait(actx); err != nil {
		return g.admissionErr(ctx, err)
	}
	if err := g.cost.WaitN(actx, demand); err != nil {
		return g.admissionErr(ctx, err)
	}
	if err := g.inflight.Acquire(actx, 1); err != nil {
		return g.admissionErr(ctx, err)
	}
	return nil
}

// admissionErr distinguishes caller cancellation from budget
// starvation.
func (g *Gateway) admissionErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %v", ErrCapacityExceeded, err)
}

// backoff computes the delay before retry n (1-based): base doubling,
// jittered, capped. Jitter multiplies in [1.0, 1.5) so successive
// delays never decrease until they hit the cap.
func (g *Gateway) backoff(n int) time.Duration {
	d := g.cfg.BaseDelay << (n - 1)
	d = time.Duration(float64(d) * g.jitter())
	if d > g.cfg.MaxDelay {
		d = g.cfg.MaxDelay
	}
	return d
}

// costUnitBytes approximates how many bytes of text one cost unit
// covers.
const costUnitBytes = 4

// estimateInputUnits derives the input-side cost estimate from prompt
// size.
func estimateInputUnits(prompt string) int {
	return len(prompt)/costUnitBytes + 1
}

func defaultJitter() float64 {
	return 1.0 + rand.Float64()*0.5
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

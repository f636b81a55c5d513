// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package embed

import (
	"context"
	"sync"
	"time"

	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
	"github.com/artlens-dev/artlens/pkg/health"
	"github.com/artlens-dev/artlens/pkg/types"
)

// DefaultHealthCooldown is the duration after which an unhealthy embedder
// becomes eligible for retry.
const DefaultHealthCooldown = 30 * time.Second

// HealthTracker provides simple health state tracking for an embedding
// backend. A backend is considered healthy until RecordFailure is called.
// After a failure it is marked unhealthy for a cooldown period, after
// which it becomes available again to allow recovery.
type HealthTracker struct {
	mu           sync.RWMutex
	healthy      bool
	failedAt     time.Time
	cooldown     time.Duration
	failureCount int64
	nowFunc      func() time.Time // for testing
}

// NewHealthTracker creates a HealthTracker that starts healthy.
// Returns an error if cooldown is zero or negative.
func NewHealthTracker(cooldown time.Duration) (*HealthTracker, error) {
	if cooldown <= 0 {
		return nil, artlenserr.Errorf(artlenserr.CodeConfigValidateInvalidValue,
			"health tracker cooldown must be positive, got %s", cooldown)
	}
	return &HealthTracker{
		healthy:  true,
		cooldown: cooldown,
		nowFunc:  time.Now,
	}, nil
}

// isHealthyLocked reports whether the backend is healthy or the cooldown
// has elapsed. The caller MUST hold at least h.mu.RLock.
func (h *HealthTracker) isHealthyLocked() bool {
	if h.healthy {
		return true
	}
	// Allow retry after cooldown expires.
	return h.nowFunc().Sub(h.failedAt) >= h.cooldown
}

// IsHealthy returns true if the backend is healthy or the cooldown has elapsed.
func (h *HealthTracker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.isHealthyLocked()
}

// RecordSuccess marks the backend as healthy.
func (h *HealthTracker) RecordSuccess() {
	h.mu.Lock()
	h.healthy = true
	h.mu.Unlock()
}

// RecordFailure marks the backend as unhealthy and increments the
// cumulative failure count.
func (h *HealthTracker) RecordFailure() {
	h.mu.Lock()
	h.healthy = false
	h.failedAt = h.nowFunc()
	h.failureCount++
	h.mu.Unlock()
}

// SetNowFunc overrides the time source (for testing).
func (h *HealthTracker) SetNowFunc(fn func() time.Time) {
	h.mu.Lock()
	h.nowFunc = fn
	h.mu.Unlock()
}

// Metrics returns a point-in-time snapshot of the tracker's health state.
// The returned struct is safe to serialize and does not hold any references
// to internal tracker state.
func (h *HealthTracker) Metrics() health.Metrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m := health.Metrics{
		FailureCount: h.failureCount,
	}

	if h.failureCount > 0 {
		t := h.failedAt
		m.LastFailureAt = &t
	}

	m.Available = h.isHealthyLocked()
	if !h.healthy {
		cooldownEnd := h.failedAt.Add(h.cooldown)
		m.CooldownUntil = &cooldownEnd
	}
	return m
}

// Tracked wraps an Embedder and records call outcomes in a HealthTracker.
// Input validation errors do not count as backend failures.
type Tracked struct {
	Embedder
	tracker *HealthTracker
}

// NewTracked wraps e with health tracking using the default cooldown.
func NewTracked(e Embedder) *Tracked {
	tracker, _ := NewHealthTracker(DefaultHealthCooldown)
	return &Tracked{Embedder: e, tracker: tracker}
}

func (t *Tracked) Embed(ctx context.Context, in Input) ([]float32, error) {
	vec, err := t.Embedder.Embed(ctx, in)
	switch {
	case err == nil:
		t.tracker.RecordSuccess()
	case artlenserr.IsInvalidInput(err) || artlenserr.IsInvalidArgument(err):
		// The backend was never at fault; leave its state alone.
	default:
		t.tracker.RecordFailure()
	}
	return vec, err
}

// Health returns the wrapped embedder's health snapshot.
func (t *Tracked) Health() health.Metrics {
	return t.tracker.Metrics()
}

// healthReporter is implemented by embedders that expose health metrics.
type healthReporter interface {
	Health() health.Metrics
}

// Health collects health snapshots from all registered embedders that
// report them, keyed by modality.
func (r *Registry) Health() map[types.Modality]health.Metrics {
	out := make(map[types.Modality]health.Metrics)
	for _, m := range r.Modalities() {
		e, err := r.ForModality(m)
		if err != nil {
			continue
		}
		if hr, ok := e.(healthReporter); ok {
			out[m] = hr.Health()
		}
	}
	return out
}

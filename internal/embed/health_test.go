// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Artlens Contributors

package embed_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artlens-dev/artlens/internal/embed"
	artlenserr "github.com/artlens-dev/artlens/pkg/errors"
	"github.com/artlens-dev/artlens/pkg/types"
)

func TestHealthTrackerStartsHealthy(t *testing.T) {
	tracker, err := embed.NewHealthTracker(time.Minute)
	require.NoError(t, err)

	assert.True(t, tracker.IsHealthy())
	m := tracker.Metrics()
	assert.True(t, m.Available)
	assert.Zero(t, m.FailureCount)
	assert.Nil(t, m.LastFailureAt)
	assert.Nil(t, m.CooldownUntil)
}

func TestHealthTrackerRejectsNonPositiveCooldown(t *testing.T) {
	_, err := embed.NewHealthTracker(0)
	assert.Error(t, err)
	_, err = embed.NewHealthTracker(-time.Second)
	assert.Error(t, err)
}

func TestHealthTrackerFailureAndCooldown(t *testing.T) {
	tracker, err := embed.NewHealthTracker(30 * time.Second)
	require.NoError(t, err)

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tracker.SetNowFunc(func() time.Time { return now })

	tracker.RecordFailure()
	assert.False(t, tracker.IsHealthy())

	m := tracker.Metrics()
	assert.False(t, m.Available)
	assert.Equal(t, int64(1), m.FailureCount)
	require.NotNil(t, m.CooldownUntil)
	assert.Equal(t, now.Add(30*time.Second), *m.CooldownUntil)

	// Cooldown elapsed: eligible for retry again.
	now = now.Add(31 * time.Second)
	assert.True(t, tracker.IsHealthy())

	tracker.RecordSuccess()
	assert.True(t, tracker.Metrics().Available)
	assert.Equal(t, int64(1), tracker.Metrics().FailureCount)
}

func TestTrackedRecordsOutcomes(t *testing.T) {
	upstream := artlenserr.New(artlenserr.CodeEmbedUpstreamFailure, "api down")
	stub := &stubEmbedder{modality: types.ModalityText, err: upstream}
	tracked := embed.NewTracked(stub)

	_, err := tracked.Embed(context.Background(), embed.Input{Text: "x"})
	require.Error(t, err)
	assert.False(t, tracked.Health().Available)
	assert.Equal(t, int64(1), tracked.Health().FailureCount)

	stub.err = nil
	_, err = tracked.Embed(context.Background(), embed.Input{Text: "x"})
	require.NoError(t, err)
	assert.True(t, tracked.Health().Available)
}

func TestTrackedIgnoresInputErrors(t *testing.T) {
	stub := &stubEmbedder{
		modality: types.ModalityText,
		err:      artlenserr.New(artlenserr.CodeEmbedInputInvalid, "empty text"),
	}
	tracked := embed.NewTracked(stub)

	_, err := tracked.Embed(context.Background(), embed.Input{})
	require.Error(t, err)

	// Caller mistakes do not mark the backend unhealthy.
	m := tracked.Health()
	assert.True(t, m.Available)
	assert.Zero(t, m.FailureCount)
}

func TestRegistryHealthCollectsTrackedEmbedders(t *testing.T) {
	reg := embed.NewRegistry()
	require.NoError(t, reg.Register(embed.NewTracked(&stubEmbedder{modality: types.ModalityText})))
	require.NoError(t, reg.Register(&stubEmbedder{modality: types.ModalityImage})) // untracked

	healthByModality := reg.Health()
	require.Len(t, healthByModality, 1)
	assert.True(t, healthByModality[types.ModalityText].Available)
}

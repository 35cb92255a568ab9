package link

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clusterFrames builds a tight cluster of three mutually-within-range
// particles (a single subnet at range 1.0) plus one far, unambiguous pair.
func clusterFrames() (prev, cur []Particle) {
	prev = []Particle{
		{ID: 1, Pos: Point{0, 0}},
		{ID: 2, Pos: Point{0.4, 0}},
		{ID: 3, Pos: Point{0.8, 0}},
		{ID: 9, Pos: Point{50, 50}},
	}
	cur = []Particle{
		{ID: 11, Pos: Point{0, 0}},
		{ID: 12, Pos: Point{0.4, 0}},
		{ID: 13, Pos: Point{0.8, 0}},
		{ID: 19, Pos: Point{50.05, 50}},
	}
	return prev, cur
}

func TestOversizeWithoutAdaptive(t *testing.T) {
	prev, cur := clusterFrames()
	cfg := DefaultConfig(1.0)
	cfg.MaxSubnetSize = 2

	res, err := LinkFramePair(context.Background(), prev, cur, cfg)
	require.Error(t, err)
	assert.Nil(t, res, "oversize must fail the whole frame pair, no partial result")

	var oversize *OversizeError
	require.True(t, errors.As(err, &oversize))
	assert.Equal(t, 3, oversize.Size)
	assert.Equal(t, 2, oversize.Limit)
	assert.ElementsMatch(t, []int64{1, 2, 3}, oversize.SourceIDs)
	assert.ElementsMatch(t, []int64{11, 12, 13}, oversize.DestIDs)
	assert.InDelta(t, 1.0, oversize.EffectiveRange, 1e-9)
}

func TestAdaptiveRecovery(t *testing.T) {
	prev, cur := clusterFrames()

	// Reference run: no adaptivity, limit high enough to solve directly.
	ref, err := LinkFramePair(context.Background(), prev, cur, DefaultConfig(1.0))
	require.NoError(t, err)

	cfg := DefaultConfig(1.0)
	cfg.MaxSubnetSize = 2
	cfg.Adaptive = true
	cfg.AdaptiveStep = 0.5

	res, err := LinkFramePair(context.Background(), prev, cur, cfg)
	require.NoError(t, err, "adaptive shrinking should split the cluster instead of failing")

	// The cluster sits on identical coordinates, so shrinking only removes
	// wrong matches: the identity assignment survives.
	for i := 0; i < 3; i++ {
		require.True(t, res.Links[i].Linked)
		assert.Equal(t, prev[i].ID+10, res.Links[i].CurID)
		assert.InDelta(t, 0, res.Links[i].Cost, 1e-9)
	}

	// Subnets elsewhere in the frame are untouched by local shrinking.
	assert.Equal(t, ref.Links[3], res.Links[3])
	assert.Empty(t, res.Appeared)
}

func TestAdaptiveFloorStopsShrinking(t *testing.T) {
	prev, cur := clusterFrames()
	cfg := DefaultConfig(1.0)
	cfg.MaxSubnetSize = 2
	cfg.Adaptive = true
	cfg.AdaptiveStep = 0.5
	cfg.AdaptiveStop = 0.9 // first shrink would already cross the floor

	_, err := LinkFramePair(context.Background(), prev, cur, cfg)
	var oversize *OversizeError
	require.True(t, errors.As(err, &oversize))
	assert.Equal(t, 3, oversize.Size)
}

func TestAdaptiveRetryBudgetExhausted(t *testing.T) {
	prev, cur := clusterFrames()
	cfg := DefaultConfig(1.0)
	cfg.MaxSubnetSize = 2
	cfg.Adaptive = true
	cfg.AdaptiveStep = 0.99 // shrinks far too slowly for the budget
	cfg.MaxAdaptiveRetries = 3

	_, err := LinkFramePair(context.Background(), prev, cur, cfg)
	var oversize *OversizeError
	require.True(t, errors.As(err, &oversize))
}

func TestAdaptiveRecoversFromSolverBudget(t *testing.T) {
	// Eight particles along a line, all mutually within range 2.0. The
	// tiny node budget cancels the dense solve; shrinking isolates the
	// pairs and the link succeeds.
	var prev, cur []Particle
	for i := 0; i < 8; i++ {
		x := float64(i) * 0.2
		prev = append(prev, Particle{ID: int64(i), Pos: Point{x, 0}})
		cur = append(cur, Particle{ID: int64(100 + i), Pos: Point{x, 0}})
	}
	cfg := DefaultConfig(2.0)
	cfg.MaxSolverNodes = 50
	cfg.Adaptive = true
	cfg.AdaptiveStep = 0.5

	res, err := LinkFramePair(context.Background(), prev, cur, cfg)
	require.NoError(t, err)
	for i, link := range res.Links {
		require.True(t, link.Linked, "particle %d should link after recovery", i)
		assert.Equal(t, int64(100+i), link.CurID)
	}
}

func TestSolverBudgetWithoutAdaptiveSurfacesCancelled(t *testing.T) {
	var prev, cur []Particle
	for i := 0; i < 8; i++ {
		x := float64(i) * 0.2
		prev = append(prev, Particle{ID: int64(i), Pos: Point{x, 0}})
		cur = append(cur, Particle{ID: int64(100 + i), Pos: Point{x, 0}})
	}
	cfg := DefaultConfig(2.0)
	cfg.MaxSolverNodes = 50

	_, err := LinkFramePair(context.Background(), prev, cur, cfg)
	var cancelled *CancelledError
	require.True(t, errors.As(err, &cancelled), "expected CancelledError, got %v", err)
	assert.Nil(t, cancelled.Cause)
}

func TestContextCancellationIsNotRetried(t *testing.T) {
	var prev, cur []Particle
	for i := 0; i < 10; i++ {
		x := float64(i) * 0.2
		prev = append(prev, Particle{ID: int64(i), Pos: Point{x, 0}})
		cur = append(cur, Particle{ID: int64(100 + i), Pos: Point{x, 0}})
	}
	cfg := DefaultConfig(3.0)
	cfg.Adaptive = true
	cfg.AdaptiveStep = 0.5

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LinkFramePair(ctx, prev, cur, cfg)
	var cancelled *CancelledError
	require.True(t, errors.As(err, &cancelled), "expected CancelledError, got %v", err)
	assert.ErrorIs(t, err, context.Canceled)
}

package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"lessonapp/internal/models"
	contextutils "lessonapp/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T, size int) *GenerationTracker {
	t.Helper()
	tracker, err := NewGenerationTracker(size)
	require.NoError(t, err)
	return tracker
}

func TestGenerationTracker_BeginComplete(t *testing.T) {
	tracker := newTestTracker(t, 4)

	ctx, ticket, err := tracker.Begin(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ticket.Sequence)
	assert.True(t, tracker.Busy("s1"))

	result := &models.GenerationResult{Document: models.DefaultLessonPlanDocument(), Sequence: ticket.Sequence}
	assert.True(t, tracker.Complete(ticket, result))
	assert.False(t, tracker.Busy("s1"))
	assert.Error(t, ctx.Err(), "the generation context is released on completion")

	latest, ok := tracker.Latest("s1")
	require.True(t, ok)
	assert.Same(t, result, latest)
}

func TestGenerationTracker_OneGenerationPerSession(t *testing.T) {
	tracker := newTestTracker(t, 4)

	_, first, err := tracker.Begin(context.Background(), "s1")
	require.NoError(t, err)

	_, _, err = tracker.Begin(context.Background(), "s1")
	assert.True(t, errors.Is(err, contextutils.ErrGenerationInProgress))

	_, other, err := tracker.Begin(context.Background(), "s2")
	require.NoError(t, err, "other sessions are independent")
	tracker.Fail(other)

	tracker.Fail(first)
	_, second, err := tracker.Begin(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Sequence)
}

func TestGenerationTracker_ConcurrentBeginAdmitsOne(t *testing.T) {
	tracker := newTestTracker(t, 4)
	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := tracker.Begin(context.Background(), "s1"); err == nil {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), admitted.Load())
}

func TestGenerationTracker_CancelDiscardsLateResult(t *testing.T) {
	tracker := newTestTracker(t, 4)

	_, done, err := tracker.Begin(context.Background(), "s1")
	require.NoError(t, err)
	previous := &models.GenerationResult{Sequence: done.Sequence}
	require.True(t, tracker.Complete(done, previous))

	ctx, ticket, err := tracker.Begin(context.Background(), "s1")
	require.NoError(t, err)

	assert.True(t, tracker.Cancel("s1"))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.False(t, tracker.Busy("s1"))

	assert.False(t, tracker.Complete(ticket, &models.GenerationResult{Sequence: ticket.Sequence}))
	latest, ok := tracker.Latest("s1")
	require.True(t, ok)
	assert.Same(t, previous, latest, "a cancelled generation never replaces the previous document")
}

func TestGenerationTracker_CancelIdle(t *testing.T) {
	tracker := newTestTracker(t, 4)
	assert.False(t, tracker.Cancel("unknown"))

	_, ticket, err := tracker.Begin(context.Background(), "s1")
	require.NoError(t, err)
	tracker.Fail(ticket)
	assert.False(t, tracker.Cancel("s1"))
}

func TestGenerationTracker_StaleFailDoesNotReleaseNewerGeneration(t *testing.T) {
	tracker := newTestTracker(t, 4)

	_, stale, err := tracker.Begin(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, tracker.Cancel("s1"))

	_, _, err = tracker.Begin(context.Background(), "s1")
	require.NoError(t, err)

	tracker.Fail(stale)
	assert.True(t, tracker.Busy("s1"))
}

func TestGenerationTracker_EvictsLeastRecentlyUsed(t *testing.T) {
	tracker := newTestTracker(t, 2)
	for _, id := range []string{"a", "b", "c"} {
		_, ticket, err := tracker.Begin(context.Background(), id)
		require.NoError(t, err)
		tracker.Complete(ticket, &models.GenerationResult{})
	}

	assert.Equal(t, 2, tracker.Len())
	_, ok := tracker.Latest("a")
	assert.False(t, ok)
	_, ok = tracker.Latest("c")
	assert.True(t, ok)
}

func TestNewGenerationTracker_InvalidSize(t *testing.T) {
	_, err := NewGenerationTracker(0)
	assert.True(t, errors.Is(err, contextutils.ErrConfiguration))
}

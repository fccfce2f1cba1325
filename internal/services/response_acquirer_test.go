package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"lessonapp/internal/observability"
	contextutils "lessonapp/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var testCandidates = []string{"model-a", "model-b", "model-c"}

func testPrompt() *PromptBundle {
	return &PromptBundle{SystemInstruction: "system", UserPrompt: "user", Schema: "{}"}
}

func newTestAcquirer(gen Generator, timeout time.Duration) *ResponseAcquirer {
	return NewResponseAcquirer(gen, testCandidates, timeout, nil, observability.NewNopLogger())
}

func rateLimited() error {
	return contextutils.WrapError(contextutils.ErrAIRequestFailed, "provider returned 429")
}

func TestAcquire_FirstCandidateAnswers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	gen := &scriptedGenerator{steps: []generatorStep{{text: `{"title":"X"}`}}}

	result, err := newTestAcquirer(gen, time.Second).Acquire(context.Background(), testPrompt())

	require.NoError(t, err)
	assert.Equal(t, `{"title":"X"}`, result.Raw)
	assert.Equal(t, "model-a", result.Model)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, []string{"model-a"}, gen.Calls())
}

func TestAcquire_FallsBackInOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	gen := &scriptedGenerator{steps: []generatorStep{
		{err: rateLimited()},
		{err: rateLimited()},
		{text: "third"},
	}}

	result, err := newTestAcquirer(gen, time.Second).Acquire(context.Background(), testPrompt())

	require.NoError(t, err)
	assert.Equal(t, "third", result.Raw)
	assert.Equal(t, "model-c", result.Model)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, testCandidates, gen.Calls(), "each candidate is tried exactly once, in order")
}

func TestAcquire_AllCandidatesFail(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	gen := &scriptedGenerator{steps: []generatorStep{
		{err: rateLimited()},
		{err: rateLimited()},
		{err: rateLimited()},
	}}

	result, err := newTestAcquirer(gen, time.Second).Acquire(context.Background(), testPrompt())

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, contextutils.ErrGenerationUnavailable))
	assert.True(t, errors.Is(err, contextutils.ErrAIRequestFailed), "last cause stays in the chain")
	assert.Equal(t, contextutils.ErrorCodeGenerationUnavailable, contextutils.GetErrorCode(err))
	assert.True(t, contextutils.IsRetryable(err))
	assert.Len(t, gen.Calls(), len(testCandidates))
}

func TestAcquire_EmptyPayloadAdvances(t *testing.T) {
	gen := &scriptedGenerator{steps: []generatorStep{
		{text: "   \n"},
		{text: "ok"},
	}}

	result, err := newTestAcquirer(gen, time.Second).Acquire(context.Background(), testPrompt())

	require.NoError(t, err)
	assert.Equal(t, "model-b", result.Model)
	assert.Equal(t, 2, result.Attempts)
}

func TestAcquire_AttemptTimeoutFallsThrough(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	gen := &scriptedGenerator{steps: []generatorStep{
		{block: true},
		{text: "second"},
	}}

	result, err := newTestAcquirer(gen, 20*time.Millisecond).Acquire(context.Background(), testPrompt())

	require.NoError(t, err)
	assert.Equal(t, "second", result.Raw)
	assert.Equal(t, []string{"model-a", "model-b"}, gen.Calls())
}

func TestAcquire_TimeoutOnEveryCandidate(t *testing.T) {
	gen := &scriptedGenerator{steps: []generatorStep{{block: true}, {block: true}, {block: true}}}

	_, err := newTestAcquirer(gen, 10*time.Millisecond).Acquire(context.Background(), testPrompt())

	require.Error(t, err)
	assert.True(t, errors.Is(err, contextutils.ErrGenerationUnavailable))
	assert.True(t, errors.Is(err, contextutils.ErrTimeout))
	assert.Len(t, gen.Calls(), 3)
}

func TestAcquire_CancelStopsChain(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := &scriptedGenerator{steps: []generatorStep{
		{block: true, hook: func(context.Context) { cancel() }},
		{text: "never"},
	}}

	result, err := newTestAcquirer(gen, time.Second).Acquire(ctx, testPrompt())

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.Is(err, contextutils.ErrGenerationCancelled))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, []string{"model-a"}, gen.Calls(), "no further candidate is tried after cancellation")
}

func TestAcquire_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &scriptedGenerator{}

	_, err := newTestAcquirer(gen, time.Second).Acquire(ctx, testPrompt())

	assert.True(t, errors.Is(err, contextutils.ErrGenerationCancelled))
	assert.Empty(t, gen.Calls())
}

func TestAcquire_NoCandidates(t *testing.T) {
	gen := &scriptedGenerator{}
	a := NewResponseAcquirer(gen, nil, time.Second, nil, observability.NewNopLogger())

	_, err := a.Acquire(context.Background(), testPrompt())

	assert.True(t, errors.Is(err, contextutils.ErrConfiguration))
	assert.Empty(t, gen.Calls())
}

func TestAcquire_CandidatesIsACopy(t *testing.T) {
	a := newTestAcquirer(&scriptedGenerator{}, time.Second)
	got := a.Candidates()
	got[0] = "mutated"
	assert.Equal(t, testCandidates, a.Candidates())
}

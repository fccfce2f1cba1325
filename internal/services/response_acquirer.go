package services

import (
	"context"
	"strings"
	"time"

	"lessonapp/internal/observability"
	contextutils "lessonapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// Attempt outcomes recorded in metrics and logs
const (
	attemptSucceeded = "succeeded"
	attemptFailed    = "failed"
	attemptCancelled = "cancelled"
)

// AcquireResult is the raw text returned by the first candidate that answered
type AcquireResult struct {
	Raw      string
	Model    string
	Attempts int
}

// ResponseAcquirer tries each candidate model once, in order, until one returns a non-empty payload.
// It holds no mutable state and is safe for concurrent use.
type ResponseAcquirer struct {
	generator      Generator
	candidates     []string
	attemptTimeout time.Duration
	metrics        *observability.GenerationMetrics
	logger         *observability.Logger
}

// NewResponseAcquirer creates an acquirer over an ordered candidate list
func NewResponseAcquirer(generator Generator, candidates []string, attemptTimeout time.Duration, metrics *observability.GenerationMetrics, logger *observability.Logger) *ResponseAcquirer {
	return &ResponseAcquirer{
		generator:      generator,
		candidates:     append([]string(nil), candidates...),
		attemptTimeout: attemptTimeout,
		metrics:        metrics,
		logger:         logger,
	}
}

// Candidates returns a copy of the candidate model list
func (a *ResponseAcquirer) Candidates() []string {
	return append([]string(nil), a.candidates...)
}

// Acquire runs the fallback chain. Cancelling ctx stops the chain with GenerationCancelled;
// exhausting every candidate returns GenerationUnavailable wrapping the last cause.
func (a *ResponseAcquirer) Acquire(ctx context.Context, prompt *PromptBundle) (result *AcquireResult, err error) {
	ctx, span := observability.TraceLessonFunction(ctx, "acquire",
		attribute.Int("ai.candidates", len(a.candidates)),
	)
	defer observability.FinishSpan(span, &err)

	if len(a.candidates) == 0 {
		return nil, contextutils.WrapError(contextutils.ErrConfiguration, "no candidate models configured")
	}
	if prompt == nil {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "prompt is required")
	}

	var lastErr error
	for i, model := range a.candidates {
		attempt := i + 1
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, a.cancelled(ctx, i, ctxErr)
		}

		text, genErr := a.attempt(ctx, model, attempt, prompt)
		if genErr == nil {
			a.metrics.RecordAttempt(ctx, model, attemptSucceeded)
			span.SetAttributes(observability.AttributeModel(model), observability.AttributeAttempt(attempt))
			a.logger.Info(ctx, "Candidate model answered", map[string]interface{}{
				"model":    model,
				"attempt":  attempt,
				"length":   len(text),
				"fallback": attempt > 1,
			})
			return &AcquireResult{Raw: text, Model: model, Attempts: attempt}, nil
		}

		// The parent context ending means the user or the server gave up, not the model.
		if ctxErr := ctx.Err(); ctxErr != nil {
			a.metrics.RecordAttempt(ctx, model, attemptCancelled)
			return nil, a.cancelled(ctx, attempt, ctxErr)
		}

		lastErr = genErr
		a.metrics.RecordAttempt(ctx, model, attemptFailed)
		a.logger.Warn(ctx, "Candidate model failed, trying next", map[string]interface{}{
			"model":      model,
			"attempt":    attempt,
			"error":      genErr.Error(),
			"error_code": string(contextutils.GetErrorCode(genErr)),
			"remaining":  len(a.candidates) - attempt,
		})
	}

	return nil, contextutils.WrapErrorCause(contextutils.ErrGenerationUnavailable, lastErr,
		"all %d candidate models failed", len(a.candidates))
}

// attempt makes one call bounded by the per-attempt timeout
func (a *ResponseAcquirer) attempt(ctx context.Context, model string, attempt int, prompt *PromptBundle) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, a.attemptTimeout)
	defer cancel()

	attemptCtx, span := observability.TraceAIFunction(attemptCtx, "attempt",
		observability.AttributeModel(model),
		observability.AttributeAttempt(attempt),
	)
	var err error
	defer observability.FinishSpan(span, &err)

	text, err := a.generator.Generate(attemptCtx, model, prompt)
	if err != nil {
		if attemptCtx.Err() != nil && ctx.Err() == nil {
			err = contextutils.WrapErrorCause(contextutils.ErrTimeout, err, "attempt timed out after %v", a.attemptTimeout)
		}
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		err = contextutils.WrapError(contextutils.ErrAIResponseInvalid, "empty payload")
		return "", err
	}
	return text, nil
}

func (a *ResponseAcquirer) cancelled(ctx context.Context, attempts int, cause error) error {
	a.logger.Info(ctx, "Generation cancelled", map[string]interface{}{
		"attempts": attempts,
		"reason":   cause.Error(),
	})
	return contextutils.WrapErrorCause(contextutils.ErrGenerationCancelled, cause, "generation cancelled after %d attempts", attempts)
}

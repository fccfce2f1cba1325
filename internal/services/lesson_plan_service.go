// Package services implements the lesson plan pipeline: request validation, prompt building,
// response acquisition with model fallback, response normalization and per-session tracking.
package services

import (
	"context"
	"time"

	"lessonapp/internal/config"
	"lessonapp/internal/models"
	"lessonapp/internal/observability"
	contextutils "lessonapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// Generation outcomes recorded in metrics
const (
	outcomeSucceeded   = "succeeded"
	outcomeUnavailable = "unavailable"
	outcomeCancelled   = "cancelled"
)

// LessonPlanServiceInterface is the pipeline as seen by the HTTP handlers and the CLI
type LessonPlanServiceInterface interface {
	ConfigurationError() error
	Curriculum() config.CurriculumConfig
	Candidates() []string
	PreviewPrompt(req *models.LessonPlanRequest) (*PromptBundle, error)
	Generate(ctx context.Context, sessionID string, req *models.LessonPlanRequest) (*models.GenerationResult, error)
	Cancel(sessionID string) bool
	Busy(sessionID string) bool
	Current(sessionID string) (*models.GenerationResult, bool)
}

// LessonPlanService wires the pipeline stages together
type LessonPlanService struct {
	cfg        *config.Config
	validator  *RequestValidator
	prompts    *PromptBuilder
	acquirer   *ResponseAcquirer
	normalizer *ResponseNormalizer
	tracker    *GenerationTracker
	metrics    *observability.GenerationMetrics
	logger     *observability.Logger
	configErr  error
}

var _ LessonPlanServiceInterface = (*LessonPlanService)(nil)

// NewLessonPlanServiceFromConfig builds the generator for the configured provider. A bad
// credential does not fail construction: it is kept and returned by every Generate call.
func NewLessonPlanServiceFromConfig(ctx context.Context, cfg *config.Config, metrics *observability.GenerationMetrics, logger *observability.Logger) (*LessonPlanService, error) {
	generator, configErr := NewGenerator(ctx, cfg, logger)
	if configErr != nil {
		logger.Error(ctx, "AI provider is not configured; generation disabled", configErr, map[string]interface{}{
			"provider": cfg.AI.Provider,
		})
	}
	tracker, err := NewGenerationTracker(cfg.Server.MaxSessions)
	if err != nil {
		return nil, err
	}
	return NewLessonPlanService(cfg, generator, configErr, tracker, metrics, logger)
}

// NewLessonPlanService creates the service around an existing generator
func NewLessonPlanService(cfg *config.Config, generator Generator, configErr error, tracker *GenerationTracker, metrics *observability.GenerationMetrics, logger *observability.Logger) (*LessonPlanService, error) {
	prompts, err := NewPromptBuilder(cfg.Curriculum)
	if err != nil {
		return nil, err
	}
	normalizer, err := NewResponseNormalizer(logger)
	if err != nil {
		return nil, err
	}
	if generator == nil && configErr == nil {
		configErr = contextutils.WrapError(contextutils.ErrConfiguration, "no AI generator configured")
	}
	return &LessonPlanService{
		cfg:        cfg,
		validator:  NewRequestValidator(cfg.Curriculum),
		prompts:    prompts,
		acquirer:   NewResponseAcquirer(generator, cfg.CandidateModels(), cfg.AI.AttemptTimeout, metrics, logger),
		normalizer: normalizer,
		tracker:    tracker,
		metrics:    metrics,
		logger:     logger,
		configErr:  configErr,
	}, nil
}

// ConfigurationError returns the credential or provider problem that disables generation, if any
func (s *LessonPlanService) ConfigurationError() error {
	return s.configErr
}

// Curriculum returns the taxonomy behind the form
func (s *LessonPlanService) Curriculum() config.CurriculumConfig {
	return s.cfg.Curriculum
}

// Candidates returns the ordered model list
func (s *LessonPlanService) Candidates() []string {
	return s.acquirer.Candidates()
}

// PreviewPrompt validates req and renders the prompt without calling any model
func (s *LessonPlanService) PreviewPrompt(req *models.LessonPlanRequest) (*PromptBundle, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	return s.prompts.Build(req)
}

// Generate runs one full cycle for the session: validate, build the prompt, acquire, normalize,
// then publish the result to the session slot. A cycle cancelled or superseded while in flight
// returns GenerationCancelled and never replaces the session's latest document.
func (s *LessonPlanService) Generate(ctx context.Context, sessionID string, req *models.LessonPlanRequest) (result *models.GenerationResult, err error) {
	ctx = contextutils.WithSessionID(ctx, sessionID)
	ctx, span := observability.TraceLessonFunction(ctx, "generate")
	defer observability.FinishSpan(span, &err)

	if s.configErr != nil {
		return nil, s.configErr
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("lesson.topic", req.Topic),
		observability.AttributeGrade(req.GradeLevel),
		observability.AttributeSubject(req.Subject),
	)

	prompt, err := s.prompts.Build(req)
	if err != nil {
		return nil, err
	}

	genCtx, ticket, err := s.tracker.Begin(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(observability.AttributeSequence(ticket.Sequence))

	started := time.Now()
	acquired, err := s.acquirer.Acquire(genCtx, prompt)
	if err != nil {
		s.tracker.Fail(ticket)
		outcome := outcomeUnavailable
		if contextutils.GetErrorCode(err) == contextutils.ErrorCodeGenerationCancelled {
			outcome = outcomeCancelled
		}
		s.metrics.RecordGeneration(ctx, outcome, false, time.Since(started))
		fields := map[string]interface{}{
			"sequence": ticket.Sequence,
			"topic":    req.Topic,
		}
		if contextutils.GetErrorSeverity(err) == contextutils.SeverityInfo {
			fields["reason"] = err.Error()
			s.logger.Info(ctx, "Lesson plan generation stopped", fields)
		} else {
			s.logger.Error(ctx, "Lesson plan generation failed", err, fields)
		}
		return nil, err
	}

	doc, report := s.normalizer.Normalize(ctx, acquired.Raw)
	result = &models.GenerationResult{
		Document:    doc,
		Report:      report,
		Degraded:    report.Degraded(),
		Model:       acquired.Model,
		Attempts:    acquired.Attempts,
		Sequence:    ticket.Sequence,
		GeneratedAt: time.Now().UTC(),
	}

	if !s.tracker.Complete(ticket, result) {
		s.metrics.RecordGeneration(ctx, outcomeCancelled, result.Degraded, time.Since(started))
		s.logger.Info(ctx, "Discarding superseded lesson plan", map[string]interface{}{
			"sequence": ticket.Sequence,
		})
		return nil, contextutils.WrapError(contextutils.ErrGenerationCancelled, "generation was cancelled or superseded")
	}

	s.metrics.RecordGeneration(ctx, outcomeSucceeded, result.Degraded, time.Since(started))
	s.logger.Info(ctx, "Lesson plan generated", map[string]interface{}{
		"sequence": ticket.Sequence,
		"model":    result.Model,
		"attempts": result.Attempts,
		"degraded": result.Degraded,
		"stage":    string(report.Stage),
	})
	return result, nil
}

// Cancel stops the session's in-flight generation
func (s *LessonPlanService) Cancel(sessionID string) bool {
	return s.tracker.Cancel(sessionID)
}

// Busy reports whether the session has a generation in flight
func (s *LessonPlanService) Busy(sessionID string) bool {
	return s.tracker.Busy(sessionID)
}

// Current returns the session's latest document
func (s *LessonPlanService) Current(sessionID string) (*models.GenerationResult, bool) {
	return s.tracker.Latest(sessionID)
}

package handlers

import (
	"context"
	"net/http"

	"lessonapp/internal/config"
	"lessonapp/internal/models"
	"lessonapp/internal/observability"
	"lessonapp/internal/services"
	contextutils "lessonapp/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// LessonPlanHandler serves the JSON API
type LessonPlanHandler struct {
	service services.LessonPlanServiceInterface
	cfg     *config.Config
	logger  *observability.Logger
}

// NewLessonPlanHandler creates a new LessonPlanHandler
func NewLessonPlanHandler(service services.LessonPlanServiceInterface, cfg *config.Config, logger *observability.Logger) *LessonPlanHandler {
	return &LessonPlanHandler{service: service, cfg: cfg, logger: logger}
}

// GenerateLessonPlan handles POST /v1/lesson-plans
func (h *LessonPlanHandler) GenerateLessonPlan(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "generate_lesson_plan")
	defer observability.FinishSpan(span, nil)

	var req models.LessonPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "invalid request body: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, config.GenerationTimeout)
	defer cancel()

	result, err := h.service.Generate(ctx, GetSessionID(c), &req)
	if err != nil {
		span.SetAttributes(attribute.String("error.code", string(contextutils.GetErrorCode(err))))
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CancelLessonPlan handles POST /v1/lesson-plans/cancel
func (h *LessonPlanHandler) CancelLessonPlan(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "cancel_lesson_plan")
	defer observability.FinishSpan(span, nil)

	cancelled := h.service.Cancel(GetSessionID(c))
	span.SetAttributes(attribute.Bool("cancelled", cancelled))
	if cancelled {
		h.logger.Info(ctx, "Lesson plan generation cancelled by user")
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

// GetCurrentLessonPlan handles GET /v1/lesson-plans/current
func (h *LessonPlanHandler) GetCurrentLessonPlan(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_current_lesson_plan")
	defer observability.FinishSpan(span, nil)

	sessionID := GetSessionID(c)
	result, ok := h.service.Current(sessionID)
	if !ok {
		HandleAppError(c, contextutils.WrapError(contextutils.ErrRecordNotFound, "no lesson plan has been generated in this session"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"result": result,
		"busy":   h.service.Busy(sessionID),
	})
}

// GetCurriculum handles GET /v1/curriculum
func (h *LessonPlanHandler) GetCurriculum(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_curriculum")
	defer observability.FinishSpan(span, nil)

	response := gin.H{
		"curriculum": h.service.Curriculum(),
		"models":     h.service.Candidates(),
		"configured": h.service.ConfigurationError() == nil,
	}
	if err := h.service.ConfigurationError(); err != nil {
		response["configurationError"] = contextutils.GetErrorLocalizedMessage(err, c.GetHeader("Accept-Language"))
	}
	c.JSON(http.StatusOK, response)
}

// PreviewPrompt handles POST /v1/prompt/preview. Only routed in debug mode.
func (h *LessonPlanHandler) PreviewPrompt(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "preview_prompt")
	defer observability.FinishSpan(span, nil)

	var req models.LessonPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleAppError(c, contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "invalid request body: %v", err))
		return
	}
	bundle, err := h.service.PreviewPrompt(&req)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"systemInstruction": bundle.SystemInstruction,
		"prompt":            bundle.UserPrompt,
		"schema":            bundle.Schema,
	})
}

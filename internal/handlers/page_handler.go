package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"lessonapp/internal/config"
	"lessonapp/internal/models"
	"lessonapp/internal/observability"
	"lessonapp/internal/services"
	contextutils "lessonapp/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// Form actions posted by the submit buttons
const (
	actionGenerate      = "generate"
	actionAdd           = "add"
	actionRemovePrefix  = "remove:"
	defaultPageTitle    = "مولد خطط الدروس"
	newContentElementID = "newContentElement"
)

// PageHandler serves the server-rendered form and document pages
type PageHandler struct {
	service   services.LessonPlanServiceInterface
	renderer  *Renderer
	exporters map[string]services.Exporter
	cfg       *config.Config
	logger    *observability.Logger
}

// NewPageHandler creates a new PageHandler. exporters are keyed by file extension.
func NewPageHandler(service services.LessonPlanServiceInterface, renderer *Renderer, exporters []services.Exporter, cfg *config.Config, logger *observability.Logger) *PageHandler {
	byExt := make(map[string]services.Exporter, len(exporters))
	for _, e := range exporters {
		byExt[e.FileExtension()] = e
	}
	return &PageHandler{service: service, renderer: renderer, exporters: byExt, cfg: cfg, logger: logger}
}

// ShowForm handles GET /
func (h *PageHandler) ShowForm(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "show_form")
	defer observability.FinishSpan(span, nil)

	h.render(c, http.StatusOK, FormPage, h.basePageData(c, models.LessonPlanRequest{}))
}

// SubmitForm handles POST /plans. The add and remove actions edit the content element list
// and redisplay the form; the generate action runs a full generation.
func (h *PageHandler) SubmitForm(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "submit_form")
	defer observability.FinishSpan(span, nil)

	var req models.LessonPlanRequest
	if err := c.ShouldBind(&req); err != nil {
		data := h.basePageData(c, req)
		h.setError(&data, contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "invalid form: %v", err), c)
		h.render(c, http.StatusBadRequest, FormPage, data)
		return
	}

	action := c.PostForm("action")
	if action == "" {
		action = actionGenerate
	}
	span.SetAttributes(attribute.String("form.action", action))

	switch {
	case action == actionAdd:
		req.AddContentElement(c.PostForm(newContentElementID))
		h.render(c, http.StatusOK, FormPage, h.basePageData(c, req))
		return
	case strings.HasPrefix(action, actionRemovePrefix):
		if i, err := strconv.Atoi(strings.TrimPrefix(action, actionRemovePrefix)); err == nil {
			req.RemoveContentElement(i)
		}
		h.render(c, http.StatusOK, FormPage, h.basePageData(c, req))
		return
	}

	// A pending element typed without pressing add still counts.
	req.AddContentElement(c.PostForm(newContentElementID))

	ctx, cancel := context.WithTimeout(ctx, config.GenerationTimeout)
	defer cancel()

	result, err := h.service.Generate(ctx, GetSessionID(c), &req)
	if err != nil {
		data := h.basePageData(c, req)
		h.setError(&data, err, c)
		h.render(c, HTTPStatusForError(err), FormPage, data)
		return
	}

	data := h.basePageData(c, req)
	data.PageTitle = orNotSpecified(result.Document.Title)
	data.Result = result
	h.render(c, http.StatusOK, ResultPage, data)
}

// ShowCurrent handles GET /plans/current
func (h *PageHandler) ShowCurrent(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "show_current")
	defer observability.FinishSpan(span, nil)

	result, ok := h.service.Current(GetSessionID(c))
	if !ok {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	data := h.basePageData(c, models.LessonPlanRequest{})
	data.PageTitle = orNotSpecified(result.Document.Title)
	data.Result = result
	h.render(c, http.StatusOK, ResultPage, data)
}

// CancelGeneration handles POST /plans/cancel
func (h *PageHandler) CancelGeneration(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "cancel_generation")
	defer observability.FinishSpan(span, nil)

	span.SetAttributes(attribute.Bool("cancelled", h.service.Cancel(GetSessionID(c))))
	c.Redirect(http.StatusSeeOther, "/")
}

// PrintCurrent handles GET /plans/current/print
func (h *PageHandler) PrintCurrent(c *gin.Context) {
	h.export(c, "html", false)
}

// ExportCurrentJSON handles GET /plans/current/export.json
func (h *PageHandler) ExportCurrentJSON(c *gin.Context) {
	h.export(c, "json", true)
}

func (h *PageHandler) export(c *gin.Context, ext string, attachment bool) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "export_current",
		attribute.String("export.format", ext),
	)
	defer observability.FinishSpan(span, nil)

	exporter, ok := h.exporters[ext]
	if !ok {
		HandleAppError(c, contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "no %s exporter", ext))
		return
	}
	result, ok := h.service.Current(GetSessionID(c))
	if !ok {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	var buf bytes.Buffer
	if err := exporter.Export(ctx, result, &buf); err != nil {
		h.logger.Error(ctx, "Failed to export lesson plan", err, map[string]interface{}{"format": ext})
		HandleAppError(c, err)
		return
	}
	if attachment {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="lesson-plan-%d.%s"`, result.Sequence, exporter.FileExtension()))
	}
	c.Data(http.StatusOK, exporter.ContentType(), buf.Bytes())
}

func (h *PageHandler) basePageData(c *gin.Context, req models.LessonPlanRequest) PageData {
	sessionID := GetSessionID(c)
	_, hasCurrent := h.service.Current(sessionID)
	data := PageData{
		PageTitle:      defaultPageTitle,
		Curriculum:     h.service.Curriculum(),
		Request:        req,
		Busy:           h.service.Busy(sessionID),
		HasCurrent:     hasCurrent,
		DegradedNotice: contextutils.GetLocalizedMessage(contextutils.ErrorCodeMalformedResponse, contextutils.LocaleArabic),
	}
	if err := h.service.ConfigurationError(); err != nil {
		data.ConfigError = contextutils.GetLocalizedMessage(contextutils.ErrorCodeConfiguration, contextutils.LocaleArabic)
	}
	return data
}

// setError fills the banner. The configuration banner is already shown by basePageData.
func (h *PageHandler) setError(data *PageData, err error, c *gin.Context) {
	_ = c.Error(err)
	code := contextutils.GetErrorCode(err)
	if code == contextutils.ErrorCodeConfiguration {
		return
	}
	data.Error = contextutils.GetLocalizedMessage(code, contextutils.LocaleArabic)
	data.ErrorCode = string(code)
	data.Retryable = contextutils.IsRetryable(err)
}

func (h *PageHandler) render(c *gin.Context, status int, page string, data PageData) {
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, page, data); err != nil {
		h.logger.Error(c.Request.Context(), "Failed to render page", err, map[string]interface{}{"page": page})
		HandleAppError(c, err)
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

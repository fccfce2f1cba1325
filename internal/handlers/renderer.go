package handlers

import (
	"context"
	"embed"
	"html/template"
	"io"
	"strings"

	"lessonapp/internal/config"
	"lessonapp/internal/models"
	"lessonapp/internal/services"
	contextutils "lessonapp/internal/utils"
)

//go:embed templates/*.html
var pageTemplatesFS embed.FS

// Page template names
const (
	FormPage   = "form.html"
	ResultPage = "result.html"
	PrintPage  = "print.html"
)

// NotSpecified replaces empty values in rendered documents
const NotSpecified = "غير محدد"

// PageData is the view model shared by every page
type PageData struct {
	PageTitle  string
	Curriculum config.CurriculumConfig
	Request    models.LessonPlanRequest
	Result     *models.GenerationResult

	Error       string
	ErrorCode   string
	Retryable   bool
	ConfigError string
	Busy        bool
	HasCurrent  bool

	DegradedNotice string
}

// SubmitDisabled reports whether the form must not be submitted
func (d PageData) SubmitDisabled() bool {
	return d.ConfigError != "" || d.Busy
}

// Renderer executes the embedded page templates
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded page templates
func NewRenderer() (*Renderer, error) {
	templates, err := template.New("").Funcs(template.FuncMap{
		"orNotSpecified":    orNotSpecified,
		"notSpecified":      func() string { return NotSpecified },
		"questionTypeLabel": questionTypeLabel,
		"contains":          containsString,
	}).ParseFS(pageTemplatesFS, "templates/*.html")
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to parse page templates: %v", err)
	}
	return &Renderer{templates: templates}, nil
}

// Render writes the named page
func (r *Renderer) Render(w io.Writer, name string, data PageData) error {
	if err := r.templates.ExecuteTemplate(w, name, data); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to render %s: %v", name, err)
	}
	return nil
}

// PrintExporter renders the print view, which opens the browser's print dialog on load
type PrintExporter struct {
	renderer *Renderer
}

var _ services.Exporter = (*PrintExporter)(nil)

// NewPrintExporter creates the print exporter
func NewPrintExporter(renderer *Renderer) *PrintExporter {
	return &PrintExporter{renderer: renderer}
}

// ContentType implements services.Exporter
func (e *PrintExporter) ContentType() string { return "text/html; charset=utf-8" }

// FileExtension implements services.Exporter
func (e *PrintExporter) FileExtension() string { return "html" }

// Export implements services.Exporter
func (e *PrintExporter) Export(_ context.Context, result *models.GenerationResult, w io.Writer) error {
	if result == nil {
		return contextutils.WrapError(contextutils.ErrRecordNotFound, "no lesson plan to print")
	}
	return e.renderer.Render(w, PrintPage, PageData{
		PageTitle: orNotSpecified(result.Document.Title),
		Result:    result,
	})
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotSpecified
	}
	return s
}

func questionTypeLabel(kind string) string {
	switch kind {
	case models.QuestionMultipleChoice:
		return "اختيار من متعدد"
	case models.QuestionTrueFalse:
		return "صواب أو خطأ"
	case models.QuestionComplete:
		return "أكمل"
	default:
		return NotSpecified
	}
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

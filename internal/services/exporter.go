package services

import (
	"context"
	"encoding/json"
	"io"

	"lessonapp/internal/models"
	contextutils "lessonapp/internal/utils"
)

// Exporter writes a finished lesson plan in one output format
type Exporter interface {
	ContentType() string
	FileExtension() string
	Export(ctx context.Context, result *models.GenerationResult, w io.Writer) error
}

// JSONExporter writes the normalized document as indented JSON
type JSONExporter struct{}

// ContentType implements Exporter
func (JSONExporter) ContentType() string { return "application/json; charset=utf-8" }

// FileExtension implements Exporter
func (JSONExporter) FileExtension() string { return "json" }

// Export implements Exporter
func (JSONExporter) Export(_ context.Context, result *models.GenerationResult, w io.Writer) error {
	if result == nil {
		return contextutils.WrapError(contextutils.ErrRecordNotFound, "no lesson plan to export")
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result.Document); err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to encode lesson plan: %v", err)
	}
	return nil
}

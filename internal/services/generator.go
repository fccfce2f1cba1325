package services

import (
	"context"
	"net/http"

	"lessonapp/internal/config"
	"lessonapp/internal/observability"
	contextutils "lessonapp/internal/utils"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// Generator performs one blocking completion call against one model and returns the raw text.
// Implementations must honour ctx cancellation and deadlines.
type Generator interface {
	Generate(ctx context.Context, model string, prompt *PromptBundle) (string, error)
}

// NewGenerator returns the Generator for cfg.AI.Provider. It fails with a ConfigurationError
// when the credential is missing or malformed.
func NewGenerator(ctx context.Context, cfg *config.Config, logger *observability.Logger) (Generator, error) {
	if err := cfg.ValidateCredential(); err != nil {
		return nil, err
	}
	switch cfg.AI.Provider {
	case config.ProviderGemini:
		return NewGeminiGenerator(ctx, cfg, logger)
	case config.ProviderOpenAI:
		return NewOpenAIGenerator(cfg, logger)
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrConfiguration, "unsupported AI provider %q", cfg.AI.Provider)
	}
}

// newInstrumentedHTTPClient creates the traced client shared by both providers.
// Per-attempt deadlines come from the context, so the client itself has no timeout.
func newInstrumentedHTTPClient() *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
		),
	}
}

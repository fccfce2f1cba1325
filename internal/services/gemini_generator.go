package services

import (
	"context"
	"errors"
	"strings"

	"lessonapp/internal/config"
	"lessonapp/internal/observability"
	contextutils "lessonapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

// GeminiGenerator calls the Gemini API through the genai client
type GeminiGenerator struct {
	client         *genai.Client
	responseSchema *genai.Schema
	cfg            *config.Config
	logger         *observability.Logger
}

// NewGeminiGenerator creates a genai client for the Gemini API backend
func NewGeminiGenerator(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*GeminiGenerator, error) {
	schema, err := LessonPlanResponseSchema()
	if err != nil {
		return nil, err
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.AI.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: newInstrumentedHTTPClient(),
	}
	if baseURL := cfg.EndpointURL(); baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL + "/"}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrConfiguration, "failed to create Gemini client: %v", err)
	}
	return &GeminiGenerator{client: client, responseSchema: schema, cfg: cfg, logger: logger}, nil
}

// Generate sends one GenerateContent call and returns the concatenated text parts
func (g *GeminiGenerator) Generate(ctx context.Context, model string, prompt *PromptBundle) (result string, err error) {
	ctx, span := observability.TraceAIFunction(ctx, "gemini_generate",
		attribute.String("ai.provider", config.ProviderGemini),
		observability.AttributeModel(model),
		attribute.Int("prompt.length", len(prompt.UserPrompt)),
	)
	defer observability.FinishSpan(span, &err)

	temperature := float32(g.cfg.AI.Temperature)
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: prompt.SystemInstruction}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema:    g.responseSchema,
		Temperature:       &temperature,
	}
	if maxTokens := g.cfg.MaxTokensForModel(model); maxTokens > 0 {
		genCfg.MaxOutputTokens = int32(maxTokens)
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt.UserPrompt), genCfg)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			span.SetAttributes(attribute.String("call.result", "context_done"))
			return "", contextutils.WrapErrorCause(contextutils.ErrTimeout, ctxErr, "gemini call for %s", model)
		}
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			span.SetAttributes(attribute.String("call.result", "api_error"), attribute.Int("status_code", apiErr.Code))
			return "", contextutils.WrapErrorf(contextutils.ErrAIRequestFailed, "gemini API error %d (%s): %s", apiErr.Code, apiErr.Status, apiErr.Message)
		}
		span.SetAttributes(attribute.String("call.result", "http_request_failed"))
		return "", contextutils.WrapErrorf(contextutils.ErrAIRequestFailed, "gemini request failed: %v", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		span.SetAttributes(attribute.String("call.result", "prompt_blocked"))
		return "", contextutils.WrapErrorf(contextutils.ErrAIContentBlocked, "prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		span.SetAttributes(attribute.String("call.result", "no_candidates"))
		return "", contextutils.WrapError(contextutils.ErrAIResponseInvalid, "no candidates in Gemini response")
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		span.SetAttributes(attribute.String("call.result", "safety_block"))
		return "", contextutils.WrapError(contextutils.ErrAIContentBlocked, "response blocked by safety filter")
	}

	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && !part.Thought {
				text.WriteString(part.Text)
			}
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		span.SetAttributes(attribute.String("call.result", "empty_content"))
		return "", contextutils.WrapError(contextutils.ErrAIResponseInvalid, "Gemini returned empty content")
	}

	if candidate.FinishReason == genai.FinishReasonMaxTokens {
		g.logger.Warn(ctx, "Gemini response hit the output token limit", map[string]interface{}{
			"model": model,
		})
	}
	span.SetAttributes(attribute.String("call.result", "success"), attribute.Int("content_length", text.Len()))
	return text.String(), nil
}

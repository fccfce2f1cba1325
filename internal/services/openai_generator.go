package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"lessonapp/internal/config"
	"lessonapp/internal/observability"
	"lessonapp/internal/version"
	contextutils "lessonapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// OpenAIRequest represents a request to the OpenAI-compatible API
type OpenAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Grammar     string    `json:"grammar,omitempty"`
}

// Message represents a chat message in the API request
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIResponse represents a response from the OpenAI-compatible API
type OpenAIResponse struct {
	Choices []Choice  `json:"choices"`
	Error   *APIError `json:"error,omitempty"`
}

// Choice represents a choice in the API response
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// APIError represents an error response from the API
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// OpenAIGenerator calls an OpenAI-compatible /chat/completions endpoint
type OpenAIGenerator struct {
	httpClient      *http.Client
	apiURL          string
	apiKey          string
	supportsGrammar bool
	cfg             *config.Config
	logger          *observability.Logger
}

// NewOpenAIGenerator creates a generator for the configured OpenAI-compatible endpoint
func NewOpenAIGenerator(cfg *config.Config, logger *observability.Logger) (*OpenAIGenerator, error) {
	apiURL := cfg.EndpointURL()
	if apiURL == "" {
		return nil, contextutils.WrapErrorf(contextutils.ErrConfiguration, "no base URL configured for provider '%s'", cfg.AI.Provider)
	}
	provider, _ := cfg.ActiveProvider()
	return &OpenAIGenerator{
		httpClient:      newInstrumentedHTTPClient(),
		apiURL:          apiURL,
		apiKey:          cfg.AI.APIKey,
		supportsGrammar: provider.SupportsGrammar,
		cfg:             cfg,
		logger:          logger,
	}, nil
}

// Generate posts one chat completion request and returns the first choice's content
func (g *OpenAIGenerator) Generate(ctx context.Context, model string, prompt *PromptBundle) (result string, err error) {
	ctx, span := observability.TraceAIFunction(ctx, "call_openai",
		attribute.String("ai.provider", config.ProviderOpenAI),
		observability.AttributeModel(model),
		attribute.Int("prompt.length", len(prompt.UserPrompt)),
		attribute.Bool("grammar.enabled", g.supportsGrammar),
	)
	defer observability.FinishSpan(span, &err)

	if model == "" {
		span.SetAttributes(attribute.String("call.result", "empty_model"))
		return "", contextutils.WrapError(contextutils.ErrAIConfigInvalid, "model is required")
	}

	endpoint := g.apiURL + "/chat/completions"
	reqBody := OpenAIRequest{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: prompt.SystemInstruction},
			{Role: "user", Content: prompt.UserPrompt},
		},
		Temperature: g.cfg.AI.Temperature,
		MaxTokens:   g.cfg.MaxTokensForModel(model),
	}
	// Only include grammar field if the provider supports it
	if g.supportsGrammar && prompt.Schema != "" {
		reqBody.Grammar = prompt.Schema
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		span.SetAttributes(attribute.String("call.result", "marshal_failed"))
		return "", contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to marshal request body: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		span.SetAttributes(attribute.String("call.result", "request_creation_failed"))
		return "", contextutils.WrapErrorf(contextutils.ErrAIConfigInvalid, "failed to create HTTP request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "lessonapp/"+version.Version)
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	startTime := time.Now()
	resp, err := g.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		span.SetAttributes(attribute.String("call.result", "http_request_failed"), attribute.String("duration", duration.String()))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", contextutils.WrapErrorCause(contextutils.ErrTimeout, ctxErr, "request to %s stopped after %v", endpoint, duration)
		}
		return "", contextutils.WrapErrorf(contextutils.ErrAIRequestFailed, "HTTP request failed after %v: %v", duration, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			g.logger.Warn(ctx, "Failed to close response body", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	g.logger.Debug(ctx, "AI HTTP request completed", map[string]interface{}{
		"model":       model,
		"duration":    duration.String(),
		"status_code": resp.StatusCode,
	})

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.SetAttributes(attribute.String("call.result", "body_read_failed"))
		return "", contextutils.WrapErrorf(contextutils.ErrAIRequestFailed, "failed to read response body: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetAttributes(attribute.String("call.result", "http_error"), attribute.Int("status_code", resp.StatusCode))
		return "", contextutils.WrapErrorf(contextutils.ErrAIRequestFailed, "API request failed with status %d to %s: %s", resp.StatusCode, endpoint, truncateForLog(string(body)))
	}

	var openAIResp OpenAIResponse
	if err := json.Unmarshal(body, &openAIResp); err != nil {
		span.SetAttributes(attribute.String("call.result", "json_unmarshal_failed"))
		return "", contextutils.WrapErrorf(contextutils.ErrAIResponseInvalid, "failed to parse AI response envelope: %v", err)
	}
	if openAIResp.Error != nil {
		span.SetAttributes(attribute.String("call.result", "api_error"), attribute.String("error_type", openAIResp.Error.Type))
		return "", contextutils.WrapErrorf(contextutils.ErrAIRequestFailed, "OpenAI API error: %s", openAIResp.Error.Message)
	}
	if len(openAIResp.Choices) == 0 {
		span.SetAttributes(attribute.String("call.result", "no_choices"))
		return "", contextutils.WrapError(contextutils.ErrAIResponseInvalid, "no response from OpenAI")
	}

	choice := openAIResp.Choices[0]
	if choice.FinishReason == "content_filter" {
		span.SetAttributes(attribute.String("call.result", "content_filter"))
		return "", contextutils.WrapError(contextutils.ErrAIContentBlocked, "response blocked by content filter")
	}
	if choice.Message.Content == "" {
		span.SetAttributes(attribute.String("call.result", "empty_content"))
		return "", contextutils.WrapError(contextutils.ErrAIResponseInvalid, "AI returned empty content")
	}

	span.SetAttributes(attribute.String("call.result", "success"), attribute.Int("content_length", len(choice.Message.Content)), attribute.String("duration", duration.String()))
	return choice.Message.Content, nil
}

func truncateForLog(s string) string {
	const limit = 512
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

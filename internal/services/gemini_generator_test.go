package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lessonapp/internal/observability"
	contextutils "lessonapp/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGeminiTestGenerator(t *testing.T, handler http.HandlerFunc) *GeminiGenerator {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := newTestConfig("gemini-test")
	cfg.AI.BaseURL = server.URL

	gen, err := NewGeminiGenerator(context.Background(), cfg, observability.NewNopLogger())
	require.NoError(t, err)
	return gen
}

func geminiReply(text, finishReason string) string {
	payload := map[string]interface{}{
		"candidates": []interface{}{
			map[string]interface{}{
				"content": map[string]interface{}{
					"parts": []interface{}{map[string]interface{}{"text": text}},
					"role":  "model",
				},
				"finishReason": finishReason,
			},
		},
	}
	data, _ := json.Marshal(payload)
	return string(data)
}

func TestGeminiGenerator_Success(t *testing.T) {
	var path, body string
	gen := newGeminiTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(geminiReply(`{"title":"X"}`, "STOP")))
	})

	text, err := gen.Generate(context.Background(), "gemini-test", &PromptBundle{
		SystemInstruction: "system instruction",
		UserPrompt:        "user prompt",
	})

	require.NoError(t, err)
	assert.Equal(t, `{"title":"X"}`, text)
	assert.True(t, strings.HasSuffix(path, "models/gemini-test:generateContent"), path)
	assert.Contains(t, body, "system instruction")
	assert.Contains(t, body, "user prompt")
	assert.Contains(t, body, "application/json")
}

func TestGeminiGenerator_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    *contextutils.AppError
	}{
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
			},
			want: contextutils.ErrAIRequestFailed,
		},
		{
			name: "safety block",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(geminiReply("", "SAFETY")))
			},
			want: contextutils.ErrAIContentBlocked,
		},
		{
			name: "prompt blocked",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
			},
			want: contextutils.ErrAIContentBlocked,
		},
		{
			name: "empty text",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(geminiReply("  ", "STOP")))
			},
			want: contextutils.ErrAIResponseInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newGeminiTestGenerator(t, tt.handler)
			_, err := gen.Generate(context.Background(), "gemini-test", testPrompt())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestNewGenerator_RejectsBadCredential(t *testing.T) {
	for _, key := range []string{"", "short", " test-api-key-0123456789abcdef"} {
		cfg := newTestConfig()
		cfg.AI.APIKey = key
		_, err := NewGenerator(context.Background(), cfg, observability.NewNopLogger())
		assert.True(t, errors.Is(err, contextutils.ErrConfiguration), "key %q", key)
	}
}

func TestNewGenerator_SelectsProvider(t *testing.T) {
	cfg := newTestConfig()
	gen, err := NewGenerator(context.Background(), cfg, observability.NewNopLogger())
	require.NoError(t, err)
	assert.IsType(t, &GeminiGenerator{}, gen)

	cfg.AI.Provider = "openai"
	gen, err = NewGenerator(context.Background(), cfg, observability.NewNopLogger())
	require.NoError(t, err)
	assert.IsType(t, &OpenAIGenerator{}, gen)

	cfg.AI.Provider = "unknown"
	_, err = NewGenerator(context.Background(), cfg, observability.NewNopLogger())
	assert.True(t, errors.Is(err, contextutils.ErrConfiguration))
}

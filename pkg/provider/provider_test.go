package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dansasser/mcg-agent/pkg/transform"
)

// chatStub mimics the chat-completions endpoint and captures requests.
func chatStub(t *testing.T, reply string, status int) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var requests []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		requests = append(requests, body)

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "test-model",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": reply},
				},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestOpenAI_Generate(t *testing.T) {
	server, requests := chatStub(t, "  a generated draft  ", http.StatusOK)
	p := NewOpenAI(OpenAIConfig{BaseURL: server.URL, APIKey: "test-key", Model: "test-model"})

	out, info, err := p.Generate(context.Background(), "write a draft", Params{})
	require.NoError(t, err)
	assert.Equal(t, "a generated draft", out)
	assert.Equal(t, "openai", info.Provider)
	assert.Equal(t, "test-model", info.Model)
	assert.Equal(t, OpGenerate, info.Operation)

	require.Len(t, *requests, 1)
	body := (*requests)[0]
	assert.Equal(t, "test-model", body["model"])
	assert.InDelta(t, 0.3, body["temperature"], 0.001)
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	first := messages[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
}

func TestOpenAI_ReviseAndSummarizeOps(t *testing.T) {
	server, _ := chatStub(t, "rewritten", http.StatusOK)
	p := NewOpenAI(OpenAIConfig{BaseURL: server.URL, APIKey: "test-key", Model: "test-model"})

	_, info, err := p.Revise(context.Background(), "text", nil)
	require.NoError(t, err)
	assert.Equal(t, OpRevise, info.Operation)

	_, info, err = p.Summarize(context.Background(), "text", nil)
	require.NoError(t, err)
	assert.Equal(t, OpSummarize, info.Operation)
}

func TestOpenAI_HTTPErrorSurfacesAsProviderError(t *testing.T) {
	server, _ := chatStub(t, "", http.StatusBadGateway)
	p := NewOpenAI(OpenAIConfig{BaseURL: server.URL, APIKey: "test-key", Model: "test-model"})

	_, _, err := p.Generate(context.Background(), "prompt", Params{})
	var provErr *Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, OpGenerate, provErr.Operation)
}

func TestTransformer_PunctuationOnly(t *testing.T) {
	p := NewTransformer(TransformerPunctuationOnly, transform.DefaultPunctuationPolicy())

	out, info, err := p.Revise(context.Background(), "So exciting!!!", nil)
	require.NoError(t, err)
	assert.Equal(t, "So exciting!", out)
	assert.Equal(t, "transformer", info.Provider)
	assert.Contains(t, info.Rules, transform.RuleCollapseRepeatedTerminators)
}

func TestTransformer_Noop(t *testing.T) {
	p := NewTransformer(TransformerNoop, transform.DefaultPunctuationPolicy())

	out, info, err := p.Summarize(context.Background(), "Unchanged!!!", nil)
	require.NoError(t, err)
	assert.Equal(t, "Unchanged!!!", out)
	assert.Equal(t, string(TransformerNoop), info.Mode)
	assert.Empty(t, info.Rules)
}

func TestTransformer_HTTPModeInert(t *testing.T) {
	p := NewTransformer(TransformerHTTP, transform.DefaultPunctuationPolicy())

	out, info, err := p.Revise(context.Background(), "As is!!!", nil)
	require.NoError(t, err)
	assert.Equal(t, "As is!!!", out)
	assert.NotEmpty(t, info.Note)
}

func TestTransformer_GenerateUnsupported(t *testing.T) {
	p := NewTransformer(TransformerPunctuationOnly, transform.DefaultPunctuationPolicy())

	_, _, err := p.Generate(context.Background(), "prompt", Params{})
	var provErr *Error
	require.ErrorAs(t, err, &provErr)
}

func TestTransformerMode_IsValid(t *testing.T) {
	assert.True(t, TransformerMode("").IsValid())
	assert.True(t, TransformerPunctuationOnly.IsValid())
	assert.True(t, TransformerNoop.IsValid())
	assert.True(t, TransformerHTTP.IsValid())
	assert.False(t, TransformerMode("magic").IsValid())
}

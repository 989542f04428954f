package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/dansasser/mcg-agent/pkg/models"
)

// Fixed system prompts per operation.
const (
	generateSystemPrompt  = "You are a helpful assistant. Keep responses concise and clear."
	reviseSystemPrompt    = "Revise the text for clarity and correctness. Do not change meaning."
	summarizeSystemPrompt = "Summarize the text faithfully and concisely. Preserve key points."
)

const defaultTemperature = 0.3

// OpenAIConfig holds chat-completions endpoint settings.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenAI calls a chat-completions HTTP endpoint. Non-2xx responses and
// schema mismatches surface as *Error.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI builds the chat-completions provider.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts = append(opts, option.WithRequestTimeout(timeout))

	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}
}

func (p *OpenAI) chat(ctx context.Context, op, system, user string, temperature float64) (string, error) {
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", &Error{Operation: op, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Operation: op, Err: errors.New("response contained no choices")}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (p *OpenAI) info(op string) Info {
	return Info{Provider: "openai", Model: p.model, Operation: op}
}

// Generate produces open-ended text from a prompt.
func (p *OpenAI) Generate(ctx context.Context, prompt string, params Params) (string, Info, error) {
	out, err := p.chat(ctx, OpGenerate, generateSystemPrompt, prompt, params.Temperature)
	if err != nil {
		return "", Info{}, err
	}
	return out, p.info(OpGenerate), nil
}

// Revise rewrites text for clarity without semantic change.
func (p *OpenAI) Revise(ctx context.Context, text string, _ *models.Metadata) (string, Info, error) {
	out, err := p.chat(ctx, OpRevise, reviseSystemPrompt, text, 0)
	if err != nil {
		return "", Info{}, err
	}
	return out, p.info(OpRevise), nil
}

// Summarize compresses text faithfully.
func (p *OpenAI) Summarize(ctx context.Context, text string, _ *models.Metadata) (string, Info, error) {
	out, err := p.chat(ctx, OpSummarize, summarizeSystemPrompt, text, 0)
	if err != nil {
		return "", Info{}, err
	}
	return out, p.info(OpSummarize), nil
}

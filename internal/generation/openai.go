package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/ecotech/contentforge/pkg/circuitbreaker"
	"github.com/ecotech/contentforge/pkg/logger"
)

// OpenAIEngine is an Engine backed by an OpenAI-compatible chat endpoint.
// Calls go through a circuit breaker so a flapping upstream fails fast
// instead of stalling every pipeline run behind timeouts.
type OpenAIEngine struct {
	client  *openai.Client
	model   string
	breaker *circuitbreaker.Breaker
	log     *logger.Logger
}

// NewOpenAIEngine builds an engine for the given model. baseURL may point
// at any OpenAI-compatible server; empty means the official endpoint.
func NewOpenAIEngine(apiKey, baseURL, model string, log *logger.Logger) *OpenAIEngine {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEngine{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		breaker: circuitbreaker.New(5, 2, 30*time.Second),
		log:     log,
	}
}

func (e *OpenAIEngine) Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error) {
	req := buildChatRequest(e.model, prompt, opts)

	var content string
	err := e.breaker.Execute(func() error {
		resp, err := e.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty completion response from model %s", e.model)
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	return content, nil
}

// buildChatRequest assembles the chat-completion request. Temperature is a
// pointer field on the request; zero means "leave unset" so the server
// default applies.
func buildChatRequest(model, prompt string, opts CompleteOptions) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if opts.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		temp := opts.Temperature
		req.Temperature = &temp
	}
	return req
}

// Analyze asks the model for a JSON rubric evaluation and parses it. The
// breaker wraps the call the same way Complete does.
func (e *OpenAIEngine) Analyze(ctx context.Context, content string, dimensions []string) (AnalysisResult, error) {
	if len(dimensions) == 0 {
		dimensions = DefaultDimensions()
	}

	prompt := fmt.Sprintf(
		"Evaluate the following content along these dimensions: %s.\n"+
			"Respond with only a JSON object of the form "+
			`{"dimensions": {"<name>": <score 0-1>}, "summary": "<one sentence>", "confidence": <0-1>}.`+
			"\n\nContent:\n%s",
		strings.Join(dimensions, ", "), content)

	raw, err := e.Complete(ctx, prompt, CompleteOptions{
		SystemPrompt: "You are a precise content evaluator. Output valid JSON only.",
		Temperature:  0.1,
	})
	if err != nil {
		return AnalysisResult{}, err
	}

	var result AnalysisResult
	if err := json.Unmarshal([]byte(extractJSON(raw)), &result); err != nil {
		return AnalysisResult{}, fmt.Errorf("parse analysis response: %w", err)
	}
	for _, dim := range dimensions {
		if _, ok := result.Dimensions[dim]; !ok {
			return AnalysisResult{}, fmt.Errorf("analysis response missing dimension %q", dim)
		}
	}
	return result, nil
}

// extractJSON strips markdown fences some models wrap around JSON output.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			return raw[start : end+1]
		}
	}
	return raw
}

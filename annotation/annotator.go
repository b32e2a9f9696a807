// Package annotation asks a language model for entity annotations and
// turns its loosely formatted answers into per-category mention lists.
package annotation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brunobiangulo/bioextract/llm"
)

// Annotator produces a raw, free-form annotation for article text.
type Annotator interface {
	Annotate(ctx context.Context, text string) (string, error)
}

// LLMAnnotator sends the extraction prompt to a chat provider.
type LLMAnnotator struct {
	provider    llm.Provider
	model       string
	temperature float64
}

// NewLLMAnnotator creates an annotator over provider. An empty model uses
// the provider's configured default.
func NewLLMAnnotator(provider llm.Provider, model string, temperature float64) *LLMAnnotator {
	return &LLMAnnotator{provider: provider, model: model, temperature: temperature}
}

// Annotate returns the model's raw response content for the article text.
func (a *LLMAnnotator) Annotate(ctx context.Context, text string) (string, error) {
	start := time.Now()
	resp, err := a.provider.Chat(ctx, llm.ChatRequest{
		Model: a.model,
		Messages: []llm.Message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: BuildPrompt(text)},
		},
		Temperature: a.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("annotation llm chat: %w", err)
	}

	slog.Debug("annotation: response received",
		"model", resp.Model,
		"finish_reason", resp.FinishReason,
		"prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return resp.Content, nil
}

// AnnotatorFunc adapts a function to the Annotator interface.
type AnnotatorFunc func(ctx context.Context, text string) (string, error)

func (f AnnotatorFunc) Annotate(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

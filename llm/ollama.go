package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
)

// defaultOllamaContext is Ollama's default context window. Longer prompts
// raise num_ctx so the article is not silently truncated by the server.
const defaultOllamaContext = 4096

// responseReserve leaves room in the context window for the JSON answer.
const responseReserve = 1024

// ollamaProvider implements Provider with Ollama's native chat API.
type ollamaProvider struct {
	cfg         Config
	client      *api.Client
	countTokens func(string) int
}

// NewOllama creates a provider for Ollama.
func NewOllama(cfg Config) (Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing ollama base url: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.APIKey != "" {
		httpClient.Transport = &bearerTransport{key: cfg.APIKey, rt: http.DefaultTransport}
	}

	return &ollamaProvider{
		cfg:         cfg,
		client:      api.NewClient(u, httpClient),
		countTokens: tiktokenCount,
	}, nil
}

func (p *ollamaProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	msgs := make([]api.Message, 0, len(req.Messages))
	var promptTokens int
	for _, m := range req.Messages {
		msgs = append(msgs, api.Message{Role: m.Role, Content: m.Content})
		promptTokens += p.countTokens(m.Content)
	}

	stream := false
	options := map[string]any{"temperature": req.Temperature}
	if need := promptTokens + responseReserve; need > defaultOllamaContext {
		options["num_ctx"] = need
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	var (
		content strings.Builder
		final   api.ChatResponse
	)
	err := p.client.Chat(ctx, &api.ChatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   &stream,
		Options:  options,
	}, func(cr api.ChatResponse) error {
		content.WriteString(cr.Message.Content)
		if cr.Done {
			final = cr
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}

	return &ChatResponse{
		Content:          content.String(),
		Model:            final.Model,
		FinishReason:     final.DoneReason,
		PromptTokens:     final.PromptEvalCount,
		CompletionTokens: final.EvalCount,
		TotalTokens:      final.PromptEvalCount + final.EvalCount,
	}, nil
}

type bearerTransport struct {
	key string
	rt  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+t.key)
	return t.rt.RoundTrip(r)
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// tiktokenCount counts o200k tokens, falling back to a word-based
// estimate when the encoding cannot be loaded.
func tiktokenCount(text string) int {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("o200k_base")
		if err != nil {
			slog.Debug("llm: tiktoken unavailable, estimating tokens from words", "error", err)
			return
		}
		enc = e
	})
	if enc == nil {
		return estimateTokens(text)
	}
	return len(enc.Encode(text, nil, nil))
}

// estimateTokens approximates token count using a word-based heuristic.
func estimateTokens(text string) int {
	return int(math.Ceil(float64(len(strings.Fields(text))) * 1.3))
}

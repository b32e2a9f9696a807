package llm

import "context"

// compatVendor describes an OpenAI-compatible endpoint.
type compatVendor struct {
	baseURL      string
	pathPrefix   string
	defaultModel string
	keyEnv       string
	hosted       bool
}

// compatVendors are the providers reached through openAICompatClient.
// Gemini's OpenAI endpoint already carries its version, so it has no
// path prefix.
var compatVendors = map[string]compatVendor{
	"lmstudio": {
		baseURL:    "http://localhost:1234",
		pathPrefix: "/v1",
	},
	"openrouter": {
		baseURL:    "https://openrouter.ai/api",
		pathPrefix: "/v1",
		keyEnv:     "OPENROUTER_API_KEY",
		hosted:     true,
	},
	"groq": {
		baseURL:      "https://api.groq.com/openai",
		pathPrefix:   "/v1",
		defaultModel: "llama-3.3-70b-versatile",
		keyEnv:       "GROQ_API_KEY",
		hosted:       true,
	},
	"xai": {
		baseURL:    "https://api.x.ai",
		pathPrefix: "/v1",
		keyEnv:     "XAI_API_KEY",
		hosted:     true,
	},
	"gemini": {
		baseURL:      "https://generativelanguage.googleapis.com/v1beta/openai",
		defaultModel: "gemini-2.5-flash",
		keyEnv:       "GEMINI_API_KEY",
		hosted:       true,
	},
}

// vendorProvider implements Provider for a named OpenAI-compatible vendor.
type vendorProvider struct {
	name string
	base openAICompatClient
}

func newVendor(name string, v compatVendor, cfg Config) *vendorProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = v.baseURL
	}
	if cfg.Model == "" {
		cfg.Model = v.defaultModel
	}
	return &vendorProvider{name: name, base: newOpenAICompatClientPrefix(cfg, v.pathPrefix)}
}

func (p *vendorProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

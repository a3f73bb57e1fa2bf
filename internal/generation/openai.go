package generation

import (
	"context"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// openAIClient generates through langchaingo's OpenAI-compatible client.
type openAIClient struct {
	model string
	llm   llms.Model
}

func newOpenAIClient(cfg Config) (*openAIClient, error) {
	if cfg.APIKey == "" {
		return nil, &ConfigurationError{Field: "api_key", Reason: "openai API key missing"}
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(model),
		openai.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, &ConfigurationError{Field: "provider", Reason: err.Error()}
	}
	return &openAIClient{model: model, llm: llm}, nil
}

func (o *openAIClient) Model() string    { return o.model }
func (o *openAIClient) Provider() string { return ProviderOpenAI }

func (o *openAIClient) Generate(ctx context.Context, req Request) (string, error) {
	var opts []llms.CallOption
	if req.Model != "" && req.Model != o.model {
		opts = append(opts, llms.WithModel(req.Model))
	}
	text, err := llms.GenerateFromSinglePrompt(ctx, o.llm, req.Prompt, opts...)
	if err != nil {
		return "", &ServiceError{Provider: ProviderOpenAI, Err: err}
	}
	return text, nil
}

// Package generation talks to the external text-generation service.
//
// A Generator sends one instruction and returns the raw text the model
// produced. It never retries; a rejected call surfaces once as a
// *ServiceError.
package generation

import (
	"context"
	"fmt"
	"time"
)

// Provider names.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Request is a single generation call.
type Request struct {
	// Model overrides the generator's configured model when set.
	Model  string
	Prompt string
}

// Generator produces free text from an instruction.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Model() string
	Provider() string
}

// Config selects and configures a provider.
type Config struct {
	Provider          string
	Model             string
	APIKey            string `json:"-"`
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
}

// New builds the generator named by cfg.Provider. An empty provider selects
// Gemini.
func New(cfg Config) (Generator, error) {
	if cfg.Provider == "" {
		cfg.Provider = ProviderGemini
	}
	switch cfg.Provider {
	case ProviderGemini:
		return newGeminiClient(cfg)
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	default:
		return nil, &ConfigurationError{Field: "provider", Reason: fmt.Sprintf("unknown provider %q", cfg.Provider)}
	}
}

// Unavailable returns a Generator that fails every call with err. It stands
// in for a provider that could not be configured so the rest of the service
// keeps running.
func Unavailable(err error) Generator {
	return unavailable{err: err}
}

type unavailable struct{ err error }

func (u unavailable) Generate(context.Context, Request) (string, error) { return "", u.err }
func (u unavailable) Model() string                                      { return "" }
func (u unavailable) Provider() string                                   { return "unavailable" }

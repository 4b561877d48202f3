package ai

import (
	"context"
	"math"
	"strings"

	"poemchain/apperr"
)

// ModelClient is a configured handle to a remote text-generation service.
// Building one performs no network I/O.
type ModelClient interface {
	GenerateFromInput(ctx context.Context, input string) (string, error)
	Temperature() float64
	String() string
}

type AiServiceType string

const (
	OpenAiServiceType    AiServiceType = "openai"
	AnthropicServiceType AiServiceType = "anthropic"
)

const DefaultMaxTokens = 256

var ErrMissingAPIKey = apperr.New(apperr.CodeConfiguration, "missing API key")

// Config holds the model client settings.
type Config struct {
	Provider    AiServiceType `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
}

// TemperatureRange returns the inclusive sampling-temperature bounds a provider accepts.
func TemperatureRange(provider AiServiceType) (lo, hi float64, ok bool) {
	switch provider {
	case OpenAiServiceType:
		return 0, 2, true
	case AnthropicServiceType:
		return 0, 1, true
	}
	return 0, 0, false
}

func defaultModel(provider AiServiceType) string {
	switch provider {
	case OpenAiServiceType:
		return "gpt-4o-mini"
	case AnthropicServiceType:
		return "claude-3-5-haiku-latest"
	}
	return ""
}

// WithDefaults fills in the provider, model and max tokens when unset.
func (c Config) WithDefaults() Config {
	c.Provider = AiServiceType(strings.ToLower(strings.TrimSpace(string(c.Provider))))
	if c.Provider == "" {
		c.Provider = OpenAiServiceType
	}
	if c.Model == "" {
		c.Model = defaultModel(c.Provider)
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	return c
}

func (c Config) Validate() error {
	lo, hi, ok := TemperatureRange(c.Provider)
	if !ok {
		return apperr.Configuration("unknown provider %q", c.Provider)
	}
	if math.IsNaN(c.Temperature) || c.Temperature < lo || c.Temperature > hi {
		return apperr.Configuration("temperature %v outside [%v, %v] for %s", c.Temperature, lo, hi, c.Provider)
	}
	if c.MaxTokens <= 0 {
		return apperr.Configuration("max tokens must be positive, got %d", c.MaxTokens)
	}
	if strings.TrimSpace(c.Model) == "" {
		return apperr.Configuration("model name is empty")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey.WithDetail(string(c.Provider))
	}
	return nil
}

// NewModelClient validates cfg and returns a client for its provider.
func NewModelClient(cfg Config) (ModelClient, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case OpenAiServiceType:
		return NewOpenAiServiceProvider(cfg), nil
	case AnthropicServiceType:
		return NewAnthropicServiceProvider(cfg), nil
	}

	return nil, apperr.Configuration("unknown provider %q", cfg.Provider)
}

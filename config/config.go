// Package config loads settings from defaults, an optional YAML file,
// .env.local, environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"poemchain/ai"
	"poemchain/apperr"
	"poemchain/prompt"
)

const (
	EnvPrefix = "POEMCHAIN"
	EnvFile   = ".env.local"

	DefaultTemplate    = "Write a short poem about {topic}."
	DefaultTemperature = 0.7
)

type Config struct {
	LLM    ai.Config    `mapstructure:"llm"`
	Prompt PromptConfig `mapstructure:"prompt"`
	Batch  BatchConfig  `mapstructure:"batch"`
	Log    LogConfig    `mapstructure:"log"`
}

// PromptConfig either points at a YAML prompt file or carries the template inline.
type PromptConfig struct {
	File          string `mapstructure:"file"`
	prompt.Config `mapstructure:",squash"`
}

type BatchConfig struct {
	Concurrency int  `mapstructure:"concurrency"`
	DryRun      bool `mapstructure:"dry_run"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"config":          "config",
	"provider":        "llm.provider",
	"model":           "llm.model",
	"temperature":     "llm.temperature",
	"max-tokens":      "llm.max_tokens",
	"base-url":        "llm.base_url",
	"prompt-file":     "prompt.file",
	"template":        "prompt.template",
	"input-variables": "prompt.input_variables",
	"concurrency":     "batch.concurrency",
	"dry-run":         "batch.dry_run",
	"log-level":       "log.level",
	"log-format":      "log.format",
}

// RegisterFlags defines the flags Load understands on flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "path to a YAML config file")
	flags.String("provider", string(ai.OpenAiServiceType), "model provider (openai, anthropic)")
	flags.String("model", "", "model name (provider default when empty)")
	flags.Float64("temperature", DefaultTemperature, "sampling temperature")
	flags.Int("max-tokens", ai.DefaultMaxTokens, "maximum tokens to generate")
	flags.String("base-url", "", "override the provider API base URL")
	flags.String("prompt-file", "", "YAML prompt definition file")
	flags.String("template", DefaultTemplate, "prompt template with {placeholder} markers")
	flags.StringSlice("input-variables", nil, "declared template variables (inferred when empty)")
	flags.Int("concurrency", 1, "concurrent model calls for batch runs")
	flags.Bool("dry-run", false, "render prompts without calling the model")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
}

// Load reads the configuration. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.Wrap(err, apperr.CodeConfiguration, "load "+EnvFile)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, apperr.Wrap(err, apperr.CodeConfiguration, "bind flag "+name)
				}
			}
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperr.Wrap(err, apperr.CodeConfiguration, "read config file").WithDetail(path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeConfiguration, "decode config")
	}

	cfg.LLM = cfg.LLM.WithDefaults()
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerAPIKey(cfg.LLM.Provider)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("config", "")

	v.SetDefault("llm.provider", string(ai.OpenAiServiceType))
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.temperature", DefaultTemperature)
	v.SetDefault("llm.max_tokens", ai.DefaultMaxTokens)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")

	v.SetDefault("prompt.file", "")
	v.SetDefault("prompt.name", "")
	v.SetDefault("prompt.template", DefaultTemplate)
	v.SetDefault("prompt.input_variables", []string{})

	v.SetDefault("batch.concurrency", 1)
	v.SetDefault("batch.dry_run", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// providerAPIKey reads the provider's conventional credential variable.
func providerAPIKey(provider ai.AiServiceType) string {
	switch provider {
	case ai.OpenAiServiceType:
		return os.Getenv("OPENAI_API_KEY")
	case ai.AnthropicServiceType:
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}

// Template builds the configured prompt template.
func (c *Config) Template() (*prompt.Template, error) {
	if c.Prompt.File != "" {
		return prompt.LoadFile(c.Prompt.File)
	}
	return prompt.NewInferred(c.Prompt.Config)
}

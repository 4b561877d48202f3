package ai

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sashabaranov/go-openai"

	"poemchain/apperr"
	"poemchain/logger"
)

// chatCompleter is the subset of *openai.Client the provider uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type OpenAiServiceProvider struct {
	cfg    Config
	client chatCompleter
}

func NewOpenAiServiceProvider(cfg Config) *OpenAiServiceProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAiServiceProvider{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

func (self *OpenAiServiceProvider) GenerateFromInput(ctx context.Context, input string) (string, error) {
	request := openai.ChatCompletionRequest{
		Model:       self.cfg.Model,
		MaxTokens:   self.cfg.MaxTokens,
		Temperature: requestTemperature(self.cfg.Temperature),
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: input,
			},
		},
	}

	start := time.Now()
	response, err := self.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", apperr.Generation(err, "openai chat completion failed")
	}

	logger.Debug(ctx, "openai completion",
		"model", response.Model,
		"prompt_tokens", response.Usage.PromptTokens,
		"completion_tokens", response.Usage.CompletionTokens,
		"elapsed", time.Since(start),
	)

	if len(response.Choices) == 0 {
		return "", apperr.Generation(nil, "openai returned no choices")
	}

	content := response.Choices[0].Message.Content
	if content == "" {
		return "", apperr.Generation(nil, "openai returned empty content").
			WithDetail(string(response.Choices[0].FinishReason))
	}

	return content, nil
}

func (self *OpenAiServiceProvider) Temperature() float64 {
	return self.cfg.Temperature
}

func (self *OpenAiServiceProvider) String() string {
	return fmt.Sprintf("openai-%s", self.cfg.Model)
}

// requestTemperature maps an explicit zero to the smallest positive value,
// since the request field is dropped from the JSON body when zero.
func requestTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

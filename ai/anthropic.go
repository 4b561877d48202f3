package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"poemchain/apperr"
	"poemchain/logger"
)

type messageCreator interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicServiceProvider struct {
	cfg      Config
	messages messageCreator
}

func NewAnthropicServiceProvider(cfg Config) *AnthropicServiceProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := anthropic.NewClient(opts...)
	return &AnthropicServiceProvider{
		cfg:      cfg,
		messages: client.Messages,
	}
}

func (p *AnthropicServiceProvider) GenerateFromInput(ctx context.Context, input string) (string, error) {
	msg := anthropic.MessageNewParams{
		Model:       anthropic.F(anthropic.Model(p.cfg.Model)),
		MaxTokens:   anthropic.Int(int64(p.cfg.MaxTokens)),
		Temperature: anthropic.Float(p.cfg.Temperature),
		Messages: anthropic.F([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(input)),
		}),
	}

	start := time.Now()
	resp, err := p.messages.New(ctx, msg)
	if err != nil {
		return "", apperr.Generation(err, "anthropic message failed")
	}

	logger.Debug(ctx, "anthropic message",
		"model", resp.Model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"elapsed", time.Since(start),
	)

	var text strings.Builder
	for _, block := range resp.Content {
		text.WriteString(block.Text)
	}
	if text.Len() == 0 {
		return "", apperr.Generation(nil, "anthropic returned empty content").
			WithDetail(string(resp.StopReason))
	}

	return text.String(), nil
}

func (p *AnthropicServiceProvider) Temperature() float64 {
	return p.cfg.Temperature
}

func (p *AnthropicServiceProvider) String() string {
	return fmt.Sprintf("anthropic-%s", p.cfg.Model)
}

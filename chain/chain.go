// Package chain binds a prompt template to a model client and runs the pair
// as one render-then-generate step.
package chain

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"poemchain/apperr"
	"poemchain/logger"
	"poemchain/prompt"
)

// Generator produces text for a fully rendered prompt. ai.ModelClient satisfies it.
type Generator interface {
	GenerateFromInput(ctx context.Context, input string) (string, error)
}

// Chain holds references to its generator and template; neither is copied,
// so both may be shared with other chains.
type Chain struct {
	name      string
	generator Generator
	template  *prompt.Template
}

// Generation is the record of one run.
type Generation struct {
	RunID   string
	Input   map[string]string
	Prompt  string
	Output  string
	Elapsed time.Duration
}

func New(generator Generator, template *prompt.Template) (*Chain, error) {
	if generator == nil {
		return nil, apperr.Configuration("chain requires a model client")
	}
	if template == nil {
		return nil, apperr.Configuration("chain requires a prompt template")
	}

	name := template.Name()
	if name == "" {
		name = "llm_chain"
	}

	return &Chain{
		name:      name,
		generator: generator,
		template:  template,
	}, nil
}

func (c *Chain) Template() *prompt.Template {
	return c.template
}

func (c *Chain) Generator() Generator {
	return c.generator
}

// InputVariables returns the names Run expects.
func (c *Chain) InputVariables() []string {
	return c.template.InputVariables()
}

func (c *Chain) String() string {
	return fmt.Sprintf("chain(%s)", c.name)
}

// Run renders the template with values and returns the generator's output
// unchanged. A render failure is returned before the generator is called.
func (c *Chain) Run(ctx context.Context, values map[string]string) (string, error) {
	gen, err := c.generate(ctx, values)
	if err != nil {
		return "", err
	}
	return gen.Output, nil
}

func (c *Chain) generate(ctx context.Context, values map[string]string) (Generation, error) {
	runID := uuid.NewString()
	ctx = logger.WithContext(ctx, logger.ChainKey, c.name)
	ctx = logger.WithContext(ctx, logger.RunIDKey, runID)

	text, err := c.template.Render(values)
	if err != nil {
		logger.Warn(ctx, "prompt render failed", "error", err)
		return Generation{}, err
	}

	logger.Debug(ctx, "calling model", "prompt", text)

	start := time.Now()
	out, err := c.generator.GenerateFromInput(ctx, text)
	elapsed := time.Since(start)
	if err != nil {
		if apperr.CodeOf(err) != apperr.CodeGeneration {
			err = apperr.Generation(err, "model call failed")
		}
		logger.Error(ctx, "generation failed", err, "elapsed", elapsed)
		return Generation{}, err
	}

	logger.Debug(ctx, "generation complete", "elapsed", elapsed, "output_len", len(out))

	return Generation{
		RunID:   runID,
		Input:   maps.Clone(values),
		Prompt:  text,
		Output:  out,
		Elapsed: elapsed,
	}, nil
}

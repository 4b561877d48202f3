package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"poemchain/ai"
	"poemchain/apperr"
	"poemchain/chain"
	"poemchain/config"
	"poemchain/logger"
	"poemchain/prompt"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("poemchain", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintln(stderr, "Usage: poemchain [flags] [value...]")
		fmt.Fprintln(stderr, "Each value fills the template's single open input variable and produces one run.")
		flags.PrintDefaults()
	}
	config.RegisterFlags(flags)
	vars := flags.StringToString("var", nil, "template value as name=value (repeatable)")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format, stderr)

	tpl, err := cfg.Template()
	if err != nil {
		return fmt.Errorf("prompt template: %w", err)
	}

	inputs, err := buildInputs(tpl, *vars, flags.Args())
	if err != nil {
		return err
	}

	if cfg.Batch.DryRun {
		for _, in := range inputs {
			text, err := tpl.Render(in)
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, text)
		}
		return nil
	}

	client, err := ai.NewModelClient(cfg.LLM)
	if err != nil {
		return fmt.Errorf("model client: %w", err)
	}

	c, err := chain.New(client, tpl)
	if err != nil {
		return err
	}
	logger.Debug(ctx, "chain ready", "model", client.String(), "temperature", client.Temperature())

	if len(inputs) == 1 {
		out, err := c.Run(ctx, inputs[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, out)
		return nil
	}

	progress := NewProgress(len(inputs), stderr)
	gens, err := c.Apply(ctx, inputs,
		chain.WithConcurrency(cfg.Batch.Concurrency),
		chain.WithProgress(func(g chain.Generation) {
			progress.Update(describe(g.Input))
		}),
	)
	progress.Clear()
	if err != nil {
		return err
	}

	for i, g := range gens {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		fmt.Fprintf(stdout, "## %s\n\n%s\n", describe(g.Input), g.Output)
	}

	s := chain.Summarize(gens)
	logger.Info(ctx, "batch complete",
		"runs", s.Count,
		"mean", s.Mean,
		"stddev", s.StdDev,
		"min", s.Min,
		"max", s.Max,
	)

	return nil
}

// buildInputs turns --var values and positional values into one input map
// per run. Without positional values there is a single run.
func buildInputs(tpl *prompt.Template, vars map[string]string, positional []string) ([]map[string]string, error) {
	if len(positional) == 0 {
		return []map[string]string{maps.Clone(vars)}, nil
	}

	open := slices.DeleteFunc(tpl.InputVariables(), func(name string) bool {
		_, set := vars[name]
		return set
	})
	if len(open) != 1 {
		return nil, apperr.Configuration(
			"positional values need exactly one input variable without a --var value, template has %d (%s)",
			len(open), strings.Join(open, ", "))
	}

	inputs := make([]map[string]string, 0, len(positional))
	for _, value := range positional {
		in := maps.Clone(vars)
		if in == nil {
			in = make(map[string]string, 1)
		}
		in[open[0]] = value
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func describe(input map[string]string) string {
	keys := slices.Sorted(maps.Keys(input))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, input[k]))
	}
	return strings.Join(parts, " ")
}

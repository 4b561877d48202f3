package chain

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type applyOptions struct {
	concurrency int
	progress    func(Generation)
}

type ApplyOption func(*applyOptions)

// WithConcurrency bounds the number of in-flight model calls. Values below 1 mean 1.
func WithConcurrency(n int) ApplyOption {
	return func(o *applyOptions) {
		o.concurrency = max(n, 1)
	}
}

// WithProgress registers fn to be called after each successful run. Calls are serialized.
func WithProgress(fn func(Generation)) ApplyOption {
	return func(o *applyOptions) {
		o.progress = fn
	}
}

// Apply runs the chain once per input and returns the generations in input
// order. Every input is rendered before any model call, so a missing variable
// anywhere fails the batch without contacting the model. The first generation
// failure cancels the remaining runs.
func (c *Chain) Apply(ctx context.Context, inputs []map[string]string, opts ...ApplyOption) ([]Generation, error) {
	o := applyOptions{concurrency: 1}
	for _, opt := range opts {
		opt(&o)
	}

	for i, in := range inputs {
		if _, err := c.template.Render(in); err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
	}

	results := make([]Generation, len(inputs))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			gen, err := c.generate(gctx, in)
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			results[i] = gen

			if o.progress != nil {
				mu.Lock()
				o.progress(gen)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// Summary describes the latency of a batch of generations.
type Summary struct {
	Count  int
	Mean   time.Duration
	StdDev time.Duration
	Min    time.Duration
	Max    time.Duration
}

func Summarize(gens []Generation) Summary {
	if len(gens) == 0 {
		return Summary{}
	}

	secs := make([]float64, len(gens))
	for i, g := range gens {
		secs[i] = g.Elapsed.Seconds()
	}

	mean, std := stat.MeanStdDev(secs, nil)
	if math.IsNaN(std) {
		std = 0
	}

	return Summary{
		Count:  len(gens),
		Mean:   seconds(mean),
		StdDev: seconds(std),
		Min:    seconds(floats.Min(secs)),
		Max:    seconds(floats.Max(secs)),
	}
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// Package llm is the boundary to text-completion services. Calls return
// explicit Result values; callers branch on Result.Err instead of unwinding.
package llm

import (
	"context"
	"fmt"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// Completer is an opaque text-completion service.
type Completer interface {
	// Complete runs a single prompt.
	Complete(ctx context.Context, system, prompt string) Result

	// CompleteBatch runs prompts as one unit. Outputs are returned in input
	// order. Any member failing fails the whole batch.
	CompleteBatch(ctx context.Context, system string, prompts []string) ([]string, error)
}

// Usage reports token accounting for a call when the provider returns it.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Result is the outcome of a single completion.
type Result struct {
	Text  string
	Usage Usage
	Err   error
}

// OK reports whether the call produced text.
func (r Result) OK() bool {
	return r.Err == nil
}

// Failed builds an error Result.
func Failed(err error) Result {
	return Result{Err: err}
}

type operationKey struct{}

// WithOperation tags ctx with the pipeline operation issuing the call, used for
// logging and metrics.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey{}, operation)
}

// Operation returns the operation tag carried by ctx.
func Operation(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey{}).(string); ok {
		return op
	}
	return "completion"
}

// EstimateTokens approximates the token count of text at four characters per
// token.
func EstimateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// completeConcurrently fans a batch out as concurrent single calls, keeping
// input order and failing the batch on the first error.
func completeConcurrently(ctx context.Context, c Completer, system string, prompts []string) ([]string, error) {
	out := make([]string, len(prompts))
	if len(prompts) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(prompts))

	for i, prompt := range prompts {
		i, prompt := i, prompt
		g.Go(func() error {
			res := c.Complete(gctx, system, prompt)
			if !res.OK() {
				return fmt.Errorf("batch item %d: %w", i, res.Err)
			}
			out[i] = res.Text
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

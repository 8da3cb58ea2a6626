package evaluator

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// fanOut runs fn for every index in [0, n) with at most maxConcurrency in
// flight. Each item's error lands at its own index; one failure never
// cancels the others.
func (e *Executor) fanOut(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	var g errgroup.Group
	g.SetLimit(e.maxConcurrency)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// ItemResult is the per-item outcome of a batch operation.
type ItemResult struct {
	// Index is the position of the item in the caller's input.
	Index   int    `json:"index" yaml:"index"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Success bool   `json:"success" yaml:"success"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

func itemResult(index int, name string, err error) ItemResult {
	r := ItemResult{Index: index, Name: name, Success: err == nil}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

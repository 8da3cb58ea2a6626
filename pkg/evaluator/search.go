package evaluator

import (
	"context"

	"github.com/computerscienceiscool/metagate/pkg/codec"
	"github.com/computerscienceiscool/metagate/pkg/mediator"
	"github.com/computerscienceiscool/metagate/pkg/sandbox"
)

// MetadataResult is the metadata of one search hit.
type MetadataResult struct {
	Path    string        `json:"path" yaml:"path"`
	Success bool          `json:"success" yaml:"success"`
	Fields  []codec.Field `json:"fields,omitempty" yaml:"fields,omitempty"`
	Error   string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Search runs query in each scope and returns the hits that lie inside the
// sandbox, deduplicated, in scope order. Scopes outside the sandbox are
// dropped; no scopes means every sandbox root. Scopes are searched
// concurrently and a failing scope only fails the call when every scope
// failed.
func (e *Executor) Search(ctx context.Context, query string, scopes []string) ([]string, error) {
	if err := mediator.CheckQuery(query); err != nil {
		return nil, sandbox.SanitizeError(err)
	}

	if len(scopes) == 0 {
		scopes = e.guard.Roots().Dirs()
	}
	allowed := e.guard.FilterAllowed(scopes)
	if dropped := len(scopes) - len(allowed); dropped > 0 {
		e.logger.Debug().Int("dropped", dropped).Msg("search scopes outside the sandbox dropped")
	}

	targets := make([]sandbox.ValidatedPath, 0, len(allowed))
	for _, s := range allowed {
		if p, err := e.guard.Validate(s); err == nil {
			targets = append(targets, p)
		}
	}
	if len(targets) == 0 {
		return []string{}, nil
	}

	outputs := make([]string, len(targets))
	errs := e.fanOut(ctx, len(targets), func(ctx context.Context, i int) error {
		out, err := e.invoker.Invoke(ctx, mediator.Search, targets[i], mediator.Query(query))
		outputs[i] = out
		return e.finish(mediator.Search, targets[i], "", err)
	})

	var firstErr error
	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if failed == len(targets) {
		return nil, firstErr
	}

	seen := make(map[string]bool)
	hits := []string{}
	for _, out := range outputs {
		for _, hit := range e.guard.FilterAllowed(codec.ParseLines(out)) {
			if !seen[hit] {
				seen[hit] = true
				hits = append(hits, hit)
			}
		}
	}
	return hits, nil
}

// SearchWithMetadata runs Search and then fetches metadata for every hit
// concurrently. Each hit reports its own success; results follow hit order.
func (e *Executor) SearchWithMetadata(ctx context.Context, query string, scopes, attributes []string) ([]MetadataResult, error) {
	hits, err := e.Search(ctx, query, scopes)
	if err != nil {
		return nil, err
	}

	results := make([]MetadataResult, len(hits))
	errs := e.fanOut(ctx, len(hits), func(ctx context.Context, i int) error {
		fields, err := e.GetMetadata(ctx, hits[i], attributes)
		results[i].Fields = fields
		return err
	})
	for i, hit := range hits {
		results[i].Path = hit
		results[i].Success = errs[i] == nil
		if errs[i] != nil {
			results[i].Error = sandbox.SanitizeError(errs[i]).Error()
		}
	}
	return results, nil
}

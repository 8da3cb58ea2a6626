package evaluator

import (
	"context"

	"github.com/computerscienceiscool/metagate/pkg/codec"
	"github.com/computerscienceiscool/metagate/pkg/mediator"
	"github.com/computerscienceiscool/metagate/pkg/sandbox"
)

// GetMetadata returns the search metadata of path. With no attribute names
// every attribute is returned. Malformed names are dropped; when nothing
// valid remains of a non-empty request the result is empty.
func (e *Executor) GetMetadata(ctx context.Context, rawPath string, attributes []string) ([]codec.Field, error) {
	p, err := e.validate(mediator.GetMetadata, rawPath)
	if err != nil {
		return nil, err
	}

	names := sandbox.SanitizeTokens(attributes)
	if dropped := len(attributes) - len(names); dropped > 0 {
		e.logger.Debug().Int("dropped", dropped).Msg("malformed metadata attribute names dropped")
		if len(names) == 0 {
			return []codec.Field{}, nil
		}
	}

	args := make([]mediator.Arg, 0, len(names))
	for _, n := range names {
		args = append(args, mediator.Token(n))
	}
	out, err := e.invoker.Invoke(ctx, mediator.GetMetadata, p, args...)
	if err := e.finish(mediator.GetMetadata, p, "", err); err != nil {
		return nil, err
	}
	return codec.ParseMetadataDump(out), nil
}

// Reindex asks the indexer to re-import path.
func (e *Executor) Reindex(ctx context.Context, rawPath string) error {
	p, err := e.validate(mediator.Reindex, rawPath)
	if err != nil {
		return err
	}
	_, err = e.invoker.Invoke(ctx, mediator.Reindex, p)
	return e.finish(mediator.Reindex, p, "", err)
}

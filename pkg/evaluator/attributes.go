package evaluator

import (
	"context"
	"fmt"

	"github.com/computerscienceiscool/metagate/pkg/codec"
	"github.com/computerscienceiscool/metagate/pkg/mediator"
	"github.com/computerscienceiscool/metagate/pkg/sandbox"
)

// Attribute is a decoded extended attribute.
type Attribute struct {
	Name  string      `json:"name" yaml:"name"`
	Found bool        `json:"found" yaml:"found"`
	Value codec.Value `json:"value" yaml:"value"`
}

// AttributeWrite is one entry of a SetAttributes batch.
type AttributeWrite struct {
	Name  string
	Value []byte
}

// ListAttributes returns the extended attribute names on path.
func (e *Executor) ListAttributes(ctx context.Context, rawPath string) ([]string, error) {
	p, err := e.validate(mediator.ListAttrs, rawPath)
	if err != nil {
		return nil, err
	}
	out, err := e.invoker.Invoke(ctx, mediator.ListAttrs, p)
	if err := e.finish(mediator.ListAttrs, p, "", err); err != nil {
		return nil, err
	}
	return codec.ParseLines(out), nil
}

// GetAttribute reads one extended attribute. A missing attribute is a
// successful result with Found false.
func (e *Executor) GetAttribute(ctx context.Context, rawPath, name string) (Attribute, error) {
	if !sandbox.IsToken(name) {
		return Attribute{}, invalidAttribute()
	}
	p, err := e.validate(mediator.GetAttr, rawPath)
	if err != nil {
		return Attribute{}, err
	}
	out, err := e.invoker.Invoke(ctx, mediator.GetAttr, p, mediator.Token(name))
	if err := e.finish(mediator.GetAttr, p, name, err); err != nil {
		return Attribute{}, err
	}
	if out == "" {
		return Attribute{Name: name, Value: codec.Null()}, nil
	}
	return Attribute{Name: name, Found: true, Value: codec.DecodeAttributeValue(out)}, nil
}

// SetAttribute writes one extended attribute.
func (e *Executor) SetAttribute(ctx context.Context, rawPath, name string, value []byte) error {
	if !sandbox.IsToken(name) {
		return invalidAttribute()
	}
	p, err := e.validate(mediator.SetAttr, rawPath)
	if err != nil {
		return err
	}
	_, err = e.invoker.Invoke(ctx, mediator.SetAttr, p, mediator.Token(name), mediator.Bytes(value))
	return e.finish(mediator.SetAttr, p, name, err)
}

// SetAttributes writes several attributes on one path concurrently. The path
// is validated once and a rejection fails the whole call. Entries with a
// malformed name are dropped; every other entry reports its own result, in
// input order.
func (e *Executor) SetAttributes(ctx context.Context, rawPath string, writes []AttributeWrite) ([]ItemResult, error) {
	p, err := e.validate(mediator.SetAttr, rawPath)
	if err != nil {
		return nil, err
	}

	kept := make([]int, 0, len(writes))
	for i, w := range writes {
		if sandbox.IsToken(w.Name) {
			kept = append(kept, i)
		}
	}
	if dropped := len(writes) - len(kept); dropped > 0 {
		e.logger.Debug().Int("dropped", dropped).Msg("malformed attribute names dropped from batch")
	}

	errs := e.fanOut(ctx, len(kept), func(ctx context.Context, i int) error {
		w := writes[kept[i]]
		_, err := e.invoker.Invoke(ctx, mediator.SetAttr, p, mediator.Token(w.Name), mediator.Bytes(w.Value))
		return e.finish(mediator.SetAttr, p, w.Name, err)
	})

	results := make([]ItemResult, len(kept))
	for i, idx := range kept {
		results[i] = itemResult(idx, writes[idx].Name, errs[i])
	}
	return results, nil
}

// DeleteAttribute removes one extended attribute. Removing an attribute that
// does not exist succeeds.
func (e *Executor) DeleteAttribute(ctx context.Context, rawPath, name string) error {
	if !sandbox.IsToken(name) {
		return invalidAttribute()
	}
	p, err := e.validate(mediator.DeleteAttr, rawPath)
	if err != nil {
		return err
	}
	_, err = e.invoker.Invoke(ctx, mediator.DeleteAttr, p, mediator.Token(name))
	return e.finish(mediator.DeleteAttr, p, name, err)
}

func invalidAttribute() error {
	return fmt.Errorf("%w: malformed attribute name", sandbox.ErrInvalidInput)
}

package mediator

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/computerscienceiscool/metagate/pkg/sandbox"
)

type argKind int

const (
	argToken argKind = iota + 1
	argQuery
	argBytes
)

// Arg is an extra argument for Invoke. The only constructors are Token,
// Query and Bytes, so every argv element has a known provenance.
type Arg struct {
	kind  argKind
	value string
}

// Token wraps an attribute identifier. It is re-checked against the
// identifier grammar when the argv is built.
func Token(name string) Arg {
	return Arg{kind: argToken, value: name}
}

// Query wraps a free-text search query. It is passed as a single argv
// element and never shell interpreted.
func Query(q string) Arg {
	return Arg{kind: argQuery, value: q}
}

// Bytes wraps an attribute value. It is always passed hex encoded.
func Bytes(b []byte) Arg {
	return Arg{kind: argBytes, value: hex.EncodeToString(b)}
}

func (a Arg) check() error {
	switch a.kind {
	case argToken:
		if !sandbox.IsToken(a.value) {
			return fmt.Errorf("%w: malformed attribute name", sandbox.ErrInvalidInput)
		}
	case argQuery:
		if strings.TrimSpace(a.value) == "" {
			return fmt.Errorf("%w: empty query", sandbox.ErrInvalidInput)
		}
		if strings.ContainsRune(a.value, 0) {
			return fmt.Errorf("%w: query contains NUL", sandbox.ErrInvalidInput)
		}
		// A leading dash would be parsed as an option by the tool.
		if strings.HasPrefix(strings.TrimSpace(a.value), "-") {
			return fmt.Errorf("%w: query may not start with '-'", sandbox.ErrInvalidInput)
		}
	case argBytes:
		// built by Bytes, always hex
	default:
		return fmt.Errorf("%w: unknown argument", sandbox.ErrInvalidInput)
	}
	return nil
}

// buildArgv assembles the argument vector for tool. The path is always the
// final element for xattr, mdimport and mdls so that a value can never be
// mistaken for the target.
func buildArgv(tool Tool, path sandbox.ValidatedPath, args []Arg) ([]string, error) {
	if path.IsZero() {
		return nil, fmt.Errorf("%w: path was not validated", sandbox.ErrInvalidInput)
	}
	for _, a := range args {
		if err := a.check(); err != nil {
			return nil, err
		}
	}

	p := path.String()
	switch tool {
	case ListAttrs, Reindex:
		if err := expect(args); err != nil {
			return nil, err
		}
		return []string{p}, nil
	case GetAttr:
		if err := expect(args, argToken); err != nil {
			return nil, err
		}
		return []string{"-px", args[0].value, p}, nil
	case SetAttr:
		if err := expect(args, argToken, argBytes); err != nil {
			return nil, err
		}
		return []string{"-wx", args[0].value, args[1].value, p}, nil
	case DeleteAttr:
		if err := expect(args, argToken); err != nil {
			return nil, err
		}
		return []string{"-d", args[0].value, p}, nil
	case Search:
		if err := expect(args, argQuery); err != nil {
			return nil, err
		}
		return []string{"-onlyin", p, args[0].value}, nil
	case GetMetadata:
		argv := make([]string, 0, 2*len(args)+1)
		for _, a := range args {
			if a.kind != argToken {
				return nil, fmt.Errorf("%w: %s takes attribute names only", sandbox.ErrInvalidInput, tool)
			}
			argv = append(argv, "-name", a.value)
		}
		return append(argv, p), nil
	default:
		return nil, fmt.Errorf("%w: unknown tool", sandbox.ErrInvalidInput)
	}
}

func expect(args []Arg, kinds ...argKind) error {
	if len(args) != len(kinds) {
		return fmt.Errorf("%w: expected %d arguments, got %d", sandbox.ErrInvalidInput, len(kinds), len(args))
	}
	for i, k := range kinds {
		if args[i].kind != k {
			return fmt.Errorf("%w: argument %d has the wrong type", sandbox.ErrInvalidInput, i+1)
		}
	}
	return nil
}

// CheckQuery reports whether q is acceptable as a search query.
func CheckQuery(q string) error {
	return Query(q).check()
}

package sandbox

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxDecodeRounds bounds repeated percent-decoding of adversarial input.
const maxDecodeRounds = 10

// ValidatedPath is an absolute, normalized, NUL-free path inside a sandbox
// root. The only way to obtain a non-zero value is PathGuard.Validate.
type ValidatedPath struct {
	path string
}

// String returns the validated absolute path.
func (p ValidatedPath) String() string {
	return p.path
}

// IsZero reports whether p was not produced by a PathGuard.
func (p ValidatedPath) IsZero() bool {
	return p.path == ""
}

// PathGuard validates caller supplied paths against a fixed set of roots.
// It holds no mutable state and is safe for concurrent use.
type PathGuard struct {
	roots          Roots
	strictSymlinks bool
	getwd          func() (string, error)
}

// GuardOption configures a PathGuard.
type GuardOption func(*PathGuard)

// WithStrictSymlinks makes Validate also resolve the deepest existing
// ancestor of a path and reject it when the real location leaves every root.
func WithStrictSymlinks(enabled bool) GuardOption {
	return func(g *PathGuard) {
		g.strictSymlinks = enabled
	}
}

// WithWorkingDir overrides how relative paths are anchored.
func WithWorkingDir(getwd func() (string, error)) GuardOption {
	return func(g *PathGuard) {
		if getwd != nil {
			g.getwd = getwd
		}
	}
}

// NewPathGuard creates a guard bound to roots.
func NewPathGuard(roots Roots, opts ...GuardOption) *PathGuard {
	g := &PathGuard{
		roots: roots,
		getwd: os.Getwd,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Roots returns the roots this guard enforces.
func (g *PathGuard) Roots() Roots {
	return g.roots
}

// Validate normalizes raw and checks it against the sandbox roots.
// Failures wrap ErrInvalidInput, ErrSymlinkRejected or ErrOutsideSandbox and
// never echo the input back.
func (g *PathGuard) Validate(raw string) (ValidatedPath, error) {
	if raw == "" {
		return ValidatedPath{}, invalidInput("empty path")
	}

	candidate := stripNUL(raw)
	candidate = norm.NFC.String(candidate)
	candidate, ok := percentDecode(candidate)
	if !ok {
		return ValidatedPath{}, invalidInput("too many encoding layers")
	}
	if candidate == "" {
		return ValidatedPath{}, invalidInput("empty path after decoding")
	}

	abs, err := g.absolute(candidate)
	if err != nil {
		return ValidatedPath{}, err
	}
	abs = filepath.Clean(normalizeText(abs))

	if g.roots.Len() == 0 || !g.roots.contains(abs) {
		return ValidatedPath{}, fmt.Errorf("%w: path is not within an allowed root", ErrOutsideSandbox)
	}

	info, err := os.Lstat(abs)
	if err == nil && info.Mode()&os.ModeSymlink != 0 {
		return ValidatedPath{}, fmt.Errorf("%w: path is a symbolic link", ErrSymlinkRejected)
	}

	if g.strictSymlinks && !g.roots.containsResolved(resolveExisting(abs)) {
		return ValidatedPath{}, fmt.Errorf("%w: path resolves outside allowed roots", ErrOutsideSandbox)
	}

	return ValidatedPath{path: abs}, nil
}

// IsAllowed reports whether raw validates. It never returns an error.
func (g *PathGuard) IsAllowed(raw string) bool {
	_, err := g.Validate(raw)
	return err == nil
}

// FilterAllowed returns the elements of paths that validate, in input order.
// Rejected elements are dropped rather than failing the batch.
func (g *PathGuard) FilterAllowed(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if g.IsAllowed(p) {
			out = append(out, p)
		}
	}
	return out
}

func (g *PathGuard) absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	wd, err := g.getwd()
	if err != nil {
		return "", invalidInput("cannot resolve working directory")
	}
	return filepath.Join(wd, p), nil
}

// percentDecode unescapes p until it stops changing, for at most
// maxDecodeRounds rounds. A malformed escape ends decoding and the last
// successful result is kept. ok is false when p would still change after the
// last round.
func percentDecode(p string) (decoded string, ok bool) {
	for i := 0; i < maxDecodeRounds; i++ {
		next, err := url.PathUnescape(p)
		if err != nil || next == p {
			return p, true
		}
		p = next
	}
	next, err := url.PathUnescape(p)
	return p, err != nil || next == p
}

func stripNUL(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

// normalizeText strips NUL characters (decoding can reintroduce them via
// %00) and applies NFC.
func normalizeText(s string) string {
	return norm.NFC.String(stripNUL(s))
}

// resolveExisting evaluates symlinks on the deepest existing ancestor of
// path and re-attaches the unresolved tail.
func resolveExisting(path string) string {
	candidate := path
	for {
		real, err := filepath.EvalSymlinks(candidate)
		if err == nil {
			rest, relErr := filepath.Rel(candidate, path)
			if relErr != nil || rest == "." {
				return real
			}
			return filepath.Join(real, rest)
		}
		parent := filepath.Dir(candidate)
		if parent == candidate {
			return path
		}
		candidate = parent
	}
}

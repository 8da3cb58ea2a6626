package sandbox

import (
	"path/filepath"
	"strings"
)

// Roots is the ordered set of directories that bound every permitted path.
// It is built once at startup and has no mutation API.
type Roots struct {
	dirs []string
	// resolved holds dirs with symlinks evaluated, index-aligned with dirs.
	// Entries fall back to the lexical dir when it does not exist yet.
	resolved []string
}

// NewRoots builds a Roots value from absolute directory strings.
func NewRoots(dirs ...string) (Roots, error) {
	if len(dirs) == 0 {
		return Roots{}, invalidInput("no sandbox roots configured")
	}

	r := Roots{
		dirs:     make([]string, 0, len(dirs)),
		resolved: make([]string, 0, len(dirs)),
	}
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" || strings.ContainsRune(dir, 0) {
			return Roots{}, invalidInput("empty sandbox root")
		}
		if !filepath.IsAbs(dir) {
			return Roots{}, invalidInput("sandbox root must be absolute")
		}
		clean := filepath.Clean(normalizeText(dir))
		real, err := filepath.EvalSymlinks(clean)
		if err != nil {
			real = clean
		}
		r.dirs = append(r.dirs, clean)
		r.resolved = append(r.resolved, real)
	}
	return r, nil
}

// Dirs returns a copy of the configured root directories.
func (r Roots) Dirs() []string {
	out := make([]string, len(r.dirs))
	copy(out, r.dirs)
	return out
}

// Len reports the number of roots.
func (r Roots) Len() int {
	return len(r.dirs)
}

// contains is the single authoritative containment gate.
func (r Roots) contains(path string) bool {
	return withinAny(path, r.dirs)
}

func (r Roots) containsResolved(path string) bool {
	return withinAny(path, r.resolved)
}

func withinAny(path string, dirs []string) bool {
	for _, root := range dirs {
		if path == root {
			return true
		}
		prefix := root
		if !strings.HasSuffix(prefix, string(filepath.Separator)) {
			prefix += string(filepath.Separator)
		}
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Package scratch creates throwaway sandbox roots for trying metagate
// without pointing it at real data.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	keepEnv     = "METAGATE_KEEP_SCRATCH"
	keepDirBase = "/tmp/metagate-scratch"
	authorName  = "metagate"
	authorEmail = "metagate@localhost"
)

// Workspace is a scratch sandbox root. Its contents are committed to a git
// repository so a later `git status` shows any file the session touched.
type Workspace struct {
	Dir  string
	Repo *git.Repository
	keep bool
}

// Create makes a new scratch workspace with a README and one initial commit.
// If METAGATE_KEEP_SCRATCH=true the workspace lives under /tmp/metagate-scratch
// and survives Cleanup.
func Create() (*Workspace, error) {
	keep := os.Getenv(keepEnv) == "true"

	var dir string
	var err error
	if keep {
		if err = os.MkdirAll(keepDirBase, 0755); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
		dir, err = os.MkdirTemp(keepDirBase, "ws-")
	} else {
		dir, err = os.MkdirTemp("", "metagate-scratch-")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	// Sandbox roots are compared after symlink resolution.
	if real, err := filepath.EvalSymlinks(dir); err == nil {
		dir = real
	}

	repo, err := git.PlainInit(dir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize git repository: %w", err)
	}

	cfg, err := repo.Config()
	if err != nil {
		return nil, fmt.Errorf("failed to get repository config: %w", err)
	}
	cfg.User.Name = authorName
	cfg.User.Email = authorEmail
	if err := repo.SetConfig(cfg); err != nil {
		return nil, fmt.Errorf("failed to set repository config: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	readme := []byte("# metagate scratch workspace\n\nFiles here may carry test extended attributes.\n")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), readme, 0644); err != nil {
		return nil, fmt.Errorf("failed to create README: %w", err)
	}
	if _, err := wt.Add("README.md"); err != nil {
		return nil, fmt.Errorf("failed to add README: %w", err)
	}

	_, err = wt.Commit("Initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: authorName, Email: authorEmail, When: time.Now()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create initial commit: %w", err)
	}

	return &Workspace{Dir: dir, Repo: repo, keep: keep}, nil
}

// Changed lists the workspace files that differ from the initial commit.
func (w *Workspace) Changed() ([]string, error) {
	wt, err := w.Repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to read status: %w", err)
	}
	changed := make([]string, 0, len(status))
	for path, s := range status {
		if s.Worktree != git.Unmodified || s.Staging != git.Unmodified {
			changed = append(changed, path)
		}
	}
	return changed, nil
}

// Cleanup removes the workspace unless it was created with
// METAGATE_KEEP_SCRATCH=true.
func (w *Workspace) Cleanup() error {
	if w.keep {
		return nil
	}
	return os.RemoveAll(w.Dir)
}

// Package gittest builds throwaway repositories for tests.
package gittest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Commit is a set of files to write and commit
type Commit struct {
	Files   map[string]string
	Message string
}

// Repo is a repository on disk under a test temp dir
type Repo struct {
	Dir  string
	repo *git.Repository
	t    *testing.T
}

// NewRepo initializes an empty repository in a temp dir
func NewRepo(t *testing.T) *Repo {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("Failed to init repository: %v", err)
	}
	return &Repo{Dir: dir, repo: repo, t: t}
}

// CreateTestRepo creates a repository with a single commit holding files
func CreateTestRepo(t *testing.T, files map[string]string) *Repo {
	t.Helper()

	r := NewRepo(t)
	r.Commit(Commit{Files: files, Message: "Initial commit"})
	return r
}

// Commit writes files and commits them, returning the commit hash
func (r *Repo) Commit(c Commit) plumbing.Hash {
	r.t.Helper()

	workTree, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatalf("Failed to get worktree: %v", err)
	}

	for filename, content := range c.Files {
		filePath := filepath.Join(r.Dir, filename)
		if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
			r.t.Fatalf("Failed to create directory for %s: %v", filename, err)
		}
		if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
			r.t.Fatalf("Failed to write file %s: %v", filename, err)
		}
		if _, err := workTree.Add(filename); err != nil {
			r.t.Fatalf("Failed to add file %s: %v", filename, err)
		}
	}

	msg := c.Message
	if msg == "" {
		msg = "Update tables"
	}
	hash, err := workTree.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "Test Author", Email: "test@example.com"},
	})
	if err != nil {
		r.t.Fatalf("Failed to commit: %v", err)
	}
	return hash
}

// Branch creates and checks out a branch, then commits files on it
func (r *Repo) Branch(name string, c Commit) plumbing.Hash {
	r.t.Helper()

	workTree, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatalf("Failed to get worktree: %v", err)
	}
	err = workTree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
	})
	if err != nil {
		r.t.Fatalf("Failed to create branch %s: %v", name, err)
	}
	return r.Commit(c)
}

// Tag creates a lightweight tag at HEAD
func (r *Repo) Tag(name string) {
	r.t.Helper()

	head, err := r.repo.Head()
	if err != nil {
		r.t.Fatalf("Failed to get HEAD: %v", err)
	}
	if _, err := r.repo.CreateTag(name, head.Hash(), nil); err != nil {
		r.t.Fatalf("Failed to create tag %s: %v", name, err)
	}
}

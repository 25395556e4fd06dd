// Package git clones repositories into memory and reads table files from them.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Limits applied to each in-memory clone
const (
	MaxCloneFiles = 10 * 1000
	MaxCloneBytes = 100 * 1024 * 1024
)

// ErrRefNotFound is returned by Resolve when the remote has no such ref
var ErrRefNotFound = errors.New("reference not found on remote")

// Client checks out and inspects remote repositories
type Client interface {
	// Checkout clones the ref into memory
	Checkout(ctx context.Context, ref Ref) (*Checkout, error)

	// Resolve returns the commit the ref currently points to without
	// cloning. A Ref with Commit set resolves to itself.
	Resolve(ctx context.Context, ref Ref) (string, error)
}

type goGitClient struct{}

// NewClient returns a go-git backed Client
func NewClient() Client {
	return goGitClient{}
}

func (goGitClient) Checkout(ctx context.Context, ref Ref) (*Checkout, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}

	opts := &git.CloneOptions{URL: ref.URL}
	switch {
	case ref.Commit != "":
		// pinned commits may be anywhere in history, so no shallow clone
	case ref.Branch != "":
		opts.Depth, opts.SingleBranch = 1, true
		opts.ReferenceName = plumbing.NewBranchReferenceName(ref.Branch)
	case ref.Tag != "":
		opts.Depth, opts.SingleBranch = 1, true
		opts.ReferenceName = plumbing.NewTagReferenceName(ref.Tag)
	default:
		opts.Depth = 1
	}

	// object database and worktree live on separate bounded filesystems
	worktree := &LimitedFs{Filesystem: memfs.New(), MaxFiles: MaxCloneFiles, TotalFileSize: MaxCloneBytes}
	objects := &LimitedFs{Filesystem: memfs.New(), MaxFiles: MaxCloneFiles, TotalFileSize: MaxCloneBytes}
	objectCache := cache.NewObjectLRUDefault()

	slog.DebugContext(ctx, "Cloning repository", "ref", ref.String())
	repo, err := git.CloneContext(ctx, filesystem.NewStorage(objects, objectCache), worktree, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to clone %s: %w", ref.URL, err)
	}

	co := &Checkout{URL: ref.URL, repo: repo, storer: objects, cache: objectCache}

	if ref.Commit != "" {
		co.hash = plumbing.NewHash(ref.Commit)
		if _, err := repo.CommitObject(co.hash); err != nil {
			co.release()
			return nil, fmt.Errorf("commit %s not found in %s: %w", ref.Commit, ref.URL, err)
		}
	} else {
		head, err := repo.Head()
		if err != nil {
			co.release()
			return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
		}
		co.hash = head.Hash()
		if head.Name().IsBranch() {
			co.Branch = head.Name().Short()
		}
	}
	co.Commit = co.hash.String()

	return co, nil
}

func (goGitClient) Resolve(ctx context.Context, ref Ref) (string, error) {
	if err := ref.validate(); err != nil {
		return "", err
	}
	if ref.Commit != "" {
		return ref.Commit, nil
	}

	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{ref.URL},
	})
	refs, err := remote.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", ref.URL, err)
	}

	want := plumbing.HEAD
	switch {
	case ref.Branch != "":
		want = plumbing.NewBranchReferenceName(ref.Branch)
	case ref.Tag != "":
		want = plumbing.NewTagReferenceName(ref.Tag)
	}

	byName := make(map[plumbing.ReferenceName]*plumbing.Reference, len(refs))
	for _, r := range refs {
		byName[r.Name()] = r
	}

	// HEAD is usually advertised as a symbolic ref; follow it a few hops
	for range 4 {
		r, ok := byName[want]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrRefNotFound, ref.String())
		}
		if r.Type() == plumbing.HashReference {
			return r.Hash().String(), nil
		}
		want = r.Target()
	}
	return "", fmt.Errorf("%w: %s", ErrRefNotFound, ref.String())
}

// ReadFile returns a file from the pinned commit's tree
func (c *Checkout) ReadFile(path string) ([]byte, error) {
	if c == nil || c.repo == nil {
		return nil, fmt.Errorf("checkout is closed")
	}

	commit, err := c.repo.CommitObject(c.hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", c.Commit, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load tree of %s: %w", c.Commit, err)
	}
	file, err := tree.File(path)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s at %s: %w", path, c.Commit, err)
	}
	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return []byte(content), nil
}

// Close drops the in-memory repository. It is safe to call more than once.
func (c *Checkout) Close(ctx context.Context) {
	if c == nil || c.repo == nil {
		return
	}
	c.release()
	slog.DebugContext(ctx, "Released checkout", "url", c.URL, "commit", c.Commit)
	runtime.GC()
}

func (c *Checkout) release() {
	if c.cache != nil {
		c.cache.Clear()
	}
	if wt, err := c.repo.Worktree(); err == nil && wt.Filesystem != nil {
		_ = util.RemoveAll(wt.Filesystem, "/")
	}
	if c.storer != nil {
		_ = util.RemoveAll(c.storer, "/")
	}
	c.repo, c.storer, c.cache = nil, nil, nil
}

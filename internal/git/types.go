package git

import (
	"fmt"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
)

// Ref names a point in a remote repository. At most one of Branch, Tag and
// Commit is set; with none, the remote HEAD is used.
type Ref struct {
	URL    string
	Branch string
	Tag    string
	Commit string
}

// String renders the ref for logs
func (r Ref) String() string {
	switch {
	case r.Commit != "":
		return r.URL + "@" + r.Commit
	case r.Tag != "":
		return r.URL + "@tag:" + r.Tag
	case r.Branch != "":
		return r.URL + "@" + r.Branch
	default:
		return r.URL + "@HEAD"
	}
}

func (r Ref) validate() error {
	if r.URL == "" {
		return fmt.Errorf("repository URL is required")
	}
	return nil
}

// Checkout is an in-memory clone pinned to one commit. It holds the whole
// object database, so Close it as soon as the files have been read.
type Checkout struct {
	URL    string
	Branch string
	Commit string

	repo   *git.Repository
	hash   plumbing.Hash
	storer billy.Filesystem
	cache  cache.Object
}

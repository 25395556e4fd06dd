package sources

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/omnifield-ingest/internal/config"
	"github.com/stacklok/omnifield-ingest/internal/git"
	"github.com/stacklok/omnifield-ingest/internal/git/gittest"
)

// countingClient wraps the real client and counts clones
type countingClient struct {
	git.Client
	checkouts  atomic.Int32
	resolveErr error
}

func (c *countingClient) Checkout(ctx context.Context, ref git.Ref) (*git.Checkout, error) {
	c.checkouts.Add(1)
	return c.Client.Checkout(ctx, ref)
}

func (c *countingClient) Resolve(ctx context.Context, ref git.Ref) (string, error) {
	if c.resolveErr != nil {
		return "", c.resolveErr
	}
	return c.Client.Resolve(ctx, ref)
}

func TestGitSourceHandler_Fetch(t *testing.T) {
	t.Parallel()

	content := "year,rate\n2020,5000\n2021,4700\n"
	repo := gittest.CreateTestRepo(t, map[string]string{"production/history.csv": content})

	h := NewGitSourceHandler(nil)
	src := &config.SourceConfig{
		Name: "history",
		Git:  &config.GitConfig{Repository: repo.Dir, Path: "production/history.csv"},
	}

	result, err := h.Fetch(t.Context(), src)
	require.NoError(t, err)
	assert.Equal(t, content, string(result.Data))
	assert.Equal(t, HashData([]byte(content)), result.Hash)

	hash, err := h.CurrentHash(t.Context(), src)
	require.NoError(t, err)
	assert.Equal(t, result.Hash, hash)
}

func TestGitSourceHandler_CurrentHash_SkipsCloneForSameCommit(t *testing.T) {
	t.Parallel()

	repo := gittest.CreateTestRepo(t, map[string]string{"sensors.csv": "ts,temp\n1,20.5\n"})

	client := &countingClient{Client: git.NewClient()}
	h := NewGitSourceHandler(client)
	src := &config.SourceConfig{
		Name: "sensors",
		Git:  &config.GitConfig{Repository: repo.Dir, Branch: "master", Path: "sensors.csv"},
	}

	result, err := h.Fetch(t.Context(), src)
	require.NoError(t, err)
	require.EqualValues(t, 1, client.checkouts.Load())

	hash, err := h.CurrentHash(t.Context(), src)
	require.NoError(t, err)
	assert.Equal(t, result.Hash, hash)
	assert.EqualValues(t, 1, client.checkouts.Load(), "unchanged branch must not be cloned again")

	repo.Commit(gittest.Commit{Files: map[string]string{"sensors.csv": "ts,temp\n1,20.5\n2,21.0\n"}})

	hash, err = h.CurrentHash(t.Context(), src)
	require.NoError(t, err)
	assert.NotEqual(t, result.Hash, hash)
	assert.EqualValues(t, 2, client.checkouts.Load())
}

func TestGitSourceHandler_CurrentHash_ResolveFailure(t *testing.T) {
	t.Parallel()

	content := "year,rate\n2020,5000\n"
	repo := gittest.CreateTestRepo(t, map[string]string{"history.csv": content})

	client := &countingClient{Client: git.NewClient(), resolveErr: errors.New("listing refused")}
	h := NewGitSourceHandler(client)
	src := &config.SourceConfig{
		Name: "history",
		Git:  &config.GitConfig{Repository: repo.Dir, Path: "history.csv"},
	}

	for range 2 {
		hash, err := h.CurrentHash(t.Context(), src)
		require.NoError(t, err)
		assert.Equal(t, HashData([]byte(content)), hash)
	}
	assert.EqualValues(t, 2, client.checkouts.Load())
}

func TestGitSourceHandler_Fetch_Errors(t *testing.T) {
	t.Parallel()

	repo := gittest.CreateTestRepo(t, map[string]string{"a.csv": "a\n1\n"})
	h := NewGitSourceHandler(nil)

	_, err := h.Fetch(t.Context(), &config.SourceConfig{
		Name: "missing_path",
		Git:  &config.GitConfig{Repository: repo.Dir, Path: "b.csv"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = h.Fetch(t.Context(), &config.SourceConfig{
		Name: "missing_repo",
		Git:  &config.GitConfig{Repository: t.TempDir() + "/nope", Path: "a.csv"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGitSourceHandler_Validate(t *testing.T) {
	t.Parallel()

	h := NewGitSourceHandler(nil)
	tests := []struct {
		name    string
		git     *config.GitConfig
		wantErr string
	}{
		{name: "missing block", wantErr: "git configuration is required"},
		{name: "missing repository", git: &config.GitConfig{Path: "a.csv"}, wantErr: "repository URL cannot be empty"},
		{name: "missing path", git: &config.GitConfig{Repository: "https://x/y.git"}, wantErr: "path cannot be empty"},
		{
			name:    "two refs",
			git:     &config.GitConfig{Repository: "https://x/y.git", Path: "a.csv", Branch: "main", Commit: "abc"},
			wantErr: "only one of branch, tag, or commit",
		},
		{name: "valid", git: &config.GitConfig{Repository: "https://x/y.git", Path: "a.csv", Tag: "v1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := h.Validate(&config.SourceConfig{Name: "s", Git: tt.git})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

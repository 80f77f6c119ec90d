package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appleaa123/learningtool/internal/learningtool"
)

func TestCreateNotebook_DuplicateName(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	_, err := repo.CreateNotebook(ctx, "alice", "Biology")
	require.NoError(t, err)

	_, err = repo.CreateNotebook(ctx, "alice", "Biology")
	assert.ErrorIs(t, err, learningtool.ErrConflict)

	// Same name under a different user is fine.
	_, err = repo.CreateNotebook(ctx, "bob", "Biology")
	assert.NoError(t, err)
}

func TestDefaultNotebook_CreatedOnce(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	first, err := repo.DefaultNotebook(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Default", first.Name)

	second, err := repo.DefaultNotebook(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	notebooks, err := repo.Notebooks(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, notebooks, 1)
}

func TestDeleteNotebook(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	nb, err := repo.CreateNotebook(ctx, "alice", "Scratch")
	require.NoError(t, err)

	require.NoError(t, repo.DeleteNotebook(ctx, nb.ID))

	_, err = repo.Notebook(ctx, nb.ID)
	assert.ErrorIs(t, err, learningtool.ErrNotFound)
}

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/appleaa123/learningtool/internal/database"
	"github.com/appleaa123/learningtool/internal/learningtool"
	"github.com/appleaa123/learningtool/internal/migrations"
)

// Spins up a migrated sqlite db in a temp dir.
func newTestRepo(t *testing.T) Repo {
	t.Helper()

	dbx, err := sqlx.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		dbx.Close()
	})

	require.NoError(t, database.RunMigrations(dbx, migrations.Migrations, "."))

	return New(dbx)
}

// Creates a notebook and returns the scope pointing at it.
func newTestScope(t *testing.T, repo Repo, userID string) learningtool.Scope {
	t.Helper()

	nb, err := repo.DefaultNotebook(context.Background(), userID)
	require.NoError(t, err)

	return learningtool.Scope{UserID: userID, NotebookID: nb.ID}
}

func insertTestChunk(t *testing.T, repo Repo, scope learningtool.Scope, content string) learningtool.Chunk {
	t.Helper()

	chunk, err := repo.InsertChunk(context.Background(), learningtool.Chunk{
		NotebookID: scope.NotebookID,
		SourceType: "text",
		Content:    content,
	})
	require.NoError(t, err)

	return chunk
}

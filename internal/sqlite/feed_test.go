package sqlite

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appleaa123/learningtool/internal/learningtool"
)

func appendTestEntry(t *testing.T, repo Repo, scope learningtool.Scope, ref string) learningtool.FeedEntry {
	t.Helper()

	entry, err := repo.AppendFeedEntry(context.Background(), learningtool.FeedEntry{
		UserID:     scope.UserID,
		NotebookID: scope.NotebookID,
		Kind:       learningtool.KindChunk,
		ContentRef: ref,
	})
	require.NoError(t, err)

	return entry
}

func TestAppendFeedEntry_SequencesPerScope(t *testing.T) {
	var (
		ctx   = context.Background()
		repo  = newTestRepo(t)
		alice = newTestScope(t, repo, "alice")
		bob   = newTestScope(t, repo, "bob")
	)

	for i := 1; i <= 3; i++ {
		entry := appendTestEntry(t, repo, alice, fmt.Sprintf("ref-%d", i))
		assert.Equal(t, int64(i), entry.Seq)
	}

	// A different scope starts its own sequence from 1.
	entry := appendTestEntry(t, repo, bob, "ref-b")
	assert.Equal(t, int64(1), entry.Seq)

	entries, err := repo.FeedEntries(ctx, alice, 0, 10, "")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// Newest first
	assert.Equal(t, int64(3), entries[0].Seq)
	assert.Equal(t, int64(1), entries[2].Seq)
}

func TestAppendFeedEntry_Validation(t *testing.T) {
	var (
		ctx  = context.Background()
		repo = newTestRepo(t)
	)

	_, err := repo.AppendFeedEntry(ctx, learningtool.FeedEntry{
		UserID: "", NotebookID: "nb", Kind: learningtool.KindChunk, ContentRef: "ref",
	})
	assert.ErrorIs(t, err, learningtool.ErrInvalidScope)

	scope := newTestScope(t, repo, "carol")
	_, err = repo.AppendFeedEntry(ctx, learningtool.FeedEntry{
		UserID: scope.UserID, NotebookID: scope.NotebookID, Kind: "bogus", ContentRef: "ref",
	})
	assert.Error(t, err)
}

func TestFeedEntries_CursorWindows(t *testing.T) {
	var (
		ctx   = context.Background()
		repo  = newTestRepo(t)
		scope = newTestScope(t, repo, "dave")
	)

	for i := 1; i <= 5; i++ {
		appendTestEntry(t, repo, scope, fmt.Sprintf("ref-%d", i))
	}

	// First page from the head
	page1, err := repo.FeedEntries(ctx, scope, 0, 2, "")
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, int64(5), page1[0].Seq)
	assert.Equal(t, int64(4), page1[1].Seq)

	// Second page picks up strictly below the cursor
	page2, err := repo.FeedEntries(ctx, scope, page1[1].Seq, 2, "")
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, int64(3), page2[0].Seq)
	assert.Equal(t, int64(2), page2[1].Seq)

	// Last page is short
	page3, err := repo.FeedEntries(ctx, scope, page2[1].Seq, 2, "")
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, int64(1), page3[0].Seq)
}

func TestFeedEntries_KindFilter(t *testing.T) {
	var (
		ctx   = context.Background()
		repo  = newTestRepo(t)
		scope = newTestScope(t, repo, "erin")
	)

	appendTestEntry(t, repo, scope, "ref-1")
	_, err := repo.AppendFeedEntry(ctx, learningtool.FeedEntry{
		UserID:     scope.UserID,
		NotebookID: scope.NotebookID,
		Kind:       learningtool.KindSummary,
		ContentRef: "ref-2",
	})
	require.NoError(t, err)

	entries, err := repo.FeedEntries(ctx, scope, 0, 10, learningtool.KindSummary)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, learningtool.KindSummary, entries[0].Kind)
}

func TestFeedEntry_ScopedLookup(t *testing.T) {
	var (
		ctx   = context.Background()
		repo  = newTestRepo(t)
		alice = newTestScope(t, repo, "alice")
		bob   = newTestScope(t, repo, "bob")
	)

	entry := appendTestEntry(t, repo, alice, "ref-1")

	got, err := repo.FeedEntry(ctx, alice, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, got.ID)

	// Another scope can't see it
	_, err = repo.FeedEntry(ctx, bob, entry.ID)
	assert.ErrorIs(t, err, learningtool.ErrNotFound)
}

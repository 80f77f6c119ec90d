package feed

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appleaa123/learningtool/internal/learningtool"
)

func newTestPaginator(index *fakeIndex, content *fakeContent) *Paginator {
	return NewPaginator(index, NewResolver(content, &fakeTopics{}))
}

func TestPage_WalkingTheFullFeed(t *testing.T) {
	var (
		ctx     = context.Background()
		content = newFakeContent()
		index   = &fakeIndex{}
		scope   = learningtool.Scope{UserID: "alice", NotebookID: "nb-1"}
	)
	seedEntries(index, content, scope, 25)
	p := newTestPaginator(index, content)

	// Walk page by page and collect every seq seen.
	var (
		seen   []int64
		cursor int64
		pages  int
	)
	for {
		page, err := p.Page(ctx, scope, PageArgs{Cursor: cursor, Limit: 10})
		require.NoError(t, err)
		for _, item := range page.Items {
			seen = append(seen, item.Entry.Seq)
		}
		pages++
		if page.NextCursor == nil {
			break
		}
		cursor = *page.NextCursor
	}

	// No dups, no gaps: exactly 25..1 in order.
	require.Len(t, seen, 25)
	for i, seq := range seen {
		assert.Equal(t, int64(25-i), seq)
	}
	assert.Equal(t, 3, pages)
}

func TestPage_NextCursorOnlyWhenFull(t *testing.T) {
	var (
		ctx     = context.Background()
		content = newFakeContent()
		index   = &fakeIndex{}
		scope   = learningtool.Scope{UserID: "alice", NotebookID: "nb-1"}
	)
	seedEntries(index, content, scope, 5)
	p := newTestPaginator(index, content)

	// A short page means the log is exhausted.
	page, err := p.Page(ctx, scope, PageArgs{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.Nil(t, page.NextCursor)

	// A full page hands back the last item's seq.
	page, err = p.Page(ctx, scope, PageArgs{Limit: 5})
	require.NoError(t, err)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, int64(1), *page.NextCursor)
}

func TestPage_LimitClamping(t *testing.T) {
	var (
		ctx     = context.Background()
		content = newFakeContent()
		index   = &fakeIndex{}
		scope   = learningtool.Scope{UserID: "alice", NotebookID: "nb-1"}
	)
	seedEntries(index, content, scope, 100)
	p := newTestPaginator(index, content)

	page, err := p.Page(ctx, scope, PageArgs{})
	require.NoError(t, err)
	assert.Len(t, page.Items, DefaultPageSize)

	page, err = p.Page(ctx, scope, PageArgs{Limit: 500})
	require.NoError(t, err)
	assert.Len(t, page.Items, 50)

	page, err = p.Page(ctx, scope, PageArgs{Limit: -3})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestPage_EmptyFeed(t *testing.T) {
	var (
		ctx   = context.Background()
		scope = learningtool.Scope{UserID: "alice", NotebookID: "nb-1"}
		p     = newTestPaginator(&fakeIndex{}, newFakeContent())
	)

	page, err := p.Page(ctx, scope, PageArgs{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.NextCursor)
}

func TestSearchPage_FiltersAndContinues(t *testing.T) {
	var (
		ctx     = context.Background()
		content = newFakeContent()
		index   = &fakeIndex{}
		scope   = learningtool.Scope{UserID: "alice", NotebookID: "nb-1"}
	)
	seedEntries(index, content, scope, 30)
	// Make every third entry mention mitochondria.
	for seq := 3; seq <= 30; seq += 3 {
		ref := content.chunks[chunkRef(seq)]
		ref.Content += " mitochondria"
		content.chunks[chunkRef(seq)] = ref
	}
	p := newTestPaginator(index, content)

	page, err := p.Page(ctx, scope, PageArgs{Limit: 5, Search: "MITOCHONDRIA"})
	require.NoError(t, err)
	require.Len(t, page.Items, 5)
	for _, item := range page.Items {
		assert.Zero(t, item.Entry.Seq%3)
	}

	// Continue from the returned cursor; no match shows up twice.
	require.NotNil(t, page.NextCursor)
	next, err := p.Page(ctx, scope, PageArgs{Cursor: *page.NextCursor, Limit: 5, Search: "mitochondria"})
	require.NoError(t, err)
	require.Len(t, next.Items, 5)
	assert.Less(t, next.Items[0].Entry.Seq, page.Items[4].Entry.Seq)
}

func TestSearchPage_NoMatches(t *testing.T) {
	var (
		ctx     = context.Background()
		content = newFakeContent()
		index   = &fakeIndex{}
		scope   = learningtool.Scope{UserID: "alice", NotebookID: "nb-1"}
	)
	seedEntries(index, content, scope, 10)
	p := newTestPaginator(index, content)

	page, err := p.Page(ctx, scope, PageArgs{Limit: 5, Search: "nothing like this"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.NextCursor)
}

func TestSearchPage_SkipsUnavailableContent(t *testing.T) {
	var (
		ctx     = context.Background()
		content = newFakeContent()
		index   = &fakeIndex{}
		scope   = learningtool.Scope{UserID: "alice", NotebookID: "nb-1"}
	)
	seedEntries(index, content, scope, 10)
	delete(content.chunks, chunkRef(5))
	p := newTestPaginator(index, content)

	page, err := p.Page(ctx, scope, PageArgs{Limit: 50, Search: "material"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 9)
}

func chunkRef(seq int) string {
	return fmt.Sprintf("chunk-%d", seq)
}

package feed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appleaa123/learningtool/internal/learningtool"
)

func TestResolve_MissingContentDegradesToUnavailable(t *testing.T) {
	var (
		ctx     = context.Background()
		content = newFakeContent()
		scope   = learningtool.Scope{UserID: "alice", NotebookID: "nb-1"}
		index   = &fakeIndex{}
	)
	seedEntries(index, content, scope, 20)
	// Entry 7 points at nothing.
	delete(content.chunks, "chunk-7")

	resolver := NewResolver(content, &fakeTopics{})

	entries, err := index.FeedEntries(ctx, scope, 0, 20, "")
	require.NoError(t, err)
	items := resolver.Resolve(ctx, entries, false)
	require.Len(t, items, 20)

	var unavailable int
	for _, item := range items {
		if item.Unavailable {
			unavailable++
			assert.Nil(t, item.Content)
			assert.Equal(t, "entry-7", item.Entry.ID)
			continue
		}
		require.NotNil(t, item.Content)
		assert.Equal(t, item.Entry.ContentRef, item.Content.Ref)
	}
	assert.Equal(t, 1, unavailable)

	// Input order preserved
	for i, item := range items {
		assert.Equal(t, entries[i].ID, item.Entry.ID)
	}
}

func TestResolve_StoreFailureOnlySinksItsOwnKind(t *testing.T) {
	var (
		ctx     = context.Background()
		content = newFakeContent()
		scope   = learningtool.Scope{UserID: "alice", NotebookID: "nb-1"}
	)

	content.chunks["chunk-1"] = learningtool.Chunk{ID: "chunk-1", Content: "some text"}
	content.transformed["tfrm-1"] = learningtool.TransformedItem{
		ID: "tfrm-1", Kind: learningtool.KindSummary, Content: "a summary",
	}
	content.failChunks = true

	entries := []learningtool.FeedEntry{
		{ID: "e1", UserID: scope.UserID, NotebookID: scope.NotebookID, Seq: 2, Kind: learningtool.KindChunk, ContentRef: "chunk-1"},
		{ID: "e2", UserID: scope.UserID, NotebookID: scope.NotebookID, Seq: 1, Kind: learningtool.KindSummary, ContentRef: "tfrm-1"},
	}

	items := NewResolver(content, &fakeTopics{}).Resolve(ctx, entries, false)
	require.Len(t, items, 2)
	assert.True(t, items[0].Unavailable)
	assert.False(t, items[1].Unavailable)
	require.NotNil(t, items[1].Content)
	assert.Equal(t, "a summary", items[1].Content.Transformed.Content)
}

func TestResolve_ResearchProvenance(t *testing.T) {
	var (
		ctx     = context.Background()
		content = newFakeContent()
		topics  = &fakeTopics{topics: map[string]learningtool.SuggestedTopic{
			"topic-1": {ID: "topic-1", Topic: "What is ATP?", Status: learningtool.TopicStatusResearched},
		}}
		scope = learningtool.Scope{UserID: "alice", NotebookID: "nb-1"}
	)

	content.research["rsrch-1"] = learningtool.ResearchSummary{
		ID: "rsrch-1", TopicID: "topic-1", Question: "What is ATP?", Answer: "Energy currency.",
	}
	content.research["rsrch-2"] = learningtool.ResearchSummary{
		ID: "rsrch-2", TopicID: "topic-gone", Question: "?", Answer: "!",
	}

	entries := []learningtool.FeedEntry{
		{ID: "e1", UserID: scope.UserID, NotebookID: scope.NotebookID, Seq: 2, Kind: learningtool.KindResearch, ContentRef: "rsrch-1"},
		{ID: "e2", UserID: scope.UserID, NotebookID: scope.NotebookID, Seq: 1, Kind: learningtool.KindResearch, ContentRef: "rsrch-2"},
	}

	items := NewResolver(content, topics).Resolve(ctx, entries, true)
	require.Len(t, items, 2)

	assert.Equal(t, SourceTopicResearch, items[0].Provenance.Source)
	require.NotNil(t, items[0].Provenance.OriginatingTopic)
	assert.Equal(t, "What is ATP?", items[0].Provenance.OriginatingTopic.Topic)

	// The join is best effort: a vanished topic leaves provenance bare.
	assert.Equal(t, SourceTopicResearch, items[1].Provenance.Source)
	assert.Nil(t, items[1].Provenance.OriginatingTopic)
}

func TestResolve_TopicJoinSkippedWhenNotRequested(t *testing.T) {
	var (
		ctx     = context.Background()
		content = newFakeContent()
		topics  = &fakeTopics{topics: map[string]learningtool.SuggestedTopic{
			"topic-1": {ID: "topic-1", Topic: "What is ATP?"},
		}}
	)

	content.research["rsrch-1"] = learningtool.ResearchSummary{ID: "rsrch-1", TopicID: "topic-1"}

	entries := []learningtool.FeedEntry{
		{ID: "e1", UserID: "alice", NotebookID: "nb-1", Seq: 1, Kind: learningtool.KindResearch, ContentRef: "rsrch-1"},
	}

	items := NewResolver(content, topics).Resolve(ctx, entries, false)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].Provenance.OriginatingTopic)
}

package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/appleaa123/learningtool/internal/learningtool"
)

// In-memory stand-ins for the sqlite layer.
type (
	fakeContent struct {
		chunks      map[string]learningtool.Chunk
		transformed map[string]learningtool.TransformedItem
		research    map[string]learningtool.ResearchSummary

		failChunks bool
	}

	fakeTopics struct {
		topics map[string]learningtool.SuggestedTopic
	}

	fakeIndex struct {
		// Held newest first, the order the real index returns.
		entries []learningtool.FeedEntry
	}
)

func newFakeContent() *fakeContent {
	return &fakeContent{
		chunks:      map[string]learningtool.Chunk{},
		transformed: map[string]learningtool.TransformedItem{},
		research:    map[string]learningtool.ResearchSummary{},
	}
}

func (f *fakeContent) Chunks(_ context.Context, refs []string) ([]learningtool.Chunk, error) {
	if f.failChunks {
		return nil, errors.New("chunk store down")
	}
	var out []learningtool.Chunk
	for _, ref := range refs {
		if c, ok := f.chunks[ref]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeContent) TransformedItems(_ context.Context, refs []string) ([]learningtool.TransformedItem, error) {
	var out []learningtool.TransformedItem
	for _, ref := range refs {
		if item, ok := f.transformed[ref]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeContent) ResearchSummaries(_ context.Context, refs []string) ([]learningtool.ResearchSummary, error) {
	var out []learningtool.ResearchSummary
	for _, ref := range refs {
		if s, ok := f.research[ref]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeTopics) TopicsByIDs(_ context.Context, ids []string) ([]learningtool.SuggestedTopic, error) {
	var out []learningtool.SuggestedTopic
	for _, id := range ids {
		if t, ok := f.topics[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeIndex) FeedEntries(_ context.Context, scope learningtool.Scope, cursor int64, limit int, kind learningtool.Kind) ([]learningtool.FeedEntry, error) {
	var out []learningtool.FeedEntry
	for _, e := range f.entries {
		if e.UserID != scope.UserID || e.NotebookID != scope.NotebookID {
			continue
		}
		if cursor > 0 && e.Seq >= cursor {
			continue
		}
		if kind != "" && e.Kind != kind {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Seeds n chunk-backed entries, seqs 1..n, newest first in the index.
func seedEntries(index *fakeIndex, content *fakeContent, scope learningtool.Scope, n int) {
	for seq := n; seq >= 1; seq-- {
		ref := fmt.Sprintf("chunk-%d", seq)
		content.chunks[ref] = learningtool.Chunk{
			ID:      ref,
			Content: fmt.Sprintf("material number %d", seq),
		}
		index.entries = append(index.entries, learningtool.FeedEntry{
			ID:         fmt.Sprintf("entry-%d", seq),
			UserID:     scope.UserID,
			NotebookID: scope.NotebookID,
			Seq:        int64(seq),
			Kind:       learningtool.KindChunk,
			ContentRef: ref,
		})
	}
}

package feed

import (
	"context"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/appleaa123/learningtool/internal/learningtool"
)

// Provenance says where a feed item came from.
type Provenance struct {
	Source           string
	OriginatingTopic *learningtool.SuggestedTopic
}

const (
	SourceUserUpload    = "user_upload"
	SourceTopicResearch = "topic_research"
)

// EnrichedItem is a feed entry joined with its content payload. Unavailable
// is set when the content_ref resolved to nothing; the entry still renders
// as a placeholder rather than sinking the page.
type EnrichedItem struct {
	Entry       learningtool.FeedEntry
	Content     *learningtool.Artifact
	Unavailable bool
	Provenance  Provenance
}

// ContentSource is the slice of the content store the resolver reads.
type ContentSource interface {
	Chunks(ctx context.Context, refs []string) ([]learningtool.Chunk, error)
	TransformedItems(ctx context.Context, refs []string) ([]learningtool.TransformedItem, error)
	ResearchSummaries(ctx context.Context, refs []string) ([]learningtool.ResearchSummary, error)
}

// TopicSource looks up the topics that research entries originated from.
type TopicSource interface {
	TopicsByIDs(ctx context.Context, ids []string) ([]learningtool.SuggestedTopic, error)
}

// Resolver batch-resolves pages of feed entries into display payloads.
type Resolver struct {
	content ContentSource
	topics  TopicSource

	// Artifacts are immutable once written, so cache hits never go stale.
	cache *lru.Cache[string, learningtool.Artifact]
}

func NewResolver(content ContentSource, topics TopicSource) *Resolver {
	cache, _ := lru.New[string, learningtool.Artifact](1024)
	return &Resolver{
		content: content,
		topics:  topics,
		cache:   cache,
	}
}

// Resolve returns one item per entry, in the input order. A lookup miss or
// a failed batch degrades the affected items to Unavailable; it never fails
// the rest of the page.
func (r *Resolver) Resolve(ctx context.Context, entries []learningtool.FeedEntry, includeTopic bool) []EnrichedItem {
	artifacts := make(map[string]learningtool.Artifact, len(entries))

	// Partition the cache misses by the store they live in.
	var chunkRefs, transformedRefs, researchRefs []string
	for _, entry := range entries {
		if artifact, ok := r.cache.Get(entry.ContentRef); ok {
			artifacts[entry.ContentRef] = artifact
			continue
		}
		switch entry.Kind {
		case learningtool.KindChunk:
			chunkRefs = append(chunkRefs, entry.ContentRef)
		case learningtool.KindSummary, learningtool.KindQA, learningtool.KindFlashcard:
			transformedRefs = append(transformedRefs, entry.ContentRef)
		case learningtool.KindResearch:
			researchRefs = append(researchRefs, entry.ContentRef)
		}
	}

	// The per-store lookups are independent, so issue them concurrently and
	// merge afterwards. Failures are logged and swallowed: the affected
	// entries just come back unavailable.
	var (
		chunks      []learningtool.Chunk
		transformed []learningtool.TransformedItem
		research    []learningtool.ResearchSummary
	)
	g, gCtx := errgroup.WithContext(ctx)
	if len(chunkRefs) > 0 {
		g.Go(func() error {
			var err error
			if chunks, err = r.content.Chunks(gCtx, chunkRefs); err != nil {
				slog.Error("error resolving chunks", "error", err)
			}
			return nil
		})
	}
	if len(transformedRefs) > 0 {
		g.Go(func() error {
			var err error
			if transformed, err = r.content.TransformedItems(gCtx, transformedRefs); err != nil {
				slog.Error("error resolving transformed items", "error", err)
			}
			return nil
		})
	}
	if len(researchRefs) > 0 {
		g.Go(func() error {
			var err error
			if research, err = r.content.ResearchSummaries(gCtx, researchRefs); err != nil {
				slog.Error("error resolving research summaries", "error", err)
			}
			return nil
		})
	}
	g.Wait()

	for _, chunk := range chunks {
		artifacts[chunk.ID] = learningtool.Artifact{Ref: chunk.ID, Kind: learningtool.KindChunk, Chunk: &chunk}
	}
	for _, item := range transformed {
		artifacts[item.ID] = learningtool.Artifact{Ref: item.ID, Kind: item.Kind, Transformed: &item}
	}
	for _, summary := range research {
		artifacts[summary.ID] = learningtool.Artifact{Ref: summary.ID, Kind: learningtool.KindResearch, Research: &summary}
	}
	for ref, artifact := range artifacts {
		r.cache.Add(ref, artifact)
	}

	topicsByID := r.originatingTopics(ctx, entries, artifacts, includeTopic)

	items := make([]EnrichedItem, 0, len(entries))
	for _, entry := range entries {
		item := EnrichedItem{
			Entry:      entry,
			Provenance: Provenance{Source: SourceUserUpload},
		}
		if entry.Kind == learningtool.KindResearch {
			item.Provenance.Source = SourceTopicResearch
		}

		artifact, ok := artifacts[entry.ContentRef]
		if !ok {
			item.Unavailable = true
			items = append(items, item)
			continue
		}
		item.Content = &artifact

		if artifact.Research != nil {
			if topic, ok := topicsByID[artifact.Research.TopicID]; ok {
				item.Provenance.OriginatingTopic = &topic
			}
		}

		items = append(items, item)
	}

	return items
}

// originatingTopics joins research artifacts back to their suggested topic.
// Best effort: a miss or a failed lookup just leaves the topic off.
func (r *Resolver) originatingTopics(ctx context.Context, entries []learningtool.FeedEntry, artifacts map[string]learningtool.Artifact, includeTopic bool) map[string]learningtool.SuggestedTopic {
	byID := map[string]learningtool.SuggestedTopic{}
	if !includeTopic {
		return byID
	}

	var topicIDs []string
	for _, entry := range entries {
		if artifact, ok := artifacts[entry.ContentRef]; ok && artifact.Research != nil && artifact.Research.TopicID != "" {
			topicIDs = append(topicIDs, artifact.Research.TopicID)
		}
	}
	if len(topicIDs) == 0 {
		return byID
	}

	topics, err := r.topics.TopicsByIDs(ctx, topicIDs)
	if err != nil {
		slog.Error("error resolving originating topics", "error", err)
		return byID
	}
	for _, topic := range topics {
		byID[topic.ID] = topic
	}

	return byID
}

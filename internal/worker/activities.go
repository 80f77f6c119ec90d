package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"go.temporal.io/sdk/activity"

	"github.com/appleaa123/learningtool/internal/learningtool"
)

type activities struct {
	repo         learningtool.Repository
	claudeClient *anthropic.Client
}

// PersistTopics stores validated candidates as pending suggestions.
func (a activities) PersistTopics(ctx context.Context, in GenerateTopicsInput, candidates []TopicCandidate) error {
	topics := make([]learningtool.SuggestedTopic, 0, len(candidates))
	for _, c := range candidates {
		topics = append(topics, learningtool.SuggestedTopic{
			UserID:        in.UserID,
			NotebookID:    in.NotebookID,
			ContentRef:    in.ChunkRef,
			Topic:         c.Topic,
			Context:       c.Context,
			PriorityScore: c.PriorityScore,
			Status:        learningtool.TopicStatusPending,
		})
	}

	if _, err := a.repo.InsertTopics(ctx, topics); err != nil {
		return fmt.Errorf("error inserting topics: %s", err)
	}
	activity.GetLogger(ctx).Info("persisted topic suggestions", "count", len(topics), "chunk", in.ChunkRef)

	return nil
}

// MarkTopicFailed records the terminal failed state for a topic whose
// research run didn't make it.
func (a activities) MarkTopicFailed(ctx context.Context, topicID string) error {
	return a.repo.MarkTopicFailed(ctx, topicID)
}

// PersistTransforms writes the derived artifacts and appends each to the
// feed. Persisting an artifact and appending its entry happen back to back
// in the same call, keeping artifact existence and feed visibility in sync.
func (a activities) PersistTransforms(ctx context.Context, in TransformInput, out TransformOutput) error {
	if out.Summary.Text != "" {
		meta, _ := json.Marshal(map[string]any{"key_points": out.Summary.KeyPoints})
		if err := a.persistTransformed(ctx, in, learningtool.KindSummary, out.Summary.Text, meta); err != nil {
			return err
		}
	}

	if len(out.QA) > 0 {
		var content string
		for _, pair := range out.QA {
			content += fmt.Sprintf("Q: %s\nA: %s\n\n", pair.Question, pair.Answer)
		}
		meta, _ := json.Marshal(map[string]any{"qa_pairs": out.QA})
		if err := a.persistTransformed(ctx, in, learningtool.KindQA, content, meta); err != nil {
			return err
		}
	}

	for _, card := range out.Flashcards {
		meta, _ := json.Marshal(map[string]any{"front": card.Front, "back": card.Back})
		content := fmt.Sprintf("%s\n---\n%s", card.Front, card.Back)
		if err := a.persistTransformed(ctx, in, learningtool.KindFlashcard, content, meta); err != nil {
			return err
		}
	}

	return nil
}

func (a activities) persistTransformed(ctx context.Context, in TransformInput, kind learningtool.Kind, content string, metadata json.RawMessage) error {
	item, err := a.repo.InsertTransformedItem(ctx, learningtool.TransformedItem{
		NotebookID: in.NotebookID,
		ChunkID:    in.ChunkRef,
		Kind:       kind,
		Content:    content,
		Metadata:   metadata,
	})
	if err != nil {
		return fmt.Errorf("error inserting %s item: %s", kind, err)
	}

	if _, err := a.repo.AppendFeedEntry(ctx, learningtool.FeedEntry{
		UserID:     in.UserID,
		NotebookID: in.NotebookID,
		Kind:       kind,
		ContentRef: item.ID,
	}); err != nil {
		return fmt.Errorf("error appending %s to feed: %s", kind, err)
	}

	return nil
}

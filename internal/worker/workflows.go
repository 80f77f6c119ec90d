package worker

import (
	"log/slog"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

type workflows struct{}

// Instance to make the workflows a bit more readable
var acts = activities{}

type (
	GenerateTopicsInput struct {
		UserID     string
		NotebookID string
		ChunkRef   string
		// MaxTopics caps how many candidates get persisted; it is further
		// bounded by the notebook's preferences and a hard limit of 10.
		MaxTopics int
	}

	TransformInput struct {
		UserID     string
		NotebookID string
		ChunkRef   string
	}
)

// GenerateTopics derives research topic candidates from a freshly ingested
// chunk and persists them as pending suggestions. Runs detached from the
// ingestion request that scheduled it; its failures are its own.
func (workflows) GenerateTopics(ctx workflow.Context, in GenerateTopicsInput) error {
	options := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)

	var candidates []TopicCandidate
	if err := workflow.ExecuteActivity(ctx, acts.SuggestTopics, in).Get(ctx, &candidates); err != nil {
		slog.Error("failed to generate topic candidates", "chunk", in.ChunkRef, "error", err)
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	if err := workflow.ExecuteActivity(ctx, acts.PersistTopics, in, candidates).Get(ctx, nil); err != nil {
		slog.Error("failed to persist topic candidates", "chunk", in.ChunkRef, "error", err)
		return err
	}

	return nil
}

// ResearchTopic runs the research collaborator for an accepted topic. The
// research activity gets exactly one attempt with a hard timeout; any
// failure, timeout included, lands the topic in the terminal failed state.
// A fresh run only ever happens on an explicit user re-trigger.
func (workflows) ResearchTopic(ctx workflow.Context, topicID string) error {
	researchOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 4 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}

	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, researchOpts), acts.RunResearch, topicID).Get(ctx, nil)
	if err == nil {
		return nil
	}
	slog.Error("research failed", "topic_id", topicID, "error", err)

	// Recording the failure is just a row update, so it gets retries.
	markOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	}
	if markErr := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, markOpts), acts.MarkTopicFailed, topicID).Get(ctx, nil); markErr != nil {
		slog.Error("failed to mark topic failed", "topic_id", topicID, "error", markErr)
		return markErr
	}

	return err
}

// TransformChunk derives the summary, Q&A and flashcard artifacts for a
// chunk and appends them to the owning scope's feed.
func (workflows) TransformChunk(ctx workflow.Context, in TransformInput) error {
	options := workflow.ActivityOptions{
		StartToCloseTimeout: 90 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, options)

	var out TransformOutput
	if err := workflow.ExecuteActivity(ctx, acts.GenerateTransforms, in).Get(ctx, &out); err != nil {
		slog.Error("failed to generate transforms", "chunk", in.ChunkRef, "error", err)
		return err
	}

	if err := workflow.ExecuteActivity(ctx, acts.PersistTransforms, in, out).Get(ctx, nil); err != nil {
		slog.Error("failed to persist transforms", "chunk", in.ChunkRef, "error", err)
		return err
	}

	return nil
}

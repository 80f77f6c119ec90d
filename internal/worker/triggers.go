package worker

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/appleaa123/learningtool/internal/learningtool"
)

// Triggers starts the background workflows fire-and-forget: callers learn
// whether scheduling worked, never how the run went. Outcomes are observable
// only through the state the workflows write back.
type Triggers struct {
	cli client.Client
}

func NewTriggers(cli client.Client) Triggers {
	return Triggers{cli: cli}
}

func (t Triggers) GenerateTopics(ctx context.Context, scope learningtool.Scope, chunkRef string) error {
	options := client.StartWorkflowOptions{
		TaskQueue: TaskQueue,
	}
	_, err := t.cli.ExecuteWorkflow(ctx, options, workflows{}.GenerateTopics, GenerateTopicsInput{
		UserID:     scope.UserID,
		NotebookID: scope.NotebookID,
		ChunkRef:   chunkRef,
	})
	if err != nil {
		return fmt.Errorf("unable to start topic generation: %s", err)
	}

	return nil
}

func (t Triggers) TransformChunk(ctx context.Context, scope learningtool.Scope, chunkRef string) error {
	options := client.StartWorkflowOptions{
		TaskQueue: TaskQueue,
	}
	_, err := t.cli.ExecuteWorkflow(ctx, options, workflows{}.TransformChunk, TransformInput{
		UserID:     scope.UserID,
		NotebookID: scope.NotebookID,
		ChunkRef:   chunkRef,
	})
	if err != nil {
		return fmt.Errorf("unable to start chunk transforms: %s", err)
	}

	return nil
}

func (t Triggers) ResearchTopic(ctx context.Context, topicID string) error {
	options := client.StartWorkflowOptions{
		TaskQueue: TaskQueue,
		// One research run per topic at a time; a duplicate accept while a
		// run is in flight must not spawn a second one.
		ID: "research-" + topicID,
	}
	_, err := t.cli.ExecuteWorkflow(ctx, options, workflows{}.ResearchTopic, topicID)
	if err != nil {
		return fmt.Errorf("unable to start topic research: %s", err)
	}

	return nil
}

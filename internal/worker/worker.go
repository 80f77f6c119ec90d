package worker

import (
	"github.com/anthropics/anthropic-sdk-go"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/appleaa123/learningtool/internal/learningtool"
)

const TaskQueue = "learningtool"

// NewWorker sets up the worker with registration of workflows and activities.
func NewWorker(repo learningtool.Repository, cli client.Client, claudeClient *anthropic.Client) worker.Worker {
	a := activities{
		repo:         repo,
		claudeClient: claudeClient,
	}

	w := worker.New(cli, TaskQueue, worker.Options{})

	wfs := workflows{}
	w.RegisterWorkflow(wfs.GenerateTopics)
	w.RegisterWorkflow(wfs.ResearchTopic)
	w.RegisterWorkflow(wfs.TransformChunk)

	w.RegisterActivity(&a)

	return w
}

// Error types
//
// These are error types in the temporal sense, not the general "go" error
// types sense. They are used since between activities error types are
// marshaled and type information is lost.
const (
	errTypeInternal  = "internal"
	errTypeRateLimit = "rateLimit"
)

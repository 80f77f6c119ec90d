// Learningtool-worker runs the background enrichment pipeline: topic
// suggestion, chunk transforms, and topic research.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/jmoiron/sqlx"
	"github.com/oklog/run"
	"github.com/sethvargo/go-envconfig"
	"github.com/sethvargo/go-retry"
	"go.temporal.io/sdk/client"
	_ "golang.org/x/crypto/x509roots/fallback"
	_ "modernc.org/sqlite"

	"github.com/appleaa123/learningtool/internal/logger"
	ltsqlite "github.com/appleaa123/learningtool/internal/sqlite"
	"github.com/appleaa123/learningtool/internal/worker"
)

type config struct {
	Database         string `env:"DATABASE, required"`
	TemporalHostPort string `env:"TEMPORAL_HOST_PORT, required"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	l := slog.New(logger.NewContextHandler(slog.NewTextHandler(os.Stdout, nil)))
	slog.SetDefault(l)

	// Connect to the sqlite db
	dbx, err := sqlx.Open("sqlite", cfg.Database)
	if err != nil {
		log.Fatalf("error opening database: %s", err)
	}
	defer dbx.Close()

	repo := ltsqlite.New(dbx)

	// Retry until temporal is ready
	var temporalCli client.Client
	if err := retry.Fibonacci(ctx, 1*time.Second, func(ctx context.Context) error {
		c, err := client.Dial(client.Options{
			HostPort: cfg.TemporalHostPort,
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		temporalCli = c

		return nil
	}); err != nil {
		log.Fatalln("Unable to create Temporal client:", err)
	}
	defer temporalCli.Close()

	if err := worker.EnsureDefaultNamespace(ctx, temporalCli.WorkflowService()); err != nil {
		log.Fatalf("error ensuring namespace: %s", err)
	}

	// Reads ANTHROPIC_API_KEY from the environment
	claude := anthropic.NewClient()

	w := worker.NewWorker(repo, temporalCli, &claude)

	var g run.Group
	g.Add(run.SignalHandler(ctx, os.Interrupt))

	stopCh := make(chan interface{})
	g.Add(func() error {
		return w.Run(stopCh)
	}, func(error) {
		close(stopCh)
	})

	if err := g.Run(); err != nil {
		slog.Info("worker stopped", "reason", err)
	}
}

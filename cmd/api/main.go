// Learningtool-api is the HTTP surface of the knowledge feed.
//
// It serves the paginated feed, accepts new material for ingestion, and
// lets users steer the topic suggestion pipeline. Background enrichment
// runs in the companion worker binary.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sethvargo/go-envconfig"
	"github.com/sethvargo/go-retry"
	"go.temporal.io/sdk/client"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/appleaa123/learningtool/internal/api"
	"github.com/appleaa123/learningtool/internal/database"
	"github.com/appleaa123/learningtool/internal/feed"
	"github.com/appleaa123/learningtool/internal/ingest"
	"github.com/appleaa123/learningtool/internal/logger"
	"github.com/appleaa123/learningtool/internal/migrations"
	ltsqlite "github.com/appleaa123/learningtool/internal/sqlite"
	"github.com/appleaa123/learningtool/internal/worker"
)

type config struct {
	Database         string `env:"DATABASE, required"`
	TemporalHostPort string `env:"TEMPORAL_HOST_PORT, required"`

	Port           int    `env:"PORT, default=4444"`
	HTTPSCookies   bool   `env:"HTTPS_COOKIES, default=false"`
	CookieHashKey  string `env:"COOKIE_HASH_KEY, required"`
	CookieBlockKey string `env:"COOKIE_BLOCK_KEY, required"`
	CorsOrigin     string `env:"CORS_ORIGIN, default=http://localhost:3000"`

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	// Determine which logger format to use
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, nil)
	if cfg.LoggerFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	}
	l := slog.New(logger.NewContextHandler(handler))
	slog.SetDefault(l)

	if err := run(ctx, cfg); err != nil {
		slog.Error("error running", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	// Connect to the sqlite db
	dbx, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_txlock=immediate&_journal_mode=WAL&_busy_timeout=5000", cfg.Database))
	if err != nil {
		return fmt.Errorf("error opening database: %s", err)
	}
	defer dbx.Close()

	// Run all migrations
	if err := database.RunMigrations(dbx, migrations.Migrations, "."); err != nil {
		return fmt.Errorf("error running migrations: %s", err)
	}

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
		return fmt.Errorf("unable to create temporal client: %s", err)
	}
	defer temporalCli.Close()

	triggers := worker.NewTriggers(temporalCli)
	resolver := feed.NewResolver(repo, repo)
	paginator := feed.NewPaginator(repo, resolver)
	ingestor := ingest.New(repo, triggers)

	s := api.NewServer(api.ServerConfig{
		Port:           cfg.Port,
		CookieHashKey:  []byte(cfg.CookieHashKey),
		CookieBlockKey: []byte(cfg.CookieBlockKey),
		HttpsCookies:   cfg.HTTPSCookies,
		CorsHeader:     cfg.CorsOrigin,
	}, repo, ingestor, paginator, resolver, triggers)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("listening", "port", cfg.Port)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error listening: %s", err)
		}

		return nil
	})
	g.Go(func() error {
		// Block from shutting down until the group is canceled
		<-gCtx.Done()

		downCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(downCtx); err != nil {
			slog.Error("error shutting down server", "error", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("error running: %s", err)
	}

	return nil
}

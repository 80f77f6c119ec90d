// Package ingest is the boundary where content enters the knowledge base.
//
// Persisting an artifact and appending it to the feed happen synchronously
// inside the same call, so an artifact is never observable without its feed
// entry. Background enrichment (transforms, topic suggestions) is scheduled
// fire-and-forget afterwards and can never fail an ingestion.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sym01/htmlsanitizer"

	"github.com/appleaa123/learningtool/internal/learningtool"
)

const (
	// Chunks are capped so a single upload doesn't become one giant card.
	maxChunkLen = 2000

	maxTextLen = 200_000
)

const (
	SourceTypeText = "text"
	SourceTypeURL  = "url"
)

// Tasks schedules the background enrichment that follows an ingestion.
type Tasks interface {
	GenerateTopics(ctx context.Context, scope learningtool.Scope, chunkRef string) error
	TransformChunk(ctx context.Context, scope learningtool.Scope, chunkRef string) error
}

// Store is the slice of the repository the ingestor writes through.
type Store interface {
	InsertChunk(ctx context.Context, chunk learningtool.Chunk) (learningtool.Chunk, error)
	AppendFeedEntry(ctx context.Context, entry learningtool.FeedEntry) (learningtool.FeedEntry, error)
}

type Ingestor struct {
	store Store
	tasks Tasks

	fetchClient *http.Client
}

func New(store Store, tasks Tasks) *Ingestor {
	return &Ingestor{
		store: store,
		tasks: tasks,
		fetchClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Result reports what an ingestion produced. TopicsGenerating means the
// suggestion job was scheduled; the topics themselves show up later via the
// topics endpoint.
type Result struct {
	IDs              []string
	Inserted         int
	TopicsGenerating bool
}

// IngestText normalizes, chunks and persists raw text, appending each chunk
// to the caller's feed before returning.
func (ing *Ingestor) IngestText(ctx context.Context, scope learningtool.Scope, title, text string) (Result, error) {
	if err := scope.Validate(); err != nil {
		return Result{}, err
	}

	text = sanitize(text)
	if text == "" {
		return Result{}, fmt.Errorf("no text content after sanitizing")
	}

	var titlePtr *string
	if title != "" {
		titlePtr = &title
	}

	return ing.ingestChunks(ctx, scope, splitChunks(text), learningtool.Chunk{
		NotebookID: scope.NotebookID,
		SourceType: SourceTypeText,
		Title:      titlePtr,
	})
}

// IngestURL fetches a page, strips it down to readable text, and ingests it
// like pasted text with the page recorded as the source.
func (ing *Ingestor) IngestURL(ctx context.Context, scope learningtool.Scope, rawURL string) (Result, error) {
	if err := scope.Validate(); err != nil {
		return Result{}, err
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Result{}, fmt.Errorf("invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("error building fetch request: %s", err)
	}
	resp, err := ing.fetchClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("error fetching url: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("unexpected status code fetching url: %d", resp.StatusCode)
	}

	// Strip it for readability and sanitize
	parser := readability.NewParser()
	article, err := parser.Parse(resp.Body, u)
	if err != nil {
		return Result{}, fmt.Errorf("error extracting readable content: %s", err)
	}

	sanitizer := htmlsanitizer.NewHTMLSanitizer()
	contents, err := sanitizer.SanitizeString(article.Content)
	if err != nil {
		return Result{}, fmt.Errorf("error sanitizing content: %s", err)
	}

	text := sanitize(contents)
	if text == "" {
		return Result{}, fmt.Errorf("no readable content at %s", u)
	}

	var titlePtr *string
	if article.Title != "" {
		title := article.Title
		titlePtr = &title
	}
	uri := u.String()

	return ing.ingestChunks(ctx, scope, splitChunks(text), learningtool.Chunk{
		NotebookID: scope.NotebookID,
		SourceType: SourceTypeURL,
		SourceURI:  &uri,
		Title:      titlePtr,
	})
}

// ingestChunks persists each chunk and appends its feed entry in the same
// pass; an append failure is fatal to the whole ingestion since feed
// visibility is part of the contract. Enrichment scheduling afterwards is
// best-effort only.
func (ing *Ingestor) ingestChunks(ctx context.Context, scope learningtool.Scope, texts []string, template learningtool.Chunk) (Result, error) {
	res := Result{IDs: make([]string, 0, len(texts))}

	for _, text := range texts {
		chunk := template
		chunk.Content = text

		chunk, err := ing.store.InsertChunk(ctx, chunk)
		if err != nil {
			return Result{}, fmt.Errorf("error persisting chunk: %w", err)
		}
		if _, err := ing.store.AppendFeedEntry(ctx, learningtool.FeedEntry{
			UserID:     scope.UserID,
			NotebookID: scope.NotebookID,
			Kind:       learningtool.KindChunk,
			ContentRef: chunk.ID,
		}); err != nil {
			return Result{}, fmt.Errorf("error appending chunk to feed: %w", err)
		}

		res.IDs = append(res.IDs, chunk.ID)
		res.Inserted++
	}

	for _, ref := range res.IDs {
		if err := ing.tasks.TransformChunk(ctx, scope, ref); err != nil {
			slog.Error("error scheduling transforms", "chunk", ref, "error", err)
		}
	}

	// One suggestion pass per upload is plenty; the first chunk carries the
	// lead content.
	if len(res.IDs) > 0 {
		if err := ing.tasks.GenerateTopics(ctx, scope, res.IDs[0]); err != nil {
			slog.Error("error scheduling topic generation", "chunk", res.IDs[0], "error", err)
		} else {
			res.TopicsGenerating = true
		}
	}

	return res, nil
}

var stripPolicy = bluemonday.StrictPolicy()

// Removes all html tags and normalizes whitespace. Limits total length so a
// runaway paste doesn't blow up storage.
func sanitize(s string) string {
	s = stripPolicy.Sanitize(s)
	s = strings.TrimSpace(s)
	if len(s) > maxTextLen {
		s = s[:maxTextLen]
	}

	return s
}

// splitChunks breaks text on paragraph boundaries, packing paragraphs
// together up to maxChunkLen and hard-splitting any single paragraph that
// exceeds it.
func splitChunks(text string) []string {
	var (
		chunks  []string
		current strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		// Hard-split oversized paragraphs.
		for len(para) > maxChunkLen {
			flush()
			chunks = append(chunks, strings.TrimSpace(para[:maxChunkLen]))
			para = strings.TrimSpace(para[maxChunkLen:])
		}
		if para == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+len(para)+2 > maxChunkLen {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return chunks
}

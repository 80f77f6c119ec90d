package learningtool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrConflict = errors.New("resource already exists")
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidScope means the caller's (user, notebook) identity is malformed.
	ErrInvalidScope = errors.New("invalid scope")
	// ErrContentMissing means a feed entry's content_ref points at nothing.
	ErrContentMissing = errors.New("content missing")
	// ErrInvalidTransition means a topic was asked to leave a state it can't leave.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Kind discriminates the payload behind a feed entry's content_ref.
type Kind string

const (
	KindChunk     Kind = "chunk"
	KindSummary   Kind = "summary"
	KindQA        Kind = "qa"
	KindFlashcard Kind = "flashcard"
	KindResearch  Kind = "research"
)

func (k Kind) Valid() bool {
	switch k {
	case KindChunk, KindSummary, KindQA, KindFlashcard, KindResearch:
		return true
	}
	return false
}

// Scope is the (user, notebook) partition that feed entries and topics
// are isolated under. A request that omits the notebook gets the user's
// default notebook resolved before a Scope is built.
type Scope struct {
	UserID     string
	NotebookID string
}

const maxScopeIDLen = 128

func (s Scope) Validate() error {
	if s.UserID == "" || len(s.UserID) > maxScopeIDLen || strings.TrimSpace(s.UserID) != s.UserID {
		return ErrInvalidScope
	}
	if s.NotebookID == "" || len(s.NotebookID) > maxScopeIDLen {
		return ErrInvalidScope
	}
	return nil
}

type (
	// Notebook is a named partition of a user's knowledge base.
	Notebook struct {
		ID        string    `db:"id"`
		UserID    string    `db:"user_id"`
		Name      string    `db:"name"`
		CreatedAt time.Time `db:"created_at"`
	}

	// FeedEntry is one immutable position in a scope's timeline. Ordering
	// within a scope is governed by Seq alone; CreatedAt is display-only.
	FeedEntry struct {
		ID         string    `db:"id"`
		UserID     string    `db:"user_id"`
		NotebookID string    `db:"notebook_id"`
		Seq        int64     `db:"seq"`
		Kind       Kind      `db:"kind"`
		ContentRef string    `db:"content_ref"`
		CreatedAt  time.Time `db:"created_at"`
	}

	// Chunk is a normalized unit of ingested text.
	Chunk struct {
		ID         string    `db:"id"`
		NotebookID string    `db:"notebook_id"`
		SourceType string    `db:"source_type"`
		SourceURI  *string   `db:"source_uri"`
		Title      *string   `db:"title"`
		Content    string    `db:"content"`
		CreatedAt  time.Time `db:"created_at"`
	}

	// TransformedItem is an LLM-derived artifact (summary, qa, flashcard)
	// built from a chunk.
	TransformedItem struct {
		ID         string          `db:"id"`
		NotebookID string          `db:"notebook_id"`
		ChunkID    string          `db:"chunk_id"`
		Kind       Kind            `db:"kind"`
		Content    string          `db:"content"`
		Metadata   json.RawMessage `db:"metadata"`
		CreatedAt  time.Time       `db:"created_at"`
	}

	// ResearchSummary is the output of a completed topic research run.
	ResearchSummary struct {
		ID         string          `db:"id"`
		NotebookID string          `db:"notebook_id"`
		TopicID    string          `db:"topic_id"`
		Question   string          `db:"question"`
		Answer     string          `db:"answer"`
		Sources    json.RawMessage `db:"sources"`
		CreatedAt  time.Time       `db:"created_at"`
	}

	// SuggestedTopic is a research candidate derived from ingested content.
	//
	// Invariants: DecidedAt is set iff the topic has reached accepted or
	// rejected; ResearchedAt is set iff it has reached researched or failed.
	SuggestedTopic struct {
		ID            string      `db:"id"`
		UserID        string      `db:"user_id"`
		NotebookID    string      `db:"notebook_id"`
		ContentRef    string      `db:"content_ref"`
		Topic         string      `db:"topic"`
		Context       string      `db:"context"`
		PriorityScore float64     `db:"priority_score"`
		Status        TopicStatus `db:"status"`
		ResearchRef   *string     `db:"research_ref"`
		CreatedAt     time.Time   `db:"created_at"`
		DecidedAt     *time.Time  `db:"decided_at"`
		ResearchedAt  *time.Time  `db:"researched_at"`
	}

	// TopicPreferences tune the suggestion pipeline per notebook.
	TopicPreferences struct {
		ID                 string    `db:"id"`
		NotebookID         string    `db:"notebook_id"`
		AutoSuggestEnabled bool      `db:"auto_suggest_enabled"`
		SuggestionCount    int       `db:"suggestion_count"`
		MinPriorityScore   float64   `db:"min_priority_score"`
		CreatedAt          time.Time `db:"created_at"`
		UpdatedAt          time.Time `db:"updated_at"`
	}
)

// Artifact is the tagged variant behind a content_ref. Exactly one of the
// payload pointers is set, matching Kind.
type Artifact struct {
	Ref         string
	Kind        Kind
	Chunk       *Chunk
	Transformed *TransformedItem
	Research    *ResearchSummary
}

// SearchText is the text a feed search term is matched against.
func (a Artifact) SearchText() string {
	switch {
	case a.Chunk != nil:
		var title string
		if a.Chunk.Title != nil {
			title = *a.Chunk.Title
		}
		return title + "\n" + a.Chunk.Content
	case a.Transformed != nil:
		return a.Transformed.Content
	case a.Research != nil:
		return a.Research.Question + "\n" + a.Research.Answer
	}
	return ""
}

type TopicStatus string

const (
	TopicStatusPending    TopicStatus = "pending"
	TopicStatusAccepted   TopicStatus = "accepted"
	TopicStatusRejected   TopicStatus = "rejected"
	TopicStatusResearched TopicStatus = "researched"
	TopicStatusFailed     TopicStatus = "failed"
)

func (s TopicStatus) Valid() bool {
	switch s {
	case TopicStatusPending, TopicStatusAccepted, TopicStatusRejected, TopicStatusResearched, TopicStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s TopicStatus) Terminal() bool {
	switch s {
	case TopicStatusRejected, TopicStatusResearched, TopicStatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to the target is allowed:
// pending -> {accepted, rejected}; accepted -> {researched, failed}.
func (s TopicStatus) CanTransition(to TopicStatus) bool {
	switch s {
	case TopicStatusPending:
		return to == TopicStatusAccepted || to == TopicStatusRejected
	case TopicStatusAccepted:
		return to == TopicStatusResearched || to == TopicStatusFailed
	}
	return false
}

type (
	// FeedIndex is the append-only, scope-partitioned timeline.
	FeedIndex interface {
		// AppendFeedEntry assigns the entry's ID and the next Seq for its
		// scope, then makes it visible to subsequent reads.
		AppendFeedEntry(ctx context.Context, entry FeedEntry) (FeedEntry, error)
		// FeedEntries returns up to limit entries with Seq below cursor,
		// newest first. A cursor <= 0 reads from the head of the log. An
		// empty kind means no kind filter.
		FeedEntries(ctx context.Context, scope Scope, cursor int64, limit int, kind Kind) ([]FeedEntry, error)
		// FeedEntry fetches a single entry, scoped to the caller.
		FeedEntry(ctx context.Context, scope Scope, id string) (FeedEntry, error)
	}

	// ContentStore persists and batch-resolves content artifacts.
	ContentStore interface {
		InsertChunk(ctx context.Context, chunk Chunk) (Chunk, error)
		Chunks(ctx context.Context, refs []string) ([]Chunk, error)
		InsertTransformedItem(ctx context.Context, item TransformedItem) (TransformedItem, error)
		TransformedItems(ctx context.Context, refs []string) ([]TransformedItem, error)
		InsertResearchSummary(ctx context.Context, summary ResearchSummary) (ResearchSummary, error)
		ResearchSummaries(ctx context.Context, refs []string) ([]ResearchSummary, error)
	}

	TopicsArgs struct {
		Status TopicStatus
		Limit  int
	}

	UpdatePreferencesArgs struct {
		AutoSuggestEnabled *bool
		SuggestionCount    *int
		MinPriorityScore   *float64
	}

	// TopicStore persists suggested topics and drives their status machine.
	TopicStore interface {
		InsertTopics(ctx context.Context, topics []SuggestedTopic) ([]SuggestedTopic, error)
		Topics(ctx context.Context, scope Scope, args TopicsArgs) ([]SuggestedTopic, error)
		Topic(ctx context.Context, id string) (SuggestedTopic, error)
		TopicsByIDs(ctx context.Context, ids []string) ([]SuggestedTopic, error)
		// DecideTopic moves a pending topic to accepted or rejected. The
		// bool reports whether a transition actually happened: re-applying
		// a decision the topic already holds is a no-op returning the
		// current row. Any other move returns ErrInvalidTransition.
		DecideTopic(ctx context.Context, id string, to TopicStatus) (SuggestedTopic, bool, error)
		MarkTopicResearched(ctx context.Context, id string, researchRef string) error
		MarkTopicFailed(ctx context.Context, id string) error
		Preferences(ctx context.Context, notebookID string) (TopicPreferences, error)
		UpdatePreferences(ctx context.Context, notebookID string, args UpdatePreferencesArgs) (TopicPreferences, error)
	}

	NotebookStore interface {
		CreateNotebook(ctx context.Context, userID, name string) (Notebook, error)
		Notebook(ctx context.Context, id string) (Notebook, error)
		Notebooks(ctx context.Context, userID string) ([]Notebook, error)
		DeleteNotebook(ctx context.Context, id string) error
		// DefaultNotebook returns the user's default notebook, creating it
		// on first use.
		DefaultNotebook(ctx context.Context, userID string) (Notebook, error)
	}

	// Repository is everything the sqlite layer implements.
	Repository interface {
		FeedIndex
		ContentStore
		TopicStore
		NotebookStore
	}
)

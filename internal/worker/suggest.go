package worker

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

//go:embed suggest_system.txt
var suggestSystemPrompt string

//go:embed suggest_user.txt
var suggestUserTemplate string

// Hard ceiling on suggestions per chunk, regardless of preferences.
const maxTopicsPerChunk = 10

// TopicCandidate is a single research topic proposed for a chunk.
type TopicCandidate struct {
	Topic         string  `json:"topic"`
	Context       string  `json:"context"`
	PriorityScore float64 `json:"priority_score"`
}

const (
	maxTopicLen        = 500
	maxTopicContextLen = 1000
)

// Use a schema to constrain the output
var (
	suggestSchema = map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"topic":          map[string]any{"type": "string"},
				"context":        map[string]any{"type": "string"},
				"priority_score": map[string]any{"type": "number"},
			},
			"required": []string{"topic", "context", "priority_score"},
		},
	}
	suggestOutputFormat = anthropic.BetaJSONSchemaOutputFormat(suggestSchema)
)

// SuggestTopics reads the chunk and asks Claude for research-worthy topics.
//
// Returns nil candidates without error when the notebook has auto-suggest
// turned off, or when every candidate falls below the notebook's minimum
// priority score.
func (a activities) SuggestTopics(ctx context.Context, in GenerateTopicsInput) ([]TopicCandidate, error) {
	l := activity.GetLogger(ctx)

	chunks, err := a.repo.Chunks(ctx, []string{in.ChunkRef})
	if err != nil {
		return nil, fmt.Errorf("error fetching chunk: %s", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("chunk %q not found", in.ChunkRef)
	}
	chunk := chunks[0]

	prefs, err := a.repo.Preferences(ctx, in.NotebookID)
	if err != nil {
		return nil, fmt.Errorf("error fetching preferences: %s", err)
	}
	if !prefs.AutoSuggestEnabled {
		l.Info("auto-suggest disabled, skipping", "notebook_id", in.NotebookID)
		return nil, nil
	}

	maxTopics := prefs.SuggestionCount
	if in.MaxTopics > 0 && in.MaxTopics < maxTopics {
		maxTopics = in.MaxTopics
	}
	if maxTopics > maxTopicsPerChunk {
		maxTopics = maxTopicsPerChunk
	}

	userMessage := fmt.Sprintf(suggestUserTemplate, maxTopics, chunk.Content)

	claudeResp, err := a.claudeClient.Beta.Messages.New(ctx, anthropic.BetaMessageNewParams{
		Model: anthropic.ModelClaudeHaiku4_5,
		Betas: []anthropic.AnthropicBeta{
			"structured-outputs-2025-11-13",
		},
		MaxTokens:    1024,
		OutputFormat: suggestOutputFormat,
		System: []anthropic.BetaTextBlockParam{{
			Text: suggestSystemPrompt,
		}},
		Messages: []anthropic.BetaMessageParam{
			anthropic.NewBetaUserMessage(anthropic.NewBetaTextBlock(userMessage)),
		},
	})
	// Handle Anthropic rate limit errors
	var claudeErr *anthropic.Error
	if errors.As(err, &claudeErr) && claudeErr.StatusCode == http.StatusTooManyRequests {
		return nil, temporal.NewApplicationError("rate limit hit", errTypeRateLimit, err)
	}
	if err != nil {
		return nil, temporal.NewApplicationError("claude error", errTypeInternal, err)
	}

	var claudeJson strings.Builder
	for _, content := range claudeResp.Content {
		claudeJson.WriteString(content.Text)
	}
	var candidates []TopicCandidate
	if err := json.Unmarshal([]byte(claudeJson.String()), &candidates); err != nil {
		return nil, fmt.Errorf("error unmarshaling claude json: %s", err)
	}

	kept := validCandidates(candidates, maxTopics, prefs.MinPriorityScore)
	l.Info("suggested topics", "chunk", in.ChunkRef, "proposed", len(candidates), "kept", len(kept))

	return kept, nil
}

// validCandidates filters model output down to usable suggestions: empty
// topics are dropped, scores are clamped into [0, 1], anything under the
// minimum priority is cut, and the list is truncated to max entries.
func validCandidates(candidates []TopicCandidate, max int, minScore float64) []TopicCandidate {
	var kept []TopicCandidate
	for _, c := range candidates {
		c.Topic = strings.TrimSpace(c.Topic)
		if c.Topic == "" {
			continue
		}
		if len(c.Topic) > maxTopicLen {
			c.Topic = c.Topic[:maxTopicLen]
		}
		if len(c.Context) > maxTopicContextLen {
			c.Context = c.Context[:maxTopicContextLen]
		}
		if c.PriorityScore < 0 {
			c.PriorityScore = 0
		}
		if c.PriorityScore > 1 {
			c.PriorityScore = 1
		}
		if c.PriorityScore < minScore {
			continue
		}
		kept = append(kept, c)
		if len(kept) == max {
			break
		}
	}
	return kept
}

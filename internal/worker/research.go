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

	"github.com/appleaa123/learningtool/internal/learningtool"
)

//go:embed research_system.txt
var researchSystemPrompt string

//go:embed research_user.txt
var researchUserTemplate string

type researchOutput struct {
	Answer  string           `json:"answer"`
	Sources []researchSource `json:"sources"`
}

type researchSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

var (
	researchSchema = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": map[string]any{"type": "string"},
			"sources": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title": map[string]any{"type": "string"},
						"url":   map[string]any{"type": "string"},
					},
					"required": []string{"title", "url"},
				},
			},
		},
		"required": []string{"answer", "sources"},
	}
	researchOutputFormat = anthropic.BetaJSONSchemaOutputFormat(researchSchema)
)

// RunResearch answers an accepted topic, stores the summary, and surfaces it
// in the owning notebook's feed.
//
// The summary and its feed entry are written before the topic is marked
// researched, so a topic is only ever researched with its result already
// visible. A topic that is already researched is left alone.
func (a activities) RunResearch(ctx context.Context, topicID string) error {
	l := activity.GetLogger(ctx)

	topic, err := a.repo.Topic(ctx, topicID)
	if err != nil {
		return fmt.Errorf("error fetching topic: %s", err)
	}
	if topic.Status == learningtool.TopicStatusResearched {
		l.Info("topic already researched, skipping", "topic_id", topicID)
		return nil
	}
	if topic.Status != learningtool.TopicStatusAccepted {
		return fmt.Errorf("topic %q is %s, not accepted", topicID, topic.Status)
	}

	userMessage := fmt.Sprintf(researchUserTemplate, topic.Topic, topic.Context)

	claudeResp, err := a.claudeClient.Beta.Messages.New(ctx, anthropic.BetaMessageNewParams{
		Model: anthropic.ModelClaudeHaiku4_5,
		Betas: []anthropic.AnthropicBeta{
			"structured-outputs-2025-11-13",
		},
		MaxTokens:    4096,
		OutputFormat: researchOutputFormat,
		System: []anthropic.BetaTextBlockParam{{
			Text: researchSystemPrompt,
		}},
		Messages: []anthropic.BetaMessageParam{
			anthropic.NewBetaUserMessage(anthropic.NewBetaTextBlock(userMessage)),
		},
	})
	var claudeErr *anthropic.Error
	if errors.As(err, &claudeErr) && claudeErr.StatusCode == http.StatusTooManyRequests {
		return temporal.NewApplicationError("rate limit hit", errTypeRateLimit, err)
	}
	if err != nil {
		return temporal.NewApplicationError("claude error", errTypeInternal, err)
	}

	var claudeJson strings.Builder
	for _, content := range claudeResp.Content {
		claudeJson.WriteString(content.Text)
	}
	var out researchOutput
	if err := json.Unmarshal([]byte(claudeJson.String()), &out); err != nil {
		return fmt.Errorf("error unmarshaling claude json: %s", err)
	}
	if strings.TrimSpace(out.Answer) == "" {
		return fmt.Errorf("empty research answer for topic %q", topicID)
	}

	sources, _ := json.Marshal(out.Sources)
	summary, err := a.repo.InsertResearchSummary(ctx, learningtool.ResearchSummary{
		NotebookID: topic.NotebookID,
		TopicID:    topic.ID,
		Question:   topic.Topic,
		Answer:     out.Answer,
		Sources:    sources,
	})
	if err != nil {
		return fmt.Errorf("error inserting research summary: %s", err)
	}

	if _, err := a.repo.AppendFeedEntry(ctx, learningtool.FeedEntry{
		UserID:     topic.UserID,
		NotebookID: topic.NotebookID,
		Kind:       learningtool.KindResearch,
		ContentRef: summary.ID,
	}); err != nil {
		return fmt.Errorf("error appending research to feed: %s", err)
	}

	if err := a.repo.MarkTopicResearched(ctx, topicID, summary.ID); err != nil {
		return fmt.Errorf("error marking topic researched: %s", err)
	}

	l.Info("researched topic", "topic_id", topicID, "summary_id", summary.ID)

	return nil
}

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

//go:embed transform_system.txt
var transformSystemPrompt string

//go:embed transform_user.txt
var transformUserTemplate string

const maxFlashcards = 8

// TransformOutput holds every derived artifact produced for a chunk.
type TransformOutput struct {
	Summary struct {
		Text      string   `json:"text"`
		KeyPoints []string `json:"key_points"`
	} `json:"summary"`
	QA []QAPair `json:"qa"`
	Flashcards []Flashcard `json:"flashcards"`
}

type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

var (
	transformSchema = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text":       map[string]any{"type": "string"},
					"key_points": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required": []string{"text", "key_points"},
			},
			"qa": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{"type": "string"},
						"answer":   map[string]any{"type": "string"},
					},
					"required": []string{"question", "answer"},
				},
			},
			"flashcards": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"front": map[string]any{"type": "string"},
						"back":  map[string]any{"type": "string"},
					},
					"required": []string{"front", "back"},
				},
			},
		},
		"required": []string{"summary", "qa", "flashcards"},
	}
	transformOutputFormat = anthropic.BetaJSONSchemaOutputFormat(transformSchema)
)

// GenerateTransforms asks Claude for a summary, Q&A pairs, and flashcards
// derived from the chunk.
func (a activities) GenerateTransforms(ctx context.Context, in TransformInput) (TransformOutput, error) {
	l := activity.GetLogger(ctx)

	chunks, err := a.repo.Chunks(ctx, []string{in.ChunkRef})
	if err != nil {
		return TransformOutput{}, fmt.Errorf("error fetching chunk: %s", err)
	}
	if len(chunks) == 0 {
		return TransformOutput{}, fmt.Errorf("chunk %q not found", in.ChunkRef)
	}

	userMessage := fmt.Sprintf(transformUserTemplate, chunks[0].Content)

	claudeResp, err := a.claudeClient.Beta.Messages.New(ctx, anthropic.BetaMessageNewParams{
		Model: anthropic.ModelClaudeHaiku4_5,
		Betas: []anthropic.AnthropicBeta{
			"structured-outputs-2025-11-13",
		},
		MaxTokens:    4096,
		OutputFormat: transformOutputFormat,
		System: []anthropic.BetaTextBlockParam{{
			Text: transformSystemPrompt,
		}},
		Messages: []anthropic.BetaMessageParam{
			anthropic.NewBetaUserMessage(anthropic.NewBetaTextBlock(userMessage)),
		},
	})
	var claudeErr *anthropic.Error
	if errors.As(err, &claudeErr) && claudeErr.StatusCode == http.StatusTooManyRequests {
		return TransformOutput{}, temporal.NewApplicationError("rate limit hit", errTypeRateLimit, err)
	}
	if err != nil {
		return TransformOutput{}, temporal.NewApplicationError("claude error", errTypeInternal, err)
	}

	var claudeJson strings.Builder
	for _, content := range claudeResp.Content {
		claudeJson.WriteString(content.Text)
	}
	var out TransformOutput
	if err := json.Unmarshal([]byte(claudeJson.String()), &out); err != nil {
		return TransformOutput{}, fmt.Errorf("error unmarshaling claude json: %s", err)
	}

	out = trimTransforms(out)
	l.Info("generated transforms", "chunk", in.ChunkRef,
		"qa_pairs", len(out.QA), "flashcards", len(out.Flashcards))

	return out, nil
}

// trimTransforms drops empty entries and caps the flashcard count.
func trimTransforms(out TransformOutput) TransformOutput {
	qa := out.QA[:0]
	for _, pair := range out.QA {
		if strings.TrimSpace(pair.Question) == "" || strings.TrimSpace(pair.Answer) == "" {
			continue
		}
		qa = append(qa, pair)
	}
	out.QA = qa

	cards := out.Flashcards[:0]
	for _, card := range out.Flashcards {
		if strings.TrimSpace(card.Front) == "" || strings.TrimSpace(card.Back) == "" {
			continue
		}
		cards = append(cards, card)
		if len(cards) == maxFlashcards {
			break
		}
	}
	out.Flashcards = cards

	return out
}

package sqlite

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/appleaa123/learningtool/internal/learningtool"
)

const (
	chunkNamespace       = "-chnk"
	transformedNamespace = "-tfrm"
	researchNamespace    = "-rsrch"
)

func (r Repo) InsertChunk(ctx context.Context, chunk learningtool.Chunk) (learningtool.Chunk, error) {
	const q = `INSERT INTO chunks (id, notebook_id, source_type, source_uri, title, content)
	VALUES (:id, :notebook_id, :source_type, :source_uri, :title, :content);`

	chunk.ID = uuid.NewString() + chunkNamespace
	if _, err := r.db.NamedExecContext(ctx, q, chunk); err != nil {
		return learningtool.Chunk{}, fmt.Errorf("error inserting chunk: %s", err)
	}

	chunks, err := r.Chunks(ctx, []string{chunk.ID})
	if err != nil {
		return learningtool.Chunk{}, err
	}
	return chunks[0], nil
}

func (r Repo) Chunks(ctx context.Context, refs []string) ([]learningtool.Chunk, error) {
	if len(refs) == 0 {
		return []learningtool.Chunk{}, nil
	}

	query, args, err := sq.Select("*").From("chunks").Where(sq.Eq{"id": refs}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	var chunks []learningtool.Chunk
	if err := r.db.SelectContext(ctx, &chunks, query, args...); err != nil {
		return nil, fmt.Errorf("error fetching chunks: %s", err)
	}

	return chunks, nil
}

func (r Repo) InsertTransformedItem(ctx context.Context, item learningtool.TransformedItem) (learningtool.TransformedItem, error) {
	if len(item.Metadata) == 0 {
		item.Metadata = []byte(`{}`)
	}

	const q = `INSERT INTO transformed_items (id, notebook_id, chunk_id, kind, content, metadata)
	VALUES (:id, :notebook_id, :chunk_id, :kind, :content, :metadata);`

	item.ID = uuid.NewString() + transformedNamespace
	if _, err := r.db.NamedExecContext(ctx, q, item); err != nil {
		return learningtool.TransformedItem{}, fmt.Errorf("error inserting transformed item: %s", err)
	}

	items, err := r.TransformedItems(ctx, []string{item.ID})
	if err != nil {
		return learningtool.TransformedItem{}, err
	}
	return items[0], nil
}

func (r Repo) TransformedItems(ctx context.Context, refs []string) ([]learningtool.TransformedItem, error) {
	if len(refs) == 0 {
		return []learningtool.TransformedItem{}, nil
	}

	query, args, err := sq.Select("*").From("transformed_items").Where(sq.Eq{"id": refs}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	var items []learningtool.TransformedItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("error fetching transformed items: %s", err)
	}

	return items, nil
}

func (r Repo) InsertResearchSummary(ctx context.Context, summary learningtool.ResearchSummary) (learningtool.ResearchSummary, error) {
	if len(summary.Sources) == 0 {
		summary.Sources = []byte(`[]`)
	}

	const q = `INSERT INTO research_summaries (id, notebook_id, topic_id, question, answer, sources)
	VALUES (:id, :notebook_id, :topic_id, :question, :answer, :sources);`

	summary.ID = uuid.NewString() + researchNamespace
	if _, err := r.db.NamedExecContext(ctx, q, summary); err != nil {
		return learningtool.ResearchSummary{}, fmt.Errorf("error inserting research summary: %s", err)
	}

	summaries, err := r.ResearchSummaries(ctx, []string{summary.ID})
	if err != nil {
		return learningtool.ResearchSummary{}, err
	}
	return summaries[0], nil
}

func (r Repo) ResearchSummaries(ctx context.Context, refs []string) ([]learningtool.ResearchSummary, error) {
	if len(refs) == 0 {
		return []learningtool.ResearchSummary{}, nil
	}

	query, args, err := sq.Select("*").From("research_summaries").Where(sq.Eq{"id": refs}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	var summaries []learningtool.ResearchSummary
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, fmt.Errorf("error fetching research summaries: %s", err)
	}

	return summaries, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/appleaa123/learningtool/internal/learningtool"
)

const feedEntryNamespace = "-fent"

func (r Repo) AppendFeedEntry(ctx context.Context, entry learningtool.FeedEntry) (learningtool.FeedEntry, error) {
	scope := learningtool.Scope{UserID: entry.UserID, NotebookID: entry.NotebookID}
	if err := scope.Validate(); err != nil {
		return learningtool.FeedEntry{}, err
	}
	if !entry.Kind.Valid() {
		return learningtool.FeedEntry{}, fmt.Errorf("unknown feed entry kind %q", entry.Kind)
	}

	// The subselect computes the next seq under sqlite's write lock, so two
	// concurrent appends to the same scope can't race for a number.
	const q = `INSERT INTO feed_entries (id, user_id, notebook_id, seq, kind, content_ref)
	VALUES (
		:id,
		:user_id,
		:notebook_id,
		(SELECT COALESCE(MAX(seq), 0) + 1 FROM feed_entries WHERE user_id = :user_id AND notebook_id = :notebook_id),
		:kind,
		:content_ref
	);`

	entry.ID = uuid.NewString() + feedEntryNamespace
	if _, err := r.db.NamedExecContext(ctx, q, entry); err != nil {
		return learningtool.FeedEntry{}, fmt.Errorf("error appending feed entry: %s", err)
	}

	return r.FeedEntry(ctx, scope, entry.ID)
}

func (r Repo) FeedEntries(ctx context.Context, scope learningtool.Scope, cursor int64, limit int, kind learningtool.Kind) ([]learningtool.FeedEntry, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	q := sq.Select("id", "user_id", "notebook_id", "seq", "kind", "content_ref", "created_at").
		From("feed_entries").
		Where(sq.Eq{"user_id": scope.UserID, "notebook_id": scope.NotebookID}).
		OrderBy("seq DESC")
	if cursor > 0 {
		q = q.Where(sq.Lt{"seq": cursor})
	}
	if kind != "" {
		q = q.Where(sq.Eq{"kind": kind})
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error generating SQL query: %s", err)
	}

	entries := []learningtool.FeedEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("error selecting feed entries: %s", err)
	}

	return entries, nil
}

func (r Repo) FeedEntry(ctx context.Context, scope learningtool.Scope, id string) (learningtool.FeedEntry, error) {
	if err := scope.Validate(); err != nil {
		return learningtool.FeedEntry{}, err
	}

	const q = `SELECT * FROM feed_entries WHERE id = ? AND user_id = ? AND notebook_id = ?;`

	var entry learningtool.FeedEntry
	err := r.db.GetContext(ctx, &entry, q, id, scope.UserID, scope.NotebookID)
	if errors.Is(err, sql.ErrNoRows) {
		return learningtool.FeedEntry{}, learningtool.ErrNotFound
	}
	if err != nil {
		return learningtool.FeedEntry{}, fmt.Errorf("error fetching feed entry: %s", err)
	}

	return entry, nil
}

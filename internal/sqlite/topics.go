package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/appleaa123/learningtool/internal/learningtool"
)

const (
	topicNamespace       = "-topc"
	preferencesNamespace = "-pref"
)

func (r Repo) InsertTopics(ctx context.Context, topics []learningtool.SuggestedTopic) ([]learningtool.SuggestedTopic, error) {
	if len(topics) == 0 {
		return []learningtool.SuggestedTopic{}, nil
	}

	for i := range topics {
		topics[i].ID = uuid.NewString() + topicNamespace
		if topics[i].Status == "" {
			topics[i].Status = learningtool.TopicStatusPending
		}
	}

	const q = `INSERT INTO suggested_topics (id, user_id, notebook_id, content_ref, topic, context, priority_score, status)
	VALUES (:id, :user_id, :notebook_id, :content_ref, :topic, :context, :priority_score, :status);`
	if _, err := r.db.NamedExecContext(ctx, q, topics); err != nil {
		return nil, fmt.Errorf("error inserting suggested topics: %s", err)
	}

	return topics, nil
}

func (r Repo) Topics(ctx context.Context, scope learningtool.Scope, args learningtool.TopicsArgs) ([]learningtool.SuggestedTopic, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	q := sq.Select("*").From("suggested_topics").
		Where(sq.Eq{"user_id": scope.UserID, "notebook_id": scope.NotebookID}).
		OrderBy("priority_score DESC", "created_at DESC")
	if args.Status != "" {
		q = q.Where(sq.Eq{"status": args.Status})
	}
	if args.Limit > 0 {
		q = q.Limit(uint64(args.Limit))
	}

	query, queryArgs, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error generating SQL query: %s", err)
	}

	topics := []learningtool.SuggestedTopic{}
	if err := r.db.SelectContext(ctx, &topics, query, queryArgs...); err != nil {
		return nil, fmt.Errorf("error selecting topics: %s", err)
	}

	return topics, nil
}

func (r Repo) Topic(ctx context.Context, id string) (learningtool.SuggestedTopic, error) {
	const q = `SELECT * FROM suggested_topics WHERE id = ?;`

	var topic learningtool.SuggestedTopic
	err := r.db.GetContext(ctx, &topic, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return learningtool.SuggestedTopic{}, learningtool.ErrNotFound
	}
	if err != nil {
		return learningtool.SuggestedTopic{}, fmt.Errorf("error fetching topic: %s", err)
	}

	return topic, nil
}

func (r Repo) TopicsByIDs(ctx context.Context, ids []string) ([]learningtool.SuggestedTopic, error) {
	if len(ids) == 0 {
		return []learningtool.SuggestedTopic{}, nil
	}

	query, args, err := sq.Select("*").From("suggested_topics").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	var topics []learningtool.SuggestedTopic
	if err := r.db.SelectContext(ctx, &topics, query, args...); err != nil {
		return nil, fmt.Errorf("error fetching topics: %s", err)
	}

	return topics, nil
}

// DecideTopic performs the pending -> accepted/rejected move as a single
// conditional UPDATE, so two concurrent decisions can't both transition.
func (r Repo) DecideTopic(ctx context.Context, id string, to learningtool.TopicStatus) (learningtool.SuggestedTopic, bool, error) {
	if to != learningtool.TopicStatusAccepted && to != learningtool.TopicStatusRejected {
		return learningtool.SuggestedTopic{}, false, fmt.Errorf("%q is not a decision status: %w", to, learningtool.ErrInvalidTransition)
	}

	const q = `UPDATE suggested_topics SET status = ?, decided_at = ? WHERE id = ? AND status = ?;`
	res, err := r.db.ExecContext(ctx, q, to, time.Now().UTC(), id, learningtool.TopicStatusPending)
	if err != nil {
		return learningtool.SuggestedTopic{}, false, fmt.Errorf("error updating topic: %s", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return learningtool.SuggestedTopic{}, false, fmt.Errorf("error reading rows affected: %s", err)
	}

	topic, err := r.Topic(ctx, id)
	if err != nil {
		return learningtool.SuggestedTopic{}, false, err
	}

	if affected == 1 {
		return topic, true, nil
	}
	// Re-applying the decision the topic already holds is a no-op.
	if topic.Status == to {
		return topic, false, nil
	}

	return learningtool.SuggestedTopic{}, false, fmt.Errorf("cannot move topic from %s to %s: %w", topic.Status, to, learningtool.ErrInvalidTransition)
}

func (r Repo) MarkTopicResearched(ctx context.Context, id string, researchRef string) error {
	const q = `UPDATE suggested_topics SET status = ?, researched_at = ?, research_ref = ? WHERE id = ? AND status = ?;`
	res, err := r.db.ExecContext(ctx, q, learningtool.TopicStatusResearched, time.Now().UTC(), researchRef, id, learningtool.TopicStatusAccepted)
	if err != nil {
		return fmt.Errorf("error updating topic: %s", err)
	}

	return r.checkTransitioned(ctx, res, id, learningtool.TopicStatusResearched)
}

func (r Repo) MarkTopicFailed(ctx context.Context, id string) error {
	const q = `UPDATE suggested_topics SET status = ?, researched_at = ? WHERE id = ? AND status = ?;`
	res, err := r.db.ExecContext(ctx, q, learningtool.TopicStatusFailed, time.Now().UTC(), id, learningtool.TopicStatusAccepted)
	if err != nil {
		return fmt.Errorf("error updating topic: %s", err)
	}

	return r.checkTransitioned(ctx, res, id, learningtool.TopicStatusFailed)
}

func (r Repo) checkTransitioned(ctx context.Context, res sql.Result, id string, to learningtool.TopicStatus) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected: %s", err)
	}
	if affected == 1 {
		return nil
	}

	topic, err := r.Topic(ctx, id)
	if err != nil {
		return err
	}

	return fmt.Errorf("cannot move topic from %s to %s: %w", topic.Status, to, learningtool.ErrInvalidTransition)
}

func (r Repo) Preferences(ctx context.Context, notebookID string) (learningtool.TopicPreferences, error) {
	const sel = `SELECT * FROM topic_preferences WHERE notebook_id = ?;`

	var prefs learningtool.TopicPreferences
	err := r.db.GetContext(ctx, &prefs, sel, notebookID)
	if err == nil {
		return prefs, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return learningtool.TopicPreferences{}, fmt.Errorf("error fetching preferences: %s", err)
	}

	// First touch for this notebook: seed the defaults.
	const ins = `INSERT OR IGNORE INTO topic_preferences (id, notebook_id) VALUES (?, ?);`
	if _, err := r.db.ExecContext(ctx, ins, uuid.NewString()+preferencesNamespace, notebookID); err != nil {
		return learningtool.TopicPreferences{}, fmt.Errorf("error creating preferences: %s", err)
	}
	if err := r.db.GetContext(ctx, &prefs, sel, notebookID); err != nil {
		return learningtool.TopicPreferences{}, fmt.Errorf("error fetching preferences: %s", err)
	}

	return prefs, nil
}

func (r Repo) UpdatePreferences(ctx context.Context, notebookID string, args learningtool.UpdatePreferencesArgs) (learningtool.TopicPreferences, error) {
	// Make sure the row exists before the partial update.
	if _, err := r.Preferences(ctx, notebookID); err != nil {
		return learningtool.TopicPreferences{}, err
	}

	q := sq.Update("topic_preferences").Set("updated_at", time.Now().UTC())
	if args.AutoSuggestEnabled != nil {
		q = q.Set("auto_suggest_enabled", *args.AutoSuggestEnabled)
	}
	if args.SuggestionCount != nil {
		q = q.Set("suggestion_count", *args.SuggestionCount)
	}
	if args.MinPriorityScore != nil {
		q = q.Set("min_priority_score", *args.MinPriorityScore)
	}
	q = q.Where(sq.Eq{"notebook_id": notebookID})

	query, queryArgs, err := q.ToSql()
	if err != nil {
		return learningtool.TopicPreferences{}, fmt.Errorf("error constructing sql: %s", err)
	}
	if _, err := r.db.ExecContext(ctx, query, queryArgs...); err != nil {
		return learningtool.TopicPreferences{}, fmt.Errorf("error updating preferences: %s", err)
	}

	return r.Preferences(ctx, notebookID)
}

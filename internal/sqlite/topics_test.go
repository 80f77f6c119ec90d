package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appleaa123/learningtool/internal/learningtool"
)

func insertTestTopic(t *testing.T, repo Repo, scope learningtool.Scope, topic string, score float64) learningtool.SuggestedTopic {
	t.Helper()

	topics, err := repo.InsertTopics(context.Background(), []learningtool.SuggestedTopic{{
		UserID:        scope.UserID,
		NotebookID:    scope.NotebookID,
		ContentRef:    "chunk-1",
		Topic:         topic,
		Context:       "came up while studying",
		PriorityScore: score,
	}})
	require.NoError(t, err)
	require.Len(t, topics, 1)

	return topics[0]
}

func TestTopics_ListPendingByPriority(t *testing.T) {
	var (
		ctx   = context.Background()
		repo  = newTestRepo(t)
		scope = newTestScope(t, repo, "alice")
	)

	insertTestTopic(t, repo, scope, "low priority", 0.2)
	insertTestTopic(t, repo, scope, "high priority", 0.9)

	topics, err := repo.Topics(ctx, scope, learningtool.TopicsArgs{Status: learningtool.TopicStatusPending})
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "high priority", topics[0].Topic)
	assert.Equal(t, learningtool.TopicStatusPending, topics[0].Status)
}

func TestDecideTopic_Accept(t *testing.T) {
	var (
		ctx   = context.Background()
		repo  = newTestRepo(t)
		scope = newTestScope(t, repo, "alice")
		topic = insertTestTopic(t, repo, scope, "what is ATP", 0.8)
	)

	decided, transitioned, err := repo.DecideTopic(ctx, topic.ID, learningtool.TopicStatusAccepted)
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, learningtool.TopicStatusAccepted, decided.Status)
	require.NotNil(t, decided.DecidedAt)
	assert.Nil(t, decided.ResearchedAt)
}

func TestDecideTopic_RepeatDecisionIsNoOp(t *testing.T) {
	var (
		ctx   = context.Background()
		repo  = newTestRepo(t)
		scope = newTestScope(t, repo, "alice")
		topic = insertTestTopic(t, repo, scope, "what is ATP", 0.8)
	)

	_, transitioned, err := repo.DecideTopic(ctx, topic.ID, learningtool.TopicStatusRejected)
	require.NoError(t, err)
	assert.True(t, transitioned)

	// Same decision again: same state back, no transition.
	decided, transitioned, err := repo.DecideTopic(ctx, topic.ID, learningtool.TopicStatusRejected)
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.Equal(t, learningtool.TopicStatusRejected, decided.Status)
}

func TestDecideTopic_InvalidMoves(t *testing.T) {
	var (
		ctx   = context.Background()
		repo  = newTestRepo(t)
		scope = newTestScope(t, repo, "alice")
		topic = insertTestTopic(t, repo, scope, "what is ATP", 0.8)
	)

	// Decisions only go to accepted/rejected.
	_, _, err := repo.DecideTopic(ctx, topic.ID, learningtool.TopicStatusResearched)
	assert.ErrorIs(t, err, learningtool.ErrInvalidTransition)

	// A decided topic can't flip to the other decision.
	_, _, err = repo.DecideTopic(ctx, topic.ID, learningtool.TopicStatusAccepted)
	require.NoError(t, err)
	_, _, err = repo.DecideTopic(ctx, topic.ID, learningtool.TopicStatusRejected)
	assert.ErrorIs(t, err, learningtool.ErrInvalidTransition)
}

func TestMarkTopicResearched(t *testing.T) {
	var (
		ctx   = context.Background()
		repo  = newTestRepo(t)
		scope = newTestScope(t, repo, "alice")
		topic = insertTestTopic(t, repo, scope, "what is ATP", 0.8)
	)

	// Researched only follows accepted.
	err := repo.MarkTopicResearched(ctx, topic.ID, "summary-1")
	assert.ErrorIs(t, err, learningtool.ErrInvalidTransition)

	_, _, err = repo.DecideTopic(ctx, topic.ID, learningtool.TopicStatusAccepted)
	require.NoError(t, err)
	require.NoError(t, repo.MarkTopicResearched(ctx, topic.ID, "summary-1"))

	got, err := repo.Topic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, learningtool.TopicStatusResearched, got.Status)
	require.NotNil(t, got.ResearchRef)
	assert.Equal(t, "summary-1", *got.ResearchRef)
	assert.NotNil(t, got.ResearchedAt)
}

func TestMarkTopicFailed(t *testing.T) {
	var (
		ctx   = context.Background()
		repo  = newTestRepo(t)
		scope = newTestScope(t, repo, "alice")
		topic = insertTestTopic(t, repo, scope, "what is ATP", 0.8)
	)

	_, _, err := repo.DecideTopic(ctx, topic.ID, learningtool.TopicStatusAccepted)
	require.NoError(t, err)
	require.NoError(t, repo.MarkTopicFailed(ctx, topic.ID))

	got, err := repo.Topic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, learningtool.TopicStatusFailed, got.Status)
	assert.NotNil(t, got.ResearchedAt)

	// Failed is terminal.
	err = repo.MarkTopicResearched(ctx, topic.ID, "summary-1")
	assert.ErrorIs(t, err, learningtool.ErrInvalidTransition)
}

func TestPreferences_DefaultsAndUpdate(t *testing.T) {
	var (
		ctx   = context.Background()
		repo  = newTestRepo(t)
		scope = newTestScope(t, repo, "alice")
	)

	prefs, err := repo.Preferences(ctx, scope.NotebookID)
	require.NoError(t, err)
	assert.True(t, prefs.AutoSuggestEnabled)
	assert.Equal(t, 3, prefs.SuggestionCount)
	assert.InDelta(t, 0.5, prefs.MinPriorityScore, 0.001)

	var (
		count = 5
		score = 0.25
	)
	updated, err := repo.UpdatePreferences(ctx, scope.NotebookID, learningtool.UpdatePreferencesArgs{
		SuggestionCount:  &count,
		MinPriorityScore: &score,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.SuggestionCount)
	assert.InDelta(t, 0.25, updated.MinPriorityScore, 0.001)
	// Untouched field keeps its value
	assert.True(t, updated.AutoSuggestEnabled)
}

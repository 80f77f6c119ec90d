package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	lterrs "github.com/appleaa123/learningtool/internal/errors"
	"github.com/appleaa123/learningtool/internal/learningtool"
)

type (
	TopicResp struct {
		ID            string     `json:"id"`
		Topic         string     `json:"topic"`
		Context       string     `json:"context"`
		PriorityScore float64    `json:"priority_score"`
		Status        string     `json:"status"`
		ContentRef    string     `json:"content_ref"`
		ResearchRef   *string    `json:"research_ref"`
		CreatedAt     time.Time  `json:"created_at"`
		DecidedAt     *time.Time `json:"decided_at"`
		ResearchedAt  *time.Time `json:"researched_at"`
	}

	TopicListResp struct {
		Topics []TopicResp `json:"topics"`
	}
)

func apiTopic(t learningtool.SuggestedTopic) TopicResp {
	return TopicResp{
		ID:            t.ID,
		Topic:         t.Topic,
		Context:       t.Context,
		PriorityScore: t.PriorityScore,
		Status:        string(t.Status),
		ContentRef:    t.ContentRef,
		ResearchRef:   t.ResearchRef,
		CreatedAt:     t.CreatedAt,
		DecidedAt:     t.DecidedAt,
		ResearchedAt:  t.ResearchedAt,
	}
}

func (s Server) getTopics(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	scope, err := s.scopeFromRequest(r)
	if err != nil {
		return err
	}

	q := r.URL.Query()

	status := learningtool.TopicStatus(q.Get("status"))
	if status != "" && !status.Valid() {
		return lterrs.E("unknown status", http.StatusBadRequest)
	}

	limit, _ := strconv.Atoi(q.Get("limit"))

	topics, err := s.repo.Topics(ctx, scope, learningtool.TopicsArgs{
		Status: status,
		Limit:  limit,
	})
	if err != nil {
		return err
	}

	resp := TopicListResp{Topics: make([]TopicResp, 0, len(topics))}
	for _, t := range topics {
		resp.Topics = append(resp.Topics, apiTopic(t))
	}

	return writeJSON(w, http.StatusOK, resp)
}

func (s Server) postTopicAccept(w http.ResponseWriter, r *http.Request) error {
	return s.decideTopic(w, r, learningtool.TopicStatusAccepted)
}

func (s Server) postTopicReject(w http.ResponseWriter, r *http.Request) error {
	return s.decideTopic(w, r, learningtool.TopicStatusRejected)
}

func (s Server) decideTopic(w http.ResponseWriter, r *http.Request, to learningtool.TopicStatus) error {
	var (
		ctx     = r.Context()
		topicID = mux.Vars(r)["topicID"]
	)

	scope, err := s.scopeFromRequest(r)
	if err != nil {
		return err
	}

	// Ownership check before anything mutates.
	existing, err := s.repo.Topic(ctx, topicID)
	if err != nil {
		return err
	}
	if existing.UserID != scope.UserID || existing.NotebookID != scope.NotebookID {
		return learningtool.ErrNotFound
	}

	topic, transitioned, err := s.repo.DecideTopic(ctx, topicID, to)
	if err != nil {
		return err
	}

	// Research kicks off only on the transition itself, so a repeated
	// accept can't spawn a second run.
	if transitioned && to == learningtool.TopicStatusAccepted {
		if err := s.research.ResearchTopic(ctx, topic.ID); err != nil {
			slog.Error("failed to schedule research", "topic_id", topic.ID, "err", err)
			if markErr := s.repo.MarkTopicFailed(ctx, topic.ID); markErr != nil {
				slog.Error("failed to mark topic failed", "topic_id", topic.ID, "err", markErr)
			}
			topic, err = s.repo.Topic(ctx, topic.ID)
			if err != nil {
				return err
			}
		}
	}

	return writeJSON(w, http.StatusOK, apiTopic(topic))
}

type (
	PreferencesResp struct {
		AutoSuggestEnabled bool    `json:"auto_suggest_enabled"`
		SuggestionCount    int     `json:"suggestion_count"`
		MinPriorityScore   float64 `json:"min_priority_score"`
	}

	PutPreferencesReq struct {
		AutoSuggestEnabled *bool    `json:"auto_suggest_enabled"`
		SuggestionCount    *int     `json:"suggestion_count"`
		MinPriorityScore   *float64 `json:"min_priority_score"`
	}
)

func (req PutPreferencesReq) Validate() error {
	var details []lterrs.Detail
	if req.SuggestionCount != nil && (*req.SuggestionCount < 1 || *req.SuggestionCount > 5) {
		details = append(details, lterrs.Detail{Field: "suggestion_count", Error: "must be between 1 and 5"})
	}
	if req.MinPriorityScore != nil && (*req.MinPriorityScore < 0 || *req.MinPriorityScore > 1) {
		details = append(details, lterrs.Detail{Field: "min_priority_score", Error: "must be between 0 and 1"})
	}
	if len(details) > 0 {
		return lterrs.E("invalid preferences", http.StatusBadRequest, details)
	}

	return nil
}

func apiPreferences(p learningtool.TopicPreferences) PreferencesResp {
	return PreferencesResp{
		AutoSuggestEnabled: p.AutoSuggestEnabled,
		SuggestionCount:    p.SuggestionCount,
		MinPriorityScore:   p.MinPriorityScore,
	}
}

func (s Server) getPreferences(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	scope, err := s.scopeFromRequest(r)
	if err != nil {
		return err
	}

	prefs, err := s.repo.Preferences(ctx, scope.NotebookID)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, apiPreferences(prefs))
}

func (s Server) putPreferences(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	scope, err := s.scopeFromRequest(r)
	if err != nil {
		return err
	}

	var body PutPreferencesReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return lterrs.E(err, http.StatusBadRequest)
	}
	if err := body.Validate(); err != nil {
		return err
	}

	prefs, err := s.repo.UpdatePreferences(ctx, scope.NotebookID, learningtool.UpdatePreferencesArgs{
		AutoSuggestEnabled: body.AutoSuggestEnabled,
		SuggestionCount:    body.SuggestionCount,
		MinPriorityScore:   body.MinPriorityScore,
	})
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, apiPreferences(prefs))
}

package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	lterrs "github.com/appleaa123/learningtool/internal/errors"
	"github.com/appleaa123/learningtool/internal/feed"
	"github.com/appleaa123/learningtool/internal/learningtool"
)

type (
	FeedPageResp struct {
		Items      []FeedItemResp `json:"items"`
		NextCursor *int64         `json:"next_cursor"`
	}

	FeedItemResp struct {
		ID          string          `json:"id"`
		Seq         int64           `json:"seq"`
		Kind        string          `json:"kind"`
		CreatedAt   time.Time       `json:"created_at"`
		Unavailable bool            `json:"unavailable"`
		Content     *ContentResp    `json:"content"`
		Provenance  *ProvenanceResp `json:"provenance,omitempty"`
	}

	// ContentResp is the payload behind a feed item; the populated fields
	// depend on the item's kind.
	ContentResp struct {
		Title     *string         `json:"title,omitempty"`
		Text      string          `json:"text"`
		SourceURI *string         `json:"source_uri,omitempty"`
		Metadata  json.RawMessage `json:"metadata,omitempty"`
		Question  string          `json:"question,omitempty"`
		Sources   json.RawMessage `json:"sources,omitempty"`
	}

	ProvenanceResp struct {
		Source           string     `json:"source"`
		OriginatingTopic *TopicResp `json:"originating_topic"`
	}
)

func apiFeedItem(item feed.EnrichedItem) FeedItemResp {
	resp := FeedItemResp{
		ID:          item.Entry.ID,
		Seq:         item.Entry.Seq,
		Kind:        string(item.Entry.Kind),
		CreatedAt:   item.Entry.CreatedAt,
		Unavailable: item.Unavailable,
	}

	if item.Content != nil {
		resp.Content = apiContent(*item.Content)
	}

	prov := ProvenanceResp{Source: item.Provenance.Source}
	if item.Provenance.OriginatingTopic != nil {
		t := apiTopic(*item.Provenance.OriginatingTopic)
		prov.OriginatingTopic = &t
	}
	resp.Provenance = &prov

	return resp
}

func apiContent(a learningtool.Artifact) *ContentResp {
	switch {
	case a.Chunk != nil:
		return &ContentResp{
			Title:     a.Chunk.Title,
			Text:      a.Chunk.Content,
			SourceURI: a.Chunk.SourceURI,
		}
	case a.Transformed != nil:
		return &ContentResp{
			Text:     a.Transformed.Content,
			Metadata: a.Transformed.Metadata,
		}
	case a.Research != nil:
		return &ContentResp{
			Text:     a.Research.Answer,
			Question: a.Research.Question,
			Sources:  a.Research.Sources,
		}
	}
	return nil
}

func (s Server) getFeed(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	scope, err := s.scopeFromRequest(r)
	if err != nil {
		return err
	}

	q := r.URL.Query()

	var cursor int64
	if raw := q.Get("cursor"); raw != "" {
		cursor, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return lterrs.E("cursor must be an integer", http.StatusBadRequest)
		}
	}

	limit, _ := strconv.Atoi(q.Get("limit"))

	kind := learningtool.Kind(q.Get("kind"))
	if kind != "" && !kind.Valid() {
		return lterrs.E("unknown kind", http.StatusBadRequest)
	}

	includeTopic, _ := strconv.ParseBool(q.Get("include_topic_context"))

	page, err := s.paginator.Page(ctx, scope, feed.PageArgs{
		Cursor:       cursor,
		Limit:        limit,
		Kind:         kind,
		Search:       q.Get("search"),
		IncludeTopic: includeTopic,
	})
	if err != nil {
		return err
	}

	items := make([]FeedItemResp, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, apiFeedItem(item))
	}

	return writeJSON(w, http.StatusOK, FeedPageResp{
		Items:      items,
		NextCursor: page.NextCursor,
	})
}

func (s Server) getFeedEntryContent(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	scope, err := s.scopeFromRequest(r)
	if err != nil {
		return err
	}

	entry, err := s.repo.FeedEntry(ctx, scope, mux.Vars(r)["entryID"])
	if err != nil {
		return err
	}

	items := s.resolver.Resolve(ctx, []learningtool.FeedEntry{entry}, true)
	item := items[0]
	if item.Unavailable {
		return lterrs.E(learningtool.ErrContentMissing, http.StatusNotFound)
	}

	return writeJSON(w, http.StatusOK, apiFeedItem(item))
}

package api

import (
	"net/http"
	"strings"

	goaway "github.com/TwiN/go-away"

	lterrs "github.com/appleaa123/learningtool/internal/errors"
	"github.com/appleaa123/learningtool/internal/ingest"
)

type (
	IngestTextReq struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	}

	IngestURLReq struct {
		URL string `json:"url"`
	}

	IngestResp struct {
		Inserted         int      `json:"inserted"`
		IDs              []string `json:"ids"`
		TopicsGenerating bool     `json:"topics_generating"`
	}
)

// Material is fed to the LLM downstream, so it's imperative that we're
// trying to keep the input rather clean.
const maxIngestTextLen = 200_000

func (req IngestTextReq) Validate() error {
	if strings.TrimSpace(req.Text) == "" {
		return lterrs.E("text is required", http.StatusBadRequest)
	}
	if len(req.Text) > maxIngestTextLen {
		return lterrs.E("text too long", http.StatusUnprocessableEntity)
	}
	if goaway.IsProfane(req.Title) {
		return lterrs.E("profanity detected in title", http.StatusUnprocessableEntity)
	}

	return nil
}

func (req IngestURLReq) Validate() error {
	if strings.TrimSpace(req.URL) == "" {
		return lterrs.E("url is required", http.StatusBadRequest)
	}

	return nil
}

func apiIngestResult(res ingest.Result) IngestResp {
	ids := res.IDs
	if ids == nil {
		ids = []string{}
	}
	return IngestResp{
		Inserted:         res.Inserted,
		IDs:              ids,
		TopicsGenerating: res.TopicsGenerating,
	}
}

func (s Server) postIngest(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	scope, err := s.scopeFromRequest(r)
	if err != nil {
		return err
	}

	body, err := decodeValid[IngestTextReq](r.Body)
	if err != nil {
		return err
	}

	res, err := s.ingestor.IngestText(ctx, scope, body.Title, body.Text)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusCreated, apiIngestResult(res))
}

func (s Server) postIngestURL(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	scope, err := s.scopeFromRequest(r)
	if err != nil {
		return err
	}

	body, err := decodeValid[IngestURLReq](r.Body)
	if err != nil {
		return err
	}

	res, err := s.ingestor.IngestURL(ctx, scope, body.URL)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusCreated, apiIngestResult(res))
}

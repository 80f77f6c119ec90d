package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	lterrs "github.com/appleaa123/learningtool/internal/errors"
	"github.com/appleaa123/learningtool/internal/learningtool"
)

type (
	NotebookResp struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"`
	}

	NotebookListResp struct {
		Notebooks []NotebookResp `json:"notebooks"`
	}

	PostNotebookReq struct {
		Name string `json:"name"`
	}
)

const maxNotebookNameLen = 100

func (req PostNotebookReq) Validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return lterrs.E("name is required", http.StatusBadRequest)
	}
	if len(req.Name) > maxNotebookNameLen {
		return lterrs.E("name too long", http.StatusBadRequest)
	}

	return nil
}

func apiNotebook(nb learningtool.Notebook) NotebookResp {
	return NotebookResp{
		ID:        nb.ID,
		Name:      nb.Name,
		CreatedAt: nb.CreatedAt,
	}
}

func (s Server) postNotebooks(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx  = r.Context()
		sess = session(r, s.secureCookie)
	)

	body, err := decodeValid[PostNotebookReq](r.Body)
	if err != nil {
		return err
	}

	nb, err := s.repo.CreateNotebook(ctx, sess.UserID, strings.TrimSpace(body.Name))
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusCreated, apiNotebook(nb))
}

func (s Server) getNotebooks(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx  = r.Context()
		sess = session(r, s.secureCookie)
	)

	// Listing implies the default notebook exists.
	if _, err := s.repo.DefaultNotebook(ctx, sess.UserID); err != nil {
		return err
	}

	notebooks, err := s.repo.Notebooks(ctx, sess.UserID)
	if err != nil {
		return err
	}

	resp := NotebookListResp{Notebooks: make([]NotebookResp, 0, len(notebooks))}
	for _, nb := range notebooks {
		resp.Notebooks = append(resp.Notebooks, apiNotebook(nb))
	}

	return writeJSON(w, http.StatusOK, resp)
}

// ownedNotebook fetches a notebook only if the session user owns it.
func (s Server) ownedNotebook(r *http.Request) (learningtool.Notebook, error) {
	var (
		ctx  = r.Context()
		sess = session(r, s.secureCookie)
	)

	nb, err := s.repo.Notebook(ctx, mux.Vars(r)["notebookID"])
	if err != nil {
		return learningtool.Notebook{}, err
	}
	if nb.UserID != sess.UserID {
		return learningtool.Notebook{}, learningtool.ErrNotFound
	}

	return nb, nil
}

func (s Server) getNotebook(w http.ResponseWriter, r *http.Request) error {
	nb, err := s.ownedNotebook(r)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, apiNotebook(nb))
}

func (s Server) deleteNotebook(w http.ResponseWriter, r *http.Request) error {
	nb, err := s.ownedNotebook(r)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteNotebook(r.Context(), nb.ID); err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, struct{}{})
}

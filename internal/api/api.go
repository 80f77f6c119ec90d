package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	lterrs "github.com/appleaa123/learningtool/internal/errors"
	"github.com/appleaa123/learningtool/internal/learningtool"
)

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("error encoding json response: %s", err)
	}

	return nil
}

// validator is a surface that can validate itself and return an error
// if something is wrong.
type validator interface {
	Validate() error
}

// decodeValid decodes a request and then validates it.
func decodeValid[V validator](r io.Reader) (V, error) {
	var v V
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return v, lterrs.E(fmt.Errorf("error decoding request: %w", err), http.StatusBadRequest)
	}
	if err := v.Validate(); err != nil {
		return v, err
	}

	return v, nil
}

// HandlerFuncE is a modified type of [http.HandlerFunc] that returns an error.
type HandlerFuncE func(w http.ResponseWriter, r *http.Request) error

func (f HandlerFuncE) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := f(w, r)
	if err == nil {
		return
	}

	sErr := coerceError(err)
	if sErr.Status >= http.StatusInternalServerError {
		slog.Error("handler error", "err", err, "path", r.URL.Path)
	}

	if err := writeJSON(w, sErr.Status, sErr); err != nil {
		slog.Error("error writing response", "error", err)
	}
}

// coerceError turns whatever a handler returned into a structured error.
// Domain sentinels map to their natural statuses; anything unrecognized is
// reported as an opaque 500.
func coerceError(err error) *lterrs.Error {
	sErr := &lterrs.Error{}
	if errors.As(err, &sErr) {
		return sErr
	}

	switch {
	case errors.Is(err, learningtool.ErrNotFound):
		return lterrs.E(err, http.StatusNotFound)
	case errors.Is(err, learningtool.ErrContentMissing):
		return lterrs.E(err, http.StatusNotFound)
	case errors.Is(err, learningtool.ErrConflict):
		return lterrs.E(err, http.StatusConflict)
	case errors.Is(err, learningtool.ErrInvalidTransition):
		return lterrs.E(err, http.StatusConflict)
	case errors.Is(err, learningtool.ErrInvalidScope):
		return lterrs.E(err, http.StatusBadRequest)
	}

	return lterrs.E(http.StatusInternalServerError, "internal server error")
}

// errRouter is a newtype around a mux router that allows attaching handlers that return errors.
type errRouter struct {
	*mux.Router
}

func (r errRouter) HandleFuncE(path string, f HandlerFuncE) *mux.Route {
	return r.Handle(path, f)
}

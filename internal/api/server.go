package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"

	"github.com/appleaa123/learningtool/internal/feed"
	"github.com/appleaa123/learningtool/internal/ingest"
	"github.com/appleaa123/learningtool/internal/learningtool"
)

// ResearchTrigger schedules the research run for an accepted topic.
type ResearchTrigger interface {
	ResearchTopic(ctx context.Context, topicID string) error
}

type (
	// Server handles requests to read the knowledge feed, ingest new
	// material, and steer the topic suggestion pipeline.
	Server struct {
		*http.Server

		repo      learningtool.Repository
		ingestor  *ingest.Ingestor
		paginator *feed.Paginator
		resolver  *feed.Resolver
		research  ResearchTrigger

		secureCookie *securecookie.SecureCookie
		httpsCookies bool // Whether or not HTTPS should be used for cookies
	}

	ServerConfig struct {
		Port           int
		CookieHashKey  []byte
		CookieBlockKey []byte
		HttpsCookies   bool
		CorsHeader     string
	}
)

func NewServer(config ServerConfig, repo learningtool.Repository, ingestor *ingest.Ingestor, paginator *feed.Paginator, resolver *feed.Resolver, research ResearchTrigger) *Server {
	r := errRouter{Router: mux.NewRouter()}

	srvr := Server{
		repo:         repo,
		ingestor:     ingestor,
		paginator:    paginator,
		resolver:     resolver,
		research:     research,
		secureCookie: securecookie.New(config.CookieHashKey, config.CookieBlockKey),
		httpsCookies: config.HttpsCookies,
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			Handler: handlers.CORS(
				handlers.AllowedOrigins([]string{config.CorsHeader}),
				handlers.AllowCredentials(),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"content-type"}),
			)(r),
		},
	}

	r.Use(accessLogMiddleware) // Log everything
	r.HandleFuncE("/api/login", srvr.handlePostLogin).Methods(http.MethodPost)
	r.HandleFuncE("/api/logout", srvr.getLogout).Methods(http.MethodGet)

	authed := errRouter{Router: r.NewRoute().Subrouter()}
	authed.Use(requireSessionMiddleware(srvr.secureCookie))

	// Feed view
	authed.HandleFuncE("/api/feed", srvr.getFeed).Methods(http.MethodGet)
	authed.HandleFuncE("/api/feed/{entryID}/content", srvr.getFeedEntryContent).Methods(http.MethodGet)

	// Ingestion
	authed.HandleFuncE("/api/ingest", srvr.postIngest).Methods(http.MethodPost)
	authed.HandleFuncE("/api/ingest/url", srvr.postIngestURL).Methods(http.MethodPost)

	// Topic suggestions
	authed.HandleFuncE("/api/topics", srvr.getTopics).Methods(http.MethodGet)
	authed.HandleFuncE("/api/topics/preferences", srvr.getPreferences).Methods(http.MethodGet)
	authed.HandleFuncE("/api/topics/preferences", srvr.putPreferences).Methods(http.MethodPut)
	authed.HandleFuncE("/api/topics/{topicID}/accept", srvr.postTopicAccept).Methods(http.MethodPost)
	authed.HandleFuncE("/api/topics/{topicID}/reject", srvr.postTopicReject).Methods(http.MethodPost)

	// Notebook management
	authed.HandleFuncE("/api/notebooks", srvr.postNotebooks).Methods(http.MethodPost)
	authed.HandleFuncE("/api/notebooks", srvr.getNotebooks).Methods(http.MethodGet)
	authed.HandleFuncE("/api/notebooks/{notebookID}", srvr.getNotebook).Methods(http.MethodGet)
	authed.HandleFuncE("/api/notebooks/{notebookID}", srvr.deleteNotebook).Methods(http.MethodDelete)

	slog.Debug("configured learningtool server", "port", config.Port)

	return &srvr
}

// scopeFromRequest resolves the caller's scope: the user comes from the
// session, the notebook from the notebook_id query param, defaulting to the
// user's default notebook when absent. A notebook belonging to someone else
// is indistinguishable from a missing one.
func (s Server) scopeFromRequest(r *http.Request) (learningtool.Scope, error) {
	ctx := r.Context()
	sess := session(r, s.secureCookie)

	notebookID := r.URL.Query().Get("notebook_id")
	if notebookID == "" {
		nb, err := s.repo.DefaultNotebook(ctx, sess.UserID)
		if err != nil {
			return learningtool.Scope{}, err
		}
		notebookID = nb.ID
	} else {
		nb, err := s.repo.Notebook(ctx, notebookID)
		if err != nil {
			return learningtool.Scope{}, err
		}
		if nb.UserID != sess.UserID {
			return learningtool.Scope{}, learningtool.ErrNotFound
		}
	}

	scope := learningtool.Scope{
		UserID:     sess.UserID,
		NotebookID: notebookID,
	}
	if err := scope.Validate(); err != nil {
		return learningtool.Scope{}, err
	}

	return scope, nil
}

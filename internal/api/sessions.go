package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"

	lterrs "github.com/appleaa123/learningtool/internal/errors"
)

const sessionCookieName = "learningtool_session"

// Describes a user's sessionState that's persisted to their cookie.
type sessionState struct {
	UserID string
}

// Fetches the current session tied to the request.
func session(r *http.Request, secureCookie *securecookie.SecureCookie) sessionState {
	cookie, err := r.Cookie(sessionCookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return sessionState{}
	}
	if err != nil {
		slog.Error("error fetching cookie", "err", err)
		return sessionState{}
	}

	value := sessionState{}
	if err := secureCookie.Decode(sessionCookieName, cookie.Value, &value); err != nil {
		slog.Error("error decoding cookie", "err", err)
		return sessionState{}
	}

	return value
}

// Sets the session on the request.
func setSession(w http.ResponseWriter, secureCookie *securecookie.SecureCookie, https bool, sess sessionState) {
	encoded, err := secureCookie.Encode(sessionCookieName, sess)
	if err != nil {
		slog.Error("error encoding cookie", "err", err)
		return
	}

	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    encoded,
		Path:     "/",
		Secure:   https,
		HttpOnly: true,
	}
	http.SetCookie(w, cookie)
}

func requireSessionMiddleware(sc *securecookie.SecureCookie) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := session(r, sc)
			if state.UserID == "" {
				http.Error(w, "Unauthenticated", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type LoginReq struct {
	UserID string `json:"user_id"`
}

func (req LoginReq) Validate() error {
	if strings.TrimSpace(req.UserID) == "" {
		return lterrs.E("user_id is required", http.StatusBadRequest)
	}

	return nil
}

// Starts a session for the given user.
//
// There is no credential exchange here; identity comes from the deployment's
// fronting proxy and this route just pins it to a cookie.
func (s Server) handlePostLogin(w http.ResponseWriter, r *http.Request) error {
	var body LoginReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return lterrs.E(err, http.StatusBadRequest)
	}
	if err := body.Validate(); err != nil {
		return err
	}

	setSession(w, s.secureCookie, s.httpsCookies, sessionState{UserID: body.UserID})
	return writeJSON(w, http.StatusOK, struct{}{})
}

func (s Server) getLogout(w http.ResponseWriter, r *http.Request) error {
	setSession(w, s.secureCookie, s.httpsCookies, sessionState{})
	return writeJSON(w, http.StatusOK, struct{}{})
}

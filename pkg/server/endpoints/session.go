package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quizdesk/quizdesk/pkg/identity"
	"github.com/quizdesk/quizdesk/pkg/model"
	"github.com/quizdesk/quizdesk/pkg/resolver"
	"github.com/quizdesk/quizdesk/pkg/server"
	"github.com/quizdesk/quizdesk/pkg/server/middleware"
	"github.com/quizdesk/quizdesk/pkg/session"
)

// SessionResponse represents the current session
type SessionResponse struct {
	Authenticated bool               `json:"authenticated"`
	Identity      *identity.Identity `json:"identity"`
}

// LoginRequest is the body of POST /session/login
type LoginRequest struct {
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

// ResumeResponse represents the response from /session/resume
type ResumeResponse struct {
	Destination string `json:"destination"`
}

// RegisterSessionEndpoints registers the login, logout and session endpoints
func RegisterSessionEndpoints(s *server.Server) {
	s.Router.Handle("/session", middleware.WithIdentity(s.Session, waitTimeout)(handleGetSession())).Methods("GET")
	s.Router.HandleFunc("/session", handleLogout(s.Session)).Methods("DELETE")
	s.Router.HandleFunc("/session/resume", handleResume(s.Session, s.Gate.Landing())).Methods("GET")

	login := s.Router.PathPrefix("/session/login").Subrouter()
	login.Use(s.LoginLimiter.Middleware)
	login.HandleFunc("", handleLogin(s.Session)).Methods("POST")
}

func handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		respondWithJSON(w, http.StatusOK, SessionResponse{Authenticated: id != nil, Identity: id})
	}
}

func handleLogin(ctrl *session.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if _, err := identity.ValidateUsername(req.Username); err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		var role model.Role
		if req.Role != "" {
			parsed, err := model.RoleString(req.Role)
			if err != nil {
				respondWithError(w, http.StatusBadRequest, "unknown role: "+req.Role)
				return
			}
			role = parsed
		}

		id, err := ctrl.Login(r.Context(), req.Username, role)
		switch {
		case err == nil:
			respondWithJSON(w, http.StatusOK, SessionResponse{Authenticated: true, Identity: id})
		case errors.Is(err, resolver.ErrLoginFailed):
			respondWithError(w, http.StatusBadGateway, "login failed")
		case errors.Is(err, session.ErrClosed):
			respondWithError(w, http.StatusServiceUnavailable, "shutting down")
		default:
			respondWithError(w, http.StatusInternalServerError, err.Error())
		}
	}
}

func handleLogout(ctrl *session.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := ctrl.Logout(r.Context())
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, session.ErrLogoutFailed):
			respondWithError(w, http.StatusBadGateway, "logout_failed")
		case errors.Is(err, session.ErrClosed):
			respondWithError(w, http.StatusServiceUnavailable, "shutting down")
		default:
			respondWithError(w, http.StatusInternalServerError, err.Error())
		}
	}
}

func handleResume(ctrl *session.Controller, landing string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dest, err := ctrl.TakeResumeDestination(r.Context())
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if dest == "" {
			dest = landing
		}
		respondWithJSON(w, http.StatusOK, ResumeResponse{Destination: dest})
	}
}

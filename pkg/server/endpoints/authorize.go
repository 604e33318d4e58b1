package endpoints

import (
	"net/http"

	"github.com/quizdesk/quizdesk/pkg/authz"
	"github.com/quizdesk/quizdesk/pkg/identity"
	"github.com/quizdesk/quizdesk/pkg/server"
	"github.com/quizdesk/quizdesk/pkg/server/middleware"
)

// AuthorizeResponse represents a navigation decision
type AuthorizeResponse struct {
	authz.Decision
	Path     string              `json:"path"`
	Class    authz.ResourceClass `json:"class"`
	Redirect string              `json:"redirect,omitempty"`
}

// RegisterAuthorizeEndpoint registers the navigation check endpoint
func RegisterAuthorizeEndpoint(s *server.Server) {
	s.Router.Handle("/authorize", middleware.WithIdentity(s.Session, waitTimeout)(handleAuthorize(s))).Methods("GET")
}

func handleAuthorize(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" || path[0] != '/' {
			respondWithError(w, http.StatusBadRequest, "path query parameter must be an absolute path")
			return
		}

		id, _ := identity.Get(r.Context())
		class, _ := s.Routes().Classify(path)
		decision := s.Gate.Decide(r.Context(), id, class, path)

		respondWithJSON(w, http.StatusOK, AuthorizeResponse{
			Decision: decision,
			Path:     path,
			Class:    class,
			Redirect: decision.RedirectURL(),
		})
	}
}

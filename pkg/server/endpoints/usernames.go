package endpoints

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/quizdesk/quizdesk/pkg/identity"
	"github.com/quizdesk/quizdesk/pkg/server"
	"github.com/quizdesk/quizdesk/pkg/session"
)

// AvailabilityResponse represents the response from the availability endpoint
type AvailabilityResponse struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

// RegisterUsernamesEndpoint registers the username availability endpoint
func RegisterUsernamesEndpoint(s *server.Server) {
	s.Router.HandleFunc("/usernames/{username}/availability", handleAvailability(s.Session)).Methods("GET")
}

func handleAvailability(ctrl *session.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// The router keeps paths encoded.
		raw, err := url.PathUnescape(mux.Vars(r)["username"])
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "malformed username")
			return
		}

		respondWithJSON(w, http.StatusOK, AvailabilityResponse{
			Username:  identity.NormalizeUsername(raw),
			Available: ctrl.IsUsernameAvailable(r.Context(), raw),
		})
	}
}

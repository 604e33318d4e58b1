package endpoints

import (
	"context"
	"net/http"
	"time"

	"github.com/quizdesk/quizdesk/pkg/server"
	"github.com/quizdesk/quizdesk/pkg/session"
	"github.com/quizdesk/quizdesk/pkg/store"
)

// StatusResponse represents the response from /status
type StatusResponse struct {
	Initialized   bool   `json:"initialized"`
	Authenticated bool   `json:"authenticated"`
	Store         string `json:"store"`
	Error         string `json:"error,omitempty"`
}

// RegisterStatusEndpoints registers the readiness endpoint
func RegisterStatusEndpoints(s *server.Server) {
	s.Router.HandleFunc("/status", handleStatus(s.Session, s.HealthStore)).Methods("GET")
}

func handleStatus(ctrl *session.Controller, healthStore store.HealthStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := ctrl.State()
		response := StatusResponse{
			Initialized:   state.Initialized,
			Authenticated: state.Authenticated(),
			Store:         "ok",
		}

		if healthStore != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			err := healthStore.CheckConnectivity(ctx)
			cancel()
			if err != nil {
				// The session still works from the cache when the store is
				// down, so this only reports it.
				response.Store = "unreachable"
			}
		}

		if !state.Initialized {
			response.Error = "session not initialized"
			respondWithJSON(w, http.StatusServiceUnavailable, response)
			return
		}
		respondWithJSON(w, http.StatusOK, response)
	}
}

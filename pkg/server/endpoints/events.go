package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/quizdesk/quizdesk/pkg/server"
	"github.com/quizdesk/quizdesk/pkg/session"
)

// heartbeatInterval keeps idle event streams from being closed by proxies.
var heartbeatInterval = 15 * time.Second

// RegisterEventsEndpoint registers the server-sent session event stream
func RegisterEventsEndpoint(s *server.Server) {
	s.Router.HandleFunc("/session/events", handleEvents(s.Session)).Methods("GET")
}

func handleEvents(ctrl *session.Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			respondWithError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		states, stop := ctrl.Subscribe()
		defer stop()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		var id int64
		for {
			select {
			case <-r.Context().Done():
				return
			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case state, ok := <-states:
				if !ok {
					return
				}
				id++
				if err := writeEvent(w, id, state); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, id int64, state session.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: session\ndata: %s\n\n", id, data)
	return err
}

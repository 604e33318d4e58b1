package endpoints

import (
	"encoding/json"
	"net/http"
	"time"
)

// waitTimeout bounds how long a request waits for the session to be
// initialized.
const waitTimeout = 10 * time.Second

func respondWithError(w http.ResponseWriter, code int, payload interface{}) {
	respondWithJSON(w, code, map[string]interface{}{"error": payload})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

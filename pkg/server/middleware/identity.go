package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/quizdesk/quizdesk/pkg/identity"
)

// IdentitySource yields the session identity once the session is
// initialized.
type IdentitySource interface {
	WaitForAuth(ctx context.Context) (*identity.Identity, error)
}

// WithIdentity waits up to wait for the session to be initialized and
// stores its identity in the request context, where identity.Get finds it.
// Requests that time out are answered with 503.
func WithIdentity(src IdentitySource, wait time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), wait)
			id, err := src.WaitForAuth(ctx)
			cancel()
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"error":"session not initialized"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.Set(r.Context(), id)))
		})
	}
}

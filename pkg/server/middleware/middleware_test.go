package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quizdesk/quizdesk/pkg/audit"
	"github.com/quizdesk/quizdesk/pkg/identity"
	"github.com/quizdesk/quizdesk/pkg/model"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestLoginLimiter_Middleware(t *testing.T) {
	limiter := NewLoginLimiter(0.001, 2)
	handler := limiter.Middleware(okHandler())

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/session/login", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:5000").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1:5001").Code)

	throttled := send("10.0.0.1:5002")
	assert.Equal(t, http.StatusTooManyRequests, throttled.Code)
	assert.NotEmpty(t, throttled.Header().Get("Retry-After"))

	// Other clients have their own budget.
	assert.Equal(t, http.StatusOK, send("10.0.0.2:5000").Code)
}

func TestLoginLimiter_Update(t *testing.T) {
	limiter := NewLoginLimiter(0.001, 1)
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))

	limiter.Update(1000, 5)
	assert.Equal(t, 5, limiter.limiter("a").Burst())
	assert.Equal(t, 5, limiter.limiter("b").Burst())
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.7:4242"
	assert.Equal(t, "192.0.2.7", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientIP(req))
}

func TestWithClientIP(t *testing.T) {
	var got string
	handler := WithClientIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = audit.ClientIP(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "198.51.100.3:80"
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "198.51.100.3", got)
}

type fixedSource struct {
	id  *identity.Identity
	err error
}

func (s fixedSource) WaitForAuth(context.Context) (*identity.Identity, error) {
	return s.id, s.err
}

func TestWithIdentity(t *testing.T) {
	alice := &identity.Identity{PersistentID: "p-alice", DisplayName: "alice", Role: model.RoleStudent}

	var got *identity.Identity
	var found bool
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = identity.Get(r.Context())
	})

	t.Run("stores the session identity", func(t *testing.T) {
		w := httptest.NewRecorder()
		WithIdentity(fixedSource{id: alice}, time.Second)(capture).ServeHTTP(w, httptest.NewRequest("GET", "/authorize", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, found)
		assert.Equal(t, alice, got)
	})

	t.Run("signed out", func(t *testing.T) {
		w := httptest.NewRecorder()
		WithIdentity(fixedSource{}, time.Second)(capture).ServeHTTP(w, httptest.NewRequest("GET", "/authorize", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, found)
	})

	t.Run("session not initialized", func(t *testing.T) {
		found = false
		w := httptest.NewRecorder()
		WithIdentity(fixedSource{err: context.DeadlineExceeded}, time.Second)(capture).ServeHTTP(w, httptest.NewRequest("GET", "/authorize", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.False(t, found)
	})
}

package endpoints

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type downStore struct{}

func (downStore) CheckConnectivity(context.Context) error {
	return errors.New("connection refused")
}

func TestHandleStatus_StoreUnreachable(t *testing.T) {
	ts := newStartedServer(t)

	handler := handleStatus(ts.Session, downStore{})
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	// The session still answers from the cache, so readiness is unaffected.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"store":"unreachable"`)
}

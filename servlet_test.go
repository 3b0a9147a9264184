package mapred

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveResult(t *testing.T, servlet *ResultServlet, path, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	w := httptest.NewRecorder()
	servlet.ServeHTTP(w, req)
	return w
}

func TestResultServlet(t *testing.T) {
	store := NewResultStore()
	auth := NewHMACAuth([]byte("serve-secret"))
	servlet := NewResultServlet(store, auth)

	id := store.Put([]byte("shard output"))
	token, err := auth.EncodeAuthToken(Session{UserID: "u1", Namespace: "jobs"})
	require.NoError(t, err)

	w := serveResult(t, servlet, resultRoutePrefix+id, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "shard output", w.Body.String())
}

func TestResultServletMissingToken(t *testing.T) {
	store := NewResultStore()
	servlet := NewResultServlet(store, NewHMACAuth([]byte("serve-secret")))
	id := store.Put([]byte("shard output"))

	w := serveResult(t, servlet, resultRoutePrefix+id, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResultServletForgedToken(t *testing.T) {
	store := NewResultStore()
	servlet := NewResultServlet(store, NewHMACAuth([]byte("serve-secret")))
	id := store.Put([]byte("shard output"))

	forged, err := NewHMACAuth([]byte("other-secret")).EncodeAuthToken(Session{UserID: "u1", Namespace: "jobs"})
	require.NoError(t, err)

	w := serveResult(t, servlet, resultRoutePrefix+id, forged)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResultServletUnknownID(t *testing.T) {
	auth := NewHMACAuth([]byte("serve-secret"))
	servlet := NewResultServlet(NewResultStore(), auth)

	token, err := auth.EncodeAuthToken(Session{UserID: "u1", Namespace: "jobs"})
	require.NoError(t, err)

	w := serveResult(t, servlet, resultRoutePrefix+"missing", token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResultServletUnknownRoute(t *testing.T) {
	servlet := NewResultServlet(NewResultStore(), NewHMACAuth([]byte("serve-secret")))

	w := serveResult(t, servlet, "/api/v1/mapreduce/tasks", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

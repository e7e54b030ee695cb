package rpc

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alphabill-org/chainauthority/internal/metrics"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func TestNewRESTServer(t *testing.T) {
	s := NewRESTServer(":0", maxBodySize, RegistrarFunc(func(r *mux.Router) {
		r.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
			writeJSONResponse(w, "pong", http.StatusOK)
		})
	}))
	require.Equal(t, ":0", s.Addr)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "\"pong\"\n", rec.Body.String())
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	// handlers are registered under the API prefix only
	rec = httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoints(t *testing.T) {
	s := NewRESTServer("", maxBodySize, MetricsEndpoints())
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil))
	if metrics.Enabled() {
		require.Equal(t, http.StatusOK, rec.Code)
	} else {
		require.Equal(t, http.StatusNotFound, rec.Code)
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.ErrBodyNotAllowed, http.StatusTeapot)
	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, applicationJson, rec.Header().Get(headerContentType))
	require.JSONEq(t, `{"error":"http: request method or response status code does not allow body"}`, rec.Body.String())
}

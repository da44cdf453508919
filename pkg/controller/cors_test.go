package controller_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"filescan/pkg/controller"

	"github.com/stretchr/testify/require"
)

func TestWithCORS_SetsHeaders(t *testing.T) {
	h := controller.WithCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/history", nil))

	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestWithCORS_Preflight(t *testing.T) {
	called := false
	h := controller.WithCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/v1/history", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.False(t, called, "preflight must not reach the downstream handler")
}

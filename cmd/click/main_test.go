package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwb4/proofofclick/internal/adapters/out/clickapi"
)

func TestExecute_ReturnsErrorsInsteadOfExiting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v2/authority":
			_, _ = w.Write([]byte(`{"address":"x","bump":255,"initialized":false}`))
		default:
			w.WriteHeader(http.StatusPreconditionFailed)
			_, _ = w.Write([]byte(`{"error":"account_not_initialized","detail":"marker"}`))
		}
	}))
	t.Cleanup(srv.Close)

	require.NoError(t, execute(srv.URL, "", "", time.Second, "authority", nil))

	err := execute(srv.URL, "", "", time.Second, "click", nil)
	var apiErr *clickapi.APIError
	require.True(t, errors.As(err, &apiErr), err)
	assert.Equal(t, http.StatusPreconditionFailed, apiErr.Status)

	assert.ErrorContains(t, execute(srv.URL, "", "", time.Second, "dance", nil), `unknown command "dance"`)
	assert.ErrorContains(t, execute(srv.URL, "/nonexistent/payer.json", "", time.Second, "authority", nil), "load payer")
}

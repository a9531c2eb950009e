package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_Post_DecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"query":"isnad","k":3}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"results":[],"context":"none"}}`))
	}))
	defer srv.Close()

	resp, err := NewAPIClientWithConfig(srv.URL+"/").Post(context.Background(), "/search", SearchRequest{Query: "isnad", K: 3})
	require.NoError(t, err)

	var out SearchResponse
	require.NoError(t, resp.decode(&out))
	assert.Equal(t, "none", out.Context)
}

func TestAPIClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		code    string
	}{
		{"domain error", http.StatusNotFound, `{"error":"session not found","code":"NOT_FOUND"}`, "session not found", "NOT_FOUND"},
		{"plain text", http.StatusBadGateway, "upstream down", "upstream down", ""},
		{"empty body", http.StatusServiceUnavailable, "", "Service Unavailable", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewAPIClientWithConfig(srv.URL).Get(context.Background(), "/index")

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.code, apiErr.Code)
		})
	}
}

func TestAPIClient_Delete_NoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := NewAPIClientWithConfig(srv.URL).Delete(context.Background(), "/sessions/abc")
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}

func TestAPIClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": nil})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAPIClientWithConfig(srv.URL).Get(ctx, "/health")
	assert.ErrorIs(t, err, context.Canceled)
}

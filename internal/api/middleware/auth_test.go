package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/swingsim/internal/api/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
})

type countingRecorder map[string]int

func (c countingRecorder) RecordAuthFailure(reason string) { c[reason]++ }

func TestAuth_Wrap(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		header     string
		wantCode   int
		wantReason string
	}{
		{"valid key", "secret-key", "secret-key", http.StatusOK, ""},
		{"missing key", "secret-key", "", http.StatusUnauthorized, "missing"},
		{"invalid key", "secret-key", "wrong", http.StatusUnauthorized, "invalid"},
		{"auth disabled", "", "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, logs := observer.New(zapcore.WarnLevel)
			rec := countingRecorder{}
			auth := NewAuth(tt.key, zap.New(obs), rec)

			req := httptest.NewRequest("GET", "/api/runs", nil)
			if tt.header != "" {
				req.Header.Set(APIKeyHeader, tt.header)
			}
			w := httptest.NewRecorder()
			w.Header().Set("X-Request-ID", "req-1")

			auth.Wrap(okHandler).ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)

			if tt.wantReason == "" {
				assert.Empty(t, rec)
				assert.Zero(t, logs.Len())
				return
			}

			var resp response.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
			assert.Equal(t, 1, rec[tt.wantReason])

			require.Equal(t, 1, logs.Len())
			fields := logs.All()[0].ContextMap()
			assert.Equal(t, tt.wantReason, fields["reason"])
			assert.Equal(t, "/api/runs", fields["path"])
			assert.Equal(t, "req-1", fields["request_id"])
		})
	}
}

func TestAuth_NilCollaborators(t *testing.T) {
	auth := NewAuth("secret-key", nil, nil)
	assert.True(t, auth.Enabled())

	w := httptest.NewRecorder()
	auth.Wrap(okHandler).ServeHTTP(w, httptest.NewRequest("GET", "/api/runs", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

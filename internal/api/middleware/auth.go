// Package middleware holds HTTP middleware for the API.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/newthinker/swingsim/internal/api/response"
	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/logger"
	"go.uber.org/zap"
)

// APIKeyHeader carries the API key.
const APIKeyHeader = "X-API-Key"

// AuthRecorder counts rejected requests by reason.
type AuthRecorder interface {
	RecordAuthFailure(reason string)
}

// Auth checks the API key of every request. An empty key disables it.
type Auth struct {
	key      []byte
	logger   *zap.Logger
	recorder AuthRecorder
}

// NewAuth creates the key check. log and rec may be nil.
func NewAuth(apiKey string, log *zap.Logger, rec AuthRecorder) *Auth {
	return &Auth{
		key:      []byte(apiKey),
		logger:   logger.Named(log, "auth"),
		recorder: rec,
	}
}

// Enabled reports whether a key is required.
func (a *Auth) Enabled() bool {
	return len(a.key) > 0
}

// Wrap rejects requests to next that lack the configured key.
func (a *Auth) Wrap(next http.Handler) http.Handler {
	if !a.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided := r.Header.Get(APIKeyHeader)
		switch {
		case provided == "":
			a.reject(w, r, "missing", core.Errorf(core.ErrUnauthorized, "%s header required", APIKeyHeader))
		case subtle.ConstantTimeCompare([]byte(provided), a.key) != 1:
			a.reject(w, r, "invalid", core.ErrUnauthorized)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (a *Auth) reject(w http.ResponseWriter, r *http.Request, reason string, err error) {
	a.logger.Warn("api request rejected",
		zap.String("reason", reason),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", w.Header().Get("X-Request-ID")),
	)
	if a.recorder != nil {
		a.recorder.RecordAuthFailure(reason)
	}
	response.Error(w, http.StatusUnauthorized, err)
}

package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/swingsim/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Data)
	assert.False(t, resp.Meta.Timestamp.IsZero())
	assert.Nil(t, resp.Meta.Total)
}

func TestPage(t *testing.T) {
	w := httptest.NewRecorder()
	Page(w, []int{1, 2}, 0, 50, 0)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, float64(0), raw["meta"]["total"])
	assert.Equal(t, float64(50), raw["meta"]["limit"])
}

func TestError_WithCoreError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusBadRequest, core.Errorf(core.ErrConfigInvalid, "interval 7"))

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CONFIG_INVALID", resp.Error.Code)
	assert.Equal(t, "configuration invalid", resp.Error.Message)
	assert.Equal(t, "interval 7", resp.Error.Cause)
}

func TestError_WithPlainError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusInternalServerError, errors.New("disk on fire"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.Empty(t, resp.Error.Cause)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrUnauthorized, http.StatusUnauthorized},
		{core.ErrNotFound, http.StatusNotFound},
		{core.WrapError(core.ErrProvider, core.Errorf(core.ErrUnknownPair, "FOO")), http.StatusNotFound},
		{core.ErrConfigInvalid, http.StatusBadRequest},
		{core.ErrConfigMissing, http.StatusBadRequest},
		{core.ErrInsufficientData, http.StatusUnprocessableEntity},
		{fmt.Errorf("fetch: %w", core.ErrProvider), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Status(tt.err), "%v", tt.err)
	}
}

package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sagarc03/gridfetch"
	gridhttp "github.com/sagarc03/gridfetch/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError_NotFound(t *testing.T) {
	rec := httptest.NewRecorder()

	gridhttp.HandleError(rec, fmt.Errorf("open object: %w", gridfetch.ErrNotFound))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHandleError_MalformedInput(t *testing.T) {
	rec := httptest.NewRecorder()

	gridhttp.HandleError(rec, fmt.Errorf("decode key: %w", gridfetch.ErrMalformedInput))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed_key")
}

func TestHandleError_ConnectError(t *testing.T) {
	rec := httptest.NewRecorder()

	err := gridfetch.NewConnectError(gridfetch.ReasonNotPrimary, errors.New("secondary"))
	gridhttp.HandleError(rec, fmt.Errorf("open object: %w", err))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_error")
	assert.NotContains(t, rec.Body.String(), "secondary")
}

func TestHandleError_Canceled(t *testing.T) {
	rec := httptest.NewRecorder()

	gridhttp.HandleError(rec, fmt.Errorf("open object: %w", context.Canceled))

	assert.Empty(t, rec.Body.String())
	assert.Empty(t, rec.Header())
}

func TestHandleError_InternalError(t *testing.T) {
	rec := httptest.NewRecorder()

	gridhttp.HandleError(rec, errors.New("some unexpected error"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_error")
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()

	gridhttp.WriteError(rec, http.StatusTeapot, "teapot", "Short and stout")

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp gridhttp.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, gridhttp.ErrorResponse{Error: "teapot", Message: "Short and stout"}, resp)
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	err := gridhttp.WriteJSON(rec, http.StatusOK, gridfetch.ObjectInfo{Filename: "a.txt", Length: 3})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"filename":"a.txt"`)
}

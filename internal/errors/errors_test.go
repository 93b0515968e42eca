package errors

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	RateLimitExceeded().WriteJSON(rec)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Rate limit exceeded. Please try again later."}`, rec.Body.String())
}

func TestWriteText(t *testing.T) {
	rec := httptest.NewRecorder()
	LinkNotFound().WriteText(rec)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Short URL not found", rec.Body.String())
}

func TestWithCause_NotSentToClient(t *testing.T) {
	cause := stderrors.New("pq: connection refused")
	appErr := Internal().WithCause(cause)

	assert.ErrorIs(t, appErr, cause)
	assert.Contains(t, appErr.Error(), "connection refused")

	rec := httptest.NewRecorder()
	appErr.WriteJSON(rec)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

package errors

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryMiddleware(t *testing.T) {
	tests := []struct {
		name  string
		panic interface{}
	}{
		{name: "string panic", panic: "boom"},
		{name: "error panic", panic: errors.New("nil map write")},
		{name: "other panic", panic: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic(tt.panic)
			}))

			req := httptest.NewRequest(http.MethodPost, "/git-hook", nil)
			req.Header.Set("X-Request-Id", "req-1")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, ErrCodeInternalError, resp.Error)
			assert.Equal(t, "req-1", resp.RequestID)
		})
	}
}

func TestRecoveryMiddleware_PassThrough(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestFormatPanic(t *testing.T) {
	assert.Equal(t, "boom", formatPanic("boom"))
	assert.Equal(t, "bad", formatPanic(errors.New("bad")))
	assert.Equal(t, "[1 2]", formatPanic([]int{1, 2}))
}

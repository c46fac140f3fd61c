package handler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/photolog/internal/handler"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthHandler_HandleHealth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("healthy", func(t *testing.T) {
		h := handler.NewHealthHandler(stubPinger{}, logger)
		rr := httptest.NewRecorder()

		h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status":"healthy","service":"PhotoLog API"}`, rr.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		h := handler.NewHealthHandler(stubPinger{err: errors.New("database is closed")}, logger)
		rr := httptest.NewRecorder()

		h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.JSONEq(t, `{"status":"unhealthy","service":"PhotoLog API"}`, rr.Body.String())
	})
}

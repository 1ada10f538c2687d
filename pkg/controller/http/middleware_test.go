package http_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gt"
	controller "github.com/m-mizutani/pushdeploy/pkg/controller/http"
)

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := ctxlog.With(context.Background(), logger)

	handler := middleware.RequestID(controller.LoggingMiddleware(ctx)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctxlog.From(r.Context()).Info("inside handler")
			w.WriteHeader(http.StatusTeapot)
		}),
	))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	gt.Equal(t, w.Code, http.StatusTeapot)

	out := buf.String()
	gt.String(t, out).Contains(`"msg":"inside handler"`)
	gt.String(t, out).Contains(`"msg":"HTTP request"`)
	gt.String(t, out).Contains(`"status":418`)
	gt.String(t, out).Contains(`"request_id":`)
	gt.String(t, out).Contains(`"level":"WARN","msg":"HTTP request"`)
}

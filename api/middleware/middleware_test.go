package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/irsalhamdi/e-learning-market/api/web"
	"github.com/irsalhamdi/e-learning-market/api/weberr"
	"github.com/irsalhamdi/e-learning-market/rate"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func serve(t *testing.T, h web.Handler, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	if err := h(r.Context(), w, r); err != nil {
		t.Fatalf("unexpected error escaped the middleware: %v", err)
	}
	return w
}

func TestErrorsRespondsWithAttachedStatus(t *testing.T) {
	log, hook := test.NewNullLogger()
	h := web.WrapMiddleware([]web.Middleware{RequestID(), Errors(log)},
		func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			return weberr.Conflict(errors.New("course already in cart"), weberr.WithField("course_id", "c1"))
		})

	w := serve(t, h, httptest.NewRequest(http.MethodPost, "/cart/items", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected a request id header")
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("expected a warning, got %v", entry)
	}
	if entry.Data["course_id"] != "c1" || entry.Data["status"] != http.StatusConflict {
		t.Fatalf("unexpected log fields %v", entry.Data)
	}
}

func TestErrorsHidesUnmappedErrors(t *testing.T) {
	log, hook := test.NewNullLogger()
	h := Errors(log)(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errors.New("pq: connection refused")
	})

	w := serve(t, h, httptest.NewRequest(http.MethodGet, "/cart", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if body := w.Body.String(); body != `{"error":"Internal Server Error"}` {
		t.Fatalf("internal error leaked: %s", body)
	}
	if hook.LastEntry().Level != logrus.ErrorLevel {
		t.Fatalf("expected an error log, got %v", hook.LastEntry().Level)
	}
}

func TestRateLimitSetsRetryAfter(t *testing.T) {
	lim := rate.NewLimiter(1, time.Minute, rate.Every(5*time.Second))
	defer lim.Stop()

	log, _ := test.NewNullLogger()
	h := web.WrapMiddleware([]web.Middleware{Errors(log), RateLimit(lim)},
		func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		})

	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	if w := serve(t, h, req); w.Code != http.StatusNoContent {
		t.Fatalf("first request: expected 204, got %d", w.Code)
	}

	w := serve(t, h, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "5" {
		t.Fatalf("expected Retry-After 5, got %q", got)
	}
}

func TestLoggerQuietPaths(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	h := Logger(log, "/health")(func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, map[string]string{"status": "ok"}, http.StatusOK)
	})

	serve(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	if e := hook.LastEntry(); e.Level != logrus.DebugLevel {
		t.Fatalf("expected probe logged at debug, got %v", e.Level)
	}

	serve(t, h, httptest.NewRequest(http.MethodGet, "/cart", nil))
	e := hook.LastEntry()
	if e.Level != logrus.InfoLevel || e.Data["status"] != http.StatusOK {
		t.Fatalf("unexpected entry %v %v", e.Level, e.Data)
	}
}

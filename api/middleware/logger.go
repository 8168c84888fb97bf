package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/irsalhamdi/e-learning-market/api/web"
	"github.com/sirupsen/logrus"
	"github.com/zenazn/goji/web/mutil"
)

// Logger writes one line per finished request. Probe endpoints are logged at
// debug so they do not drown the checkout traffic.
func Logger(log logrus.FieldLogger, quiet ...string) web.Middleware {
	skip := make(map[string]bool, len(quiet))
	for _, p := range quiet {
		skip[p] = true
	}

	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			start := time.Now()
			lw := mutil.WrapWriter(w)
			err := handler(ctx, lw, r)

			status := lw.Status()
			if status == 0 {
				status = http.StatusOK
			}

			entry := log.WithFields(logrus.Fields{
				"req_id":   ContextRequestID(ctx),
				"method":   r.Method,
				"path":     r.URL.Path,
				"remote":   r.RemoteAddr,
				"status":   status,
				"bytes":    lw.BytesWritten(),
				"duration": time.Since(start).String(),
			})

			switch {
			case skip[r.URL.Path]:
				entry.Debug("request")
			case status >= http.StatusInternalServerError:
				entry.Error("request")
			default:
				entry.Info("request")
			}
			return err
		}
		return h
	}
	return m
}

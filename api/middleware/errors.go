package middleware

import (
	"context"
	"net/http"

	"github.com/irsalhamdi/e-learning-market/api/web"
	"github.com/irsalhamdi/e-learning-market/api/weberr"
	"github.com/sirupsen/logrus"
)

// Errors turns handler errors into JSON responses. Errors without an attached
// response are logged in full and answered with a generic 500.
func Errors(log logrus.FieldLogger) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			err := handler(ctx, w, r)
			if err == nil {
				return nil
			}

			fields := logrus.Fields{
				"req_id":  ContextRequestID(ctx),
				"message": err,
			}
			if f, ok := weberr.Fields(err); ok {
				for k, v := range f {
					fields[k] = v
				}
			}

			body, code, ok := weberr.Response(err)
			if !ok {
				body = weberr.ErrorResponse{Error: http.StatusText(http.StatusInternalServerError)}
				code = http.StatusInternalServerError
			}
			fields["status"] = code

			if code < http.StatusInternalServerError {
				log.WithFields(fields).Warn("REQUEST REJECTED")
			} else {
				log.WithFields(fields).Error("ERROR")
			}

			for k, vs := range weberr.Header(err) {
				w.Header()[k] = vs
			}
			return web.Respond(ctx, w, body, code)
		}
		return h
	}
	return m
}

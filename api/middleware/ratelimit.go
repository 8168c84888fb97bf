package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/irsalhamdi/e-learning-market/api/web"
	"github.com/irsalhamdi/e-learning-market/api/weberr"
	"github.com/irsalhamdi/e-learning-market/core/claims"
	"github.com/irsalhamdi/e-learning-market/rate"
)

// RateLimit keys on the authenticated user, falling back to the remote address.
func RateLimit(lim *rate.Limiter) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			key := r.RemoteAddr
			if clm, err := claims.Get(ctx); err == nil {
				key = clm.UserID
			}

			if !lim.Check(key) {
				return weberr.TooManyRequests(
					errors.New("rate limit exceeded"),
					weberr.WithHeader("Retry-After", strconv.Itoa(lim.RetryAfter())),
					weberr.WithField("limit_key", key),
				)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

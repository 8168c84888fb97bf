package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/e-learning-market/api/web"
	"github.com/irsalhamdi/e-learning-market/api/weberr"
	"github.com/irsalhamdi/e-learning-market/core/claims"
	"github.com/irsalhamdi/e-learning-market/core/user"
	"github.com/jmoiron/sqlx"
)

const (
	userIDKey     = "user_id"
	oauthStateKey = "oauth_state"
)

// Authenticate accepts a bearer token or a login session. Session users get
// their current role from the database.
func Authenticate(db *sqlx.DB, sm *scs.SessionManager, secret string) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			clm, err := identify(ctx, db, sm, secret, r)
			if err != nil {
				return err
			}

			ctx = claims.Set(ctx, clm)
			return handler(ctx, w, r.WithContext(ctx))
		}
		return h
	}
	return m
}

func identify(ctx context.Context, db *sqlx.DB, sm *scs.SessionManager, secret string, r *http.Request) (claims.Claims, error) {
	if authz := r.Header.Get("Authorization"); authz != "" {
		scheme, raw, ok := strings.Cut(authz, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			return claims.Claims{}, weberr.NotAuthorized(errors.New("malformed authorization header"))
		}

		clm, err := ParseToken(secret, strings.TrimSpace(raw))
		if err != nil {
			return claims.Claims{}, weberr.NotAuthorized(err)
		}
		return clm, nil
	}

	userID := sm.GetString(ctx, userIDKey)
	if userID == "" {
		return claims.Claims{}, weberr.NotAuthorized(errors.New("user not authenticated"))
	}

	u, err := user.Fetch(ctx, db, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return claims.Claims{}, weberr.NotAuthorized(err)
		}
		return claims.Claims{}, fmt.Errorf("loading session user: %w", err)
	}

	return claims.Claims{UserID: u.ID, Role: u.Role}, nil
}

// RequireRole must run after Authenticate.
func RequireRole(role string) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if !claims.HasRole(ctx, role) {
				return weberr.Forbidden(fmt.Errorf("role %s required", role))
			}
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

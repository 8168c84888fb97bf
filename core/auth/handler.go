package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/e-learning-market/api/web"
	"github.com/irsalhamdi/e-learning-market/api/weberr"
	"github.com/irsalhamdi/e-learning-market/core/claims"
	"github.com/irsalhamdi/e-learning-market/core/user"
	"github.com/irsalhamdi/e-learning-market/random"
	"github.com/irsalhamdi/e-learning-market/validate"
	"github.com/jmoiron/sqlx"
)

func HandleOauthLogin(sm *scs.SessionManager, provs map[string]Provider) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		name := web.Param(r, "provider")
		p, ok := provs[name]
		if !ok {
			return weberr.NotFound(fmt.Errorf("unknown provider %q", name))
		}

		state, err := random.StringSecure(32)
		if err != nil {
			return fmt.Errorf("generating oauth state: %w", err)
		}
		sm.Put(ctx, oauthStateKey, state)

		http.Redirect(w, r, p.oauth.AuthCodeURL(state), http.StatusFound)
		return nil
	}
}

type idClaims struct {
	Email    string `json:"email"`
	Verified bool   `json:"email_verified"`
	Name     string `json:"name"`
}

func HandleOauthCallback(db *sqlx.DB, sm *scs.SessionManager, provs map[string]Provider, adminEmail string, redirectURL string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		name := web.Param(r, "provider")
		p, ok := provs[name]
		if !ok {
			return weberr.NotFound(fmt.Errorf("unknown provider %q", name))
		}

		state := sm.PopString(ctx, oauthStateKey)
		if state == "" || state != r.URL.Query().Get("state") {
			return weberr.BadRequest(errors.New("oauth state mismatch"))
		}

		tok, err := p.oauth.Exchange(ctx, r.URL.Query().Get("code"))
		if err != nil {
			return weberr.NotAuthorized(fmt.Errorf("exchanging code: %w", err))
		}

		raw, ok := tok.Extra("id_token").(string)
		if !ok {
			return weberr.NotAuthorized(errors.New("id_token missing from token response"))
		}

		idt, err := p.verifier.Verify(ctx, raw)
		if err != nil {
			return weberr.NotAuthorized(fmt.Errorf("verifying id token: %w", err))
		}

		var ic idClaims
		if err := idt.Claims(&ic); err != nil {
			return weberr.NotAuthorized(fmt.Errorf("decoding id token claims: %w", err))
		}
		if ic.Email == "" || !ic.Verified {
			return weberr.Forbidden(errors.New("a verified email is required"))
		}

		role := claims.RoleUser
		if adminEmail != "" && strings.EqualFold(ic.Email, adminEmail) {
			role = claims.RoleAdmin
		}

		u, err := user.Upsert(ctx, db, user.User{
			ID:        validate.GenerateID(),
			Email:     strings.ToLower(ic.Email),
			Name:      ic.Name,
			Role:      role,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("storing user: %w", err)
		}

		if err := sm.RenewToken(ctx); err != nil {
			return fmt.Errorf("renewing session token: %w", err)
		}
		sm.Put(ctx, userIDKey, u.ID)

		http.Redirect(w, r, redirectURL, http.StatusFound)
		return nil
	}
}

func HandleLogout(sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := sm.Destroy(ctx); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleToken exchanges the caller's identity for a bearer token.
func HandleToken(secret string, ttl time.Duration) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		tok, err := IssueToken(secret, ttl, clm)
		if err != nil {
			return fmt.Errorf("issuing token: %w", err)
		}

		return web.Respond(ctx, w, tok, http.StatusCreated)
	}
}

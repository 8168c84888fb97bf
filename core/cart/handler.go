package cart

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/e-learning-market/api/web"
	"github.com/irsalhamdi/e-learning-market/api/weberr"
	"github.com/irsalhamdi/e-learning-market/core/claims"
	"github.com/irsalhamdi/e-learning-market/validate"
	"github.com/jmoiron/sqlx"
)

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		lines, err := FetchItems(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching cart: %w", err)
		}

		return web.Respond(ctx, w, NewCart(lines), http.StatusOK)
	}
}

func HandleCount(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		n, err := Count(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("counting cart: %w", err)
		}

		return web.Respond(ctx, w, n, http.StatusOK)
	}
}

func HandleShowItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.InvalidInput(err)
		}

		l, err := FetchItem(ctx, db, clm.UserID, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching cart item: %w", err)
		}

		return web.Respond(ctx, w, l, http.StatusOK)
	}
}

func HandleCreateItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var in ItemNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.InvalidInput(err)
		}

		it := Item{
			ID:        validate.GenerateID(),
			UserID:    clm.UserID,
			CourseID:  in.CourseID,
			CreatedAt: time.Now().UTC(),
		}

		if err := CreateItem(ctx, db, it); err != nil {
			switch {
			case errors.Is(err, ErrCourseNotFound):
				return weberr.NotFound(err)
			case errors.Is(err, ErrConflict), errors.Is(err, ErrAlreadyOwned):
				return weberr.Conflict(err)
			}
			return fmt.Errorf("adding course[%s] to cart: %w", in.CourseID, err)
		}

		return web.Respond(ctx, w, it, http.StatusCreated)
	}
}

func HandleDeleteItem(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.InvalidInput(err)
		}

		if err := DeleteItem(ctx, db, clm.UserID, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("removing cart item: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		n, err := Delete(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("flushing cart: %w", err)
		}

		return web.Respond(ctx, w, Cleared{Removed: n}, http.StatusOK)
	}
}

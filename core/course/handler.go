package course

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/e-learning-market/api/web"
	"github.com/irsalhamdi/e-learning-market/api/weberr"
	"github.com/irsalhamdi/e-learning-market/core/claims"
	"github.com/irsalhamdi/e-learning-market/database"
	"github.com/irsalhamdi/e-learning-market/validate"
	"github.com/jmoiron/sqlx"
)

const maxRows = 100

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		page, err := web.QueryInt(r, "page", 1)
		if err != nil {
			return weberr.InvalidInput(err)
		}
		rows, err := web.QueryInt(r, "rows", 20)
		if err != nil {
			return weberr.InvalidInput(err)
		}
		if page < 1 || rows < 1 || rows > maxRows {
			return weberr.InvalidInput(fmt.Errorf("page must be positive and rows between 1 and %d", maxRows))
		}

		f := Filter{
			InstructorID: r.URL.Query().Get("instructor_id"),
			Name:         r.URL.Query().Get("name"),
			Page:         page,
			Rows:         rows,
		}
		if f.InstructorID != "" {
			if err := validate.CheckID(f.InstructorID); err != nil {
				return weberr.InvalidInput(err)
			}
		}

		courses, err := List(ctx, db, f)
		if err != nil {
			return fmt.Errorf("listing courses: %w", err)
		}

		return web.Respond(ctx, w, courses, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.InvalidInput(err)
		}

		c, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching course[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleListOwned(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courses, err := ListOwned(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("listing owned courses: %w", err)
		}

		return web.Respond(ctx, w, courses, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}
		if !claims.HasRole(ctx, claims.RoleInstructor) {
			return weberr.Forbidden(errors.New("only instructors can publish courses"))
		}

		var cn CourseNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.InvalidInput(err)
		}

		now := time.Now().UTC()
		c := Course{
			ID:           validate.GenerateID(),
			InstructorID: clm.UserID,
			Name:         cn.Name,
			Description:  cn.Description,
			ImageURL:     cn.ImageURL,
			Price:        cn.Price.Round(2),
			CreatedAt:    now,
			UpdatedAt:    now,
			Version:      1,
		}

		if err := Create(ctx, db, c); err != nil {
			return fmt.Errorf("creating course: %w", err)
		}

		return web.Respond(ctx, w, c, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.InvalidInput(err)
		}

		var cu CourseUp
		if err := web.Decode(w, r, &cu); err != nil {
			return weberr.InvalidInput(err)
		}

		c, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching course[%s]: %w", id, err)
		}

		if !claims.IsOwner(ctx, c.InstructorID) {
			return weberr.Forbidden(fmt.Errorf("course[%s] is not owned by the caller", id))
		}

		if cu.Name != nil {
			c.Name = *cu.Name
		}
		if cu.Description != nil {
			c.Description = *cu.Description
		}
		if cu.Price != nil {
			c.Price = cu.Price.Round(2)
		}
		if cu.ImageURL != nil {
			c.ImageURL = *cu.ImageURL
		}
		c.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, c); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return weberr.Conflict(err)
			}
			return fmt.Errorf("updating course[%s]: %w", id, err)
		}
		c.Version++

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.InvalidInput(err)
		}

		c, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, database.ErrDBNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching course[%s]: %w", id, err)
		}

		if !claims.IsOwner(ctx, c.InstructorID) {
			return weberr.Forbidden(fmt.Errorf("course[%s] is not owned by the caller", id))
		}

		c.IsDeleted = true
		c.UpdatedAt = time.Now().UTC()
		if err := Update(ctx, db, c); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				return weberr.Conflict(err)
			}
			return fmt.Errorf("deleting course[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

package course

import (
	"context"
	"errors"
	"fmt"

	"github.com/irsalhamdi/e-learning-market/database"
	"github.com/jmoiron/sqlx"
)

var ErrVersionConflict = errors.New("course was modified concurrently")

func Create(ctx context.Context, db sqlx.ExtContext, c Course) error {
	const q = `
	INSERT INTO courses
		(course_id, instructor_id, name, description, image_url, price, is_deleted, created_at, updated_at, version)
	VALUES
		(:course_id, :instructor_id, :name, :description, :image_url, :price, :is_deleted, :created_at, :updated_at, :version)`

	if _, err := database.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("inserting course: %w", err)
	}

	return nil
}

func Update(ctx context.Context, db sqlx.ExtContext, c Course) error {
	const q = `
	UPDATE courses SET
		"name" = :name,
		"description" = :description,
		"image_url" = :image_url,
		"price" = :price,
		"is_deleted" = :is_deleted,
		"updated_at" = :updated_at,
		"version" = "version" + 1
	WHERE
		course_id = :course_id AND version = :version`

	n, err := database.NamedExecContext(ctx, db, q, c)
	if err != nil {
		return fmt.Errorf("updating course[%s]: %w", c.ID, err)
	}
	if n == 0 {
		return ErrVersionConflict
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Course, error) {
	const q = `
	SELECT
		*
	FROM
		courses
	WHERE
		course_id = $1 AND is_deleted = FALSE`

	var c Course
	if err := database.GetContext(ctx, db, &c, q, id); err != nil {
		return Course{}, fmt.Errorf("selecting course[%s]: %w", id, err)
	}

	return c, nil
}

// FetchPricing includes deleted courses so callers can tell "gone" from "unknown".
func FetchPricing(ctx context.Context, db sqlx.ExtContext, id string) (Pricing, error) {
	const q = `
	SELECT
		course_id, instructor_id, price, is_deleted
	FROM
		courses
	WHERE
		course_id = $1`

	var p Pricing
	if err := database.GetContext(ctx, db, &p, q, id); err != nil {
		return Pricing{}, fmt.Errorf("selecting pricing of course[%s]: %w", id, err)
	}

	return p, nil
}

func List(ctx context.Context, db sqlx.ExtContext, f Filter) ([]Course, error) {
	const q = `
	SELECT
		*
	FROM
		courses
	WHERE
		is_deleted = FALSE
		AND ($1 = '' OR instructor_id::text = $1)
		AND ($2 = '' OR name ILIKE '%' || $2 || '%')
	ORDER BY
		created_at, course_id
	OFFSET $3 ROWS FETCH NEXT $4 ROWS ONLY`

	offset := (f.Page - 1) * f.Rows

	courses := []Course{}
	if err := database.SelectContext(ctx, db, &courses, q, f.InstructorID, f.Name, offset, f.Rows); err != nil {
		return nil, fmt.Errorf("selecting courses: %w", err)
	}

	return courses, nil
}

func ListOwned(ctx context.Context, db sqlx.ExtContext, userID string) ([]Course, error) {
	const q = `
	SELECT
		c.*
	FROM
		courses AS c
	JOIN
		enrollments AS e ON e.course_id = c.course_id
	WHERE
		e.user_id = $1
	ORDER BY
		e.granted_at, c.course_id`

	courses := []Course{}
	if err := database.SelectContext(ctx, db, &courses, q, userID); err != nil {
		return nil, fmt.Errorf("selecting courses owned by user[%s]: %w", userID, err)
	}

	return courses, nil
}

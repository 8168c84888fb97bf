package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/irsalhamdi/e-learning-market/core/course"
	"github.com/irsalhamdi/e-learning-market/core/enrollment"
	"github.com/irsalhamdi/e-learning-market/database"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrNotFound       = errors.New("cart item not found")
	ErrConflict       = errors.New("course already in cart")
	ErrAlreadyOwned   = errors.New("course already owned")
	ErrCourseNotFound = errors.New("course not found")
)

func CreateItem(ctx context.Context, db sqlx.ExtContext, it Item) error {
	p, err := course.FetchPricing(ctx, db, it.CourseID)
	if err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return ErrCourseNotFound
		}
		return err
	}
	if p.IsDeleted {
		return ErrCourseNotFound
	}

	owned, err := enrollment.Exists(ctx, db, it.UserID, it.CourseID)
	if err != nil {
		return err
	}
	if owned {
		return ErrAlreadyOwned
	}

	const q = `
	INSERT INTO cart_items
		(cart_item_id, user_id, course_id, created_at)
	VALUES
		(:cart_item_id, :user_id, :course_id, :created_at)`

	if _, err := database.NamedExecContext(ctx, db, q, it); err != nil {
		if errors.Is(err, database.ErrDBDuplicatedEntry) {
			return ErrConflict
		}
		return fmt.Errorf("inserting cart item: %w", err)
	}

	return nil
}

const selectLines = `
	SELECT
		ci.cart_item_id, ci.course_id, ci.created_at,
		c.name, c.image_url, c.price, c.instructor_id, c.is_deleted
	FROM
		cart_items AS ci
	JOIN
		courses AS c ON c.course_id = ci.course_id`

// FetchItems returns the user's cart in insertion order with live prices.
func FetchItems(ctx context.Context, db sqlx.ExtContext, userID string) ([]Line, error) {
	q := selectLines + `
	WHERE
		ci.user_id = $1
	ORDER BY
		ci.seq`

	lines := []Line{}
	if err := database.SelectContext(ctx, db, &lines, q, userID); err != nil {
		return nil, fmt.Errorf("selecting cart items of user[%s]: %w", userID, err)
	}

	return lines, nil
}

func FetchItem(ctx context.Context, db sqlx.ExtContext, userID string, itemID string) (Line, error) {
	q := selectLines + `
	WHERE
		ci.user_id = $1 AND ci.cart_item_id = $2`

	var l Line
	if err := database.GetContext(ctx, db, &l, q, userID, itemID); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return Line{}, ErrNotFound
		}
		return Line{}, fmt.Errorf("selecting cart item[%s]: %w", itemID, err)
	}

	return l, nil
}

func DeleteItem(ctx context.Context, db sqlx.ExtContext, userID string, itemID string) error {
	const q = `
	DELETE FROM
		cart_items
	WHERE
		user_id = $1 AND cart_item_id = $2`

	n, err := database.ExecContext(ctx, db, q, userID, itemID)
	if err != nil {
		return fmt.Errorf("deleting cart item[%s]: %w", itemID, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete clears the cart; an empty cart is not an error.
func Delete(ctx context.Context, db sqlx.ExtContext, userID string) (int64, error) {
	const q = `
	DELETE FROM
		cart_items
	WHERE
		user_id = $1`

	n, err := database.ExecContext(ctx, db, q, userID)
	if err != nil {
		return 0, fmt.Errorf("flushing cart of user[%s]: %w", userID, err)
	}

	return n, nil
}

func Count(ctx context.Context, db sqlx.ExtContext, userID string) (int, error) {
	const q = `
	SELECT
		COUNT(*)
	FROM
		cart_items
	WHERE
		user_id = $1`

	var n int
	if err := database.GetContext(ctx, db, &n, q, userID); err != nil {
		return 0, fmt.Errorf("counting cart items of user[%s]: %w", userID, err)
	}

	return n, nil
}

// CountItems counts how many of itemIDs are still in the user's cart.
func CountItems(ctx context.Context, db sqlx.ExtContext, userID string, itemIDs []string) (int, error) {
	const q = `
	SELECT
		COUNT(*)
	FROM
		cart_items
	WHERE
		user_id = $1 AND cart_item_id = ANY($2::uuid[])`

	var n int
	if err := database.GetContext(ctx, db, &n, q, userID, pq.Array(itemIDs)); err != nil {
		return 0, fmt.Errorf("counting cart items of user[%s]: %w", userID, err)
	}

	return n, nil
}

func DeleteItems(ctx context.Context, db sqlx.ExtContext, userID string, itemIDs []string) (int64, error) {
	const q = `
	DELETE FROM
		cart_items
	WHERE
		user_id = $1 AND cart_item_id = ANY($2::uuid[])`

	n, err := database.ExecContext(ctx, db, q, userID, pq.Array(itemIDs))
	if err != nil {
		return 0, fmt.Errorf("deleting cart items of user[%s]: %w", userID, err)
	}

	return n, nil
}

func DeleteCourses(ctx context.Context, db sqlx.ExtContext, userID string, courseIDs []string) (int64, error) {
	const q = `
	DELETE FROM
		cart_items
	WHERE
		user_id = $1 AND course_id = ANY($2::uuid[])`

	n, err := database.ExecContext(ctx, db, q, userID, pq.Array(courseIDs))
	if err != nil {
		return 0, fmt.Errorf("deleting courses from cart of user[%s]: %w", userID, err)
	}

	return n, nil
}

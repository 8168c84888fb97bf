package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/e-learning-market/database"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("user not found")

// Upsert creates the user on first login and refreshes the name afterwards.
// The role of an existing user is never changed here.
func Upsert(ctx context.Context, db sqlx.ExtContext, u User) (User, error) {
	const q = `
	INSERT INTO users
		(user_id, email, name, role, created_at, updated_at)
	VALUES
		($1, $2, $3, $4, $5, $5)
	ON CONFLICT (email) DO UPDATE SET
		name = EXCLUDED.name,
		updated_at = EXCLUDED.updated_at
	RETURNING *`

	var out User
	if err := database.GetContext(ctx, db, &out, q, u.ID, u.Email, u.Name, u.Role, u.CreatedAt); err != nil {
		return User{}, fmt.Errorf("upserting user[%s]: %w", u.Email, err)
	}

	return out, nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (User, error) {
	const q = `
	SELECT
		*
	FROM
		users
	WHERE
		user_id = $1`

	var u User
	if err := database.GetContext(ctx, db, &u, q, id); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("selecting user[%s]: %w", id, err)
	}

	return u, nil
}

func UpdateRole(ctx context.Context, db sqlx.ExtContext, id string, role string) error {
	const q = `
	UPDATE
		users
	SET
		role = $2, updated_at = $3
	WHERE
		user_id = $1`

	n, err := database.ExecContext(ctx, db, q, id, role, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("updating role of user[%s]: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

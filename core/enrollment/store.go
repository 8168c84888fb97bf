package enrollment

import (
	"context"
	"fmt"

	"github.com/irsalhamdi/e-learning-market/database"
	"github.com/jmoiron/sqlx"
)

// Grant reports false when the user already owned the course.
func Grant(ctx context.Context, db sqlx.ExtContext, e Enrollment) (bool, error) {
	const q = `
	INSERT INTO enrollments
		(enrollment_id, user_id, course_id, reference_id, granted_at)
	VALUES
		(:enrollment_id, :user_id, :course_id, :reference_id, :granted_at)
	ON CONFLICT (user_id, course_id) DO NOTHING`

	n, err := database.NamedExecContext(ctx, db, q, e)
	if err != nil {
		return false, fmt.Errorf("granting course[%s] to user[%s]: %w", e.CourseID, e.UserID, err)
	}

	return n == 1, nil
}

func Exists(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (bool, error) {
	const q = `
	SELECT EXISTS (
		SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2
	)`

	var ok bool
	if err := database.GetContext(ctx, db, &ok, q, userID, courseID); err != nil {
		return false, fmt.Errorf("checking enrollment of user[%s] in course[%s]: %w", userID, courseID, err)
	}

	return ok, nil
}

func FetchByUser(ctx context.Context, db sqlx.ExtContext, userID string) ([]Enrollment, error) {
	const q = `
	SELECT
		*
	FROM
		enrollments
	WHERE
		user_id = $1
	ORDER BY
		granted_at, course_id`

	es := []Enrollment{}
	if err := database.SelectContext(ctx, db, &es, q, userID); err != nil {
		return nil, fmt.Errorf("selecting enrollments of user[%s]: %w", userID, err)
	}

	return es, nil
}

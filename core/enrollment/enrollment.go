package enrollment

import "time"

// Enrollment is the permanent proof that a user owns a course.
type Enrollment struct {
	ID          string    `json:"id" db:"enrollment_id"`
	UserID      string    `json:"userId" db:"user_id"`
	CourseID    string    `json:"courseId" db:"course_id"`
	ReferenceID string    `json:"referenceId" db:"reference_id"`
	GrantedAt   time.Time `json:"grantedAt" db:"granted_at"`
}

package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	ID        string    `json:"id" db:"cart_item_id"`
	UserID    string    `json:"-" db:"user_id"`
	CourseID  string    `json:"courseId" db:"course_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type ItemNew struct {
	CourseID string `json:"courseId" validate:"required,uuid"`
}

// Line is a cart item joined with the live state of its course.
type Line struct {
	ID           string          `json:"id" db:"cart_item_id"`
	CourseID     string          `json:"courseId" db:"course_id"`
	Name         string          `json:"name" db:"name"`
	ImageURL     string          `json:"imageUrl" db:"image_url"`
	Price        decimal.Decimal `json:"price" db:"price"`
	InstructorID string          `json:"instructorId" db:"instructor_id"`
	IsDeleted    bool            `json:"unavailable" db:"is_deleted"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
}

type Cleared struct {
	Removed int64 `json:"removed"`
}

type Cart struct {
	Items []Line          `json:"items"`
	Total decimal.Decimal `json:"total"`
}

func NewCart(lines []Line) Cart {
	total := decimal.Zero
	for _, l := range lines {
		if !l.IsDeleted {
			total = total.Add(l.Price)
		}
	}
	return Cart{Items: lines, Total: total}
}

package course

import (
	"time"

	"github.com/shopspring/decimal"
)

type Course struct {
	ID           string          `json:"id" db:"course_id"`
	InstructorID string          `json:"instructorId" db:"instructor_id"`
	Name         string          `json:"name" db:"name"`
	Description  string          `json:"description" db:"description"`
	ImageURL     string          `json:"imageUrl" db:"image_url"`
	Price        decimal.Decimal `json:"price" db:"price"`
	IsDeleted    bool            `json:"-" db:"is_deleted"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
	Version      int             `json:"-" db:"version"`
}

type CourseNew struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Price       decimal.Decimal `json:"price" validate:"gte=0,lte=10000"`
	ImageURL    string          `json:"imageUrl" validate:"omitempty,url"`
}

type CourseUp struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,gte=0,lte=10000"`
	ImageURL    *string          `json:"imageUrl" validate:"omitempty,url"`
}

// Pricing is what checkout needs from the catalog, always read live.
type Pricing struct {
	CourseID     string          `db:"course_id"`
	InstructorID string          `db:"instructor_id"`
	Price        decimal.Decimal `db:"price"`
	IsDeleted    bool            `db:"is_deleted"`
}

type Filter struct {
	InstructorID string
	Name         string
	Page         int
	Rows         int
}

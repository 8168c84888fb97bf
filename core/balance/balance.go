package balance

import (
	"time"

	"github.com/shopspring/decimal"
)

type Balance struct {
	InstructorID string          `json:"instructorId" db:"instructor_id"`
	Payable      decimal.Decimal `json:"payable" db:"payable"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}

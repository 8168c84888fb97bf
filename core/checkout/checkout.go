package checkout

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type State string

const (
	Idle             State = "idle"
	PriceLocked      State = "price_locked"
	Charging         State = "charging"
	Settling         State = "settling"
	Complete         State = "complete"
	ChargeFailed     State = "charge_failed"
	SettlementFailed State = "settlement_failed"
)

const (
	StatusSettled = "settled"
	StatusFailed  = "failed"

	ProviderFree = "free"
)

// PayoutRate is the share of a course price credited to its instructor.
var PayoutRate = decimal.RequireFromString("0.90")

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInvalidState        = errors.New("cart contains unavailable courses")
	ErrStaleCart           = errors.New("cart changed during checkout")
	ErrPaymentRequired     = errors.New("payment token required")
	ErrSettlementFailed    = errors.New("payment captured but settlement failed")
	ErrSettlementNotFound  = errors.New("settlement not found")
	ErrDuplicateSettlement = errors.New("settlement already recorded")
)

// SettlementError is returned when money was taken but the purchase could
// not be applied. ReferenceID identifies the charge for reconciliation.
type SettlementError struct {
	ReferenceID string
	Err         error
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("settlement[%s]: %v", e.ReferenceID, e.Err)
}

func (e *SettlementError) Is(target error) bool { return target == ErrSettlementFailed }

func (e *SettlementError) Unwrap() error { return e.Err }

type Request struct {
	PaymentToken string `json:"paymentToken" validate:"omitempty,max=255"`
	Email        string `json:"email" validate:"required,email"`
}

type Result struct {
	ReferenceID       string          `json:"referenceId"`
	EnrolledCourseIDs []string        `json:"enrolledCourseIds"`
	TotalCharged      decimal.Decimal `json:"totalCharged"`
}

type Settlement struct {
	ReferenceID string           `json:"referenceId" db:"reference_id"`
	UserID      string           `json:"userId" db:"user_id"`
	Provider    string           `json:"provider" db:"provider"`
	Status      string           `json:"status" db:"status"`
	Currency    string           `json:"currency" db:"currency"`
	Total       decimal.Decimal  `json:"total" db:"total"`
	Failure     string           `json:"failure,omitempty" db:"failure"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time        `json:"updatedAt" db:"updated_at"`
	Items       []SettlementItem `json:"items" db:"-"`
}

type SettlementItem struct {
	ReferenceID  string          `json:"-" db:"reference_id"`
	Position     int             `json:"-" db:"position"`
	CartItemID   string          `json:"cartItemId" db:"cart_item_id"`
	CourseID     string          `json:"courseId" db:"course_id"`
	InstructorID string          `json:"instructorId" db:"instructor_id"`
	Price        decimal.Decimal `json:"price" db:"price"`
	Payout       decimal.Decimal `json:"payout" db:"payout"`
}

func (s Settlement) result() Result {
	ids := make([]string, 0, len(s.Items))
	for _, it := range s.Items {
		ids = append(ids, it.CourseID)
	}
	return Result{
		ReferenceID:       s.ReferenceID,
		EnrolledCourseIDs: ids,
		TotalCharged:      s.Total,
	}
}

// Event is published once the outcome of a paid checkout is known.
type Event struct {
	Type        string          `json:"type"`
	ReferenceID string          `json:"referenceId"`
	UserID      string          `json:"userId"`
	Provider    string          `json:"provider"`
	Currency    string          `json:"currency"`
	Total       decimal.Decimal `json:"total"`
	CourseIDs   []string        `json:"courseIds"`
	Failure     string          `json:"failure,omitempty"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

const (
	EventCompleted  = "settlement.completed"
	EventFailed     = "settlement.failed"
	EventReconciled = "settlement.reconciled"
)

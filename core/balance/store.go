package balance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/e-learning-market/database"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("credit amount must be positive")

func Credit(ctx context.Context, db sqlx.ExtContext, instructorID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	const q = `
	INSERT INTO instructor_balances
		(instructor_id, payable, updated_at)
	VALUES
		($1, $2, $3)
	ON CONFLICT (instructor_id) DO UPDATE SET
		payable = instructor_balances.payable + EXCLUDED.payable,
		updated_at = EXCLUDED.updated_at
	RETURNING payable`

	var payable decimal.Decimal
	if err := database.GetContext(ctx, db, &payable, q, instructorID, amount, time.Now().UTC()); err != nil {
		return decimal.Zero, fmt.Errorf("crediting instructor[%s]: %w", instructorID, err)
	}

	return payable, nil
}

// Fetch returns a zero balance for instructors that never sold anything.
func Fetch(ctx context.Context, db sqlx.ExtContext, instructorID string) (Balance, error) {
	const q = `
	SELECT
		*
	FROM
		instructor_balances
	WHERE
		instructor_id = $1`

	var b Balance
	err := database.GetContext(ctx, db, &b, q, instructorID)
	switch {
	case errors.Is(err, database.ErrDBNotFound):
		return Balance{InstructorID: instructorID, Payable: decimal.Zero}, nil
	case err != nil:
		return Balance{}, fmt.Errorf("selecting balance of instructor[%s]: %w", instructorID, err)
	}

	return b, nil
}

package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/irsalhamdi/e-learning-market/core/balance"
	"github.com/irsalhamdi/e-learning-market/core/cart"
	"github.com/irsalhamdi/e-learning-market/core/enrollment"
	"github.com/irsalhamdi/e-learning-market/database"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Repos is everything a checkout reads or writes. Inside WithinTx every call
// shares one transaction.
type Repos interface {
	FetchCart(ctx context.Context, userID string) ([]cart.Line, error)
	CountCart(ctx context.Context, userID string) (int, error)
	CountCartItems(ctx context.Context, userID string, itemIDs []string) (int, error)
	DeleteCartItems(ctx context.Context, userID string, itemIDs []string) (int64, error)
	DeleteCartCourses(ctx context.Context, userID string, courseIDs []string) (int64, error)
	Grant(ctx context.Context, e enrollment.Enrollment) (bool, error)
	Credit(ctx context.Context, instructorID string, amount decimal.Decimal) (decimal.Decimal, error)
	CreateSettlement(ctx context.Context, s Settlement) error
	FetchSettlement(ctx context.Context, referenceID string) (Settlement, error)
	ListSettlements(ctx context.Context, status string, page int, rows int) ([]Settlement, error)
	MarkSettled(ctx context.Context, referenceID string) error
	MarkFailed(ctx context.Context, referenceID string, failure string) error
}

type Store interface {
	Repos
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}

type DBStore struct {
	repos
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *DBStore {
	return &DBStore{
		repos: repos{db: db},
		db:    db,
	}
}

func (s *DBStore) WithinTx(ctx context.Context, fn func(r Repos) error) error {
	return database.Transaction(ctx, s.db, func(tx sqlx.ExtContext) error {
		return fn(repos{db: tx})
	})
}

type repos struct {
	db sqlx.ExtContext
}

func (r repos) FetchCart(ctx context.Context, userID string) ([]cart.Line, error) {
	return cart.FetchItems(ctx, r.db, userID)
}

func (r repos) CountCart(ctx context.Context, userID string) (int, error) {
	return cart.Count(ctx, r.db, userID)
}

func (r repos) CountCartItems(ctx context.Context, userID string, itemIDs []string) (int, error) {
	return cart.CountItems(ctx, r.db, userID, itemIDs)
}

func (r repos) DeleteCartItems(ctx context.Context, userID string, itemIDs []string) (int64, error) {
	return cart.DeleteItems(ctx, r.db, userID, itemIDs)
}

func (r repos) DeleteCartCourses(ctx context.Context, userID string, courseIDs []string) (int64, error) {
	return cart.DeleteCourses(ctx, r.db, userID, courseIDs)
}

func (r repos) Grant(ctx context.Context, e enrollment.Enrollment) (bool, error) {
	return enrollment.Grant(ctx, r.db, e)
}

func (r repos) Credit(ctx context.Context, instructorID string, amount decimal.Decimal) (decimal.Decimal, error) {
	return balance.Credit(ctx, r.db, instructorID, amount)
}

func (r repos) CreateSettlement(ctx context.Context, s Settlement) error {
	const q = `
	INSERT INTO settlements
		(reference_id, user_id, provider, status, currency, total, failure, created_at, updated_at)
	VALUES
		(:reference_id, :user_id, :provider, :status, :currency, :total, :failure, :created_at, :updated_at)
	ON CONFLICT (reference_id) DO NOTHING`

	n, err := database.NamedExecContext(ctx, r.db, q, s)
	if err != nil {
		return fmt.Errorf("inserting settlement[%s]: %w", s.ReferenceID, err)
	}
	if n == 0 {
		return ErrDuplicateSettlement
	}

	const qi = `
	INSERT INTO settlement_items
		(reference_id, position, cart_item_id, course_id, instructor_id, price, payout)
	VALUES
		(:reference_id, :position, :cart_item_id, :course_id, :instructor_id, :price, :payout)`

	for _, it := range s.Items {
		it.ReferenceID = s.ReferenceID
		if _, err := database.NamedExecContext(ctx, r.db, qi, it); err != nil {
			return fmt.Errorf("inserting settlement[%s] item course[%s]: %w", s.ReferenceID, it.CourseID, err)
		}
	}

	return nil
}

func (r repos) FetchSettlement(ctx context.Context, referenceID string) (Settlement, error) {
	const q = `
	SELECT
		*
	FROM
		settlements
	WHERE
		reference_id = $1`

	var s Settlement
	if err := database.GetContext(ctx, r.db, &s, q, referenceID); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return Settlement{}, ErrSettlementNotFound
		}
		return Settlement{}, fmt.Errorf("selecting settlement[%s]: %w", referenceID, err)
	}

	const qi = `
	SELECT
		*
	FROM
		settlement_items
	WHERE
		reference_id = $1
	ORDER BY
		position`

	s.Items = []SettlementItem{}
	if err := database.SelectContext(ctx, r.db, &s.Items, qi, referenceID); err != nil {
		return Settlement{}, fmt.Errorf("selecting items of settlement[%s]: %w", referenceID, err)
	}

	return s, nil
}

// ListSettlements omits items; status "" lists every settlement.
func (r repos) ListSettlements(ctx context.Context, status string, page int, rows int) ([]Settlement, error) {
	const q = `
	SELECT
		*
	FROM
		settlements
	WHERE
		$1 = '' OR status = $1
	ORDER BY
		created_at DESC, reference_id
	OFFSET $2 ROWS FETCH NEXT $3 ROWS ONLY`

	offset := (page - 1) * rows
	ss := []Settlement{}
	if err := database.SelectContext(ctx, r.db, &ss, q, status, offset, rows); err != nil {
		return nil, fmt.Errorf("selecting settlements: %w", err)
	}

	return ss, nil
}

func (r repos) MarkSettled(ctx context.Context, referenceID string) error {
	const q = `
	UPDATE
		settlements
	SET
		status = $2, failure = '', updated_at = $3
	WHERE
		reference_id = $1 AND status <> $2`

	n, err := database.ExecContext(ctx, r.db, q, referenceID, StatusSettled, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("marking settlement[%s] settled: %w", referenceID, err)
	}
	if n == 0 {
		return ErrSettlementNotFound
	}

	return nil
}

// MarkFailed never downgrades a settled record.
func (r repos) MarkFailed(ctx context.Context, referenceID string, failure string) error {
	const q = `
	UPDATE
		settlements
	SET
		status = $2, failure = $3, updated_at = $4
	WHERE
		reference_id = $1 AND status <> $5`

	_, err := database.ExecContext(ctx, r.db, q, referenceID, StatusFailed, failure, time.Now().UTC(), StatusSettled)
	if err != nil {
		return fmt.Errorf("marking settlement[%s] failed: %w", referenceID, err)
	}

	return nil
}

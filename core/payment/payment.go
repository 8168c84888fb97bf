package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnavailable means no charge happened; the same request may be retried.
	ErrUnavailable = errors.New("payment gateway unavailable")

	// ErrDeclined means the provider refused the payment details.
	ErrDeclined = errors.New("charge declined")
)

var chargeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "payment_charge_duration_seconds",
	Help:    "Latency of charge calls to the payment provider",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
}, []string{"provider", "outcome"})

type Charge struct {
	Amount   decimal.Decimal
	Currency string
	Token    string
	Email    string

	// AttemptID is forwarded as the provider idempotency key when supported.
	AttemptID string
}

type Receipt struct {
	ReferenceID string
	Provider    string
}

type Gateway interface {
	Charge(ctx context.Context, c Charge) (Receipt, error)
}

type Error struct {
	Kind   error
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func Declined(reason string, err error) error {
	return &Error{Kind: ErrDeclined, Reason: reason, Err: err}
}

func Unavailable(reason string, err error) error {
	return &Error{Kind: ErrUnavailable, Reason: reason, Err: err}
}

// Reason returns the message safe to show the buyer.
func Reason(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		if pe.Reason != "" {
			return pe.Reason
		}
		return pe.Kind.Error()
	}
	return ""
}

func Cents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

type timed struct {
	gw       Gateway
	provider string
	timeout  time.Duration
}

// A charge that outlives timeout is reported as ErrUnavailable.
func WithTimeout(gw Gateway, provider string, timeout time.Duration) Gateway {
	return &timed{gw: gw, provider: provider, timeout: timeout}
}

func (t *timed) Charge(ctx context.Context, c Charge) (Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	rcpt, err := t.gw.Charge(ctx, c)
	if err != nil && !errors.Is(err, ErrDeclined) && !errors.Is(err, ErrUnavailable) {
		reason := ""
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = "payment provider timed out"
		}
		err = Unavailable(reason, err)
	}

	chargeDuration.WithLabelValues(t.provider, outcome(err)).Observe(time.Since(start).Seconds())
	return rcpt, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "succeeded"
	case errors.Is(err, ErrDeclined):
		return "declined"
	default:
		return "unavailable"
	}
}

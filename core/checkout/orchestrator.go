package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/irsalhamdi/e-learning-market/api/background"
	"github.com/irsalhamdi/e-learning-market/broker"
	"github.com/irsalhamdi/e-learning-market/core/cart"
	"github.com/irsalhamdi/e-learning-market/core/enrollment"
	"github.com/irsalhamdi/e-learning-market/core/payment"
	"github.com/irsalhamdi/e-learning-market/lock"
	"github.com/irsalhamdi/e-learning-market/validate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const publishTimeout = 10 * time.Second

var (
	attempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})

	credits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "instructor_credits_total",
		Help: "Instructor balance credits applied by settlements.",
	})
)

type Config struct {
	Store      Store
	Gateway    payment.Gateway
	Provider   string
	Currency   string
	Locker     lock.Locker
	Events     broker.Publisher
	Background *background.Background
	Log        logrus.FieldLogger
}

type Orchestrator struct {
	store    Store
	gateway  payment.Gateway
	provider string
	currency string
	locker   lock.Locker
	events   broker.Publisher
	bg       *background.Background
	log      logrus.FieldLogger
}

func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		store:    cfg.Store,
		gateway:  cfg.Gateway,
		provider: cfg.Provider,
		currency: cfg.Currency,
		locker:   cfg.Locker,
		events:   cfg.Events,
		bg:       cfg.Background,
		log:      cfg.Log,
	}
}

type locked struct {
	userID  string
	itemIDs []string
	items   []SettlementItem
	total   decimal.Decimal
}

func lockCart(userID string, lines []cart.Line) (locked, error) {
	lc := locked{
		userID: userID,
		total:  decimal.Zero,
	}

	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		if l.IsDeleted {
			return locked{}, fmt.Errorf("%w: course[%s]", ErrInvalidState, l.CourseID)
		}

		lc.itemIDs = append(lc.itemIDs, l.ID)
		if seen[l.CourseID] {
			continue
		}
		seen[l.CourseID] = true

		lc.items = append(lc.items, SettlementItem{
			Position:     len(lc.items),
			CartItemID:   l.ID,
			CourseID:     l.CourseID,
			InstructorID: l.InstructorID,
			Price:        l.Price,
			Payout:       l.Price.Mul(PayoutRate).Round(2),
		})
		lc.total = lc.total.Add(l.Price)
	}

	return lc, nil
}

func (o *Orchestrator) trace(userID string, from, to State) {
	o.log.WithFields(logrus.Fields{
		"user_id": userID,
		"from":    from,
		"to":      to,
	}).Debug("checkout transition")
}

// After the charge succeeds every failure is a *SettlementError.
func (o *Orchestrator) Process(ctx context.Context, userID string, req Request) (Result, error) {
	unlock, err := o.locker.Lock(ctx, userID)
	if err != nil {
		attempts.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("locking checkout of user[%s]: %w", userID, err)
	}
	defer unlock()

	lines, err := o.store.FetchCart(ctx, userID)
	if err != nil {
		attempts.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("fetching cart: %w", err)
	}
	if len(lines) == 0 {
		attempts.WithLabelValues("empty_cart").Inc()
		return Result{}, ErrEmptyCart
	}

	lc, err := lockCart(userID, lines)
	if err != nil {
		attempts.WithLabelValues("invalid_state").Inc()
		return Result{}, err
	}
	o.trace(userID, Idle, PriceLocked)

	if lc.total.IsPositive() && req.PaymentToken == "" {
		attempts.WithLabelValues("invalid_state").Inc()
		return Result{}, ErrPaymentRequired
	}

	if err := o.revalidate(ctx, lc); err != nil {
		if errors.Is(err, ErrStaleCart) {
			attempts.WithLabelValues("stale_cart").Inc()
		} else {
			attempts.WithLabelValues("error").Inc()
		}
		return Result{}, err
	}
	o.trace(userID, PriceLocked, Charging)

	// The caller going away must not abandon a charge or a settlement half way.
	ctx = context.WithoutCancel(ctx)

	rcpt, err := o.charge(ctx, lc, req)
	if err != nil {
		o.trace(userID, Charging, ChargeFailed)
		if errors.Is(err, payment.ErrDeclined) {
			attempts.WithLabelValues("declined").Inc()
		} else {
			attempts.WithLabelValues("unavailable").Inc()
		}
		return Result{}, err
	}
	o.trace(userID, Charging, Settling)

	res, replayed, err := o.settle(ctx, lc, rcpt)
	if err != nil {
		o.trace(userID, Settling, SettlementFailed)
		attempts.WithLabelValues("settlement_failed").Inc()
		return Result{ReferenceID: rcpt.ReferenceID}, o.fail(ctx, lc, rcpt, err)
	}
	o.trace(userID, Settling, Complete)

	if replayed {
		attempts.WithLabelValues("replayed").Inc()
		return res, nil
	}

	attempts.WithLabelValues("completed").Inc()
	o.publish(EventCompleted, Event{
		ReferenceID: rcpt.ReferenceID,
		UserID:      userID,
		Provider:    rcpt.Provider,
		Currency:    o.currency,
		Total:       lc.total,
		CourseIDs:   res.EnrolledCourseIDs,
	})

	return res, nil
}

func (o *Orchestrator) revalidate(ctx context.Context, lc locked) error {
	n, err := o.store.CountCartItems(ctx, lc.userID, lc.itemIDs)
	if err != nil {
		return fmt.Errorf("revalidating cart: %w", err)
	}
	total, err := o.store.CountCart(ctx, lc.userID)
	if err != nil {
		return fmt.Errorf("revalidating cart: %w", err)
	}

	if n != len(lc.itemIDs) || total != len(lc.itemIDs) {
		return ErrStaleCart
	}
	return nil
}

func (o *Orchestrator) charge(ctx context.Context, lc locked, req Request) (payment.Receipt, error) {
	if lc.total.IsZero() {
		return payment.Receipt{
			ReferenceID: "free-" + validate.GenerateID(),
			Provider:    ProviderFree,
		}, nil
	}

	rcpt, err := o.gateway.Charge(ctx, payment.Charge{
		Amount:    lc.total,
		Currency:  o.currency,
		Token:     req.PaymentToken,
		Email:     req.Email,
		AttemptID: validate.GenerateID(),
	})
	if err != nil {
		if errors.Is(err, payment.ErrDeclined) || errors.Is(err, payment.ErrUnavailable) {
			return payment.Receipt{}, err
		}
		return payment.Receipt{}, payment.Unavailable("", err)
	}

	return rcpt, nil
}

// A reference that was already settled is replayed untouched.
func (o *Orchestrator) settle(ctx context.Context, lc locked, rcpt payment.Receipt) (Result, bool, error) {
	now := time.Now().UTC()
	s := Settlement{
		ReferenceID: rcpt.ReferenceID,
		UserID:      lc.userID,
		Provider:    rcpt.Provider,
		Status:      StatusSettled,
		Currency:    o.currency,
		Total:       lc.total,
		CreatedAt:   now,
		UpdatedAt:   now,
		Items:       lc.items,
	}

	var (
		res      Result
		replayed bool
	)

	err := o.store.WithinTx(ctx, func(r Repos) error {
		err := r.CreateSettlement(ctx, s)
		if errors.Is(err, ErrDuplicateSettlement) {
			prev, err := r.FetchSettlement(ctx, s.ReferenceID)
			if err != nil {
				return err
			}
			if prev.Status != StatusSettled {
				return fmt.Errorf("reference already recorded as %s", prev.Status)
			}
			res, replayed = prev.result(), true
			return nil
		}
		if err != nil {
			return err
		}

		n, err := r.DeleteCartItems(ctx, lc.userID, lc.itemIDs)
		if err != nil {
			return err
		}
		if int(n) != len(lc.itemIDs) {
			return ErrStaleCart
		}

		if err := o.apply(ctx, r, s); err != nil {
			return err
		}

		res = s.result()
		return nil
	})
	if err != nil {
		return Result{}, false, err
	}

	return res, replayed, nil
}

func (o *Orchestrator) apply(ctx context.Context, r Repos, s Settlement) error {
	now := time.Now().UTC()

	payouts := make(map[string]decimal.Decimal)
	for _, it := range s.Items {
		_, err := r.Grant(ctx, enrollment.Enrollment{
			ID:          validate.GenerateID(),
			UserID:      s.UserID,
			CourseID:    it.CourseID,
			ReferenceID: s.ReferenceID,
			GrantedAt:   now,
		})
		if err != nil {
			return err
		}

		payouts[it.InstructorID] = payouts[it.InstructorID].Add(it.Price)
	}

	ids := make([]string, 0, len(payouts))
	for id := range payouts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		amount := payouts[id].Mul(PayoutRate).Round(2)
		if !amount.IsPositive() {
			continue
		}
		if _, err := r.Credit(ctx, id, amount); err != nil {
			return err
		}
		credits.Inc()
	}

	return nil
}

func (o *Orchestrator) fail(ctx context.Context, lc locked, rcpt payment.Receipt, cause error) error {
	now := time.Now().UTC()
	s := Settlement{
		ReferenceID: rcpt.ReferenceID,
		UserID:      lc.userID,
		Provider:    rcpt.Provider,
		Status:      StatusFailed,
		Currency:    o.currency,
		Total:       lc.total,
		Failure:     cause.Error(),
		CreatedAt:   now,
		UpdatedAt:   now,
		Items:       lc.items,
	}

	err := o.store.WithinTx(ctx, func(r Repos) error {
		err := r.CreateSettlement(ctx, s)
		if errors.Is(err, ErrDuplicateSettlement) {
			return r.MarkFailed(ctx, s.ReferenceID, s.Failure)
		}
		return err
	})

	fields := logrus.Fields{
		"reference_id": rcpt.ReferenceID,
		"user_id":      lc.userID,
		"provider":     rcpt.Provider,
		"total":        lc.total.StringFixed(2),
		"message":      cause,
	}
	if err != nil {
		fields["record_error"] = err
	}
	o.log.WithFields(fields).Error("SETTLEMENT FAILED")

	o.publish(EventFailed, Event{
		ReferenceID: rcpt.ReferenceID,
		UserID:      lc.userID,
		Provider:    rcpt.Provider,
		Currency:    o.currency,
		Total:       lc.total,
		CourseIDs:   s.result().EnrolledCourseIDs,
		Failure:     cause.Error(),
	})

	return &SettlementError{ReferenceID: rcpt.ReferenceID, Err: cause}
}

func (o *Orchestrator) Reconcile(ctx context.Context, referenceID string) (Result, error) {
	s, err := o.store.FetchSettlement(ctx, referenceID)
	if err != nil {
		return Result{}, err
	}
	if s.Status == StatusSettled {
		return s.result(), nil
	}

	unlock, err := o.locker.Lock(ctx, s.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("locking checkout of user[%s]: %w", s.UserID, err)
	}
	defer unlock()

	var (
		res      Result
		replayed bool
	)

	err = o.store.WithinTx(ctx, func(r Repos) error {
		s, err := r.FetchSettlement(ctx, referenceID)
		if err != nil {
			return err
		}
		if s.Status == StatusSettled {
			res, replayed = s.result(), true
			return nil
		}

		courseIDs := s.result().EnrolledCourseIDs
		if _, err := r.DeleteCartCourses(ctx, s.UserID, courseIDs); err != nil {
			return err
		}
		if err := o.apply(ctx, r, s); err != nil {
			return err
		}
		if err := r.MarkSettled(ctx, referenceID); err != nil {
			return err
		}

		res = s.result()
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("reconciling settlement[%s]: %w", referenceID, err)
	}

	if !replayed {
		o.log.WithFields(logrus.Fields{
			"reference_id": referenceID,
			"user_id":      s.UserID,
		}).Info("settlement reconciled")

		o.publish(EventReconciled, Event{
			ReferenceID: s.ReferenceID,
			UserID:      s.UserID,
			Provider:    s.Provider,
			Currency:    s.Currency,
			Total:       s.Total,
			CourseIDs:   res.EnrolledCourseIDs,
		})
	}

	return res, nil
}

func (o *Orchestrator) publish(kind string, ev Event) {
	ev.Type = kind
	ev.OccurredAt = time.Now().UTC()

	o.bg.Go(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := o.events.Publish(ctx, kind, ev); err != nil {
			return fmt.Errorf("publishing %s for settlement[%s]: %w", kind, ev.ReferenceID, err)
		}
		return nil
	})
}

func (o *Orchestrator) Settlement(ctx context.Context, referenceID string) (Settlement, error) {
	return o.store.FetchSettlement(ctx, referenceID)
}

func (o *Orchestrator) Settlements(ctx context.Context, status string, page int, rows int) ([]Settlement, error) {
	return o.store.ListSettlements(ctx, status, page, rows)
}

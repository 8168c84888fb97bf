package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/e-learning-market/api/web"
	"github.com/irsalhamdi/e-learning-market/api/weberr"
	"github.com/irsalhamdi/e-learning-market/core/claims"
	"github.com/irsalhamdi/e-learning-market/core/payment"
	"github.com/irsalhamdi/e-learning-market/lock"
)

type settlementFailedResponse struct {
	Error       string `json:"error"`
	ReferenceID string `json:"referenceId"`
}

func HandleCheckout(o *Orchestrator) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var req Request
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.InvalidInput(err)
		}

		res, err := o.Process(ctx, clm.UserID, req)
		if err != nil {
			return checkoutError(err)
		}

		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func checkoutError(err error) error {
	var se *SettlementError
	switch {
	case errors.As(err, &se):
		return weberr.Wrap(err,
			weberr.WithResponse(&settlementFailedResponse{
				Error:       "payment was captured but the purchase could not be completed, support has been notified",
				ReferenceID: se.ReferenceID,
			}, http.StatusInternalServerError),
			weberr.WithField("reference_id", se.ReferenceID),
		)
	case errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrPaymentRequired):
		return weberr.InvalidInput(err)
	case errors.Is(err, ErrStaleCart):
		return weberr.Conflict(err)
	case errors.Is(err, payment.ErrDeclined):
		return weberr.NewError(err, payment.Reason(err), http.StatusPaymentRequired)
	case errors.Is(err, payment.ErrUnavailable):
		return weberr.NewError(err, "payment provider unavailable, retry later", http.StatusServiceUnavailable)
	case errors.Is(err, lock.ErrNotAcquired):
		return weberr.NewError(err, "another checkout is in progress, retry later", http.StatusServiceUnavailable)
	}
	return fmt.Errorf("checkout: %w", err)
}

func HandleShowSettlement(o *Orchestrator) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		ref := web.Param(r, "reference_id")

		s, err := o.Settlement(ctx, ref)
		if err != nil {
			if errors.Is(err, ErrSettlementNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("fetching settlement[%s]: %w", ref, err)
		}

		if !claims.IsOwner(ctx, s.UserID) {
			return weberr.NotFound(fmt.Errorf("settlement[%s] is not visible to caller", ref))
		}

		return web.Respond(ctx, w, s, http.StatusOK)
	}
}

func HandleListSettlements(o *Orchestrator) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		status := r.URL.Query().Get("status")
		if status != "" && status != StatusSettled && status != StatusFailed {
			return weberr.InvalidInput(fmt.Errorf("unknown status %q", status))
		}

		page, err := web.QueryInt(r, "page", 1)
		if err != nil || page < 1 {
			return weberr.InvalidInput(errors.New("page must be a positive integer"))
		}
		rows, err := web.QueryInt(r, "rows", 20)
		if err != nil || rows < 1 || rows > 100 {
			return weberr.InvalidInput(errors.New("rows must be between 1 and 100"))
		}

		ss, err := o.Settlements(ctx, status, page, rows)
		if err != nil {
			return fmt.Errorf("listing settlements: %w", err)
		}

		return web.Respond(ctx, w, ss, http.StatusOK)
	}
}

func HandleReconcile(o *Orchestrator) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		ref := web.Param(r, "reference_id")

		res, err := o.Reconcile(ctx, ref)
		if err != nil {
			if errors.Is(err, ErrSettlementNotFound) {
				return weberr.NotFound(err)
			}
			return fmt.Errorf("reconciling: %w", err)
		}

		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

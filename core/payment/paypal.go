package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
)

const (
	ProviderPaypal = "paypal"

	paypalCompleted = "COMPLETED"
)

// Paypal captures an order the buyer already approved in the PayPal UI; the
// checkout token is that order's id.
type Paypal struct {
	client *paypal.Client
}

func NewPaypal(client *paypal.Client) *Paypal {
	return &Paypal{client: client}
}

func (p *Paypal) Charge(ctx context.Context, c Charge) (Receipt, error) {
	ord, err := p.client.GetOrder(ctx, c.Token)
	if err != nil {
		return Receipt{}, paypalError(err)
	}

	if err := checkAmount(ord, c); err != nil {
		return Receipt{}, err
	}

	resp, err := p.client.CaptureOrder(ctx, c.Token, paypal.CaptureOrderRequest{})
	if err != nil {
		return Receipt{}, paypalError(err)
	}

	if resp.Status != paypalCompleted {
		return Receipt{}, Declined(fmt.Sprintf("the paypal order ended with status %s", resp.Status), nil)
	}

	return Receipt{ReferenceID: resp.ID, Provider: ProviderPaypal}, nil
}

// checkAmount refuses to capture an order approved for a different amount
// than the cart total.
func checkAmount(ord *paypal.Order, c Charge) error {
	if len(ord.PurchaseUnits) != 1 || ord.PurchaseUnits[0].Amount == nil {
		return Declined("the paypal order has an unexpected shape", nil)
	}

	amt := ord.PurchaseUnits[0].Amount
	if !strings.EqualFold(amt.Currency, c.Currency) {
		return Declined(fmt.Sprintf("the paypal order is in %s, expected %s", amt.Currency, c.Currency), nil)
	}

	v, err := decimal.NewFromString(amt.Value)
	if err != nil {
		return Declined("the paypal order amount is malformed", err)
	}
	if !v.Equal(c.Amount) {
		return Declined(fmt.Sprintf("the paypal order amount %s does not match the cart total %s", v, c.Amount), nil)
	}

	return nil
}

func paypalError(err error) error {
	var perr *paypal.ErrorResponse
	if !errors.As(err, &perr) || perr.Response == nil {
		return Unavailable("could not reach the payment provider", err)
	}

	code := perr.Response.StatusCode
	switch {
	case code == http.StatusTooManyRequests, code >= http.StatusInternalServerError:
		return Unavailable("the payment provider is unavailable", err)
	case code == http.StatusUnauthorized:
		return Unavailable("the payment provider rejected our credentials", err)
	default:
		return Declined(perr.Message, err)
	}
}

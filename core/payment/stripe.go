package payment

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

const ProviderStripe = "stripe"

type Stripe struct {
	api *stripecl.API
}

// NewStripeClient builds a client; url overrides the API base when not empty.
func NewStripeClient(secret string, url string) *stripecl.API {
	api := &stripecl.API{}
	if url == "" {
		api.Init(secret, nil)
		return api
	}

	b := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(url),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	})
	api.Init(secret, &stripe.Backends{API: b, Connect: b, Uploads: b})
	return api
}

func NewStripe(api *stripecl.API) *Stripe {
	return &Stripe{api: api}
}

// Charge confirms a card PaymentIntent in one call; the token is the
// PaymentMethod collected by the client.
func (s *Stripe) Charge(ctx context.Context, c Charge) (Receipt, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(Cents(c.Amount)),
		Currency:           stripe.String(strings.ToLower(c.Currency)),
		PaymentMethod:      stripe.String(c.Token),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		ReceiptEmail:       stripe.String(c.Email),
		Confirm:            stripe.Bool(true),
	}
	params.Context = ctx
	if c.AttemptID != "" {
		params.SetIdempotencyKey(c.AttemptID)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return Receipt{}, stripeError(err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return Receipt{ReferenceID: pi.ID, Provider: ProviderStripe}, nil
	case stripe.PaymentIntentStatusRequiresAction:
		return Receipt{}, Declined("the payment requires additional authentication", nil)
	default:
		return Receipt{}, Declined("the payment was not completed", nil)
	}
}

func stripeError(err error) error {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return Unavailable("could not reach the payment provider", err)
	}

	switch {
	case serr.Type == stripe.ErrorTypeCard:
		return Declined(serr.Msg, err)
	case serr.HTTPStatusCode == http.StatusTooManyRequests, serr.HTTPStatusCode >= http.StatusInternalServerError:
		return Unavailable("the payment provider is unavailable", err)
	case serr.Type == stripe.ErrorTypeInvalidRequest:
		return Declined("the payment details were rejected", err)
	default:
		return Unavailable("the payment provider is unavailable", err)
	}
}

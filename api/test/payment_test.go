package test

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/e-learning-market/api/web"
	mock "github.com/stripe/stripe-mock/param"
)

// mockStripe confirms every payment intent except those paid with
// declineToken.
type mockStripe struct {
	mu      sync.Mutex
	charged []int64
	seq     int
}

const declineToken = "pm_card_chargeDeclined"

func newMockStripe() *mockStripe {
	return &mockStripe{}
}

func (m *mockStripe) charges() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.charged...)
}

func (m *mockStripe) handle() http.Handler {
	intents := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, err := mock.ParseParams(r)
		if err != nil {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		if params["payment_method"] == declineToken {
			web.Respond(context.Background(), w, map[string]any{
				"error": map[string]any{
					"type":    "card_error",
					"code":    "card_declined",
					"message": "Your card was declined.",
				},
			}, http.StatusPaymentRequired)
			return
		}

		s, _ := params["amount"].(string)
		amount, err := strconv.ParseInt(s, 10, 64)
		if err != nil || amount <= 0 {
			web.Respond(context.Background(), w, nil, http.StatusBadRequest)
			return
		}

		m.mu.Lock()
		m.seq++
		m.charged = append(m.charged, amount)
		id := fmt.Sprintf("pi_%d", m.seq)
		m.mu.Unlock()

		web.Respond(context.Background(), w, map[string]any{
			"id":     id,
			"object": "payment_intent",
			"amount": amount,
			"status": "succeeded",
		}, http.StatusOK)
	})

	r := mux.NewRouter()
	r.Handle("/v1/payment_intents", intents).Methods(http.MethodPost)
	return r
}

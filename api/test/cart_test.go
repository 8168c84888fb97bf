package test

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/irsalhamdi/e-learning-market/core/cart"
	"github.com/irsalhamdi/e-learning-market/core/claims"
	"github.com/irsalhamdi/e-learning-market/validate"
	"github.com/shopspring/decimal"
)

func TestCart(t *testing.T) {
	env := NewTestEnv(t, "cart_test")

	inst := env.newUser(t, claims.RoleInstructor)
	buyer := env.newUser(t, claims.RoleUser)
	other := env.newUser(t, claims.RoleUser)

	a := env.createCourse(t, inst, "10.00")
	b := env.createCourse(t, inst, "20.00")
	c := env.createCourse(t, inst, "30.00")

	var cleared cart.Cleared
	if code := env.do(t, buyer, http.MethodDelete, "/cart", nil, &cleared); code != http.StatusOK {
		t.Fatalf("clearing an empty cart: expected 200, got %d", code)
	}
	if cleared.Removed != 0 {
		t.Fatalf("expected 0 removed, got %d", cleared.Removed)
	}

	env.addToCart(t, buyer, c.ID, http.StatusCreated)
	first := env.addToCart(t, buyer, a.ID, http.StatusCreated)
	env.addToCart(t, buyer, b.ID, http.StatusCreated)

	var got cart.Cart
	if code := env.do(t, buyer, http.MethodGet, "/cart", nil, &got); code != http.StatusOK {
		t.Fatalf("listing cart: status %d", code)
	}

	var ids []string
	for _, l := range got.Items {
		ids = append(ids, l.CourseID)
	}
	if diff := cmp.Diff([]string{c.ID, a.ID, b.ID}, ids); diff != "" {
		t.Fatalf("cart must keep insertion order (-want +got):\n%s", diff)
	}
	if !got.Total.Equal(decimal.RequireFromString("60.00")) {
		t.Fatalf("expected total 60.00, got %s", got.Total)
	}

	var eb errorBody
	if code := env.do(t, other, http.MethodDelete, "/cart/items/"+first.ID, nil, &eb); code != http.StatusNotFound {
		t.Fatalf("removing another user's item: expected 404, got %d", code)
	}
	if code := env.do(t, buyer, http.MethodDelete, "/cart/items/"+validate.GenerateID(), nil, &eb); code != http.StatusNotFound {
		t.Fatalf("removing a missing item: expected 404, got %d", code)
	}
	if n := env.cartCount(t, buyer); n != 3 {
		t.Fatalf("expected 3 items, got %d", n)
	}

	if code := env.do(t, buyer, http.MethodDelete, "/cart/items/"+first.ID, nil, nil); code != http.StatusNoContent {
		t.Fatalf("removing own item: expected 204, got %d", code)
	}
	if code := env.do(t, buyer, http.MethodDelete, "/cart/items/"+first.ID, nil, &eb); code != http.StatusNotFound {
		t.Fatalf("removing an item twice: expected 404, got %d", code)
	}

	if code := env.do(t, buyer, http.MethodDelete, "/cart", nil, &cleared); code != http.StatusOK {
		t.Fatalf("clearing cart: expected 200, got %d", code)
	}
	if cleared.Removed != 2 {
		t.Fatalf("expected 2 removed, got %d", cleared.Removed)
	}
	if n := env.cartCount(t, buyer); n != 0 {
		t.Fatalf("expected an empty cart, got %d items", n)
	}
}

func TestBalanceWithoutSales(t *testing.T) {
	env := NewTestEnv(t, "balance_test")

	inst := env.newUser(t, claims.RoleInstructor)
	if got := env.payable(t, inst); !got.IsZero() {
		t.Fatalf("expected a zero balance, got %s", got)
	}
}

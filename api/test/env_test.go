package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/e-learning-market/api"
	"github.com/irsalhamdi/e-learning-market/api/background"
	"github.com/irsalhamdi/e-learning-market/broker"
	"github.com/irsalhamdi/e-learning-market/config"
	"github.com/irsalhamdi/e-learning-market/core/auth"
	"github.com/irsalhamdi/e-learning-market/core/checkout"
	"github.com/irsalhamdi/e-learning-market/core/claims"
	"github.com/irsalhamdi/e-learning-market/core/payment"
	"github.com/irsalhamdi/e-learning-market/core/user"
	"github.com/irsalhamdi/e-learning-market/database"
	"github.com/irsalhamdi/e-learning-market/lock"
	"github.com/irsalhamdi/e-learning-market/rate"
	"github.com/irsalhamdi/e-learning-market/validate"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/sirupsen/logrus"
)

const jwtSecret = "integration-secret"

type TestEnv struct {
	*httptest.Server
	DB     *sqlx.DB
	Stripe *mockStripe
}

func NewTestEnv(t *testing.T, name string) *TestEnv {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not available: %v", err)
	}

	res, err := pool.Run("postgres", "15-alpine", []string{
		"POSTGRES_USER=postgres",
		"POSTGRES_PASSWORD=postgres",
		"POSTGRES_DB=" + name,
	})
	if err != nil {
		t.Fatalf("starting postgres: %v", err)
	}
	t.Cleanup(func() {
		pool.Purge(res)
	})

	var db *sqlx.DB
	err = pool.Retry(func() error {
		var err error
		db, err = database.Open(config.DB{
			User:         "postgres",
			Password:     "postgres",
			Host:         "localhost:" + res.GetPort("5432/tcp"),
			Name:         name,
			MaxIdleConns: 2,
			MaxOpenConns: 10,
			DisableTLS:   true,
		})
		if err != nil {
			return err
		}
		return database.StatusCheck(context.Background(), db)
	})
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	stripe := newMockStripe()
	stripeSrv := httptest.NewServer(stripe.handle())
	t.Cleanup(stripeSrv.Close)

	gw := payment.NewStripe(payment.NewStripeClient("sk_test_123", stripeSrv.URL))
	bg := background.New(log)

	orch := checkout.New(checkout.Config{
		Store:      checkout.NewStore(db),
		Gateway:    payment.WithTimeout(gw, payment.ProviderStripe, 5*time.Second),
		Provider:   payment.ProviderStripe,
		Currency:   "usd",
		Locker:     lock.NewLocal(),
		Events:     broker.Discard{},
		Background: bg,
		Log:        log,
	})

	limiter := rate.NewLimiter(100, time.Minute, 100)
	t.Cleanup(limiter.Stop)

	srv := httptest.NewServer(api.APIMux(api.APIConfig{
		Log:             log,
		DB:              db,
		Session:         scs.New(),
		JWTSecret:       jwtSecret,
		TokenTTL:        time.Hour,
		Checkout:        orch,
		CheckoutLimiter: limiter,
		Providers:       map[string]auth.Provider{},
	}))
	t.Cleanup(func() {
		srv.Close()
		bg.Shutdown(context.Background())
	})

	return &TestEnv{
		Server: srv,
		DB:     db,
		Stripe: stripe,
	}
}

type session struct {
	ID    string
	Token string
}

func (env *TestEnv) newUser(t *testing.T, role string) session {
	t.Helper()

	id := validate.GenerateID()
	u, err := user.Upsert(context.Background(), env.DB, user.User{
		ID:        id,
		Email:     fmt.Sprintf("%s@example.com", id),
		Name:      strings.ToLower(role),
		Role:      role,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}

	tok, err := auth.IssueToken(jwtSecret, time.Hour, claims.Claims{UserID: u.ID, Role: u.Role})
	if err != nil {
		t.Fatal(err)
	}

	return session{ID: u.ID, Token: tok.Token}
}

// do sends body as JSON and decodes the response into out when out is not nil.
func (env *TestEnv) do(t *testing.T, s session, method string, path string, body any, out any) int {
	t.Helper()

	code, err := env.send(s, method, path, body, out)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return code
}

func (env *TestEnv) send(s session, method string, path string, body any, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(b)
	}

	r, err := http.NewRequest(method, env.URL+path, rd)
	if err != nil {
		return 0, err
	}
	if s.Token != "" {
		r.Header.Set("Authorization", "Bearer "+s.Token)
	}

	w, err := env.Client().Do(r)
	if err != nil {
		return 0, err
	}
	defer w.Body.Close()

	if out != nil && w.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			return 0, fmt.Errorf("decoding response: %w", err)
		}
	}

	return w.StatusCode, nil
}

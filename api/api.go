package api

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/e-learning-market/api/middleware"
	"github.com/irsalhamdi/e-learning-market/api/web"
	"github.com/irsalhamdi/e-learning-market/core/auth"
	"github.com/irsalhamdi/e-learning-market/core/balance"
	"github.com/irsalhamdi/e-learning-market/core/cart"
	"github.com/irsalhamdi/e-learning-market/core/checkout"
	"github.com/irsalhamdi/e-learning-market/core/claims"
	"github.com/irsalhamdi/e-learning-market/core/course"
	"github.com/irsalhamdi/e-learning-market/core/user"
	"github.com/irsalhamdi/e-learning-market/database"
	"github.com/irsalhamdi/e-learning-market/rate"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	DB               *sqlx.DB
	Session          *scs.SessionManager
	JWTSecret        string
	TokenTTL         time.Duration
	Checkout         *checkout.Orchestrator
	CheckoutLimiter  *rate.Limiter
	Providers        map[string]auth.Provider
	AdminEmail       string
	LoginRedirectURL string
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log, "/health", "/metrics"))
	a.mw = append(a.mw, middleware.Metrics())
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.DB, cfg.Session, cfg.JWTSecret)
	admin := auth.RequireRole(claims.RoleAdmin)
	instructor := auth.RequireRole(claims.RoleInstructor)

	health := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := database.StatusCheck(ctx, cfg.DB); err != nil {
			return err
		}
		return web.Respond(ctx, w, map[string]string{"status": "ok"}, http.StatusOK)
	}
	a.Handle(http.MethodGet, "/health", health)
	a.Router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Providers, cfg.AdminEmail, cfg.LoginRedirectURL))
	a.Handle(http.MethodPost, "/auth/token", auth.HandleToken(cfg.JWTSecret, cfg.TokenTTL), authen)

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodPut, "/users/{id}/role", user.HandleUpdateRole(cfg.DB), authen, admin)

	a.Handle(http.MethodGet, "/courses/owned", course.HandleListOwned(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/{id}", course.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/courses", course.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/courses", course.HandleCreate(cfg.DB), authen, instructor)
	a.Handle(http.MethodPut, "/courses/{id}", course.HandleUpdate(cfg.DB), authen, instructor)
	a.Handle(http.MethodDelete, "/courses/{id}", course.HandleDelete(cfg.DB), authen, instructor)

	a.Handle(http.MethodGet, "/instructors/{id}/balance", balance.HandleShow(cfg.DB), authen)

	a.Handle(http.MethodGet, "/cart", cart.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/cart", cart.HandleDelete(cfg.DB), authen)
	a.Handle(http.MethodGet, "/cart/count", cart.HandleCount(cfg.DB), authen)
	a.Handle(http.MethodGet, "/cart/items/{id}", cart.HandleShowItem(cfg.DB), authen)
	a.Handle(http.MethodPost, "/cart/items", cart.HandleCreateItem(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/cart/items/{id}", cart.HandleDeleteItem(cfg.DB), authen)

	a.Handle(http.MethodPost, "/checkout", checkout.HandleCheckout(cfg.Checkout), authen, middleware.RateLimit(cfg.CheckoutLimiter))
	a.Handle(http.MethodGet, "/settlements", checkout.HandleListSettlements(cfg.Checkout), authen, admin)
	a.Handle(http.MethodGet, "/settlements/{reference_id}", checkout.HandleShowSettlement(cfg.Checkout), authen)
	a.Handle(http.MethodPost, "/settlements/{reference_id}/reconcile", checkout.HandleReconcile(cfg.Checkout), authen, admin)

	return cfg.Session.LoadAndSave(a.Router)
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}

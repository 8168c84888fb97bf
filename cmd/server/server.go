package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexedwards/scs/v2"
	"github.com/ardanlabs/conf/v3"
	"github.com/go-redis/redis/v8"
	"github.com/irsalhamdi/e-learning-market/api"
	"github.com/irsalhamdi/e-learning-market/api/background"
	"github.com/irsalhamdi/e-learning-market/broker"
	"github.com/irsalhamdi/e-learning-market/config"
	"github.com/irsalhamdi/e-learning-market/core/auth"
	"github.com/irsalhamdi/e-learning-market/core/checkout"
	"github.com/irsalhamdi/e-learning-market/core/payment"
	"github.com/irsalhamdi/e-learning-market/database"
	"github.com/irsalhamdi/e-learning-market/lock"
	"github.com/irsalhamdi/e-learning-market/rate"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
)

var build = "develop"

func main() {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	if err := Run(log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func Run(logger *logrus.Logger) error {
	const prefix = "GOVOD"
	cfg := config.Config{
		Version: conf.Version{
			Build: build,
			Desc:  "course marketplace",
		},
	}

	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	logger.Infof("starting server, build %s", build)
	defer logger.Info("shutdown complete")

	lw := logger.Writer()
	defer lw.Close()
	errLog := log.New(lw, "", 0)

	db, err := database.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open db connection: %w", err)
	}
	defer db.Close()

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("failed to migrate db: %w", err)
		}
	}

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.Auth.SessionLifetime

	bg := background.New(logger)

	gw, err := makeGateway(cfg)
	if err != nil {
		return err
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("failed to reach redis: %w", err)
		}
		locker = lock.NewRedis(rdb, "checkout:", cfg.Redis.LockTTL, logger)
	}

	var events broker.Publisher = broker.Discard{}
	if cfg.Broker.URL != "" {
		mq, err := broker.Dial(cfg.Broker.URL, cfg.Broker.Exchange, 5, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to the broker: %w", err)
		}
		defer mq.Close()
		events = mq
	}

	orch := checkout.New(checkout.Config{
		Store:      checkout.NewStore(db),
		Gateway:    payment.WithTimeout(gw, cfg.Payment.Provider, cfg.Payment.ChargeTimeout),
		Provider:   cfg.Payment.Provider,
		Currency:   cfg.Payment.Currency,
		Locker:     locker,
		Events:     events,
		Background: bg,
		Log:        logger,
	})

	limiter := rate.NewLimiter(cfg.Rate.CheckoutBurst, cfg.Rate.ClientExpiry, rate.Every(cfg.Rate.CheckoutInterval))
	defer limiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Oauth.DiscoveryTimeout)
	defer cancel()
	google := cfg.Oauth.Google
	oauthProvs, err := auth.MakeProviders(ctx, []auth.ProviderConfig{
		{Name: "google", Client: google.Client, Secret: google.Secret, URL: google.URL, RedirectURL: google.RedirectURL},
	})
	if err != nil {
		return fmt.Errorf("failed to discover oauth providers: %w", err)
	}

	mux := api.APIMux(api.APIConfig{
		CorsOrigin:       cfg.Cors.Origin,
		Log:              logger,
		DB:               db,
		Session:          sessionManager,
		JWTSecret:        cfg.Auth.JWTSecret,
		TokenTTL:         cfg.Auth.TokenTTL,
		Checkout:         orch,
		CheckoutLimiter:  limiter,
		Providers:        oauthProvs,
		AdminEmail:       cfg.Auth.AdminEmail,
		LoginRedirectURL: cfg.Oauth.LoginRedirectURL,
	})

	api := http.Server{
		Handler:      mux,
		Addr:         cfg.Web.Address,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     errLog,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Infof("starting api router at %s", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Infof("shutting down: signal %s", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}

		if err := bg.Shutdown(ctx); err != nil {
			return fmt.Errorf("could not complete all background tasks: %w", err)
		}
	}
	return nil
}

func makeGateway(cfg config.Config) (payment.Gateway, error) {
	switch cfg.Payment.Provider {
	case payment.ProviderStripe:
		if cfg.Stripe.APISecret == "" {
			return nil, errors.New("stripe api secret is required")
		}
		return payment.NewStripe(payment.NewStripeClient(cfg.Stripe.APISecret, cfg.Stripe.URL)), nil

	case payment.ProviderPaypal:
		pp, err := paypal.NewClient(cfg.Paypal.ClientID, cfg.Paypal.Secret, cfg.Paypal.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to build the paypal client: %w", err)
		}
		if _, err := pp.GetAccessToken(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to get the first paypal access token: %w", err)
		}
		return payment.NewPaypal(pp), nil
	}

	return nil, fmt.Errorf("unknown payment provider %q", cfg.Payment.Provider)
}

package config

import (
	"time"

	"github.com/ardanlabs/conf/v3"
)

type Config struct {
	conf.Version
	Web     Web
	Cors    Cors
	DB      DB
	Auth    Auth
	Oauth   Oauth
	Payment Payment
	Stripe  Stripe
	Paypal  Paypal
	Redis   Redis
	Broker  Broker
	Rate    Rate
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:45s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:40s"`
}

type Cors struct {
	Origin string
}

type DB struct {
	User         string `conf:"default:postgres"`
	Password     string `conf:"default:postgres,mask"`
	Host         string `conf:"default:localhost:5432"`
	Name         string `conf:"default:market"`
	MaxIdleConns int    `conf:"default:2"`
	MaxOpenConns int    `conf:"default:10"`
	DisableTLS   bool   `conf:"default:true"`
	AutoMigrate  bool   `conf:"default:true"`
}

type Auth struct {
	JWTSecret       string        `conf:"required,mask"`
	TokenTTL        time.Duration `conf:"default:1h"`
	SessionLifetime time.Duration `conf:"default:24h"`
	AdminEmail      string
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:10s"`
	LoginRedirectURL string        `conf:"default:http://localhost:3000"`
	Google           OauthProvider
}

type OauthProvider struct {
	Client      string
	Secret      string `conf:"mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string
}

type Payment struct {
	Provider      string        `conf:"default:stripe"`
	Currency      string        `conf:"default:usd"`
	ChargeTimeout time.Duration `conf:"default:30s"`
}

type Stripe struct {
	APISecret string `conf:"mask"`
	URL       string
}

type Paypal struct {
	ClientID string
	Secret   string `conf:"mask"`
	URL      string `conf:"default:https://api-m.sandbox.paypal.com"`
}

type Redis struct {
	Address  string
	Password string        `conf:"mask"`
	DB       int           `conf:"default:0"`
	LockTTL  time.Duration `conf:"default:2m"`
}

type Broker struct {
	URL      string `conf:"mask"`
	Exchange string `conf:"default:market.settlements"`
}

type Rate struct {
	CheckoutBurst    int           `conf:"default:3"`
	CheckoutInterval time.Duration `conf:"default:10s"`
	ClientExpiry     time.Duration `conf:"default:10m"`
}

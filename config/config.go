package config

import "time"

type Config struct {
	Web    Web
	DB     DB
	Redis  Redis
	Cors   Cors
	Email  Email
	Paypal Paypal
	Stripe Stripe
	Oauth  Oauth
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DB struct {
	User       string `conf:"default:postgres"`
	Password   string `conf:"default:postgres,mask"`
	Host       string `conf:"default:localhost"`
	Name       string `conf:"default:plantstore"`
	DisableTLS bool   `conf:"default:true"`
}

type Redis struct {
	Address  string        `conf:"default:localhost:6379"`
	Password string        `conf:"default:,mask"`
	CartTTL  time.Duration `conf:"default:720h"`
}

type Cors struct {
	Origin string `conf:"default:"`
}

type Email struct {
	Host        string        `conf:"default:smtp.resend.com"`
	Port        string        `conf:"default:587"`
	Address     string        `conf:"default:no-reply@vuonxanh.vn"`
	Password    string        `conf:"default:,mask"`
	CodeTimeout time.Duration `conf:"default:10m"`
}

type Paypal struct {
	ClientID string `conf:"default:test"`
	Secret   string `conf:"default:test,mask"`
	URL      string `conf:"default:https://api.sandbox.paypal.com"`
}

type Stripe struct {
	APISecret     string `conf:"default:test,mask"`
	WebhookSecret string `conf:"default:test,mask"`
	SuccessURL    string `conf:"default:http://localhost:3000/checkout/success"`
	CancelURL     string `conf:"default:http://localhost:3000/checkout/canceled"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:30s"`
	LoginRedirectURL string        `conf:"default:http://localhost:3000/admin"`
	Google           Google
}

type Google struct {
	Client      string `conf:"default:test"`
	Secret      string `conf:"default:test,mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string `conf:"default:http://localhost:8000/auth/oauth-callback/google"`
}

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/plutov/paypal/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/vuonxanh/plantstore/api"
	"github.com/vuonxanh/plantstore/api/background"
	"github.com/vuonxanh/plantstore/config"
	"github.com/vuonxanh/plantstore/core/cart"
	"github.com/vuonxanh/plantstore/core/user"
	"github.com/vuonxanh/plantstore/database"
	"github.com/vuonxanh/plantstore/validate"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminEmail = "admin@vuonxanh.vn"
	adminPass  = "gardener-secret"

	webhookSecret = "whsec_test"
)

type TestEnv struct {
	Server        *httptest.Server
	URL           string
	DB            *sqlx.DB
	Carts         cart.Store
	AdminEmail    string
	AdminPass     string
	WebhookSecret string
	Paypal        *mockPaypal
	Stripe        *mockStripe
	Mail          *mockMailer
}

// NewTestEnv boots postgres and redis in containers, runs the migrations,
// seeds an admin account, and serves the full API mux behind mock payment
// providers. Skips when docker is not reachable.
func NewTestEnv(t *testing.T) (*TestEnv, error) {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("building docker pool: %w", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not available: %v", err)
	}

	pg, err := pool.Run("postgres", "15-alpine", []string{
		"POSTGRES_PASSWORD=postgres",
		"POSTGRES_DB=plantstore",
	})
	if err != nil {
		return nil, fmt.Errorf("starting postgres: %w", err)
	}
	t.Cleanup(func() { pool.Purge(pg) })

	rd, err := pool.Run("redis", "7-alpine", nil)
	if err != nil {
		return nil, fmt.Errorf("starting redis: %w", err)
	}
	t.Cleanup(func() { pool.Purge(rd) })

	dbCfg := config.DB{
		User:       "postgres",
		Password:   "postgres",
		Host:       pg.GetHostPort("5432/tcp"),
		Name:       "plantstore",
		DisableTLS: true,
	}

	var db *sqlx.DB
	if err := pool.Retry(func() error {
		db, err = database.Open(dbCfg)
		if err != nil {
			return err
		}
		return db.Ping()
	}); err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: rd.GetHostPort("6379/tcp")})
	if err := pool.Retry(func() error {
		return rdb.Ping(context.Background()).Err()
	}); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	t.Cleanup(func() { rdb.Close() })

	if err := seedAdmin(db); err != nil {
		return nil, fmt.Errorf("seeding admin: %w", err)
	}

	mp := &mockPaypal{}
	paypalSrv := httptest.NewServer(mp.handle())
	t.Cleanup(paypalSrv.Close)

	pp, err := paypal.NewClient("test", "test", paypalSrv.URL)
	if err != nil {
		return nil, fmt.Errorf("building paypal client: %w", err)
	}

	ms := &mockStripe{}
	stripeSrv := httptest.NewServer(ms.handle())
	t.Cleanup(stripeSrv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL: stripe.String(stripeSrv.URL),
	})
	strp := &stripecl.API{}
	strp.Init("sk_test", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	mail := &mockMailer{recovery: make(map[string]string)}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	session := scs.New()
	session.Lifetime = time.Hour

	carts := cart.NewRedisStore(rdb, time.Hour)

	mux := api.APIMux(api.APIConfig{
		Log:         log,
		DB:          db,
		Carts:       carts,
		Session:     session,
		Mailer:      mail,
		CodeTimeout: time.Minute,
		Background:  background.New(log),
		Paypal:      pp,
		Stripe:      strp,
		StripeCfg: config.Stripe{
			APISecret:     "sk_test",
			WebhookSecret: webhookSecret,
			SuccessURL:    "http://localhost/success",
			CancelURL:     "http://localhost/cancel",
		},
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("building cookie jar: %w", err)
	}
	srv.Client().Jar = jar

	return &TestEnv{
		Server:        srv,
		URL:           srv.URL,
		DB:            db,
		Carts:         carts,
		AdminEmail:    adminEmail,
		AdminPass:     adminPass,
		WebhookSecret: webhookSecret,
		Paypal:        mp,
		Stripe:        ms,
		Mail:          mail,
	}, nil
}

func (e *TestEnv) Client() *http.Client {
	return e.Server.Client()
}

func seedAdmin(db *sqlx.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPass), bcrypt.MinCost)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	u := user.User{
		ID:           validate.GenerateID(),
		Name:         "Admin",
		Email:        adminEmail,
		Role:         "ADMIN",
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}

	return user.Create(context.Background(), db, u)
}

func Login(srv *httptest.Server, email string, pass string) error {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": pass,
	})
	if err != nil {
		return err
	}

	w, err := srv.Client().Post(srv.URL+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: status code %s", w.Status)
	}
	return nil
}

func Logout(srv *httptest.Server) error {
	w, err := srv.Client().Post(srv.URL+"/auth/logout", "application/json", nil)
	if err != nil {
		return err
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusNoContent {
		return fmt.Errorf("logout failed: status code %s", w.Status)
	}
	return nil
}

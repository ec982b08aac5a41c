package api

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/vuonxanh/plantstore/api/background"
	"github.com/vuonxanh/plantstore/api/middleware"
	"github.com/vuonxanh/plantstore/api/web"
	"github.com/vuonxanh/plantstore/config"
	"github.com/vuonxanh/plantstore/core/auth"
	"github.com/vuonxanh/plantstore/core/cart"
	"github.com/vuonxanh/plantstore/core/discount"
	"github.com/vuonxanh/plantstore/core/order"
	"github.com/vuonxanh/plantstore/core/otp"
	"github.com/vuonxanh/plantstore/core/product"
	"github.com/vuonxanh/plantstore/core/user"
	"github.com/vuonxanh/plantstore/rate"
)

// Mailer is the full delivery surface the API needs.
type Mailer interface {
	otp.Mailer
	order.Mailer
}

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	DB               *sqlx.DB
	Carts            cart.Store
	Session          *scs.SessionManager
	Mailer           Mailer
	CodeTimeout      time.Duration
	Background       *background.Background
	Paypal           *paypal.Client
	Stripe           *stripecl.API
	StripeCfg        config.Stripe
	Providers        map[string]auth.Provider
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

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
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

	authen := auth.Authenticate(cfg.Session)
	admin := auth.Admin(cfg.Session)

	// One recovery code per email per minute, small burst.
	recoverLimiter := rate.NewLimiter(2, 60, rate.Every(time.Minute))

	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session))
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Providers, cfg.LoginRedirectURL))
	a.Handle(http.MethodPost, "/auth/recover", otp.HandleRecover(cfg.DB, cfg.Mailer, cfg.CodeTimeout, cfg.Background, recoverLimiter))
	a.Handle(http.MethodPost, "/auth/recover/verify", otp.HandleRecoverVerify(cfg.DB))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodPost, "/users", user.HandleCreate(cfg.DB), admin)

	a.Handle(http.MethodGet, "/products", product.HandleList(cfg.DB))
	a.Handle(http.MethodGet, "/products/{id}", product.HandleShow(cfg.DB))
	a.Handle(http.MethodPost, "/products", product.HandleCreate(cfg.DB), admin)
	a.Handle(http.MethodPut, "/products/{id}", product.HandleUpdate(cfg.DB), admin)

	a.Handle(http.MethodGet, "/cart", cart.HandleShow(cfg.Carts, cfg.Session))
	a.Handle(http.MethodDelete, "/cart", cart.HandleClear(cfg.Carts, cfg.Session))
	a.Handle(http.MethodPut, "/cart/items", cart.HandleAddItem(cfg.DB, cfg.Carts, cfg.Session))
	a.Handle(http.MethodPut, "/cart/items/{id}", cart.HandleUpdateItem(cfg.Carts, cfg.Session))
	a.Handle(http.MethodDelete, "/cart/items/{id}", cart.HandleDeleteItem(cfg.Carts, cfg.Session))

	a.Handle(http.MethodPost, "/discounts/validate", discount.HandleValidate(cfg.DB))
	a.Handle(http.MethodGet, "/discounts", discount.HandleList(cfg.DB), admin)
	a.Handle(http.MethodPost, "/discounts", discount.HandleCreate(cfg.DB), admin)
	a.Handle(http.MethodPut, "/discounts/{id}", discount.HandleUpdate(cfg.DB), admin)
	a.Handle(http.MethodDelete, "/discounts/{id}", discount.HandleDelete(cfg.DB), admin)

	a.Handle(http.MethodPost, "/orders/paypal", order.HandlePaypalCheckout(cfg.DB, cfg.Carts, cfg.Session, cfg.Paypal))
	a.Handle(http.MethodPost, "/orders/paypal/{id}/capture", order.HandlePaypalCapture(cfg.DB, cfg.Carts, cfg.Paypal, cfg.Background, cfg.Mailer))
	a.Handle(http.MethodPost, "/orders/stripe", order.HandleStripeCheckout(cfg.DB, cfg.Carts, cfg.Session, cfg.Stripe, cfg.StripeCfg))
	a.Handle(http.MethodPost, "/orders/stripe/capture", order.HandleStripeCapture(cfg.DB, cfg.Carts, cfg.StripeCfg, cfg.Background, cfg.Mailer))
	a.Handle(http.MethodGet, "/orders", order.HandleList(cfg.DB), admin)
	a.Handle(http.MethodGet, "/orders/{id}", order.HandleShow(cfg.DB), admin)
	a.Handle(http.MethodPut, "/orders/{id}/status", order.HandleUpdateStatus(cfg.DB), admin)

	return a.Router
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

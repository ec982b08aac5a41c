package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
	"github.com/vuonxanh/plantstore/api/background"
	"github.com/vuonxanh/plantstore/api/web"
	"github.com/vuonxanh/plantstore/api/weberr"
	"github.com/vuonxanh/plantstore/config"
	"github.com/vuonxanh/plantstore/core/cart"
	"github.com/vuonxanh/plantstore/core/discount"
	"github.com/vuonxanh/plantstore/database"
	"github.com/vuonxanh/plantstore/validate"

	"github.com/plutov/paypal/v4"
)

// Mailer delivers the order confirmation. Satisfied by the email package.
type Mailer interface {
	SendOrderConfirmation(to string, orderID string, total int, discountAmount int) error
}

// quote is a priced checkout: the cart snapshot, its derived totals, and the
// effect of the discount code if one was supplied.
type quote struct {
	cartID  string
	items   []cart.Item
	totals  cart.Totals
	disc    *discount.Result
	discID  *string
	payable int
}

// buildQuote loads the session cart and prices it. The discount is validated
// against the cart subtotal; the payable amount combines the discounted
// subtotal with shipping and tax.
func buildQuote(ctx context.Context, db *sqlx.DB, carts cart.Store, session *scs.SessionManager, code string) (quote, error) {
	cartID := cart.SessionID(ctx, session)

	c, err := carts.Load(ctx, cartID)
	if err != nil {
		return quote{}, fmt.Errorf("loading cart: %w", err)
	}

	if len(c.Items) == 0 {
		err := errors.New("no items to checkout")
		return quote{}, weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
	}

	q := quote{
		cartID: cartID,
		items:  c.Items,
		totals: c.Totals(),
	}
	q.payable = q.totals.Total

	if code != "" {
		d, err := discount.FetchByCode(ctx, db, discount.NormalizeCode(code))
		if err != nil {
			if errors.Is(err, discount.ErrNotFound) {
				return quote{}, weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
			}
			return quote{}, err
		}

		res, err := discount.Validate(d, q.totals.Subtotal, time.Now().UTC())
		if err != nil {
			return quote{}, weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		q.disc = &res
		q.discID = &d.ID
		q.payable = q.totals.Total - res.Amount
	}

	return q, nil
}

// prepare persists the pending order bound to the payment provider ID. The
// discount redemption is part of the same transaction: the conditional
// increment fails the checkout when concurrent orders exhaust the code.
func prepare(ctx context.Context, db *sqlx.DB, cn CheckoutNew, q quote, providerID string) error {
	err := database.Transaction(db, func(tx sqlx.ExtContext) error {
		now := time.Now().UTC()
		ord := Order{
			ID:         validate.GenerateID(),
			ProviderID: providerID,
			CartID:     q.cartID,
			Status:     Pending,
			Email:      cn.Email,
			Name:       cn.Name,
			Phone:      cn.Phone,
			Address:    cn.Address,
			Subtotal:   q.totals.Subtotal,
			Shipping:   q.totals.Shipping,
			Tax:        q.totals.Tax,
			Total:      q.payable,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if q.disc != nil {
			ord.DiscountID = q.discID
			ord.DiscountCode = &q.disc.Code
			ord.DiscountAmount = q.disc.Amount
		}

		if err := Create(ctx, tx, ord); err != nil {
			return fmt.Errorf("creating order: %w", err)
		}

		for _, it := range q.items {
			item := Item{
				OrderID:   ord.ID,
				ProductID: it.ProductID,
				Name:      it.Name,
				Price:     it.UnitPrice,
				Quantity:  it.Quantity,
				CreatedAt: now,
			}

			if err := CreateItem(ctx, tx, item); err != nil {
				return fmt.Errorf("creating item: %w", err)
			}
		}

		if q.discID != nil {
			if err := discount.Redeem(ctx, tx, *q.discID); err != nil {
				return fmt.Errorf("redeeming discount: %w", err)
			}
		}

		return nil
	})

	if err != nil {
		if errors.Is(err, discount.ErrExhausted) {
			return weberr.NewError(discount.ErrExhausted, discount.ErrExhausted.Error(), http.StatusUnprocessableEntity)
		}
		return fmt.Errorf("creating the order bound to payment[%s]: %w", providerID, err)
	}
	return nil
}

func fulfill(ctx context.Context, db *sqlx.DB, carts cart.Store, bg *background.Background, mailer Mailer, providerID string) error {
	ord, err := FetchByProviderID(ctx, db, providerID)
	if err != nil {
		return fmt.Errorf("fetching the order bound to payment[%s]: %w", providerID, err)
	}

	up := StatusUp{
		ID:        ord.ID,
		Status:    Success,
		UpdatedAt: time.Now().UTC(),
	}
	if err := UpdateStatus(ctx, db, up); err != nil {
		return fmt.Errorf("fulfilling the order[%s] bound to payment[%s]: %w", ord.ID, providerID, err)
	}

	if err := carts.Drop(ctx, ord.CartID); err != nil {
		return fmt.Errorf("the order[%s] was fulfilled but its cart was not flushed: %w", ord.ID, err)
	}

	bg.Add(func() error {
		return mailer.SendOrderConfirmation(ord.Email, ord.ID, ord.Total, ord.DiscountAmount)
	})

	return nil
}

func HandlePaypalCheckout(db *sqlx.DB, carts cart.Store, session *scs.SessionManager, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cn CheckoutNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		q, err := buildQuote(ctx, db, carts, session, cn.DiscountCode)
		if err != nil {
			return err
		}

		items := make([]paypal.Item, 0, len(q.items))
		for _, it := range q.items {
			items = append(items, paypal.Item{
				Name:     it.Name,
				Quantity: strconv.Itoa(it.Quantity),

				UnitAmount: &paypal.Money{
					Currency: "VND",
					Value:    strconv.Itoa(it.UnitPrice),
				},
			})
		}

		breakdown := &paypal.PurchaseUnitAmountBreakdown{
			ItemTotal: &paypal.Money{Currency: "VND", Value: strconv.Itoa(q.totals.Subtotal)},
			Shipping:  &paypal.Money{Currency: "VND", Value: strconv.Itoa(q.totals.Shipping)},
			TaxTotal:  &paypal.Money{Currency: "VND", Value: strconv.Itoa(q.totals.Tax)},
		}
		if q.disc != nil {
			breakdown.Discount = &paypal.Money{Currency: "VND", Value: strconv.Itoa(q.disc.Amount)}
		}

		units := []paypal.PurchaseUnitRequest{{
			Items: items,

			Amount: &paypal.PurchaseUnitAmount{
				Currency:  "VND",
				Value:     strconv.Itoa(q.payable),
				Breakdown: breakdown,
			},
		}}

		ord, err := pp.CreateOrder(ctx, "CAPTURE", units, nil, &paypal.ApplicationContext{})
		if err != nil {
			return fmt.Errorf("creating paypal order: %w", err)
		}

		if err := prepare(ctx, db, cn, q, ord.ID); err != nil {
			return err
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

func HandlePaypalCapture(db *sqlx.DB, carts cart.Store, pp *paypal.Client, bg *background.Background, mailer Mailer) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		providerID := web.Param(r, "id")

		resp, err := pp.CaptureOrder(ctx, providerID, paypal.CaptureOrderRequest{})
		if err != nil {
			return fmt.Errorf("capturing paypal order[%s]: %w", providerID, err)
		}

		if resp.Status != "COMPLETED" {
			return fmt.Errorf("captured order[%s] with status[%s] different from 'COMPLETED'", providerID, resp.Status)
		}

		if err := fulfill(ctx, db, carts, bg, mailer, providerID); err != nil {
			return fmt.Errorf("the order was payed but its fulfillment failed: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleStripeCheckout(db *sqlx.DB, carts cart.Store, session *scs.SessionManager, strp *stripecl.API, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var cn CheckoutNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		q, err := buildQuote(ctx, db, carts, session, cn.DiscountCode)
		if err != nil {
			return err
		}

		// VND is a zero-decimal currency on stripe: amounts are plain dong.
		li := make([]*stripe.CheckoutSessionLineItemParams, 0, len(q.items)+2)
		for _, it := range q.items {
			li = append(li, &stripe.CheckoutSessionLineItemParams{
				Quantity: stripe.Int64(int64(it.Quantity)),

				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyVND)),
					UnitAmount: stripe.Int64(int64(it.UnitPrice)),

					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(it.Name),
					},
				},
			})
		}

		if q.totals.Shipping > 0 {
			li = append(li, &stripe.CheckoutSessionLineItemParams{
				Quantity: stripe.Int64(1),

				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyVND)),
					UnitAmount: stripe.Int64(int64(q.totals.Shipping)),

					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Shipping fee"),
					},
				},
			})
		}

		if q.totals.Tax > 0 {
			li = append(li, &stripe.CheckoutSessionLineItemParams{
				Quantity: stripe.Int64(1),

				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyVND)),
					UnitAmount: stripe.Int64(int64(q.totals.Tax)),

					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("VAT (10%)"),
					},
				},
			})
		}

		params := &stripe.CheckoutSessionParams{
			SuccessURL: stripe.String(cfg.SuccessURL),
			CancelURL:  stripe.String(cfg.CancelURL),
			Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
			LineItems:  li,
		}

		if q.disc != nil {
			cp, err := strp.Coupons.New(&stripe.CouponParams{
				AmountOff: stripe.Int64(int64(q.disc.Amount)),
				Currency:  stripe.String(string(stripe.CurrencyVND)),
				Duration:  stripe.String(string(stripe.CouponDurationOnce)),
				Name:      stripe.String(q.disc.Code),
			})
			if err != nil {
				return fmt.Errorf("creating stripe coupon: %w", err)
			}

			params.Discounts = []*stripe.CheckoutSessionDiscountParams{{
				Coupon: stripe.String(cp.ID),
			}}
		}

		s, err := strp.CheckoutSessions.New(params)
		if err != nil {
			return fmt.Errorf("creating stripe session: %w", err)
		}

		if err := prepare(ctx, db, cn, q, s.ID); err != nil {
			return err
		}

		return web.Respond(ctx, w, s.URL, http.StatusOK)
	}
}

func HandleStripeCapture(db *sqlx.DB, carts cart.Store, cfg config.Stripe, bg *background.Background, mailer Mailer) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		sig := r.Header.Get("Stripe-Signature")
		if sig == "" {
			return weberr.BadRequest(errors.New("received stripe event is not signed"))
		}

		event, err := webhook.ConstructEvent(b, sig, cfg.WebhookSecret)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot construct stripe event: %w", err))
		}

		if event.Type != "checkout.session.completed" {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		var session stripe.CheckoutSession
		if err = json.Unmarshal(event.Data.Raw, &session); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode stripe event: %w", err))
		}

		if session.Mode != stripe.CheckoutSessionModePayment {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		if err := fulfill(ctx, db, carts, bg, mailer, session.ID); err != nil {
			return fmt.Errorf("the order was payed but its fulfillment failed: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		ords, err := FetchAll(ctx, db)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, ords, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		ord, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		items, err := FetchItems(ctx, db, ord.ID)
		if err != nil {
			return err
		}

		out := struct {
			Order
			Items []Item `json:"items"`
		}{Order: ord, Items: items}

		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

type statusReq struct {
	Status Status `json:"status" validate:"required,oneof=pending success expired"`
}

func HandleUpdateStatus(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var req statusReq
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(req); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		up := StatusUp{ID: id, Status: req.Status, UpdatedAt: time.Now().UTC()}
		if err := UpdateStatus(ctx, db, up); err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

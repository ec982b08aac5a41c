package cart

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/vuonxanh/plantstore/api/web"
	"github.com/vuonxanh/plantstore/api/weberr"
	"github.com/vuonxanh/plantstore/core/product"
	"github.com/vuonxanh/plantstore/validate"
)

const cartIDKey = "cart_id"

type ItemNew struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity"`
}

type ItemUp struct {
	Quantity int `json:"quantity"`
}

// View is the cart as returned to clients: the line items plus the derived
// breakdown, recomputed on every read and mutation.
type View struct {
	Items  []Item `json:"items"`
	Totals Totals `json:"totals"`
}

// SessionID returns the cart ID bound to the session, minting one on first
// use. The ID is the only cart state kept in the session itself.
func SessionID(ctx context.Context, session *scs.SessionManager) string {
	id := session.GetString(ctx, cartIDKey)
	if id == "" {
		id = validate.GenerateID()
		session.Put(ctx, cartIDKey, id)
	}
	return id
}

func respond(ctx context.Context, w http.ResponseWriter, c Cart) error {
	return web.Respond(ctx, w, View{Items: c.Items, Totals: c.Totals()}, http.StatusOK)
}

func HandleShow(carts Store, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		c, err := carts.Load(ctx, SessionID(ctx, session))
		if err != nil {
			return err
		}

		return respond(ctx, w, c)
	}
}

func HandleClear(carts Store, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := SessionID(ctx, session)

		c, err := carts.Load(ctx, id)
		if err != nil {
			return err
		}

		c = c.Clear()
		if err := carts.Save(ctx, id, c); err != nil {
			return err
		}

		return respond(ctx, w, c)
	}
}

func HandleAddItem(db *sqlx.DB, carts Store, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in ItemNew
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		p, err := product.Fetch(ctx, db, in.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		id := SessionID(ctx, session)
		c, err := carts.Load(ctx, id)
		if err != nil {
			return err
		}

		qty := in.Quantity
		if qty == 0 {
			qty = 1
		}

		c = c.Add(p.ID, p.Name, p.Price, qty, time.Now().UTC())
		if err := carts.Save(ctx, id, c); err != nil {
			return err
		}

		return respond(ctx, w, c)
	}
}

func HandleUpdateItem(carts Store, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		itemID := web.Param(r, "id")
		if err := validate.CheckID(itemID); err != nil {
			return weberr.BadRequest(err)
		}

		var up ItemUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(err)
		}

		id := SessionID(ctx, session)
		c, err := carts.Load(ctx, id)
		if err != nil {
			return err
		}

		// Unknown item IDs are deliberate no-ops, not errors.
		c = c.SetQuantity(itemID, up.Quantity)
		if err := carts.Save(ctx, id, c); err != nil {
			return err
		}

		return respond(ctx, w, c)
	}
}

func HandleDeleteItem(carts Store, session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		itemID := web.Param(r, "id")
		if err := validate.CheckID(itemID); err != nil {
			return weberr.BadRequest(err)
		}

		id := SessionID(ctx, session)
		c, err := carts.Load(ctx, id)
		if err != nil {
			return err
		}

		c = c.Remove(itemID)
		if err := carts.Save(ctx, id, c); err != nil {
			return err
		}

		return respond(ctx, w, c)
	}
}

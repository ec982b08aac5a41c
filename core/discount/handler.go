package discount

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vuonxanh/plantstore/api/web"
	"github.com/vuonxanh/plantstore/api/weberr"
	"github.com/vuonxanh/plantstore/validate"
)

type ValidateReq struct {
	Code  string `json:"code"`
	Total int    `json:"total"`
}

type DiscountNew struct {
	Code              string     `json:"code" validate:"required"`
	Kind              Kind       `json:"kind" validate:"required,oneof=percentage fixed"`
	Value             int        `json:"value" validate:"required,gt=0"`
	Description       string     `json:"description"`
	MinOrderValue     int        `json:"minOrderValue" validate:"gte=0"`
	MaxDiscountAmount *int       `json:"maxDiscountAmount" validate:"omitempty,gt=0"`
	UsageLimit        *int       `json:"usageLimit" validate:"omitempty,gt=0"`
	ValidFrom         *time.Time `json:"validFrom"`
	ValidTo           *time.Time `json:"validTo"`
}

type DiscountUp struct {
	Kind              *Kind      `json:"kind" validate:"omitempty,oneof=percentage fixed"`
	Value             *int       `json:"value" validate:"omitempty,gt=0"`
	Description       *string    `json:"description"`
	MinOrderValue     *int       `json:"minOrderValue" validate:"omitempty,gte=0"`
	MaxDiscountAmount *int       `json:"maxDiscountAmount" validate:"omitempty,gt=0"`
	UsageLimit        *int       `json:"usageLimit" validate:"omitempty,gt=0"`
	ValidFrom         *time.Time `json:"validFrom"`
	ValidTo           *time.Time `json:"validTo"`
	Active            *bool      `json:"active"`
}

// HandleValidate resolves a user-supplied code against the stored rule and
// returns its effect on the given order total. It never mutates used_count;
// redemption happens inside the order transaction.
func HandleValidate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var req ValidateReq
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(err)
		}

		if req.Code == "" || req.Total <= 0 {
			err := errors.New("missing code or order total")
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		d, err := FetchByCode(ctx, db, NormalizeCode(req.Code))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NewError(err, err.Error(), http.StatusNotFound)
			}
			return err
		}

		res, err := Validate(d, req.Total, time.Now().UTC())
		if err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		return web.Respond(ctx, w, res, http.StatusOK)
	}
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var dn DiscountNew
		if err := web.Decode(w, r, &dn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(dn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if dn.Kind == Percentage && dn.Value > 100 {
			err := errors.New("percentage value cannot exceed 100")
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		now := time.Now().UTC()
		d := Discount{
			ID:                validate.GenerateID(),
			Code:              NormalizeCode(dn.Code),
			Kind:              dn.Kind,
			Value:             dn.Value,
			Description:       dn.Description,
			MinOrderValue:     dn.MinOrderValue,
			MaxDiscountAmount: dn.MaxDiscountAmount,
			UsageLimit:        dn.UsageLimit,
			ValidFrom:         dn.ValidFrom,
			ValidTo:           dn.ValidTo,
			Active:            true,
			CreatedAt:         now,
			UpdatedAt:         now,
			Version:           1,
		}

		if err := Create(ctx, db, d); err != nil {
			if errors.Is(err, ErrDuplicateCode) {
				return weberr.NewError(err, err.Error(), http.StatusConflict)
			}
			return err
		}

		return web.Respond(ctx, w, d, http.StatusCreated)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var up DiscountUp
		if err := web.Decode(w, r, &up); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(up); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		d, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		if up.Kind != nil {
			d.Kind = *up.Kind
		}
		if up.Value != nil {
			d.Value = *up.Value
		}
		if up.Description != nil {
			d.Description = *up.Description
		}
		if up.MinOrderValue != nil {
			d.MinOrderValue = *up.MinOrderValue
		}
		if up.MaxDiscountAmount != nil {
			d.MaxDiscountAmount = up.MaxDiscountAmount
		}
		if up.UsageLimit != nil {
			d.UsageLimit = up.UsageLimit
		}
		if up.ValidFrom != nil {
			d.ValidFrom = up.ValidFrom
		}
		if up.ValidTo != nil {
			d.ValidTo = up.ValidTo
		}
		if up.Active != nil {
			d.Active = *up.Active
		}
		d.UpdatedAt = time.Now().UTC()

		// The bound holds on the merged row: a kind flip alone can turn a
		// currency-sized value into an illegal percentage.
		if d.Kind == Percentage && d.Value > 100 {
			err := errors.New("percentage value cannot exceed 100")
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if err := Update(ctx, db, d); err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, d, http.StatusOK)
	}
}

// HandleDelete disables a code. Rows are never removed so orders that
// redeemed the code keep a valid reference.
func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		d, err := Fetch(ctx, db, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		d.Active = false
		d.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, d); err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		ds, err := FetchAll(ctx, db)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, ds, http.StatusOK)
	}
}

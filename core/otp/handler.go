package otp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vuonxanh/plantstore/api/background"
	"github.com/vuonxanh/plantstore/api/web"
	"github.com/vuonxanh/plantstore/api/weberr"
	"github.com/vuonxanh/plantstore/core/user"
	"github.com/vuonxanh/plantstore/database"
	"github.com/vuonxanh/plantstore/rate"
	"github.com/vuonxanh/plantstore/validate"
	"golang.org/x/crypto/bcrypt"
)

// Mailer delivers the recovery code. Satisfied by the email package.
type Mailer interface {
	SendRecoveryCode(to string, code string) error
}

type RecoverReq struct {
	Email string `json:"email" validate:"required,email"`
}

type RecoverVerifyReq struct {
	Email           string `json:"email" validate:"required,email"`
	Code            string `json:"code" validate:"required,len=6,numeric"`
	Password        string `json:"password" validate:"required,min=8,max=50"`
	PasswordConfirm string `json:"passwordConfirm" validate:"eqfield=Password"`
}

// HandleRecover issues a recovery OTP and emails it off the request path.
// The response is 204 whether or not the email has an account.
func HandleRecover(db *sqlx.DB, mailer Mailer, ttl time.Duration, bg *background.Background, limiter *rate.Limiter) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var req RecoverReq
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(req); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if !limiter.Check(req.Email) {
			err := errors.New("too many recovery requests")
			return weberr.NewError(err, err.Error(), http.StatusTooManyRequests)
		}

		u, err := user.FetchByEmail(ctx, db, req.Email)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				// Don't leak which emails have accounts.
				return web.Respond(ctx, w, nil, http.StatusNoContent)
			}
			return err
		}

		code, tok, err := New(u.ID, ScopeRecovery, ttl)
		if err != nil {
			return fmt.Errorf("generating recovery code: %w", err)
		}

		if err := Create(ctx, db, tok); err != nil {
			return err
		}

		bg.Add(func() error {
			return mailer.SendRecoveryCode(u.Email, code)
		})

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleRecoverVerify checks the submitted code and swaps the password. All
// outstanding recovery tokens for the user are invalidated in the same
// transaction as the password update.
func HandleRecoverVerify(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var req RecoverVerifyReq
		if err := web.Decode(w, r, &req); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(req); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		u, err := user.FetchByEmail(ctx, db, req.Email)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return weberr.NewError(ErrNotFound, ErrNotFound.Error(), http.StatusUnprocessableEntity)
			}
			return err
		}

		if _, err := Fetch(ctx, db, Hash(req.Code), u.ID, ScopeRecovery, time.Now().UTC()); err != nil {
			if errors.Is(err, ErrNotFound) {
				return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
			}
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := user.UpdatePassword(ctx, tx, u.ID, hash); err != nil {
				return fmt.Errorf("updating password: %w", err)
			}

			if err := DeleteAll(ctx, tx, u.ID, ScopeRecovery); err != nil {
				return fmt.Errorf("invalidating recovery codes: %w", err)
			}

			return nil
		})
		if err != nil {
			return fmt.Errorf("resetting password of user[%s]: %w", u.ID, err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

package discount

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrNotFound      = errors.New("discount code does not exist")
	ErrDuplicateCode = errors.New("discount code already exists")
)

func Create(ctx context.Context, db sqlx.ExtContext, d Discount) error {
	const q = `
	INSERT INTO discounts
		(discount_id, code, kind, value, description, min_order_value, max_discount_amount,
		usage_limit, used_count, valid_from, valid_to, active, created_at, updated_at)
	VALUES
		(:discount_id, :code, :kind, :value, :description, :min_order_value, :max_discount_amount,
		:usage_limit, :used_count, :valid_from, :valid_to, :active, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, d); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateCode
		}
		return fmt.Errorf("inserting discount: %w", err)
	}

	return nil
}

func Update(ctx context.Context, db sqlx.ExtContext, d Discount) error {
	const q = `
	UPDATE discounts
	SET
		kind = :kind,
		value = :value,
		description = :description,
		min_order_value = :min_order_value,
		max_discount_amount = :max_discount_amount,
		usage_limit = :usage_limit,
		valid_from = :valid_from,
		valid_to = :valid_to,
		active = :active,
		updated_at = :updated_at,
		version = version + 1
	WHERE
		discount_id = :discount_id AND version = :version`

	res, err := sqlx.NamedExecContext(ctx, db, q, d)
	if err != nil {
		return fmt.Errorf("updating discount[%s]: %w", d.ID, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Discount, error) {
	const q = `SELECT * FROM discounts WHERE discount_id = $1`

	var d Discount
	if err := sqlx.GetContext(ctx, db, &d, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Discount{}, ErrNotFound
		}
		return Discount{}, fmt.Errorf("selecting discount[%s]: %w", id, err)
	}

	return d, nil
}

// FetchByCode expects a normalized code; see NormalizeCode.
func FetchByCode(ctx context.Context, db sqlx.ExtContext, code string) (Discount, error) {
	const q = `SELECT * FROM discounts WHERE code = $1`

	var d Discount
	if err := sqlx.GetContext(ctx, db, &d, q, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Discount{}, ErrNotFound
		}
		return Discount{}, fmt.Errorf("selecting discount[%s]: %w", code, err)
	}

	return d, nil
}

func FetchAll(ctx context.Context, db sqlx.ExtContext) ([]Discount, error) {
	const q = `SELECT * FROM discounts ORDER BY created_at DESC`

	ds := []Discount{}
	if err := sqlx.SelectContext(ctx, db, &ds, q); err != nil {
		return nil, fmt.Errorf("selecting discounts: %w", err)
	}

	return ds, nil
}

// Redeem increments the usage counter only while it is still under the limit.
// The conditional update makes redemption atomic with the surrounding order
// transaction: concurrent checkouts cannot push used_count past usage_limit.
func Redeem(ctx context.Context, db sqlx.ExtContext, id string) error {
	const q = `
	UPDATE discounts
	SET used_count = used_count + 1, updated_at = now()
	WHERE discount_id = $1
		AND active
		AND (usage_limit IS NULL OR used_count < usage_limit)`

	res, err := db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("redeeming discount[%s]: %w", id, err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrExhausted
	}

	return nil
}

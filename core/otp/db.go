package otp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("invalid or expired code")

func Create(ctx context.Context, db sqlx.ExtContext, tok Token) error {
	const q = `
	INSERT INTO tokens
		(token_hash, user_id, scope, expires_at, created_at)
	VALUES
		(:token_hash, :user_id, :scope, :expires_at, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, tok); err != nil {
		return fmt.Errorf("inserting token: %w", err)
	}

	return nil
}

// Fetch looks up a live token by code hash, user, and scope. Expired rows are
// treated as missing.
func Fetch(ctx context.Context, db sqlx.ExtContext, hash []byte, userID string, scope string, now time.Time) (Token, error) {
	const q = `
	SELECT * FROM tokens
	WHERE token_hash = $1 AND user_id = $2 AND scope = $3 AND expires_at > $4`

	var tok Token
	if err := sqlx.GetContext(ctx, db, &tok, q, hash, userID, scope, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Token{}, ErrNotFound
		}
		return Token{}, fmt.Errorf("selecting token: %w", err)
	}

	return tok, nil
}

// DeleteAll invalidates every token the user holds in the scope. Called after
// a successful reset so a code cannot be replayed.
func DeleteAll(ctx context.Context, db sqlx.ExtContext, userID string, scope string) error {
	const q = `DELETE FROM tokens WHERE user_id = $1 AND scope = $2`

	if _, err := db.ExecContext(ctx, q, userID, scope); err != nil {
		return fmt.Errorf("deleting tokens of user[%s]: %w", userID, err)
	}

	return nil
}

package otp

import (
	"crypto/sha256"
	"time"

	"github.com/vuonxanh/plantstore/random"
)

const (
	ScopeRecovery = "recovery"

	codeLength = 6
)

// Token is a stored one-time code. Only the SHA-256 hash of the code is
// persisted; the plaintext exists once, in the email to the user.
type Token struct {
	Hash      []byte    `db:"token_hash"`
	UserID    string    `db:"user_id"`
	Scope     string    `db:"scope"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// New mints a fresh numeric code for the user and returns it together with
// the token row to persist.
func New(userID string, scope string, ttl time.Duration) (string, Token, error) {
	code, err := random.Digits(codeLength)
	if err != nil {
		return "", Token{}, err
	}

	now := time.Now().UTC()
	tok := Token{
		Hash:      Hash(code),
		UserID:    userID,
		Scope:     scope,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	return code, tok, nil
}

func Hash(code string) []byte {
	h := sha256.Sum256([]byte(code))
	return h[:]
}

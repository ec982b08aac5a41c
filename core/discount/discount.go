package discount

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Kind string

const (
	Percentage  Kind = "percentage"
	FixedAmount Kind = "fixed"
)

// Discount is a voucher rule stored in the backend. Codes are unique and kept
// uppercase; lookups normalize their input the same way.
type Discount struct {
	ID                string     `json:"id" db:"discount_id"`
	Code              string     `json:"code" db:"code"`
	Kind              Kind       `json:"kind" db:"kind"`
	Value             int        `json:"value" db:"value"`
	Description       string     `json:"description" db:"description"`
	MinOrderValue     int        `json:"minOrderValue" db:"min_order_value"`
	MaxDiscountAmount *int       `json:"maxDiscountAmount" db:"max_discount_amount"`
	UsageLimit        *int       `json:"usageLimit" db:"usage_limit"`
	UsedCount         int        `json:"usedCount" db:"used_count"`
	ValidFrom         *time.Time `json:"validFrom" db:"valid_from"`
	ValidTo           *time.Time `json:"validTo" db:"valid_to"`
	Active            bool       `json:"active" db:"active"`
	CreatedAt         time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time  `json:"updatedAt" db:"updated_at"`
	Version           int        `json:"-" db:"version"`
}

// Result is the monetary effect of a valid code on an order subtotal.
type Result struct {
	DiscountID  string `json:"discountId"`
	Code        string `json:"code"`
	Kind        Kind   `json:"kind"`
	Value       int    `json:"value"`
	Amount      int    `json:"discountAmount"`
	FinalTotal  int    `json:"finalTotal"`
	Description string `json:"description"`
}

var (
	ErrDisabled  = errors.New("discount code is disabled")
	ErrNotYet    = errors.New("discount code is not yet valid")
	ErrExpired   = errors.New("discount code has expired")
	ErrExhausted = errors.New("discount code usage limit reached")
)

// BelowMinimumError reports the formatted minimum so the caller can surface
// it directly to the user.
type BelowMinimumError struct {
	Minimum int
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("order total must be at least %s to use this code", FormatVND(e.Minimum))
}

// NormalizeCode strips surrounding space and uppercases, matching how codes
// are stored.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks eligibility of d against the order subtotal at time now and
// computes the discounted total. Checks run in a fixed order and the first
// failure wins, so the caller always gets the most specific reason.
func Validate(d Discount, subtotal int, now time.Time) (Result, error) {
	if !d.Active {
		return Result{}, ErrDisabled
	}

	if d.ValidFrom != nil && d.ValidFrom.After(now) {
		return Result{}, ErrNotYet
	}

	if d.ValidTo != nil && d.ValidTo.Before(now) {
		return Result{}, ErrExpired
	}

	if d.UsageLimit != nil && d.UsedCount >= *d.UsageLimit {
		return Result{}, ErrExhausted
	}

	if subtotal < d.MinOrderValue {
		return Result{}, &BelowMinimumError{Minimum: d.MinOrderValue}
	}

	var amount int
	switch d.Kind {
	case Percentage:
		// Integer division truncates toward zero, so a percentage amount
		// always rounds down to the whole dong.
		amount = subtotal * d.Value / 100
		if d.MaxDiscountAmount != nil && amount > *d.MaxDiscountAmount {
			amount = *d.MaxDiscountAmount
		}
		if amount > subtotal {
			amount = subtotal
		}
	case FixedAmount:
		amount = d.Value
		if amount > subtotal {
			amount = subtotal
		}
	default:
		return Result{}, fmt.Errorf("unknown discount kind %q", d.Kind)
	}

	return Result{
		DiscountID:  d.ID,
		Code:        d.Code,
		Kind:        d.Kind,
		Value:       d.Value,
		Amount:      amount,
		FinalTotal:  subtotal - amount,
		Description: d.Description,
	}, nil
}

// FormatVND renders an amount with dot thousand separators and the dong sign,
// e.g. 1500000 -> "1.500.000₫".
func FormatVND(amount int) string {
	s := strconv.Itoa(amount)

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}

	out := b.String() + "₫"
	if neg {
		out = "-" + out
	}
	return out
}

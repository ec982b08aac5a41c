package discount

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var now = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func intp(n int) *int { return &n }

func timep(t time.Time) *time.Time { return &t }

func active(kind Kind, value int) Discount {
	return Discount{
		ID:     "d-1",
		Code:   "SPRING10",
		Kind:   kind,
		Value:  value,
		Active: true,
	}
}

func TestValidatePercentage(t *testing.T) {
	d := active(Percentage, 10)
	d.Description = "10% off"

	res, err := Validate(d, 200_000, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Result{
		DiscountID:  "d-1",
		Code:        "SPRING10",
		Kind:        Percentage,
		Value:       10,
		Amount:      20_000,
		FinalTotal:  180_000,
		Description: "10% off",
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("unexpected result (-want +got):\n%s", diff)
	}
}

func TestValidatePercentageCap(t *testing.T) {
	d := active(Percentage, 10)
	d.MaxDiscountAmount = intp(50_000)

	res, err := Validate(d, 1_000_000, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Amount != 50_000 {
		t.Fatalf("expected raw 10%% of 1000000 clamped to 50000, got %d", res.Amount)
	}
	if res.FinalTotal != 950_000 {
		t.Fatalf("expected final total 950000, got %d", res.FinalTotal)
	}
}

func TestValidatePercentageClampedToSubtotal(t *testing.T) {
	// A stored value above 100 must never discount more than the order
	// itself; the final total stays non-negative.
	d := active(Percentage, 150)

	res, err := Validate(d, 200_000, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Amount != 200_000 {
		t.Fatalf("percentage discount must not exceed the order total, got %d", res.Amount)
	}
	if res.FinalTotal != 0 {
		t.Fatalf("expected final total 0, got %d", res.FinalTotal)
	}
}

func TestValidateFixedClampedToSubtotal(t *testing.T) {
	d := active(FixedAmount, 80_000)

	res, err := Validate(d, 50_000, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Amount != 50_000 {
		t.Fatalf("fixed discount must not exceed the order total, got %d", res.Amount)
	}
	if res.FinalTotal != 0 {
		t.Fatalf("expected final total 0, got %d", res.FinalTotal)
	}
}

func TestValidateEligibility(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Discount)
		want error
	}{
		{
			name: "disabled",
			mod:  func(d *Discount) { d.Active = false },
			want: ErrDisabled,
		},
		{
			name: "not yet valid",
			mod:  func(d *Discount) { d.ValidFrom = timep(now.Add(time.Hour)) },
			want: ErrNotYet,
		},
		{
			name: "expired",
			mod:  func(d *Discount) { d.ValidTo = timep(now.Add(-time.Hour)) },
			want: ErrExpired,
		},
		{
			name: "usage limit reached",
			mod: func(d *Discount) {
				d.UsageLimit = intp(5)
				d.UsedCount = 5
			},
			want: ErrExhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := active(Percentage, 10)
			tt.mod(&d)

			_, err := Validate(d, 200_000, now)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateOrderOfChecks(t *testing.T) {
	// A code failing several checks must report the first one in order:
	// disabled wins over expired, expired wins over below-minimum.
	d := active(Percentage, 10)
	d.Active = false
	d.ValidTo = timep(now.Add(-time.Hour))
	d.MinOrderValue = 1_000_000

	_, err := Validate(d, 200_000, now)
	if !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled first, got %v", err)
	}

	d.Active = true
	_, err = Validate(d, 200_000, now)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired before below-minimum, got %v", err)
	}
}

func TestValidateBelowMinimum(t *testing.T) {
	d := active(Percentage, 10)
	d.MinOrderValue = 500_000

	_, err := Validate(d, 200_000, now)

	var bm *BelowMinimumError
	if !errors.As(err, &bm) {
		t.Fatalf("expected BelowMinimumError, got %v", err)
	}
	if bm.Minimum != 500_000 {
		t.Fatalf("expected minimum 500000 in error, got %d", bm.Minimum)
	}
}

func TestValidateBoundaries(t *testing.T) {
	// Window bounds and minimum are inclusive, the usage limit is exclusive.
	d := active(Percentage, 10)
	d.ValidFrom = timep(now)
	d.ValidTo = timep(now)
	d.MinOrderValue = 200_000
	d.UsageLimit = intp(3)
	d.UsedCount = 2

	if _, err := Validate(d, 200_000, now); err != nil {
		t.Fatalf("boundary values must be eligible, got %v", err)
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode("  spring10 "); got != "SPRING10" {
		t.Fatalf("expected SPRING10, got %q", got)
	}
}

func TestFormatVND(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0₫"},
		{999, "999₫"},
		{30_000, "30.000₫"},
		{1_500_000, "1.500.000₫"},
	}

	for _, tt := range tests {
		if got := FormatVND(tt.in); got != tt.want {
			t.Fatalf("FormatVND(%d): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

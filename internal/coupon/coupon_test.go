package coupon

import (
	"errors"
	"testing"
	"time"

	"github.com/petalcrumb/pos-engine/internal/pricing"
)

func TestValidateWindow(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	from := now.Add(time.Hour)
	c := Coupon{Code: "SPRING10", Kind: pricing.DiscountPercentage, Value: 10, Active: true, ValidFrom: &from}
	if err := c.Validate(now, 100); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive before window, got %v", err)
	}

	to := now.Add(-time.Hour)
	c = Coupon{Code: "SPRING10", Kind: pricing.DiscountPercentage, Value: 10, Active: true, ValidTo: &to}
	if err := c.Validate(now, 100); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired after window, got %v", err)
	}

	c = Coupon{Code: "SPRING10", Kind: pricing.DiscountPercentage, Value: 10}
	if err := c.Validate(now, 100); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive when disabled, got %v", err)
	}
}

func TestValidateMinimumOrder(t *testing.T) {
	now := time.Now()
	floor := pricing.Money(100)
	c := Coupon{Code: "BIG5", Kind: pricing.DiscountFixed, Value: 5, Active: true, MinOrderAmount: &floor}
	if err := c.Validate(now, 80); !errors.Is(err, ErrMinimumOrderUnmet) {
		t.Fatalf("expected ErrMinimumOrderUnmet, got %v", err)
	}
	if err := c.Validate(now, 120); err != nil {
		t.Fatalf("expected valid coupon, got %v", err)
	}
}

func TestDiscountMapping(t *testing.T) {
	limit := pricing.Money(15)
	c := Coupon{Code: "TEN", Kind: pricing.DiscountPercentage, Value: 10, Active: true, MaxDiscount: &limit}
	d := c.Discount()
	totals := pricing.ComputeTotals([]pricing.Money{200}, &d, 0)
	if totals.Discount != 15 {
		t.Fatalf("expected capped discount 15, got %v", totals.Discount)
	}
}

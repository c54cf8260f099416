package coupon

import (
	"errors"
	"time"

	"github.com/petalcrumb/pos-engine/internal/pricing"
)

var (
	// ErrNotFound is returned when the code is unknown to the rule source.
	ErrNotFound = errors.New("coupon not found")
	// ErrInactive is returned when the coupon is disabled or not yet valid.
	ErrInactive = errors.New("coupon not active")
	// ErrExpired is returned when the coupon validity window has closed.
	ErrExpired = errors.New("coupon expired")
	// ErrMinimumOrderUnmet is returned when the subtotal sits below the coupon minimum.
	ErrMinimumOrderUnmet = errors.New("coupon minimum order not met")
	// ErrKindInvalid is returned when the rule carries an unknown discount kind.
	ErrKindInvalid = errors.New("coupon kind invalid")
)

// Coupon captures the discount rule behind one code.
type Coupon struct {
	Code           string               `json:"code"`
	Kind           pricing.DiscountKind `json:"kind"`
	Value          pricing.Money        `json:"value"`
	MinOrderAmount *pricing.Money       `json:"minOrderAmount,omitempty"`
	MaxDiscount    *pricing.Money       `json:"maxDiscount,omitempty"`
	ValidFrom      *time.Time           `json:"validFrom,omitempty"`
	ValidTo        *time.Time           `json:"validTo,omitempty"`
	Active         bool                 `json:"active"`
}

// Validate ensures the coupon can be applied at the provided instant and
// subtotal.
func (c Coupon) Validate(now time.Time, subtotal pricing.Money) error {
	if c.Kind != pricing.DiscountPercentage && c.Kind != pricing.DiscountFixed {
		return ErrKindInvalid
	}
	if !c.Active {
		return ErrInactive
	}
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return ErrInactive
	}
	if c.ValidTo != nil && now.After(*c.ValidTo) {
		return ErrExpired
	}
	if c.MinOrderAmount != nil && subtotal < *c.MinOrderAmount {
		return ErrMinimumOrderUnmet
	}
	return nil
}

// Discount maps the rule onto the totals engine input.
func (c Coupon) Discount() pricing.Discount {
	return pricing.Discount{
		Kind:           c.Kind,
		Value:          c.Value,
		MinOrderAmount: c.MinOrderAmount,
		MaxDiscount:    c.MaxDiscount,
	}
}

// Application is the coupon state held on a checkout session once applied.
// The discount itself is recomputed from the rule on every totals read; a
// subtotal dropping under the minimum silently zeroes it without detaching
// the coupon.
type Application struct {
	Coupon    Coupon    `json:"coupon"`
	AppliedAt time.Time `json:"appliedAt"`
}

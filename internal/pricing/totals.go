package pricing

// DiscountKind distinguishes how a coupon value is interpreted.
type DiscountKind string

const (
	// DiscountPercentage treats Value as a percentage of the subtotal.
	DiscountPercentage DiscountKind = "PERCENTAGE"
	// DiscountFixed treats Value as a flat amount.
	DiscountFixed DiscountKind = "FIXED_AMOUNT"
)

// Discount is the resolved effect of an applied coupon.
// MinOrderAmount suppresses the discount entirely while the subtotal sits
// below it; MaxDiscount caps percentage discounts.
type Discount struct {
	Kind           DiscountKind `json:"kind"`
	Value          Money        `json:"value"`
	MinOrderAmount *Money       `json:"minOrderAmount,omitempty"`
	MaxDiscount    *Money       `json:"maxDiscount,omitempty"`
}

// Totals aggregates the money components of a cart.
type Totals struct {
	Subtotal   Money `json:"subtotal"`
	Discount   Money `json:"discount"`
	Surcharge  Money `json:"surcharge"`
	FinalTotal Money `json:"finalTotal"`
}

// ComputeTotals derives cart totals from line totals, an optional discount
// and a delivery surcharge. The discount is clamped so the final total never
// drops below zero; a subtotal under the coupon minimum silently yields a
// zero discount. Always recompute from current state, never cache across
// cart changes.
func ComputeTotals(lineTotals []Money, d *Discount, surcharge Money) Totals {
	var subtotal Money
	for _, lt := range lineTotals {
		if lt <= 0 {
			continue
		}
		subtotal += lt
	}

	var discount Money
	if d != nil && (d.MinOrderAmount == nil || subtotal >= *d.MinOrderAmount) {
		switch d.Kind {
		case DiscountPercentage:
			discount = subtotal * d.Value / 100
			if d.MaxDiscount != nil && discount > *d.MaxDiscount {
				discount = *d.MaxDiscount
			}
		case DiscountFixed:
			discount = d.Value
		}
	}
	if discount > subtotal {
		discount = subtotal
	}
	if discount < 0 {
		discount = 0
	}
	if surcharge < 0 {
		surcharge = 0
	}

	final := subtotal - discount + surcharge
	if final < 0 {
		final = 0
	}
	return Totals{
		Subtotal:   Round(subtotal),
		Discount:   Round(discount),
		Surcharge:  Round(surcharge),
		FinalTotal: Round(final),
	}
}

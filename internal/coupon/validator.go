package coupon

import (
	"context"

	"github.com/petalcrumb/pos-engine/internal/pricing"
)

// Validator resolves a code to its rule and checks it against the current
// subtotal. Implementations: Rules (local table) and RemoteValidator
// (coupon service over HTTP).
type Validator interface {
	Validate(ctx context.Context, code string, subtotal pricing.Money) (Coupon, error)
}

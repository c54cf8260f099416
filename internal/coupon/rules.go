package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/petalcrumb/pos-engine/internal/pricing"
)

// Rules validates codes against the local coupon table. It is the default
// validator when no remote coupon service is configured.
type Rules struct {
	Pool *pgxpool.Pool
	Now  func() time.Time
}

func (r *Rules) now() time.Time {
	if r != nil && r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Validate looks the code up case-insensitively and checks its rule.
func (r *Rules) Validate(ctx context.Context, code string, subtotal pricing.Money) (Coupon, error) {
	if r == nil || r.Pool == nil {
		return Coupon{}, errors.New("coupon rules not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return Coupon{}, ErrNotFound
	}
	const q = `
SELECT code, kind, value, min_order_amount, max_discount, valid_from, valid_to, active
FROM coupons
WHERE lower(code) = lower($1)`
	var c Coupon
	err := r.Pool.QueryRow(ctx, q, code).Scan(
		&c.Code, &c.Kind, &c.Value,
		&c.MinOrderAmount, &c.MaxDiscount,
		&c.ValidFrom, &c.ValidTo, &c.Active,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Coupon{}, ErrNotFound
	}
	if err != nil {
		return Coupon{}, fmt.Errorf("load coupon: %w", err)
	}
	if err := c.Validate(r.now(), subtotal); err != nil {
		return Coupon{}, err
	}
	return c, nil
}

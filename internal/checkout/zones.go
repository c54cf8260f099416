package checkout

import (
	"strings"

	"github.com/petalcrumb/pos-engine/internal/order"
	"github.com/petalcrumb/pos-engine/internal/pricing"
)

// ZoneTable maps delivery areas onto the two-tier delivery surcharge. Areas
// listed as near pay the lower charge; every other area pays the far charge.
type ZoneTable struct {
	Near       map[string]struct{}
	NearCharge pricing.Money
	FarCharge  pricing.Money
}

// NewZoneTable builds a table from the configured near-area names.
func NewZoneTable(nearAreas []string, nearCharge, farCharge pricing.Money) ZoneTable {
	near := make(map[string]struct{}, len(nearAreas))
	for _, a := range nearAreas {
		if key := normalizeArea(a); key != "" {
			near[key] = struct{}{}
		}
	}
	return ZoneTable{Near: near, NearCharge: nearCharge, FarCharge: farCharge}
}

// SurchargeFor returns the delivery charge for the fulfillment as currently
// entered. Pickup orders and deliveries without an area yet carry none. A
// cashier override beats the zone-derived default.
func (z ZoneTable) SurchargeFor(f order.Fulfillment) pricing.Money {
	if f.Type != order.FulfillmentDelivery {
		return 0
	}
	if f.SurchargeOverride != nil && *f.SurchargeOverride >= 0 {
		return *f.SurchargeOverride
	}
	area := normalizeArea(f.Area)
	if area == "" {
		return 0
	}
	if _, ok := z.Near[area]; ok {
		return z.NearCharge
	}
	return z.FarCharge
}

func normalizeArea(area string) string {
	return strings.ToLower(strings.TrimSpace(area))
}

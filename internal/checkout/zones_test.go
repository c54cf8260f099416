package checkout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petalcrumb/pos-engine/internal/order"
	"github.com/petalcrumb/pos-engine/internal/pricing"
)

func TestSurchargeForTiers(t *testing.T) {
	zones := NewZoneTable([]string{"Downtown", " Marina "}, 10, 30)

	require.EqualValues(t, 0, zones.SurchargeFor(order.Fulfillment{Type: order.FulfillmentPickup}))
	require.EqualValues(t, 0, zones.SurchargeFor(order.Fulfillment{Type: order.FulfillmentDelivery}))
	require.EqualValues(t, 10, zones.SurchargeFor(order.Fulfillment{Type: order.FulfillmentDelivery, Area: "downtown"}))
	require.EqualValues(t, 10, zones.SurchargeFor(order.Fulfillment{Type: order.FulfillmentDelivery, Area: "MARINA"}))
	require.EqualValues(t, 30, zones.SurchargeFor(order.Fulfillment{Type: order.FulfillmentDelivery, Area: "Outskirts"}))
}

func TestSurchargeForOverride(t *testing.T) {
	zones := NewZoneTable([]string{"Downtown"}, 10, 30)

	override := pricing.Money(5)
	f := order.Fulfillment{Type: order.FulfillmentDelivery, Area: "Outskirts", SurchargeOverride: &override}
	require.EqualValues(t, 5, zones.SurchargeFor(f))

	// Overrides never apply to pickups.
	f.Type = order.FulfillmentPickup
	require.EqualValues(t, 0, zones.SurchargeFor(f))

	free := pricing.Money(0)
	require.EqualValues(t, 0, zones.SurchargeFor(order.Fulfillment{
		Type: order.FulfillmentDelivery, Area: "Downtown", SurchargeOverride: &free,
	}))
}

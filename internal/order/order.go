// Package order assembles immutable submissions out of checkout sessions and
// hands them to the store's order system.
package order

import (
	"strings"
	"time"

	"github.com/petalcrumb/pos-engine/internal/attachments"
	"github.com/petalcrumb/pos-engine/internal/common"
	"github.com/petalcrumb/pos-engine/internal/ledger"
	"github.com/petalcrumb/pos-engine/internal/pricing"
	"github.com/petalcrumb/pos-engine/internal/routing"
)

// Fulfillment type values.
const (
	FulfillmentPickup   = "PICKUP"
	FulfillmentDelivery = "DELIVERY"
)

// Customer identifies who is paying for the order.
type Customer struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// Fulfillment captures how and when the order leaves the store.
type Fulfillment struct {
	Type    string `json:"type"`
	Date    string `json:"date,omitempty"`
	Slot    string `json:"slot,omitempty"`
	Address string `json:"address,omitempty"`
	Area    string `json:"area,omitempty"`

	// SurchargeOverride replaces the zone-derived delivery charge when the
	// cashier negotiates a different one at the counter.
	SurchargeOverride *pricing.Money `json:"surchargeOverride,omitempty"`
}

// Gift marks the order as a gift for someone other than the payer.
type Gift struct {
	Enabled        bool   `json:"enabled"`
	RecipientName  string `json:"recipientName,omitempty"`
	RecipientPhone string `json:"recipientPhone,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Item is one submitted order line, priced and routed.
type Item struct {
	ProductID   string                   `json:"productId"`
	Slug        string                   `json:"slug"`
	Name        string                   `json:"name"`
	Category    string                   `json:"category"`
	Selection   pricing.Selection        `json:"selection"`
	Quote       pricing.LineQuote        `json:"quote"`
	Routing     routing.Item             `json:"routing"`
	Notes       string                   `json:"notes,omitempty"`
	Attachments []attachments.Attachment `json:"attachments,omitempty"`
}

// Submission is the immutable payload sent to the order system. Mutating the
// session afterwards never changes a submission already made.
type Submission struct {
	SessionID           string          `json:"sessionId"`
	Terminal            string          `json:"terminal,omitempty"`
	Items               []Item          `json:"items"`
	Customer            Customer        `json:"customer"`
	Fulfillment         Fulfillment     `json:"fulfillment"`
	Gift                Gift            `json:"gift"`
	CouponCode          string          `json:"couponCode,omitempty"`
	Totals              pricing.Totals  `json:"totals"`
	Payments            []ledger.Record `json:"payments"`
	PaymentMethod       ledger.Method   `json:"paymentMethod"`
	AllowPartialPayment bool            `json:"allowPartialPayment"`
	AmountPaid          pricing.Money   `json:"amountPaid"`
	BalanceDue          pricing.Money   `json:"balanceDue"`
	Routing             routing.Plan    `json:"routing"`
	Notes               string          `json:"notes,omitempty"`
	SubmittedAt         time.Time       `json:"submittedAt"`
}

// Receipt is what the order system returns for an accepted submission.
type Receipt struct {
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Validate walks the submission in the order a cashier fills the screen and
// reports the first missing piece, so the terminal can focus the right field.
func Validate(sub Submission) error {
	if len(sub.Items) == 0 {
		return common.ValidationError("cart", "cart is empty", nil)
	}
	if strings.TrimSpace(sub.Customer.Name) == "" {
		return common.ValidationError("customerName", "customer name is required", nil)
	}
	if strings.TrimSpace(sub.Customer.Phone) == "" {
		return common.ValidationError("customerPhone", "customer phone is required", nil)
	}
	switch sub.Fulfillment.Type {
	case FulfillmentPickup:
	case FulfillmentDelivery:
		if strings.TrimSpace(sub.Fulfillment.Address) == "" {
			return common.ValidationError("deliveryAddress", "delivery address is required", nil)
		}
		if strings.TrimSpace(sub.Fulfillment.Area) == "" {
			return common.ValidationError("deliveryArea", "delivery area is required", nil)
		}
	default:
		return common.ValidationError("fulfillmentType", "fulfillment type must be PICKUP or DELIVERY", nil)
	}
	if strings.TrimSpace(sub.Fulfillment.Date) == "" {
		return common.ValidationError("fulfillmentDate", "fulfillment date is required", nil)
	}
	if strings.TrimSpace(sub.Fulfillment.Slot) == "" {
		return common.ValidationError("fulfillmentSlot", "fulfillment slot is required", nil)
	}
	if len(sub.Payments) == 0 {
		return common.ValidationError("payment", "no payment recorded", nil)
	}
	if sub.BalanceDue > 0 && !sub.AllowPartialPayment {
		return common.ValidationError("payment", "payment incomplete", nil)
	}
	return nil
}

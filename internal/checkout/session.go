// Package checkout drives the in-progress order at a terminal: the cart and
// its priced lines, the applied coupon, the payment ledger and the handoff to
// the order system. Sessions live in redis and are mutated under a per-session
// lock; everything derived from them (totals, routing, payment state) is
// recomputed on read and never stored.
package checkout

import (
	"time"

	"github.com/petalcrumb/pos-engine/internal/attachments"
	"github.com/petalcrumb/pos-engine/internal/coupon"
	"github.com/petalcrumb/pos-engine/internal/ledger"
	"github.com/petalcrumb/pos-engine/internal/order"
	"github.com/petalcrumb/pos-engine/internal/pricing"
	"github.com/petalcrumb/pos-engine/internal/routing"
)

// Line is one cart entry carrying the cashier's selection, the priced quote
// and the resolved team flags.
type Line struct {
	ID          string                   `json:"id"`
	ProductID   string                   `json:"productId"`
	Slug        string                   `json:"slug"`
	Name        string                   `json:"name"`
	Category    string                   `json:"category"`
	Selection   pricing.Selection        `json:"selection"`
	Quote       pricing.LineQuote        `json:"quote"`
	Routing     routing.Item             `json:"routing"`
	Attachments []attachments.Attachment `json:"attachments,omitempty"`
	Notes       string                   `json:"notes,omitempty"`
}

// Session is one in-progress order. Rev increments on every line and coupon
// mutation so a coupon validated against an older cart state can be told
// apart and discarded.
type Session struct {
	ID          string              `json:"id"`
	Terminal    string              `json:"terminal,omitempty"`
	Rev         uint64              `json:"rev"`
	Lines       []Line              `json:"lines"`
	Customer    order.Customer      `json:"customer"`
	Fulfillment order.Fulfillment   `json:"fulfillment"`
	Gift        order.Gift          `json:"gift"`
	Coupon      *coupon.Application `json:"coupon,omitempty"`
	Payments    ledger.Ledger       `json:"payments"`
	Notes       string              `json:"notes,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

func (s *Session) line(id string) *Line {
	for i := range s.Lines {
		if s.Lines[i].ID == id {
			return &s.Lines[i]
		}
	}
	return nil
}

func (s *Session) routingItems() []routing.Item {
	items := make([]routing.Item, len(s.Lines))
	for i, ln := range s.Lines {
		items[i] = ln.Routing
	}
	return items
}

func (s *Session) lineTotals() []pricing.Money {
	totals := make([]pricing.Money, len(s.Lines))
	for i, ln := range s.Lines {
		totals[i] = ln.Quote.LineTotal
	}
	return totals
}

// PaymentSummary is the derived payment position for the terminal screen.
type PaymentSummary struct {
	Paid      pricing.Money `json:"paid"`
	Remaining pricing.Money `json:"remaining"`
	State     ledger.State  `json:"state"`
	Method    ledger.Method `json:"method,omitempty"`
	ChangeDue pricing.Money `json:"changeDue,omitempty"`
}

// View is a session plus everything recomputed from it on read.
type View struct {
	Session Session        `json:"session"`
	Totals  pricing.Totals `json:"totals"`
	Payment PaymentSummary `json:"payment"`
	Routing routing.Plan   `json:"routing"`
}

package ledger

import (
	"errors"

	"github.com/petalcrumb/pos-engine/internal/pricing"
)

// State describes where a ledger sits between first payment and settlement.
type State string

const (
	StateEmpty        State = "EMPTY"
	StateAccumulating State = "ACCUMULATING"
	StateComplete     State = "COMPLETE"
)

// Ledger is the append-only list of payments captured for one checkout.
// It is flushed only when the order is submitted or the session dismissed.
// The zero value is ready to use.
type Ledger struct {
	entries []Entry
}

// Add appends a validated entry. Entries keep their insertion order.
func (l *Ledger) Add(e Entry) error {
	if e == nil {
		return errors.New("nil payment entry")
	}
	if err := e.Validate(); err != nil {
		return err
	}
	id := e.Base().ID
	for _, held := range l.entries {
		if held.Base().ID == id {
			return ErrDuplicateEntry
		}
	}
	l.entries = append(l.entries, e)
	return nil
}

// Remove deletes the entry with the given id and returns it.
func (l *Ledger) Remove(id string) (Entry, error) {
	for i, e := range l.entries {
		if e.Base().ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return e, nil
		}
	}
	return nil, ErrEntryNotFound
}

// Entries returns a copy of the captured entries in insertion order.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the number of captured entries.
func (l *Ledger) Len() int { return len(l.entries) }

// TotalPaid sums every captured amount.
func (l *Ledger) TotalPaid() Money {
	var total Money
	for _, e := range l.entries {
		total += e.Base().Amount
	}
	return pricing.Round(total)
}

// Remaining reports how much of finalTotal is still owed, clamped at zero.
// Always derived from the current entries, never from a partial's snapshot.
func (l *Ledger) Remaining(finalTotal Money) Money {
	rem := finalTotal - l.TotalPaid()
	if rem < 0 {
		rem = 0
	}
	return pricing.Round(rem)
}

// IsComplete reports whether the captured total covers finalTotal within
// the money epsilon.
func (l *Ledger) IsComplete(finalTotal Money) bool {
	if len(l.entries) == 0 {
		return false
	}
	return pricing.Covers(l.TotalPaid(), finalTotal)
}

// State derives the ledger lifecycle position for finalTotal.
func (l *Ledger) State(finalTotal Money) State {
	switch {
	case len(l.entries) == 0:
		return StateEmpty
	case l.IsComplete(finalTotal):
		return StateComplete
	default:
		return StateAccumulating
	}
}

// Classify derives the order's payment method from the captured entries.
// Precedence: any partial makes the order PARTIAL; an explicit split entry
// makes it SPLIT; mixing distinct methods makes it SPLIT; otherwise the
// single method stands. An empty ledger has no method.
func (l *Ledger) Classify() Method {
	if len(l.entries) == 0 {
		return ""
	}
	distinct := make(map[Method]struct{}, len(l.entries))
	var hasPartial, hasSplit bool
	for _, e := range l.entries {
		m := e.Method()
		distinct[m] = struct{}{}
		switch m {
		case MethodPartial:
			hasPartial = true
		case MethodSplit:
			hasSplit = true
		}
	}
	switch {
	case hasPartial:
		return MethodPartial
	case hasSplit:
		return MethodSplit
	case len(distinct) > 1:
		return MethodSplit
	default:
		return l.entries[0].Method()
	}
}

// HasCashComponent reports whether settling involved the drawer: plain cash,
// the cash side of a split, or a collect-at-handover entry.
func (l *Ledger) HasCashComponent() bool {
	for _, e := range l.entries {
		switch v := e.(type) {
		case Cash, CashOnDelivery:
			return true
		case Split:
			if v.CashPortion > 0 {
				return true
			}
		}
	}
	return false
}

// Reset drops every entry. Called when an order is submitted or dismissed.
func (l *Ledger) Reset() { l.entries = nil }

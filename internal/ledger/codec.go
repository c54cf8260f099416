package ledger

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is the flattened wire form of an entry, tagged by method. Session
// storage and order payloads both speak this shape.
type Record struct {
	ID               string    `json:"id"`
	Method           Method    `json:"method"`
	Amount           Money     `json:"amount"`
	RecordedAt       time.Time `json:"recordedAt"`
	Tendered         Money     `json:"tendered,omitempty"`
	Change           Money     `json:"change,omitempty"`
	Reference        string    `json:"reference,omitempty"`
	CashPortion      Money     `json:"cashPortion,omitempty"`
	CardPortion      Money     `json:"cardPortion,omitempty"`
	CardReference    string    `json:"cardReference,omitempty"`
	InitialRemaining Money     `json:"initialRemaining,omitempty"`
	FutureMethod     Method    `json:"futureMethod,omitempty"`
	Token            string    `json:"token,omitempty"`
}

// ToRecord flattens an entry into its wire form.
func ToRecord(e Entry) Record {
	base := e.Base()
	r := Record{
		ID:         base.ID,
		Method:     e.Method(),
		Amount:     base.Amount,
		RecordedAt: base.RecordedAt,
	}
	switch v := e.(type) {
	case Cash:
		r.Tendered = v.Tendered
		r.Change = v.Change
	case Card:
		r.Reference = v.Reference
	case Split:
		r.CashPortion = v.CashPortion
		r.CardPortion = v.CardPortion
		r.CardReference = v.CardReference
	case Partial:
		r.InitialRemaining = v.InitialRemaining
		r.FutureMethod = v.FutureMethod
	case BankTransfer:
		r.Reference = v.Reference
	case PayByLink:
		r.Token = v.Token
	case Talabat:
		r.Reference = v.Reference
	}
	return r
}

// FromRecord rebuilds the typed entry from its wire form.
func FromRecord(r Record) (Entry, error) {
	meta := Meta{ID: r.ID, Amount: r.Amount, RecordedAt: r.RecordedAt}
	var e Entry
	switch r.Method {
	case MethodCash:
		e = Cash{Meta: meta, Tendered: r.Tendered, Change: r.Change}
	case MethodCard:
		e = Card{Meta: meta, Reference: r.Reference}
	case MethodSplit:
		e = Split{Meta: meta, CashPortion: r.CashPortion, CardPortion: r.CardPortion, CardReference: r.CardReference}
	case MethodPartial:
		e = Partial{Meta: meta, InitialRemaining: r.InitialRemaining, FutureMethod: r.FutureMethod}
	case MethodBankTransfer:
		e = BankTransfer{Meta: meta, Reference: r.Reference}
	case MethodPayByLink:
		e = PayByLink{Meta: meta, Token: r.Token}
	case MethodTalabat:
		e = Talabat{Meta: meta, Reference: r.Reference}
	case MethodCashOnDelivery:
		e = CashOnDelivery{Meta: meta}
	default:
		return nil, fmt.Errorf("%q: %w", r.Method, ErrUnknownMethod)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Records flattens entries preserving order.
func Records(entries []Entry) []Record {
	out := make([]Record, len(entries))
	for i, e := range entries {
		out[i] = ToRecord(e)
	}
	return out
}

// MarshalJSON encodes the ledger as an array of records.
func (l Ledger) MarshalJSON() ([]byte, error) {
	return json.Marshal(Records(l.entries))
}

// UnmarshalJSON rebuilds the ledger from an array of records.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return err
	}
	entries := make([]Entry, 0, len(recs))
	for _, r := range recs {
		e, err := FromRecord(r)
		if err != nil {
			return err
		}
		entries = append(entries, e)
	}
	l.entries = entries
	return nil
}

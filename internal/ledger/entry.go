// Package ledger tracks the payments captured against a checkout before the
// order is handed off. Entries form a tagged union keyed by method so each
// variant carries only the fields that method needs.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/petalcrumb/pos-engine/internal/pricing"
)

// Money mirrors the pricing alias for readability inside this package.
type Money = pricing.Money

// Method identifies how a payment entry was (or will be) settled.
type Method string

const (
	MethodCash           Method = "CASH"
	MethodCard           Method = "CARD"
	MethodSplit          Method = "SPLIT"
	MethodPartial        Method = "PARTIAL"
	MethodBankTransfer   Method = "BANK_TRANSFER"
	MethodPayByLink      Method = "PAY_BY_LINK"
	MethodTalabat        Method = "TALABAT"
	MethodCashOnDelivery Method = "CASH_ON_DELIVERY"
)

// KnownMethod reports whether m is one of the accepted payment methods.
func KnownMethod(m Method) bool {
	switch m {
	case MethodCash, MethodCard, MethodSplit, MethodPartial,
		MethodBankTransfer, MethodPayByLink, MethodTalabat, MethodCashOnDelivery:
		return true
	}
	return false
}

var (
	// ErrAmountInvalid is returned when an entry amount is zero or negative.
	ErrAmountInvalid = errors.New("payment amount must be positive")
	// ErrTenderShort is returned when tendered cash does not cover the amount due.
	ErrTenderShort = errors.New("tendered cash below amount due")
	// ErrSplitMismatch is returned when split portions do not reconcile with the entry amount.
	ErrSplitMismatch = errors.New("split portions do not reconcile with amount")
	// ErrPartialTooLarge is returned when a partial amount already covers the total.
	ErrPartialTooLarge = errors.New("partial amount must stay below the total")
	// ErrFutureMethodInvalid is returned when a partial entry names an unusable follow-up method.
	ErrFutureMethodInvalid = errors.New("future payment method invalid")
	// ErrUnknownMethod is returned when decoding an entry with an unrecognized method tag.
	ErrUnknownMethod = errors.New("unknown payment method")
	// ErrEntryNotFound is returned when removing an id the ledger does not hold.
	ErrEntryNotFound = errors.New("payment entry not found")
	// ErrDuplicateEntry is returned when adding an id the ledger already holds.
	ErrDuplicateEntry = errors.New("payment entry already recorded")
)

// Meta carries the fields shared by every entry variant.
type Meta struct {
	ID         string
	Amount     Money
	RecordedAt time.Time
}

// Base returns the shared entry fields. Embedding Meta promotes it onto
// every variant.
func (m Meta) Base() Meta { return m }

func (Meta) isEntry() {}

func (m Meta) validateAmount() error {
	if m.Amount <= 0 {
		return ErrAmountInvalid
	}
	return nil
}

// Entry is one captured payment. Construct variants through the New
// functions; Ledger.Add re-runs Validate as its gate.
type Entry interface {
	Base() Meta
	Method() Method
	Validate() error
	isEntry()
}

func newMeta(amount Money) Meta {
	return Meta{
		ID:         uuid.NewString(),
		Amount:     pricing.Round(amount),
		RecordedAt: time.Now().UTC(),
	}
}

// Cash is money in the drawer. Tendered of zero means exact tender.
type Cash struct {
	Meta
	Tendered Money
	Change   Money
}

func (Cash) Method() Method { return MethodCash }

func (c Cash) Validate() error {
	if err := c.validateAmount(); err != nil {
		return err
	}
	if c.Tendered > 0 {
		if c.Tendered < c.Amount-pricing.Epsilon {
			return ErrTenderShort
		}
		if !pricing.ApproxEqual(c.Change, c.Tendered-c.Amount) {
			return fmt.Errorf("change does not match tender: %w", ErrAmountInvalid)
		}
	}
	return nil
}

// NewCash records a cash payment, computing change from the tendered amount.
func NewCash(amount, tendered Money) (Cash, error) {
	c := Cash{Meta: newMeta(amount)}
	if tendered > 0 {
		c.Tendered = pricing.Round(tendered)
		c.Change = pricing.Round(c.Tendered - c.Amount)
	}
	if err := c.Validate(); err != nil {
		return Cash{}, err
	}
	return c, nil
}

// Card is a card terminal capture with the terminal reference.
type Card struct {
	Meta
	Reference string
}

func (Card) Method() Method { return MethodCard }

func (c Card) Validate() error { return c.validateAmount() }

// NewCard records a card payment.
func NewCard(amount Money, reference string) (Card, error) {
	c := Card{Meta: newMeta(amount), Reference: reference}
	if err := c.Validate(); err != nil {
		return Card{}, err
	}
	return c, nil
}

// Split settles one amount across the drawer and the card terminal.
type Split struct {
	Meta
	CashPortion   Money
	CardPortion   Money
	CardReference string
}

func (Split) Method() Method { return MethodSplit }

func (s Split) Validate() error {
	if err := s.validateAmount(); err != nil {
		return err
	}
	if s.CashPortion < 0 || s.CardPortion < 0 {
		return ErrSplitMismatch
	}
	if math.Abs((s.CashPortion+s.CardPortion)-s.Amount) > pricing.Epsilon {
		return ErrSplitMismatch
	}
	return nil
}

// NewSplit records a split payment. Entered portions are taken literally and
// must reconcile with the amount; only when both portions are zero does the
// split fall back to an even half-and-half.
func NewSplit(amount, cashPortion, cardPortion Money, cardReference string) (Split, error) {
	s := Split{
		Meta:          newMeta(amount),
		CashPortion:   pricing.Round(cashPortion),
		CardPortion:   pricing.Round(cardPortion),
		CardReference: cardReference,
	}
	if s.CashPortion == 0 && s.CardPortion == 0 {
		s.CashPortion = pricing.Round(s.Amount / 2)
		s.CardPortion = pricing.Round(s.Amount - s.CashPortion)
	}
	if err := s.Validate(); err != nil {
		return Split{}, err
	}
	return s, nil
}

// Partial is an up-front deposit with the remainder promised via
// FutureMethod. InitialRemaining is the snapshot at capture time; the live
// remaining balance is always recomputed from the ledger, never read from
// here.
type Partial struct {
	Meta
	InitialRemaining Money
	FutureMethod     Method
}

func (Partial) Method() Method { return MethodPartial }

func (p Partial) Validate() error {
	if err := p.validateAmount(); err != nil {
		return err
	}
	if p.FutureMethod == MethodPartial || !KnownMethod(p.FutureMethod) {
		return ErrFutureMethodInvalid
	}
	if p.InitialRemaining <= 0 {
		return ErrPartialTooLarge
	}
	return nil
}

// NewPartial records a deposit against finalTotal. The deposit must leave a
// real remainder; a deposit covering the total is an ordinary payment.
func NewPartial(amount, finalTotal Money, future Method) (Partial, error) {
	p := Partial{Meta: newMeta(amount), FutureMethod: future}
	if pricing.Covers(p.Amount, finalTotal) {
		return Partial{}, ErrPartialTooLarge
	}
	p.InitialRemaining = pricing.Round(finalTotal - p.Amount)
	if err := p.Validate(); err != nil {
		return Partial{}, err
	}
	return p, nil
}

// BankTransfer is an offline transfer identified by its bank reference.
type BankTransfer struct {
	Meta
	Reference string
}

func (BankTransfer) Method() Method { return MethodBankTransfer }

func (b BankTransfer) Validate() error { return b.validateAmount() }

// NewBankTransfer records a bank transfer payment.
func NewBankTransfer(amount Money, reference string) (BankTransfer, error) {
	b := BankTransfer{Meta: newMeta(amount), Reference: reference}
	if err := b.Validate(); err != nil {
		return BankTransfer{}, err
	}
	return b, nil
}

// PayByLink is a remote payment settled through a signed link token.
type PayByLink struct {
	Meta
	Token string
}

func (PayByLink) Method() Method { return MethodPayByLink }

func (p PayByLink) Validate() error { return p.validateAmount() }

// NewPayByLink records a pay-by-link payment carrying its link token.
func NewPayByLink(amount Money, token string) (PayByLink, error) {
	p := PayByLink{Meta: newMeta(amount), Token: token}
	if err := p.Validate(); err != nil {
		return PayByLink{}, err
	}
	return p, nil
}

// Talabat is a marketplace order settled on the Talabat side.
type Talabat struct {
	Meta
	Reference string
}

func (Talabat) Method() Method { return MethodTalabat }

func (t Talabat) Validate() error { return t.validateAmount() }

// NewTalabat records a Talabat-settled payment with the marketplace reference.
func NewTalabat(amount Money, reference string) (Talabat, error) {
	t := Talabat{Meta: newMeta(amount), Reference: reference}
	if err := t.Validate(); err != nil {
		return Talabat{}, err
	}
	return t, nil
}

// CashOnDelivery is a promise to collect the amount at handover.
type CashOnDelivery struct {
	Meta
}

func (CashOnDelivery) Method() Method { return MethodCashOnDelivery }

func (c CashOnDelivery) Validate() error { return c.validateAmount() }

// NewCashOnDelivery records a collect-at-handover entry covering amount.
func NewCashOnDelivery(amount Money) (CashOnDelivery, error) {
	c := CashOnDelivery{Meta: newMeta(amount)}
	if err := c.Validate(); err != nil {
		return CashOnDelivery{}, err
	}
	return c, nil
}

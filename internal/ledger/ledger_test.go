package ledger

import (
	"encoding/json"
	"errors"
	"testing"
)

func mustCash(t *testing.T, amount, tendered Money) Cash {
	t.Helper()
	c, err := NewCash(amount, tendered)
	if err != nil {
		t.Fatalf("cash: %v", err)
	}
	return c
}

func mustCard(t *testing.T, amount Money) Card {
	t.Helper()
	c, err := NewCard(amount, "TRM-001")
	if err != nil {
		t.Fatalf("card: %v", err)
	}
	return c
}

func TestLedgerCompletionWithinEpsilon(t *testing.T) {
	var l Ledger
	if l.State(100) != StateEmpty {
		t.Fatalf("expected empty state, got %s", l.State(100))
	}
	if err := l.Add(mustCash(t, 99.995, 0)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !l.IsComplete(100) {
		t.Fatal("expected 99.995 to settle 100 within epsilon")
	}
	l.Reset()
	if err := l.Add(mustCash(t, 99.98, 0)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if l.IsComplete(100) {
		t.Fatal("expected 99.98 to leave 100 unsettled")
	}
	if l.State(100) != StateAccumulating {
		t.Fatalf("expected accumulating, got %s", l.State(100))
	}
}

func TestLedgerTwoPaymentsClassifySplit(t *testing.T) {
	var l Ledger
	if err := l.Add(mustCash(t, 100, 0)); err != nil {
		t.Fatalf("add cash: %v", err)
	}
	if l.IsComplete(210) {
		t.Fatal("expected ledger incomplete after first payment")
	}
	if rem := l.Remaining(210); rem != 110 {
		t.Fatalf("expected remaining 110, got %v", rem)
	}
	if err := l.Add(mustCard(t, 110)); err != nil {
		t.Fatalf("add card: %v", err)
	}
	if !l.IsComplete(210) {
		t.Fatal("expected ledger complete")
	}
	if got := l.Classify(); got != MethodSplit {
		t.Fatalf("expected SPLIT classification, got %s", got)
	}
}

func TestSplitFallbackOnlyWhenBothZero(t *testing.T) {
	s, err := NewSplit(100, 0, 0, "")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if s.CashPortion != 50 || s.CardPortion != 50 {
		t.Fatalf("expected even fallback, got %v/%v", s.CashPortion, s.CardPortion)
	}

	s, err = NewSplit(100, 30, 70, "TRM-002")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if s.CashPortion != 30 || s.CardPortion != 70 {
		t.Fatalf("expected literal portions, got %v/%v", s.CashPortion, s.CardPortion)
	}

	if _, err = NewSplit(100, 30, 60, ""); !errors.Is(err, ErrSplitMismatch) {
		t.Fatalf("expected ErrSplitMismatch, got %v", err)
	}
}

func TestClassifyPrecedence(t *testing.T) {
	var l Ledger
	p, err := NewPartial(50, 210, MethodCard)
	if err != nil {
		t.Fatalf("partial: %v", err)
	}
	if err := l.Add(p); err != nil {
		t.Fatalf("add partial: %v", err)
	}
	s, err := NewSplit(60, 20, 40, "")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if err := l.Add(s); err != nil {
		t.Fatalf("add split: %v", err)
	}
	if got := l.Classify(); got != MethodPartial {
		t.Fatalf("partial must win precedence, got %s", got)
	}

	l.Reset()
	if err := l.Add(s); err != nil {
		t.Fatalf("add split: %v", err)
	}
	if err := l.Add(mustCash(t, 10, 0)); err != nil {
		t.Fatalf("add cash: %v", err)
	}
	if got := l.Classify(); got != MethodSplit {
		t.Fatalf("split entry must classify SPLIT, got %s", got)
	}

	l.Reset()
	if err := l.Add(mustCash(t, 10, 0)); err != nil {
		t.Fatalf("add cash: %v", err)
	}
	if got := l.Classify(); got != MethodCash {
		t.Fatalf("single method must stand, got %s", got)
	}
}

func TestPartialNeverAutoCompletes(t *testing.T) {
	var l Ledger
	p, err := NewPartial(50, 210, MethodCard)
	if err != nil {
		t.Fatalf("partial: %v", err)
	}
	if p.InitialRemaining != 160 {
		t.Fatalf("expected snapshot remaining 160, got %v", p.InitialRemaining)
	}
	if err := l.Add(p); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := l.Add(mustCard(t, 100)); err != nil {
		t.Fatalf("add card: %v", err)
	}
	if rem := l.Remaining(210); rem != 60 {
		t.Fatalf("remaining must be recomputed from the ledger, got %v", rem)
	}
	if l.IsComplete(210) {
		t.Fatal("expected ledger still open")
	}

	if _, err := NewPartial(210, 210, MethodCard); !errors.Is(err, ErrPartialTooLarge) {
		t.Fatalf("expected ErrPartialTooLarge, got %v", err)
	}
	if _, err := NewPartial(50, 210, MethodPartial); !errors.Is(err, ErrFutureMethodInvalid) {
		t.Fatalf("expected ErrFutureMethodInvalid, got %v", err)
	}
}

func TestRemoveRecomputesTotals(t *testing.T) {
	var l Ledger
	first := mustCash(t, 40, 0)
	if err := l.Add(first); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := l.Add(mustCard(t, 60)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !l.IsComplete(100) {
		t.Fatal("expected complete before removal")
	}
	if _, err := l.Remove(first.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if l.IsComplete(100) {
		t.Fatal("expected incomplete after removal")
	}
	if got := l.TotalPaid(); got != 60 {
		t.Fatalf("expected total 60, got %v", got)
	}
	if _, err := l.Remove("missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestCashTenderAndChange(t *testing.T) {
	c := mustCash(t, 30, 50)
	if c.Change != 20 {
		t.Fatalf("expected change 20, got %v", c.Change)
	}
	if _, err := NewCash(30, 20); !errors.Is(err, ErrTenderShort) {
		t.Fatalf("expected ErrTenderShort, got %v", err)
	}
	if _, err := NewCash(0, 0); !errors.Is(err, ErrAmountInvalid) {
		t.Fatalf("expected ErrAmountInvalid, got %v", err)
	}
}

func TestHasCashComponent(t *testing.T) {
	var l Ledger
	if err := l.Add(mustCard(t, 25)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if l.HasCashComponent() {
		t.Fatal("card-only ledger must not open the drawer")
	}
	s, err := NewSplit(40, 15, 25, "")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if err := l.Add(s); err != nil {
		t.Fatalf("add: %v", err)
	}
	if !l.HasCashComponent() {
		t.Fatal("split with a cash portion must open the drawer")
	}
}

func TestLedgerJSONRoundTrip(t *testing.T) {
	var l Ledger
	if err := l.Add(mustCash(t, 40, 50)); err != nil {
		t.Fatalf("add: %v", err)
	}
	p, err := NewPartial(30, 200, MethodBankTransfer)
	if err != nil {
		t.Fatalf("partial: %v", err)
	}
	if err := l.Add(p); err != nil {
		t.Fatalf("add: %v", err)
	}

	raw, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored Ledger
	if err := json.Unmarshal(raw, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if restored.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", restored.Len())
	}
	if got := restored.Classify(); got != MethodPartial {
		t.Fatalf("expected PARTIAL after restore, got %s", got)
	}
	if got := restored.TotalPaid(); got != 70 {
		t.Fatalf("expected total 70, got %v", got)
	}
	if _, ok := restored.Entries()[1].(Partial); !ok {
		t.Fatalf("expected typed partial after restore, got %T", restored.Entries()[1])
	}
}

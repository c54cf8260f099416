package pricing

import "testing"

func TestComputeTotalsPercentageWithSurcharge(t *testing.T) {
	d := &Discount{Kind: DiscountPercentage, Value: 10}
	totals := ComputeTotals([]Money{120, 80}, d, 30)
	if totals.Subtotal != 200 {
		t.Fatalf("expected subtotal 200, got %v", totals.Subtotal)
	}
	if totals.Discount != 20 {
		t.Fatalf("expected discount 20, got %v", totals.Discount)
	}
	if totals.FinalTotal != 210 {
		t.Fatalf("expected final total 210, got %v", totals.FinalTotal)
	}
}

func TestComputeTotalsDiscountNeverNegative(t *testing.T) {
	d := &Discount{Kind: DiscountFixed, Value: 300}
	totals := ComputeTotals([]Money{150, 50}, d, 0)
	if totals.Discount != 200 {
		t.Fatalf("expected discount clamped to 200, got %v", totals.Discount)
	}
	if totals.FinalTotal != 0 {
		t.Fatalf("expected final total 0, got %v", totals.FinalTotal)
	}
}

func TestComputeTotalsMaxDiscountCap(t *testing.T) {
	limit := Money(15)
	d := &Discount{Kind: DiscountPercentage, Value: 10, MaxDiscount: &limit}
	totals := ComputeTotals([]Money{200}, d, 0)
	if totals.Discount != 15 {
		t.Fatalf("expected capped discount 15, got %v", totals.Discount)
	}
	if totals.FinalTotal != 185 {
		t.Fatalf("expected final total 185, got %v", totals.FinalTotal)
	}
}

func TestComputeTotalsMinimumOrderSuppressesDiscount(t *testing.T) {
	floor := Money(100)
	d := &Discount{Kind: DiscountPercentage, Value: 10, MinOrderAmount: &floor}
	totals := ComputeTotals([]Money{80}, d, 0)
	if totals.Discount != 0 {
		t.Fatalf("expected no discount under minimum, got %v", totals.Discount)
	}
	if totals.FinalTotal != 80 {
		t.Fatalf("expected final total 80, got %v", totals.FinalTotal)
	}
}

func TestComputeTotalsIgnoresNonPositiveLines(t *testing.T) {
	totals := ComputeTotals([]Money{50, 0, -10}, nil, 0)
	if totals.Subtotal != 50 {
		t.Fatalf("expected subtotal 50, got %v", totals.Subtotal)
	}
}

func TestCoversWithinEpsilon(t *testing.T) {
	if !Covers(99.995, 100) {
		t.Fatal("expected 99.995 to cover 100 within epsilon")
	}
	if Covers(99.98, 100) {
		t.Fatal("expected 99.98 to fall short of 100")
	}
	if !ApproxEqual(0.1+0.2, 0.3) {
		t.Fatal("expected float drift to stay inside epsilon")
	}
}

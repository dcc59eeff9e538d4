package pricing

import (
	"math"
	"testing"

	"tokopos/backend/internal/domain"
)

func pct(v float64) *float64 { return &v }

func TestEffectiveDiscountSizeWinsWhenCategoryZero(t *testing.T) {
	size := domain.ItemSize{Price: 100, Discount: pct(10)}
	category := &domain.Category{Name: "shirts", Discount: pct(0)}

	got := EffectiveDiscount(size, category)
	if got != 10 {
		t.Fatalf("expected size discount 10, got %v", got)
	}
	if total := LineTotal(size.Price, got, 1); total != 90 {
		t.Fatalf("expected unit price 90, got %v", total)
	}
}

func TestEffectiveDiscountCategoryOverrides(t *testing.T) {
	size := domain.ItemSize{Price: 100, Discount: pct(10)}
	category := &domain.Category{Name: "shirts", Discount: pct(25)}

	got := EffectiveDiscount(size, category)
	if got != 25 {
		t.Fatalf("expected category discount 25, got %v", got)
	}
	if total := LineTotal(size.Price, got, 1); total != 75 {
		t.Fatalf("expected unit price 75, got %v", total)
	}
}

func TestEffectiveDiscountDefaults(t *testing.T) {
	if got := EffectiveDiscount(domain.ItemSize{Price: 50}, nil); got != 0 {
		t.Fatalf("expected 0 for undiscounted size, got %v", got)
	}
	if got := EffectiveDiscount(domain.ItemSize{Price: 50}, &domain.Category{Name: "misc"}); got != 0 {
		t.Fatalf("expected 0 when category has no discount, got %v", got)
	}
}

func TestLineTotalScalesByQuantity(t *testing.T) {
	got := LineTotal(40, 50, 3)
	if math.Abs(got-60) > 1e-9 {
		t.Fatalf("expected 60, got %v", got)
	}
}

func TestLineRefundUsesSnapshot(t *testing.T) {
	line := domain.OrderItem{PriceAtPurchase: 100, DiscountApplied: 10, Quantity: 4}
	if got := LineRefund(line, 2); math.Abs(got-180) > 1e-9 {
		t.Fatalf("expected 180, got %v", got)
	}
}

func TestOrderTotalFloorsAtZero(t *testing.T) {
	if got := OrderTotal([]float64{30, -80}); got != 0 {
		t.Fatalf("expected floor at 0, got %v", got)
	}
	if got := OrderTotal([]float64{30, 20.5}); math.Abs(got-50.5) > 1e-9 {
		t.Fatalf("expected 50.5, got %v", got)
	}
}

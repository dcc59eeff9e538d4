package ledger

import (
	"testing"

	"tokopos/backend/internal/domain"
)

func TestBalanceSides(t *testing.T) {
	owed := Balance([]domain.Due{{Amount: 80}, {Amount: -30}})
	if owed.DuesBalance != 50 || owed.AdvanceBalance != 0 {
		t.Fatalf("expected dues 50, got %+v", owed)
	}

	credit := Balance([]domain.Due{{Amount: 20}, {Amount: -45}})
	if credit.AdvanceBalance != 25 || credit.DuesBalance != 0 {
		t.Fatalf("expected advance 25, got %+v", credit)
	}

	settled := Balance([]domain.Due{{Amount: 10}, {Amount: -10}})
	if settled.DuesBalance != 0 || settled.AdvanceBalance != 0 {
		t.Fatalf("expected settled balance, got %+v", settled)
	}

	if empty := Balance(nil); empty != (domain.BalanceSummary{}) {
		t.Fatalf("expected zero summary for no entries, got %+v", empty)
	}
}

func TestAllocateRefundDuesFirst(t *testing.T) {
	alloc := AllocateRefund(50, 80, domain.RefundMethodCash)
	if alloc.AppliedToDues != 50 || alloc.CashRefund != 30 || alloc.AddedToAdvance != 0 {
		t.Fatalf("unexpected allocation: %+v", alloc)
	}
}

func TestAllocateRefundAdvanceMethod(t *testing.T) {
	alloc := AllocateRefund(10, 40, domain.RefundMethodAdvance)
	if alloc.AppliedToDues != 10 || alloc.AddedToAdvance != 30 || alloc.CashRefund != 0 {
		t.Fatalf("unexpected allocation: %+v", alloc)
	}
}

func TestAllocateRefundFullyAbsorbedByDues(t *testing.T) {
	alloc := AllocateRefund(100, 60, domain.RefundMethodCash)
	if alloc.AppliedToDues != 60 || alloc.CashRefund != 0 || alloc.AddedToAdvance != 0 {
		t.Fatalf("unexpected allocation: %+v", alloc)
	}
}

func TestAllocateRefundNoDues(t *testing.T) {
	alloc := AllocateRefund(0, 25, domain.RefundMethodCash)
	if alloc.AppliedToDues != 0 || alloc.CashRefund != 25 {
		t.Fatalf("unexpected allocation: %+v", alloc)
	}

	if zero := AllocateRefund(50, 0, domain.RefundMethodCash); zero != (domain.RefundAllocation{}) {
		t.Fatalf("expected empty allocation for zero refund, got %+v", zero)
	}
}

func TestReconcileBreakdown(t *testing.T) {
	b := domain.PaymentBreakdown{OrderPayment: 70, DuesPayment: 20, AdvancePayment: 10}
	if !ReconcileBreakdown(b, 100) {
		t.Fatal("expected exact breakdown to reconcile")
	}
	if !ReconcileBreakdown(b, 100.009) {
		t.Fatal("expected breakdown within epsilon to reconcile")
	}
	if ReconcileBreakdown(b, 100.02) {
		t.Fatal("expected breakdown outside epsilon to fail")
	}
	if ReconcileBreakdown(domain.PaymentBreakdown{OrderPayment: -5, DuesPayment: 105}, 100) {
		t.Fatal("expected negative component to fail")
	}
}

// Package ledger holds the pure math for the customer balance ledger:
// signed due summation, refund allocation, and payment breakdown
// reconciliation.
package ledger

import (
	"math"

	"tokopos/backend/internal/domain"
)

// BreakdownEpsilon is the tolerance used when reconciling a caller-supplied
// payment breakdown against the stated payment amount.
const BreakdownEpsilon = 0.01

// Balance sums the signed due entries for one shopper. A positive sum is
// outstanding debt, a negative sum is stored advance credit; exactly one
// side of the summary is nonzero.
func Balance(dues []domain.Due) domain.BalanceSummary {
	var sum float64
	for _, d := range dues {
		sum += d.Amount
	}
	if sum > 0 {
		return domain.BalanceSummary{DuesBalance: sum}
	}
	if sum < 0 {
		return domain.BalanceSummary{AdvanceBalance: -sum}
	}
	return domain.BalanceSummary{}
}

// AllocateRefund splits a refund for a shopper: outstanding dues are
// settled first, and only the remainder follows the requested method
// (cash payout or advance credit). Dues never stay positive while cash
// leaves the till.
func AllocateRefund(duesBalance float64, refund float64, method string) domain.RefundAllocation {
	if refund <= 0 {
		return domain.RefundAllocation{}
	}

	applied := math.Min(duesBalance, refund)
	if applied < 0 {
		applied = 0
	}
	remainder := refund - applied

	alloc := domain.RefundAllocation{AppliedToDues: applied}
	if remainder <= 0 {
		return alloc
	}
	if method == domain.RefundMethodAdvance {
		alloc.AddedToAdvance = remainder
	} else {
		alloc.CashRefund = remainder
	}
	return alloc
}

// ReconcileBreakdown checks that the split amounts account for the stated
// payment within BreakdownEpsilon. Returns false when the caller's numbers
// do not add up.
func ReconcileBreakdown(b domain.PaymentBreakdown, paymentAmount float64) bool {
	if b.OrderPayment < 0 || b.DuesPayment < 0 || b.AdvancePayment < 0 || b.CreditUsed < 0 {
		return false
	}
	allocated := b.OrderPayment + b.DuesPayment + b.AdvancePayment
	return math.Abs(allocated-paymentAmount) <= BreakdownEpsilon
}

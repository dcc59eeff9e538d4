package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"tokopos/backend/internal/domain"
	"tokopos/backend/internal/store"
	"tokopos/backend/internal/store/memory"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(memory.NewSeeded(), nil, 0, 0)
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: domain.RoleAdmin})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "cashier", Role: domain.RoleCashier})
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

// newDiscountedItem creates an item in a fresh category so discount
// interactions can be controlled per test.
func newDiscountedItem(t *testing.T, svc *Service, categoryDiscount *float64, sizeDiscount *float64, price float64, stock int) domain.Item {
	t.Helper()

	category, err := svc.CreateCategory(adminCtx(), domain.CategoryCreateRequest{
		Name:     "test-category-" + t.Name(),
		Discount: categoryDiscount,
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	item, err := svc.CreateItem(adminCtx(), domain.ItemCreateRequest{
		Name:       "Test Item " + t.Name(),
		CategoryID: category.ID,
		Sizes: []domain.ItemSizeCreateRequest{
			{SizeLabel: "M", Price: price, Discount: sizeDiscount, Stock: stock},
		},
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	return item
}

func firstItem(t *testing.T, svc *Service) domain.Item {
	t.Helper()
	items, err := svc.ListItems(context.Background(), "", "", 0)
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) == 0 || len(items[0].Sizes) == 0 {
		t.Fatalf("expected seeded items")
	}
	return items[0]
}

func TestCreateOrderAppliesCategoryDiscountOverSizeDiscount(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, floatPtr(25), floatPtr(10), 100000, 5)

	resp, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:  []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: "M", Quantity: 1}},
		IsPaid: true,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if resp.Order.Amount != 75000 {
		t.Fatalf("expected category discount 25%% to win, amount 75000, got %.2f", resp.Order.Amount)
	}
	if resp.Order.Items[0].DiscountApplied != 25 {
		t.Fatalf("expected snapshotted discount 25, got %.2f", resp.Order.Items[0].DiscountApplied)
	}
}

func TestCreateOrderZeroCategoryDiscountFallsBackToSize(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, floatPtr(0), floatPtr(10), 100000, 5)

	resp, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:  []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: "M", Quantity: 2}},
		IsPaid: true,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if resp.Order.Amount != 180000 {
		t.Fatalf("expected size discount 10%% on two units, amount 180000, got %.2f", resp.Order.Amount)
	}
}

func TestCreateOrderInsufficientStockLeavesStateUntouched(t *testing.T) {
	svc := newTestService(t)
	good := newDiscountedItem(t, svc, nil, nil, 50000, 10)
	scarce, err := svc.CreateItem(adminCtx(), domain.ItemCreateRequest{
		Name: "Scarce Item",
		Sizes: []domain.ItemSizeCreateRequest{
			{SizeLabel: "M", Price: 60000, Stock: 1},
		},
	})
	if err != nil {
		t.Fatalf("create scarce item: %v", err)
	}

	_, err = svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items: []domain.OrderLineRequest{
			{ItemID: good.ID, SizeLabel: "M", Quantity: 2},
			{ItemID: scarce.ID, SizeLabel: "M", Quantity: 5},
		},
		IsPaid: true,
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	reloaded, err := svc.GetItem(context.Background(), good.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if reloaded.Sizes[0].Stock != 10 {
		t.Fatalf("expected first line untouched at stock 10, got %d", reloaded.Sizes[0].Stock)
	}

	orders, err := svc.ListOrders(context.Background(), 0)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected no orders after failed sale, got %d", len(orders))
	}
}

func TestCreateOrderDuplicateLinesCannotOversell(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, nil, nil, 30000, 5)

	_, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items: []domain.OrderLineRequest{
			{ItemID: item.ID, SizeLabel: "M", Quantity: 3},
			{ItemID: item.ID, SizeLabel: "M", Quantity: 3},
		},
		IsPaid: true,
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock for duplicate lines totalling 6 of 5, got %v", err)
	}

	reloaded, err := svc.GetItem(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if reloaded.Sizes[0].Stock != 5 {
		t.Fatalf("expected stock untouched at 5, got %d", reloaded.Sizes[0].Stock)
	}

	resp, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items: []domain.OrderLineRequest{
			{ItemID: item.ID, SizeLabel: "M", Quantity: 2},
			{ItemID: item.ID, SizeLabel: "M", Quantity: 3},
		},
		IsPaid: true,
	})
	if err != nil {
		t.Fatalf("duplicate lines within stock: %v", err)
	}
	if resp.Order.Amount != 150000 {
		t.Fatalf("expected amount 150000 for 5 units, got %.2f", resp.Order.Amount)
	}

	reloaded, err = svc.GetItem(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if reloaded.Sizes[0].Stock != 0 {
		t.Fatalf("expected stock drained to 0, got %d", reloaded.Sizes[0].Stock)
	}
}

func TestTransactionIDsIgnoreReturnOrders(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, nil, nil, 40000, 20)

	first, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:  []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: "M", Quantity: 1}},
		IsPaid: true,
	})
	if err != nil {
		t.Fatalf("first sale: %v", err)
	}
	if first.Order.TransactionID != "1000" {
		t.Fatalf("expected first transaction id 1000, got %q", first.Order.TransactionID)
	}

	if _, err := svc.ProcessReturn(adminCtx(), first.Order.ID, domain.ReturnRequest{ReturnFullOrder: true}); err != nil {
		t.Fatalf("return: %v", err)
	}

	second, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:  []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: "M", Quantity: 1}},
		IsPaid: true,
	})
	if err != nil {
		t.Fatalf("second sale: %v", err)
	}
	if second.Order.TransactionID != "1001" {
		t.Fatalf("expected return ids to be skipped, next id 1001, got %q", second.Order.TransactionID)
	}
}

func TestProcessReturnRequiresAdmin(t *testing.T) {
	svc := newTestService(t)
	item := firstItem(t, svc)

	resp, err := svc.CreateOrder(cashierCtx(), domain.OrderCreateRequest{
		Items:  []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: item.Sizes[0].SizeLabel, Quantity: 1}},
		IsPaid: true,
	})
	if err != nil {
		t.Fatalf("sale as cashier: %v", err)
	}

	_, err = svc.ProcessReturn(cashierCtx(), resp.Order.ID, domain.ReturnRequest{ReturnFullOrder: true})
	if err == nil || !strings.Contains(err.Error(), "admin role required") {
		t.Fatalf("expected admin role error, got %v", err)
	}
}

func TestProcessReturnOverQuantityRejected(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, nil, nil, 30000, 10)

	resp, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:  []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: "M", Quantity: 2}},
		IsPaid: true,
	})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}

	_, err = svc.ProcessReturn(adminCtx(), resp.Order.ID, domain.ReturnRequest{
		ItemReturns: []domain.ReturnLineRequest{{ItemID: resp.Order.Items[0].ID, Quantity: 3}},
	})
	if !errors.Is(err, store.ErrInvalidReturnQuantity) {
		t.Fatalf("expected ErrInvalidReturnQuantity, got %v", err)
	}
}

func TestReturnDuplicateLinesCannotExceedRemaining(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, nil, nil, 30000, 10)

	resp, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:  []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: "M", Quantity: 3}},
		IsPaid: true,
	})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}
	lineID := resp.Order.Items[0].ID

	_, err = svc.ProcessReturn(adminCtx(), resp.Order.ID, domain.ReturnRequest{
		ItemReturns: []domain.ReturnLineRequest{
			{ItemID: lineID, Quantity: 2},
			{ItemID: lineID, Quantity: 2},
		},
	})
	if !errors.Is(err, store.ErrInvalidReturnQuantity) {
		t.Fatalf("expected ErrInvalidReturnQuantity for duplicate lines totalling 4 of 3, got %v", err)
	}

	reloaded, err := svc.GetItem(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if reloaded.Sizes[0].Stock != 7 {
		t.Fatalf("expected stock unchanged at 7 after rejected return, got %d", reloaded.Sizes[0].Stock)
	}

	receipt, err := svc.ProcessReturn(adminCtx(), resp.Order.ID, domain.ReturnRequest{
		ItemReturns: []domain.ReturnLineRequest{
			{ItemID: lineID, Quantity: 2},
			{ItemID: lineID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("duplicate lines within remaining: %v", err)
	}
	if receipt.RefundTotal != 90000 {
		t.Fatalf("expected full refund 90000, got %.2f", receipt.RefundTotal)
	}

	reloaded, err = svc.GetItem(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if reloaded.Sizes[0].Stock != 10 {
		t.Fatalf("expected stock restored to 10, got %d", reloaded.Sizes[0].Stock)
	}
}

func TestExplicitReturnOfSettledLineRejected(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, nil, nil, 30000, 10)

	resp, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:  []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: "M", Quantity: 2}},
		IsPaid: true,
	})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}
	if _, err := svc.ProcessReturn(adminCtx(), resp.Order.ID, domain.ReturnRequest{ReturnFullOrder: true}); err != nil {
		t.Fatalf("full return: %v", err)
	}

	_, err = svc.ProcessReturn(adminCtx(), resp.Order.ID, domain.ReturnRequest{
		ItemReturns: []domain.ReturnLineRequest{{ItemID: resp.Order.Items[0].ID, Quantity: 1}},
	})
	if !errors.Is(err, store.ErrAlreadyReturned) {
		t.Fatalf("expected ErrAlreadyReturned, got %v", err)
	}
}

func TestPartialThenFullReturnRestoresStock(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, nil, nil, 30000, 10)

	resp, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:  []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: "M", Quantity: 3}},
		IsPaid: true,
	})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}

	partial, err := svc.ProcessReturn(adminCtx(), resp.Order.ID, domain.ReturnRequest{
		ItemReturns: []domain.ReturnLineRequest{{ItemID: resp.Order.Items[0].ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("partial return: %v", err)
	}
	if partial.RefundTotal != 30000 {
		t.Fatalf("expected partial refund 30000, got %.2f", partial.RefundTotal)
	}

	full, err := svc.ProcessReturn(adminCtx(), resp.Order.ID, domain.ReturnRequest{ReturnFullOrder: true})
	if err != nil {
		t.Fatalf("full return: %v", err)
	}
	if full.RefundTotal != 60000 {
		t.Fatalf("expected remaining refund 60000, got %.2f", full.RefundTotal)
	}
	if full.ReturnOrder == nil || !strings.HasPrefix(full.ReturnOrder.TransactionID, "RETURN_"+resp.Order.TransactionID+"_") {
		t.Fatalf("unexpected return order %+v", full.ReturnOrder)
	}

	reloaded, err := svc.GetItem(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if reloaded.Sizes[0].Stock != 10 {
		t.Fatalf("expected stock restored to 10, got %d", reloaded.Sizes[0].Stock)
	}
}

func TestRepeatedFullReturnIsNoOp(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, nil, nil, 30000, 10)

	resp, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:  []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: "M", Quantity: 2}},
		IsPaid: true,
	})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}

	if _, err := svc.ProcessReturn(adminCtx(), resp.Order.ID, domain.ReturnRequest{ReturnFullOrder: true}); err != nil {
		t.Fatalf("first full return: %v", err)
	}

	second, err := svc.ProcessReturn(adminCtx(), resp.Order.ID, domain.ReturnRequest{ReturnFullOrder: true})
	if err != nil {
		t.Fatalf("repeated full return should be a no-op, got %v", err)
	}
	if second.ReturnOrder != nil {
		t.Fatalf("expected no reversal order on repeated return")
	}
	if len(second.ReturnedItems) != 0 || second.RefundTotal != 0 {
		t.Fatalf("expected empty receipt, got %+v", second)
	}

	reloaded, err := svc.GetItem(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if reloaded.Sizes[0].Stock != 10 {
		t.Fatalf("expected stock unchanged at 10 after no-op, got %d", reloaded.Sizes[0].Stock)
	}
}

func TestReturnRefundSettlesDuesFirst(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, nil, nil, 80000, 10)

	if _, _, err := svc.RecordShopperPayment(adminCtx(), "PLG-001", domain.ShopperPaymentRequest{Amount: 50000, Description: "Old unpaid balance"}); err != nil {
		t.Fatalf("charge dues: %v", err)
	}

	resp, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:        []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: "M", Quantity: 1}},
		CustomerCode: "PLG-001",
		IsPaid:       true,
	})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}

	receipt, err := svc.ProcessReturn(adminCtx(), resp.Order.ID, domain.ReturnRequest{
		ReturnFullOrder: true,
		RefundMethod:    domain.RefundMethodCash,
	})
	if err != nil {
		t.Fatalf("return: %v", err)
	}

	if receipt.Allocation.AppliedToDues != 50000 {
		t.Fatalf("expected 50000 applied to dues, got %.2f", receipt.Allocation.AppliedToDues)
	}
	if receipt.Allocation.CashRefund != 30000 {
		t.Fatalf("expected 30000 cash refund, got %.2f", receipt.Allocation.CashRefund)
	}
	if receipt.Allocation.AddedToAdvance != 0 {
		t.Fatalf("expected no advance credit, got %.2f", receipt.Allocation.AddedToAdvance)
	}
	if receipt.BalanceAfter == nil || receipt.BalanceAfter.DuesBalance != 0 {
		t.Fatalf("expected dues settled, got %+v", receipt.BalanceAfter)
	}
}

func TestReturnRefundStoredAsAdvance(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, nil, nil, 45000, 10)

	resp, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:        []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: "M", Quantity: 2}},
		CustomerCode: "PLG-001",
		IsPaid:       true,
	})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}

	receipt, err := svc.ProcessReturn(adminCtx(), resp.Order.ID, domain.ReturnRequest{
		ReturnFullOrder: true,
		RefundMethod:    domain.RefundMethodAdvance,
	})
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if receipt.Allocation.AddedToAdvance != 90000 {
		t.Fatalf("expected 90000 stored as advance, got %.2f", receipt.Allocation.AddedToAdvance)
	}
	if receipt.BalanceAfter == nil || receipt.BalanceAfter.AdvanceBalance != 90000 {
		t.Fatalf("expected advance balance 90000, got %+v", receipt.BalanceAfter)
	}
}

func TestWalkInReturnAlwaysRefundsCash(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, nil, nil, 20000, 5)

	resp, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:  []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: "M", Quantity: 1}},
		IsPaid: true,
	})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}

	receipt, err := svc.ProcessReturn(adminCtx(), resp.Order.ID, domain.ReturnRequest{
		ReturnFullOrder: true,
		RefundMethod:    domain.RefundMethodAdvance,
	})
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if receipt.Allocation.CashRefund != 20000 || receipt.Allocation.AddedToAdvance != 0 {
		t.Fatalf("walk-in refund must be cash, got %+v", receipt.Allocation)
	}
}

func TestCreateOrderUnpaidWithShopperAddsDues(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, nil, nil, 70000, 5)

	resp, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:        []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: "M", Quantity: 1}},
		CustomerCode: "PLG-001",
		IsPaid:       false,
	})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}
	if resp.Balance == nil || resp.Balance.DuesBalance != 70000 {
		t.Fatalf("expected dues balance 70000 after unpaid sale, got %+v", resp.Balance)
	}
}

func TestCreateOrderBreakdownRequiresShopper(t *testing.T) {
	svc := newTestService(t)
	item := firstItem(t, svc)

	_, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:            []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: item.Sizes[0].SizeLabel, Quantity: 1}},
		IsPaid:           true,
		PaymentAmount:    floatPtr(100000),
		PaymentBreakdown: &domain.PaymentBreakdown{OrderPayment: 100000},
	})
	if !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for breakdown without shopper, got %v", err)
	}
}

func TestCreateOrderBreakdownMustReconcile(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, nil, nil, 100000, 5)

	// Components sum to 120000 but the stated payment is 100000.
	_, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:         []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: "M", Quantity: 1}},
		CustomerCode:  "PLG-001",
		IsPaid:        true,
		PaymentAmount: floatPtr(100000),
		PaymentBreakdown: &domain.PaymentBreakdown{
			OrderPayment: 100000,
			DuesPayment:  20000,
		},
	})
	if !errors.Is(err, store.ErrInconsistentPayment) {
		t.Fatalf("expected ErrInconsistentPayment, got %v", err)
	}
}

func TestCreateOrderBreakdownSettlesPreviousDues(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, nil, nil, 100000, 5)

	if _, _, err := svc.RecordShopperPayment(adminCtx(), "PLG-001", domain.ShopperPaymentRequest{Amount: 50000}); err != nil {
		t.Fatalf("charge dues: %v", err)
	}

	resp, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:         []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: "M", Quantity: 1}},
		CustomerCode:  "PLG-001",
		IsPaid:        true,
		PaymentAmount: floatPtr(150000),
		PaymentBreakdown: &domain.PaymentBreakdown{
			OrderPayment:          100000,
			DuesPayment:           50000,
			RemainingDues:         0,
			RemainingOrderBalance: 0,
		},
	})
	if err != nil {
		t.Fatalf("sale with breakdown: %v", err)
	}
	if resp.Balance == nil || resp.Balance.DuesBalance != 0 {
		t.Fatalf("expected dues fully settled, got %+v", resp.Balance)
	}
}

func TestCreateOrderBreakdownEpsilonTolerance(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, nil, nil, 100000, 5)

	// 0.005 off is within the reconciliation epsilon.
	_, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:         []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: "M", Quantity: 1}},
		CustomerCode:  "PLG-001",
		IsPaid:        true,
		PaymentAmount: floatPtr(100000.005),
		PaymentBreakdown: &domain.PaymentBreakdown{
			OrderPayment: 100000,
		},
	})
	if err != nil {
		t.Fatalf("expected tolerance within epsilon, got %v", err)
	}
}

func TestInventoryHistoryReconcilesWithStock(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, nil, nil, 30000, 10)

	resp, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:  []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: "M", Quantity: 4}},
		IsPaid: true,
	})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}
	if _, err := svc.RestockItemSize(adminCtx(), item.ID, "M", domain.RestockRequest{Quantity: 7}); err != nil {
		t.Fatalf("restock: %v", err)
	}
	if _, err := svc.ProcessReturn(adminCtx(), resp.Order.ID, domain.ReturnRequest{
		ItemReturns: []domain.ReturnLineRequest{{ItemID: resp.Order.Items[0].ID, Quantity: 2}},
	}); err != nil {
		t.Fatalf("return: %v", err)
	}
	if _, err := svc.UpdateItemSize(adminCtx(), item.ID, "M", domain.ItemSizeUpdateRequest{
		Stock:            intPtr(12),
		CorrectionReason: "Stock opname",
	}); err != nil {
		t.Fatalf("correction: %v", err)
	}

	history, err := svc.ListInventoryHistory(adminCtx(), item.ID, "", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var sum int
	for _, entry := range history {
		sum += entry.Change
	}

	reloaded, err := svc.GetItem(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	var stock int
	for _, size := range reloaded.Sizes {
		stock += size.Stock
	}
	if sum != stock {
		t.Fatalf("history sum %d does not reconcile with stock %d", sum, stock)
	}
}

func TestLargeCorrectionIsFlagged(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, nil, nil, 30000, 10)

	if _, err := svc.UpdateItemSize(adminCtx(), item.ID, "M", domain.ItemSizeUpdateRequest{
		Stock:            intPtr(2),
		CorrectionReason: "Damaged batch",
	}); err != nil {
		t.Fatalf("correction: %v", err)
	}

	history, err := svc.ListInventoryHistory(adminCtx(), item.ID, domain.InventoryChangeCorrection, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one correction row, got %d", len(history))
	}
	if !strings.HasPrefix(history[0].Description, "LARGE ADJUSTMENT") {
		t.Fatalf("expected large adjustment marker, got %q", history[0].Description)
	}
}

func TestCorrectionRequiresReason(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, nil, nil, 30000, 10)

	_, err := svc.UpdateItemSize(adminCtx(), item.ID, "M", domain.ItemSizeUpdateRequest{Stock: intPtr(5)})
	if !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest without correction reason, got %v", err)
	}
}

func TestShopperHistoryIncludesOrdersAndBalance(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, nil, nil, 60000, 5)

	if _, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:        []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: "M", Quantity: 1}},
		CustomerCode: "PLG-001",
		IsPaid:       false,
	}); err != nil {
		t.Fatalf("sale: %v", err)
	}

	history, err := svc.GetShopperHistory(adminCtx(), "PLG-001")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if history.Shopper.CustomerCode != "PLG-001" {
		t.Fatalf("unexpected shopper %+v", history.Shopper)
	}
	if len(history.Orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(history.Orders))
	}
	if history.Balance.DuesBalance != 60000 {
		t.Fatalf("expected dues 60000, got %.2f", history.Balance.DuesBalance)
	}
}

func TestDashboardSummaryRequiresAdmin(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.DashboardSummary(cashierCtx(), time.Time{}, time.Time{})
	if err == nil || !strings.Contains(err.Error(), "admin role required") {
		t.Fatalf("expected admin role error, got %v", err)
	}
}

type countingCache struct {
	mu      sync.Mutex
	entries map[string]*domain.DashboardSummary
	gets    int
	sets    int
}

func (c *countingCache) Get(_ context.Context, key string) (*domain.DashboardSummary, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	cached, ok := c.entries[key]
	return cached, ok, nil
}

func (c *countingCache) Set(_ context.Context, key string, value *domain.DashboardSummary, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]*domain.DashboardSummary)
	}
	c.entries[key] = value
	c.sets++
	return nil
}

func TestDashboardSummaryUsesCache(t *testing.T) {
	cacheStub := &countingCache{}
	svc := New(memory.NewSeeded(), cacheStub, time.Minute, 5)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	if _, err := svc.DashboardSummary(adminCtx(), from, to); err != nil {
		t.Fatalf("first dashboard call: %v", err)
	}
	if cacheStub.sets != 1 {
		t.Fatalf("expected summary to be cached once, got %d sets", cacheStub.sets)
	}

	if _, err := svc.DashboardSummary(adminCtx(), from, to); err != nil {
		t.Fatalf("second dashboard call: %v", err)
	}
	if cacheStub.gets != 2 || cacheStub.sets != 1 {
		t.Fatalf("expected cache hit on second call, gets=%d sets=%d", cacheStub.gets, cacheStub.sets)
	}
}

func TestDashboardSummaryCountsSalesAndReturns(t *testing.T) {
	svc := newTestService(t)
	item := newDiscountedItem(t, svc, nil, nil, 50000, 10)

	resp, err := svc.CreateOrder(adminCtx(), domain.OrderCreateRequest{
		Items:  []domain.OrderLineRequest{{ItemID: item.ID, SizeLabel: "M", Quantity: 2}},
		IsPaid: true,
	})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}
	if _, err := svc.ProcessReturn(adminCtx(), resp.Order.ID, domain.ReturnRequest{
		ItemReturns: []domain.ReturnLineRequest{{ItemID: resp.Order.Items[0].ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("return: %v", err)
	}

	summary, err := svc.DashboardSummary(adminCtx(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if summary.OrdersCount != 1 {
		t.Fatalf("expected 1 sale counted, got %d", summary.OrdersCount)
	}
	if summary.GrossSales != 100000 {
		t.Fatalf("expected gross sales 100000, got %.2f", summary.GrossSales)
	}
	if summary.ReturnsTotal != 50000 {
		t.Fatalf("expected returns total 50000, got %.2f", summary.ReturnsTotal)
	}
}

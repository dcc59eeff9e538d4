package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"tokopos/backend/internal/cache"
	"tokopos/backend/internal/domain"
	"tokopos/backend/internal/ledger"
	"tokopos/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo              store.Repository
	reportCache       cache.ReportCache
	reportCacheTTL    time.Duration
	lowStockThreshold int
}

func New(repo store.Repository, reportCache cache.ReportCache, reportCacheTTL time.Duration, lowStockThreshold int) *Service {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	if reportCacheTTL <= 0 {
		reportCacheTTL = time.Minute
	}
	if lowStockThreshold <= 0 {
		lowStockThreshold = 5
	}

	return &Service{
		repo:              repo,
		reportCache:       reportCache,
		reportCacheTTL:    reportCacheTTL,
		lowStockThreshold: lowStockThreshold,
	}
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Category{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Category{}, store.ErrInvalidRequest
	}
	if req.Discount != nil && (*req.Discount < 0 || *req.Discount > 100) {
		return domain.Category{}, store.ErrInvalidRequest
	}

	created, err := s.repo.CreateCategory(ctx, domain.Category{Name: req.Name, Discount: req.Discount})
	if err != nil {
		return domain.Category{}, err
	}

	s.logAudit(ctx, "category_create", "category", created.ID, fmt.Sprintf("name=%s", created.Name))
	return *created, nil
}

func (s *Service) ListItems(ctx context.Context, search string, categoryID string, limit int) ([]domain.Item, error) {
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListItems(ctx, search, categoryID, limit)
}

func (s *Service) GetItem(ctx context.Context, itemID string) (domain.Item, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return domain.Item{}, err
	}
	return *item, nil
}

func (s *Service) CreateItem(ctx context.Context, req domain.ItemCreateRequest) (domain.Item, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Item{}, fmt.Errorf("admin role required")
	}

	performer, err := s.resolveActorUser(ctx, actor)
	if err != nil {
		return domain.Item{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Sizes) == 0 {
		return domain.Item{}, store.ErrInvalidRequest
	}

	item := domain.Item{
		Name:       req.Name,
		ImageURL:   strings.TrimSpace(req.ImageURL),
		CategoryID: strings.TrimSpace(req.CategoryID),
	}
	for _, size := range req.Sizes {
		item.Sizes = append(item.Sizes, domain.ItemSize{
			SizeLabel: size.SizeLabel,
			Price:     size.Price,
			Discount:  size.Discount,
			Stock:     size.Stock,
		})
	}

	created, err := s.repo.CreateItem(ctx, item, performer.ID)
	if err != nil {
		return domain.Item{}, err
	}

	s.logAudit(ctx, "item_create", "item", created.ID, fmt.Sprintf("name=%s,sizes=%d", created.Name, len(created.Sizes)))
	return *created, nil
}

func (s *Service) UpdateItemSize(ctx context.Context, itemID string, sizeLabel string, req domain.ItemSizeUpdateRequest) (domain.ItemSize, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.ItemSize{}, fmt.Errorf("admin role required")
	}

	performer, err := s.resolveActorUser(ctx, actor)
	if err != nil {
		return domain.ItemSize{}, err
	}

	updated, err := s.repo.UpdateItemSize(ctx, itemID, sizeLabel, req, performer.ID)
	if err != nil {
		return domain.ItemSize{}, err
	}

	s.logAudit(ctx, "item_size_update", "item_size", updated.ID, fmt.Sprintf("item=%s,label=%s,stock=%d", itemID, sizeLabel, updated.Stock))
	return *updated, nil
}

func (s *Service) RestockItemSize(ctx context.Context, itemID string, sizeLabel string, req domain.RestockRequest) (domain.ItemSize, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.ItemSize{}, fmt.Errorf("admin role required")
	}
	if req.Quantity <= 0 {
		return domain.ItemSize{}, store.ErrInvalidRequest
	}

	performer, err := s.resolveActorUser(ctx, actor)
	if err != nil {
		return domain.ItemSize{}, err
	}

	updated, err := s.repo.RestockItemSize(ctx, itemID, sizeLabel, req.Quantity, req.Description, performer.ID)
	if err != nil {
		return domain.ItemSize{}, err
	}

	s.logAudit(ctx, "restock", "item_size", updated.ID, fmt.Sprintf("item=%s,label=%s,qty=%d", itemID, sizeLabel, req.Quantity))
	return *updated, nil
}

func (s *Service) ListInventoryHistory(ctx context.Context, itemID string, changeType string, limit int) ([]domain.InventoryHistory, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("admin role required")
	}
	switch changeType {
	case "", domain.InventoryChangeSale, domain.InventoryChangeRestock, domain.InventoryChangeCorrection:
	default:
		return nil, store.ErrInvalidRequest
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListInventoryHistory(ctx, itemID, changeType, limit)
}

// CreateOrder runs the sale path: resolve shopper and cashier, reconcile
// any payment breakdown, then hand the whole mutation to the store as one
// atomic unit.
func (s *Service) CreateOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.OrderCreateResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.OrderCreateResponse{}, fmt.Errorf("authenticated actor required")
	}

	if len(req.Items) == 0 {
		return domain.OrderCreateResponse{}, store.ErrInvalidRequest
	}
	for _, line := range req.Items {
		if line.ItemID == "" || line.SizeLabel == "" || line.Quantity <= 0 {
			return domain.OrderCreateResponse{}, store.ErrInvalidRequest
		}
	}

	cashier, err := s.resolveActorUser(ctx, actor)
	if err != nil {
		return domain.OrderCreateResponse{}, err
	}

	var shopper *domain.Shopper
	if code := strings.TrimSpace(req.CustomerCode); code != "" {
		shopper, err = s.repo.GetShopperByCode(ctx, code)
		if err != nil {
			return domain.OrderCreateResponse{}, err
		}
	}

	if req.PaymentBreakdown != nil {
		if shopper == nil {
			return domain.OrderCreateResponse{}, store.ErrInvalidRequest
		}
		if req.PaymentAmount == nil {
			return domain.OrderCreateResponse{}, store.ErrInconsistentPayment
		}
		if !ledger.ReconcileBreakdown(*req.PaymentBreakdown, *req.PaymentAmount) {
			return domain.OrderCreateResponse{}, store.ErrInconsistentPayment
		}
	}

	order, err := s.repo.CreateSale(ctx, domain.SaleInput{
		Lines:         req.Items,
		Details:       strings.TrimSpace(req.Details),
		CashierID:     cashier.ID,
		Shopper:       shopper,
		IsPaid:        req.IsPaid,
		PaymentAmount: req.PaymentAmount,
		Breakdown:     req.PaymentBreakdown,
	})
	if err != nil {
		return domain.OrderCreateResponse{}, err
	}

	s.logAudit(ctx, "sale", "order", order.ID, fmt.Sprintf("txn=%s,amount=%.2f,lines=%d", order.TransactionID, order.Amount, len(order.Items)))

	response := domain.OrderCreateResponse{Order: *order}
	if shopper != nil {
		response.Shopper = shopper
		dues, err := s.repo.ListDues(ctx, shopper.ID)
		if err != nil {
			log.Printf("[service] WARN: failed to load balance for shopper %s: %v", shopper.ID, err)
		} else {
			balance := ledger.Balance(dues)
			response.Balance = &balance
		}
	}
	return response, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return *order, nil
}

func (s *Service) ListOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListOrders(ctx, limit)
}

// ProcessReturn runs the return path against an original order. Repeated
// full-order returns are safe no-ops once everything has been returned.
func (s *Service) ProcessReturn(ctx context.Context, orderID string, req domain.ReturnRequest) (domain.ReturnReceipt, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.ReturnReceipt{}, fmt.Errorf("admin role required")
	}

	if !req.ReturnFullOrder && len(req.ItemReturns) == 0 {
		return domain.ReturnReceipt{}, store.ErrInvalidRequest
	}
	method := req.RefundMethod
	if method == "" {
		method = domain.RefundMethodCash
	}
	if method != domain.RefundMethodCash && method != domain.RefundMethodAdvance {
		return domain.ReturnReceipt{}, store.ErrInvalidRequest
	}

	cashier, err := s.resolveActorUser(ctx, actor)
	if err != nil {
		return domain.ReturnReceipt{}, err
	}

	input := domain.ReturnInput{
		OrderID:         orderID,
		ReturnFullOrder: req.ReturnFullOrder,
		Reason:          req.Reason,
		RefundMethod:    method,
		CashierID:       cashier.ID,
	}
	for _, line := range req.ItemReturns {
		if line.ItemID == "" || line.Quantity <= 0 {
			return domain.ReturnReceipt{}, store.ErrInvalidRequest
		}
		input.Lines = append(input.Lines, domain.ReturnLine{OrderItemID: line.ItemID, Quantity: line.Quantity})
	}

	receipt, err := s.repo.CreateReturn(ctx, input)
	if err != nil {
		return domain.ReturnReceipt{}, err
	}

	if receipt.ReturnOrder != nil {
		s.logAudit(ctx, "return", "order", receipt.ReturnOrder.ID,
			fmt.Sprintf("txn=%s,refund=%.2f,lines=%d", receipt.ReturnOrder.TransactionID, receipt.RefundTotal, len(receipt.ReturnedItems)))
	}
	return *receipt, nil
}

func (s *Service) CreateShopper(ctx context.Context, req domain.ShopperCreateRequest) (domain.Shopper, error) {
	req.CustomerCode = strings.TrimSpace(req.CustomerCode)
	req.Name = strings.TrimSpace(req.Name)
	if req.CustomerCode == "" || req.Name == "" {
		return domain.Shopper{}, store.ErrInvalidRequest
	}

	created, err := s.repo.CreateShopper(ctx, domain.Shopper{
		CustomerCode: req.CustomerCode,
		Name:         req.Name,
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		Address:      strings.TrimSpace(req.Address),
	})
	if err != nil {
		return domain.Shopper{}, err
	}

	s.logAudit(ctx, "shopper_create", "shopper", created.ID, fmt.Sprintf("code=%s", created.CustomerCode))
	return *created, nil
}

func (s *Service) ListShoppers(ctx context.Context) ([]domain.Shopper, error) {
	return s.repo.ListShoppers(ctx)
}

func (s *Service) GetShopper(ctx context.Context, customerCode string) (domain.Shopper, domain.BalanceSummary, error) {
	shopper, err := s.repo.GetShopperByCode(ctx, customerCode)
	if err != nil {
		return domain.Shopper{}, domain.BalanceSummary{}, err
	}
	dues, err := s.repo.ListDues(ctx, shopper.ID)
	if err != nil {
		return domain.Shopper{}, domain.BalanceSummary{}, err
	}
	return *shopper, ledger.Balance(dues), nil
}

// RecordShopperPayment appends a manual signed ledger entry: negative for
// a payment or credit received, positive for a new charge.
func (s *Service) RecordShopperPayment(ctx context.Context, customerCode string, req domain.ShopperPaymentRequest) (domain.Due, domain.BalanceSummary, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return domain.Due{}, domain.BalanceSummary{}, fmt.Errorf("authenticated actor required")
	}
	if req.Amount == 0 {
		return domain.Due{}, domain.BalanceSummary{}, store.ErrInvalidRequest
	}

	shopper, err := s.repo.GetShopperByCode(ctx, customerCode)
	if err != nil {
		return domain.Due{}, domain.BalanceSummary{}, err
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		if req.Amount < 0 {
			description = "Payment received"
		} else {
			description = "Manual charge"
		}
	}

	due, err := s.repo.CreateDue(ctx, domain.Due{
		ShopperID:   shopper.ID,
		Amount:      req.Amount,
		Description: description,
	})
	if err != nil {
		return domain.Due{}, domain.BalanceSummary{}, err
	}

	dues, err := s.repo.ListDues(ctx, shopper.ID)
	if err != nil {
		return domain.Due{}, domain.BalanceSummary{}, err
	}

	s.logAudit(ctx, "shopper_payment", "due", due.ID, fmt.Sprintf("code=%s,amount=%.2f", shopper.CustomerCode, due.Amount))
	return *due, ledger.Balance(dues), nil
}

func (s *Service) GetShopperHistory(ctx context.Context, customerCode string) (domain.ShopperHistory, error) {
	shopper, err := s.repo.GetShopperByCode(ctx, customerCode)
	if err != nil {
		return domain.ShopperHistory{}, err
	}
	orders, err := s.repo.ListOrdersByShopper(ctx, shopper.ID)
	if err != nil {
		return domain.ShopperHistory{}, err
	}
	dues, err := s.repo.ListDues(ctx, shopper.ID)
	if err != nil {
		return domain.ShopperHistory{}, err
	}

	return domain.ShopperHistory{
		Shopper: *shopper,
		Orders:  orders,
		Dues:    dues,
		Balance: ledger.Balance(dues),
	}, nil
}

// DashboardSummary aggregates orders, returns, and outstanding dues over a
// date range. Results may be cached: the summary is a derived report, never
// a source of stock or balance truth.
func (s *Service) DashboardSummary(ctx context.Context, from time.Time, to time.Time) (domain.DashboardSummary, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.DashboardSummary{}, fmt.Errorf("admin role required")
	}

	now := time.Now().UTC()
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if from.After(to) {
		return domain.DashboardSummary{}, store.ErrInvalidRequest
	}

	key := fmt.Sprintf("dashboard:%d:%d:%d", from.Unix(), to.Unix(), s.lowStockThreshold)
	if cached, hit, err := s.reportCache.Get(ctx, key); err != nil {
		log.Printf("[service] WARN: report cache get failed: %v", err)
	} else if hit {
		return *cached, nil
	}

	summary, err := s.repo.GetDashboardSummary(ctx, from, to, s.lowStockThreshold)
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	if err := s.reportCache.Set(ctx, key, summary, s.reportCacheTTL); err != nil {
		log.Printf("[service] WARN: report cache set failed: %v", err)
	}
	return *summary, nil
}

func (s *Service) resolveActorUser(ctx context.Context, actor domain.Actor) (*domain.UserAccount, error) {
	user, err := s.repo.GetUserByUsername(ctx, actor.Username)
	if err != nil {
		return nil, fmt.Errorf("performing user not found: %w", err)
	}
	return user, nil
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, _ := ActorFromContext(ctx)
	log.Printf("[audit] actor=%s role=%s action=%s entity=%s id=%s %s",
		actor.Username, actor.Role, action, entityType, entityID, detail)
}

package memory

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tokopos/backend/internal/domain"
	"tokopos/backend/internal/ledger"
	"tokopos/backend/internal/pricing"
	"tokopos/backend/internal/store"
)

type Store struct {
	mu               sync.RWMutex
	categoriesByID   map[string]domain.Category
	itemsByID        map[string]domain.Item
	ordersByID       map[string]*domain.Order
	inventoryHistory []domain.InventoryHistory
	shoppersByID     map[string]domain.Shopper
	duesByShopper    map[string][]domain.Due
	usersByUsername  map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			ID:        uuid.NewString(),
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()

	categories := []domain.Category{
		{ID: uuid.NewString(), Name: "kemeja"},
		{ID: uuid.NewString(), Name: "kaos"},
		{ID: uuid.NewString(), Name: "celana"},
	}

	type seedSize struct {
		label string
		price float64
		stock int
	}
	type seedItem struct {
		name     string
		category string
		sizes    []seedSize
	}
	seeds := []seedItem{
		{"Kemeja Batik Lengan Panjang", "kemeja", []seedSize{{"S", 185000, 12}, {"M", 185000, 18}, {"L", 195000, 15}}},
		{"Kemeja Oxford Putih", "kemeja", []seedSize{{"M", 165000, 20}, {"L", 165000, 14}, {"XL", 175000, 8}}},
		{"Kaos Polos Hitam", "kaos", []seedSize{{"S", 55000, 40}, {"M", 55000, 45}, {"L", 55000, 30}}},
		{"Kaos Grafis Nusantara", "kaos", []seedSize{{"M", 85000, 25}, {"L", 85000, 22}}},
		{"Celana Chino Navy", "celana", []seedSize{{"30", 220000, 10}, {"32", 220000, 12}, {"34", 220000, 6}}},
	}

	categoryMap := make(map[string]domain.Category, len(categories))
	categoryByName := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryMap[c.ID] = c
		categoryByName[c.Name] = c.ID
	}

	s := &Store{
		categoriesByID:   categoryMap,
		itemsByID:        make(map[string]domain.Item, len(seeds)),
		ordersByID:       make(map[string]*domain.Order),
		inventoryHistory: make([]domain.InventoryHistory, 0, 128),
		shoppersByID:     make(map[string]domain.Shopper),
		duesByShopper:    make(map[string][]domain.Due),
		usersByUsername:  seedUsers(),
	}

	var adminID string
	for _, u := range s.usersByUsername {
		if u.Role == domain.RoleAdmin {
			adminID = u.ID
		}
	}

	for _, seed := range seeds {
		item := domain.Item{
			ID:         uuid.NewString(),
			Name:       seed.name,
			CategoryID: categoryByName[seed.category],
			CreatedAt:  now,
		}
		for _, sz := range seed.sizes {
			size := domain.ItemSize{
				ID:        uuid.NewString(),
				ItemID:    item.ID,
				SizeLabel: sz.label,
				Price:     sz.price,
				Stock:     sz.stock,
			}
			item.Sizes = append(item.Sizes, size)
			s.inventoryHistory = append(s.inventoryHistory, domain.InventoryHistory{
				ID:            uuid.NewString(),
				ItemID:        item.ID,
				Change:        sz.stock,
				Type:          domain.InventoryChangeRestock,
				Description:   "Initial stock",
				PerformedByID: adminID,
				Date:          now,
			})
		}
		s.itemsByID[item.ID] = item
	}

	shopper := domain.Shopper{
		ID:           uuid.NewString(),
		CustomerCode: "PLG-001",
		Name:         "Ibu Sari",
		PhoneNumber:  "081234567890",
		CreatedAt:    now,
	}
	s.shoppersByID[shopper.ID] = shopper

	return s
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.TrimSpace(category.Name)
	if name == "" {
		return nil, store.ErrInvalidRequest
	}
	if category.Discount != nil && (*category.Discount < 0 || *category.Discount > 100) {
		return nil, store.ErrInvalidRequest
	}
	for _, existing := range s.categoriesByID {
		if strings.EqualFold(existing.Name, name) {
			return nil, store.ErrInvalidRequest
		}
	}

	category.Name = name
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	s.categoriesByID[category.ID] = category
	created := category
	return &created, nil
}

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categoriesByID))
	for _, c := range s.categoriesByID {
		categories = append(categories, c)
	}
	slices.SortFunc(categories, func(a, b domain.Category) int {
		return cmpString(a.Name, b.Name)
	})
	return categories, nil
}

func (s *Store) GetCategory(_ context.Context, categoryID string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, exists := s.categoriesByID[categoryID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyCategory := category
	return &copyCategory, nil
}

func (s *Store) CreateItem(_ context.Context, item domain.Item, performedByID string) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(item.Name) == "" || len(item.Sizes) == 0 {
		return nil, store.ErrInvalidRequest
	}
	if item.CategoryID != "" {
		if _, exists := s.categoriesByID[item.CategoryID]; !exists {
			return nil, store.ErrNotFound
		}
	}
	labels := make(map[string]bool, len(item.Sizes))
	for _, size := range item.Sizes {
		label := strings.TrimSpace(size.SizeLabel)
		if label == "" || size.Price <= 0 || size.Stock < 0 || labels[label] {
			return nil, store.ErrInvalidRequest
		}
		if size.Discount != nil && (*size.Discount < 0 || *size.Discount > 100) {
			return nil, store.ErrInvalidRequest
		}
		labels[label] = true
	}

	now := time.Now().UTC()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CreatedAt = now
	for i := range item.Sizes {
		item.Sizes[i].ID = uuid.NewString()
		item.Sizes[i].ItemID = item.ID
		item.Sizes[i].SizeLabel = strings.TrimSpace(item.Sizes[i].SizeLabel)
		if item.Sizes[i].Stock > 0 {
			s.inventoryHistory = append(s.inventoryHistory, domain.InventoryHistory{
				ID:            uuid.NewString(),
				ItemID:        item.ID,
				Change:        item.Sizes[i].Stock,
				Type:          domain.InventoryChangeRestock,
				Description:   "Initial stock",
				PerformedByID: performedByID,
				Date:          now,
			})
		}
	}

	s.itemsByID[item.ID] = item
	created := cloneItem(item)
	return &created, nil
}

func (s *Store) GetItem(_ context.Context, itemID string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.itemsByID[itemID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyItem := cloneItem(item)
	return &copyItem, nil
}

func (s *Store) ListItems(_ context.Context, search string, categoryID string, limit int) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search = strings.ToLower(strings.TrimSpace(search))
	items := make([]domain.Item, 0, len(s.itemsByID))
	for _, item := range s.itemsByID {
		if categoryID != "" && item.CategoryID != categoryID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(item.Name), search) {
			continue
		}
		items = append(items, cloneItem(item))
	}
	slices.SortFunc(items, func(a, b domain.Item) int {
		return cmpString(a.Name, b.Name)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) UpdateItemSize(_ context.Context, itemID string, sizeLabel string, update domain.ItemSizeUpdateRequest, performedByID string) (*domain.ItemSize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.itemsByID[itemID]
	if !exists {
		return nil, store.ErrNotFound
	}
	idx := -1
	for i, size := range item.Sizes {
		if size.SizeLabel == sizeLabel {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, store.ErrNotFound
	}

	if update.Price != nil && *update.Price <= 0 {
		return nil, store.ErrInvalidRequest
	}
	if update.Discount != nil && (*update.Discount < 0 || *update.Discount > 100) {
		return nil, store.ErrInvalidRequest
	}
	if update.Stock != nil {
		if *update.Stock < 0 {
			return nil, store.ErrInvalidRequest
		}
		if *update.Stock != item.Sizes[idx].Stock && strings.TrimSpace(update.CorrectionReason) == "" {
			return nil, store.ErrInvalidRequest
		}
	}

	size := &item.Sizes[idx]
	if update.Price != nil {
		size.Price = *update.Price
	}
	if update.Discount != nil {
		size.Discount = update.Discount
	}
	if update.Stock != nil && *update.Stock != size.Stock {
		change := *update.Stock - size.Stock
		s.inventoryHistory = append(s.inventoryHistory, domain.InventoryHistory{
			ID:            uuid.NewString(),
			ItemID:        itemID,
			Change:        change,
			Type:          domain.InventoryChangeCorrection,
			Description:   correctionDescription(size.Stock, change, update.CorrectionReason),
			PerformedByID: performedByID,
			Date:          time.Now().UTC(),
		})
		size.Stock = *update.Stock
	}

	s.itemsByID[itemID] = item
	updated := *size
	return &updated, nil
}

func (s *Store) RestockItemSize(_ context.Context, itemID string, sizeLabel string, quantity int, description string, performedByID string) (*domain.ItemSize, error) {
	if quantity <= 0 {
		return nil, store.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.itemsByID[itemID]
	if !exists {
		return nil, store.ErrNotFound
	}
	for i := range item.Sizes {
		if item.Sizes[i].SizeLabel != sizeLabel {
			continue
		}
		item.Sizes[i].Stock += quantity
		if strings.TrimSpace(description) == "" {
			description = "Restock"
		}
		s.inventoryHistory = append(s.inventoryHistory, domain.InventoryHistory{
			ID:            uuid.NewString(),
			ItemID:        itemID,
			Change:        quantity,
			Type:          domain.InventoryChangeRestock,
			Description:   description,
			PerformedByID: performedByID,
			Date:          time.Now().UTC(),
		})
		s.itemsByID[itemID] = item
		updated := item.Sizes[i]
		return &updated, nil
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListInventoryHistory(_ context.Context, itemID string, changeType string, limit int) ([]domain.InventoryHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.InventoryHistory, 0, 16)
	for _, entry := range s.inventoryHistory {
		if itemID != "" && entry.ItemID != itemID {
			continue
		}
		if changeType != "" && entry.Type != changeType {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.InventoryHistory) int {
		if a.Date.Equal(b.Date) {
			return cmpString(b.ID, a.ID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.SaleInput) (*domain.Order, error) {
	if len(sale.Lines) == 0 || sale.CashierID == "" {
		return nil, store.ErrInvalidRequest
	}
	if sale.Breakdown != nil && sale.Shopper == nil {
		return nil, store.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Resolve and validate every line before touching stock so a failure
	// on line k leaves lines 1..k-1 untouched.
	type resolvedLine struct {
		itemID    string
		sizeIdx   int
		quantity  int
		unitPrice float64
		discount  float64
		total     float64
	}
	resolved := make([]resolvedLine, 0, len(sale.Lines))
	lineTotals := make([]float64, 0, len(sale.Lines))
	// Lines may repeat the same size, so sufficiency is checked against the
	// stock left after the earlier lines of this request.
	requested := make(map[string]int)
	for _, line := range sale.Lines {
		if line.Quantity <= 0 {
			return nil, store.ErrInvalidRequest
		}
		item, exists := s.itemsByID[line.ItemID]
		if !exists {
			return nil, store.ErrNotFound
		}
		idx := -1
		for i, size := range item.Sizes {
			if size.SizeLabel == line.SizeLabel {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, store.ErrNotFound
		}
		size := item.Sizes[idx]
		sizeKey := line.ItemID + "/" + line.SizeLabel
		if size.Stock-requested[sizeKey] < line.Quantity {
			return nil, store.ErrInsufficientStock
		}
		requested[sizeKey] += line.Quantity

		var category *domain.Category
		if item.CategoryID != "" {
			if c, ok := s.categoriesByID[item.CategoryID]; ok {
				category = &c
			}
		}
		discount := pricing.EffectiveDiscount(size, category)
		total := pricing.LineTotal(size.Price, discount, line.Quantity)
		resolved = append(resolved, resolvedLine{
			itemID:    line.ItemID,
			sizeIdx:   idx,
			quantity:  line.Quantity,
			unitPrice: size.Price,
			discount:  discount,
			total:     total,
		})
		lineTotals = append(lineTotals, total)
	}
	total := pricing.OrderTotal(lineTotals)

	var prevBalance domain.BalanceSummary
	if sale.Shopper != nil {
		prevBalance = ledger.Balance(s.duesByShopper[sale.Shopper.ID])
	}
	if sale.Breakdown != nil {
		if err := checkBreakdownAgainstTotals(*sale.Breakdown, total, prevBalance.DuesBalance); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:            uuid.NewString(),
		TransactionID: strconv.FormatInt(s.nextNumericTransactionID(), 10),
		Date:          now,
		Amount:        total,
		Details:       sale.Details,
		CashierID:     sale.CashierID,
		IsPaid:        sale.IsPaid,
		PaymentAmount: sale.PaymentAmount,
	}
	if sale.Shopper != nil {
		order.ShopperID = sale.Shopper.ID
	}

	for _, line := range resolved {
		item := s.itemsByID[line.itemID]
		item.Sizes[line.sizeIdx].Stock -= line.quantity
		s.itemsByID[line.itemID] = item

		orderItem := domain.OrderItem{
			ID:              uuid.NewString(),
			OrderID:         order.ID,
			ItemID:          line.itemID,
			SizeLabel:       item.Sizes[line.sizeIdx].SizeLabel,
			Quantity:        line.quantity,
			PriceAtPurchase: line.unitPrice,
			DiscountApplied: line.discount,
		}
		order.Items = append(order.Items, orderItem)
		s.inventoryHistory = append(s.inventoryHistory, domain.InventoryHistory{
			ID:            uuid.NewString(),
			ItemID:        line.itemID,
			Change:        -line.quantity,
			Type:          domain.InventoryChangeSale,
			Description:   "Sale via cashier",
			OrderItemID:   orderItem.ID,
			PerformedByID: sale.CashierID,
			Date:          now,
		})
	}

	s.ordersByID[order.ID] = order
	if sale.Shopper != nil {
		s.appendSaleDues(sale, order, total, now)
	}

	created := cloneOrder(*order)
	return &created, nil
}

// appendSaleDues writes the signed ledger rows for a sale. Callers hold the
// write lock.
func (s *Store) appendSaleDues(sale domain.SaleInput, order *domain.Order, total float64, now time.Time) {
	shopperID := sale.Shopper.ID
	add := func(amount float64, orderID string, description string) {
		if amount == 0 {
			return
		}
		s.duesByShopper[shopperID] = append(s.duesByShopper[shopperID], domain.Due{
			ID:          uuid.NewString(),
			ShopperID:   shopperID,
			OrderID:     orderID,
			Amount:      amount,
			Description: description,
			CreatedAt:   now,
		})
	}

	if sale.Breakdown == nil {
		if !sale.IsPaid {
			add(total, order.ID, fmt.Sprintf("Unpaid order %s", order.TransactionID))
		}
		return
	}

	b := sale.Breakdown
	if b.DuesPayment > 0 {
		add(-b.DuesPayment, "", fmt.Sprintf("Payment toward previous dues with order %s", order.TransactionID))
	}
	if b.RemainingOrderBalance > 0 {
		add(b.RemainingOrderBalance, order.ID, fmt.Sprintf("Unpaid balance for order %s", order.TransactionID))
	}
	if b.AdvancePayment > 0 {
		add(-b.AdvancePayment, "", fmt.Sprintf("Advance credit stored with order %s", order.TransactionID))
	}
	if b.CreditUsed > 0 {
		add(b.CreditUsed, order.ID, fmt.Sprintf("Advance credit used for order %s", order.TransactionID))
	}
}

func (s *Store) CreateReturn(_ context.Context, ret domain.ReturnInput) (*domain.ReturnReceipt, error) {
	if !ret.ReturnFullOrder && len(ret.Lines) == 0 {
		return nil, store.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	original, exists := s.ordersByID[ret.OrderID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if strings.HasPrefix(original.TransactionID, "RETURN_") {
		return nil, store.ErrInvalidRequest
	}

	type resolvedReturn struct {
		line     domain.OrderItem
		quantity int
		sizeIdx  int
	}
	var resolved []resolvedReturn

	if ret.ReturnFullOrder {
		for _, line := range original.Items {
			if line.Quantity <= 0 {
				continue
			}
			remaining := line.Quantity - s.returnedQuantity(line.ID)
			if remaining <= 0 {
				continue
			}
			resolved = append(resolved, resolvedReturn{line: line, quantity: remaining})
		}
	} else {
		// Requests may repeat an order line; the remaining returnable
		// quantity shrinks with every earlier entry of this request.
		pending := make(map[string]int)
		for _, req := range ret.Lines {
			if req.Quantity <= 0 {
				return nil, store.ErrInvalidRequest
			}
			var line *domain.OrderItem
			for i := range original.Items {
				if original.Items[i].ID == req.OrderItemID {
					line = &original.Items[i]
					break
				}
			}
			if line == nil {
				return nil, store.ErrNotFound
			}
			if line.Quantity-s.returnedQuantity(line.ID) <= 0 {
				return nil, store.ErrAlreadyReturned
			}
			remaining := line.Quantity - s.returnedQuantity(line.ID) - pending[line.ID]
			if req.Quantity > remaining {
				return nil, store.ErrInvalidReturnQuantity
			}
			pending[line.ID] += req.Quantity
			resolved = append(resolved, resolvedReturn{line: *line, quantity: req.Quantity})
		}
	}

	receipt := &domain.ReturnReceipt{ReturnedItems: []domain.OrderItem{}}
	if original.ShopperID != "" {
		before := ledger.Balance(s.duesByShopper[original.ShopperID])
		receipt.BalanceBefore = &before
	}

	// Fully settled already: a repeated full-order return is a safe no-op.
	if len(resolved) == 0 {
		if receipt.BalanceBefore != nil {
			after := *receipt.BalanceBefore
			receipt.BalanceAfter = &after
		}
		return receipt, nil
	}

	// Locate every size before mutating; a missing size is fatal to the
	// whole request.
	for i := range resolved {
		item, ok := s.itemsByID[resolved[i].line.ItemID]
		if !ok {
			return nil, store.ErrNotFound
		}
		idx := -1
		for j, size := range item.Sizes {
			if size.SizeLabel == resolved[i].line.SizeLabel {
				idx = j
				break
			}
		}
		if idx == -1 {
			return nil, store.ErrNotFound
		}
		resolved[i].sizeIdx = idx
	}

	now := time.Now().UTC()
	reason := strings.TrimSpace(ret.Reason)
	if reason == "" {
		reason = "Customer return"
	}

	returnOrder := &domain.Order{
		ID:            uuid.NewString(),
		TransactionID: fmt.Sprintf("RETURN_%s_%d", original.TransactionID, s.returnSequence(original.TransactionID)),
		Date:          now,
		Details:       reason,
		CashierID:     ret.CashierID,
		ShopperID:     original.ShopperID,
		IsPaid:        true,
	}

	var refundTotal float64
	for _, r := range resolved {
		item := s.itemsByID[r.line.ItemID]
		item.Sizes[r.sizeIdx].Stock += r.quantity
		s.itemsByID[r.line.ItemID] = item

		s.inventoryHistory = append(s.inventoryHistory, domain.InventoryHistory{
			ID:            uuid.NewString(),
			ItemID:        r.line.ItemID,
			Change:        r.quantity,
			Type:          domain.InventoryChangeCorrection,
			Description:   fmt.Sprintf("Return: %s", reason),
			OrderItemID:   r.line.ID,
			PerformedByID: ret.CashierID,
			Date:          now,
		})

		refund := pricing.LineRefund(r.line, r.quantity)
		refundTotal += refund
		returnOrder.Items = append(returnOrder.Items, domain.OrderItem{
			ID:              uuid.NewString(),
			OrderID:         returnOrder.ID,
			ItemID:          r.line.ItemID,
			SizeLabel:       r.line.SizeLabel,
			Quantity:        -r.quantity,
			PriceAtPurchase: r.line.PriceAtPurchase,
			DiscountApplied: r.line.DiscountApplied,
		})
	}

	returnOrder.Amount = -refundTotal
	s.ordersByID[returnOrder.ID] = returnOrder

	receipt.RefundTotal = refundTotal
	receipt.ReturnedItems = returnOrder.Items
	created := cloneOrder(*returnOrder)
	receipt.ReturnOrder = &created

	if original.ShopperID == "" {
		receipt.Allocation = domain.RefundAllocation{CashRefund: refundTotal}
		return receipt, nil
	}

	alloc := ledger.AllocateRefund(receipt.BalanceBefore.DuesBalance, refundTotal, ret.RefundMethod)
	receipt.Allocation = alloc
	if alloc.AppliedToDues > 0 {
		s.duesByShopper[original.ShopperID] = append(s.duesByShopper[original.ShopperID], domain.Due{
			ID:          uuid.NewString(),
			ShopperID:   original.ShopperID,
			OrderID:     returnOrder.ID,
			Amount:      -alloc.AppliedToDues,
			Description: fmt.Sprintf("Refund applied to dues for %s", returnOrder.TransactionID),
			CreatedAt:   now,
		})
	}
	if alloc.AddedToAdvance > 0 {
		s.duesByShopper[original.ShopperID] = append(s.duesByShopper[original.ShopperID], domain.Due{
			ID:          uuid.NewString(),
			ShopperID:   original.ShopperID,
			OrderID:     returnOrder.ID,
			Amount:      -alloc.AddedToAdvance,
			Description: fmt.Sprintf("Refund stored as advance credit for %s", returnOrder.TransactionID),
			CreatedAt:   now,
		})
	}
	after := ledger.Balance(s.duesByShopper[original.ShopperID])
	receipt.BalanceAfter = &after
	return receipt, nil
}

func (s *Store) GetOrder(_ context.Context, orderID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.ordersByID[orderID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyOrder := cloneOrder(*order)
	return &copyOrder, nil
}

func (s *Store) ListOrders(_ context.Context, limit int) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.Order, 0, len(s.ordersByID))
	for _, order := range s.ordersByID {
		orders = append(orders, cloneOrder(*order))
	}
	sortOrdersNewestFirst(orders)
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *Store) ListOrdersByShopper(_ context.Context, shopperID string) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.Order, 0, 8)
	for _, order := range s.ordersByID {
		if order.ShopperID != shopperID {
			continue
		}
		orders = append(orders, cloneOrder(*order))
	}
	sortOrdersNewestFirst(orders)
	return orders, nil
}

func (s *Store) CreateShopper(_ context.Context, shopper domain.Shopper) (*domain.Shopper, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := strings.TrimSpace(shopper.CustomerCode)
	if code == "" || strings.TrimSpace(shopper.Name) == "" {
		return nil, store.ErrInvalidRequest
	}
	for _, existing := range s.shoppersByID {
		if existing.CustomerCode == code {
			return nil, store.ErrInvalidRequest
		}
	}

	shopper.CustomerCode = code
	if shopper.ID == "" {
		shopper.ID = uuid.NewString()
	}
	if shopper.CreatedAt.IsZero() {
		shopper.CreatedAt = time.Now().UTC()
	}
	s.shoppersByID[shopper.ID] = shopper
	created := shopper
	return &created, nil
}

func (s *Store) ListShoppers(_ context.Context) ([]domain.Shopper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shoppers := make([]domain.Shopper, 0, len(s.shoppersByID))
	for _, shopper := range s.shoppersByID {
		shoppers = append(shoppers, shopper)
	}
	slices.SortFunc(shoppers, func(a, b domain.Shopper) int {
		return cmpString(a.CustomerCode, b.CustomerCode)
	})
	return shoppers, nil
}

func (s *Store) GetShopperByCode(_ context.Context, customerCode string) (*domain.Shopper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, shopper := range s.shoppersByID {
		if shopper.CustomerCode == customerCode {
			copyShopper := shopper
			return &copyShopper, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateDue(_ context.Context, due domain.Due) (*domain.Due, error) {
	if due.Amount == 0 {
		return nil, store.ErrInvalidRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.shoppersByID[due.ShopperID]; !exists {
		return nil, store.ErrNotFound
	}
	if due.ID == "" {
		due.ID = uuid.NewString()
	}
	if due.CreatedAt.IsZero() {
		due.CreatedAt = time.Now().UTC()
	}
	s.duesByShopper[due.ShopperID] = append(s.duesByShopper[due.ShopperID], due)
	created := due
	return &created, nil
}

func (s *Store) ListDues(_ context.Context, shopperID string) ([]domain.Due, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.shoppersByID[shopperID]; !exists {
		return nil, store.ErrNotFound
	}
	dues := s.duesByShopper[shopperID]
	result := make([]domain.Due, len(dues))
	copy(result, dues)
	return result, nil
}

func (s *Store) GetDashboardSummary(_ context.Context, from time.Time, to time.Time, lowStockThreshold int) (*domain.DashboardSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &domain.DashboardSummary{From: from, To: to, LowStock: []domain.LowStockSize{}}
	for _, order := range s.ordersByID {
		if order.Date.Before(from) || order.Date.After(to) {
			continue
		}
		if strings.HasPrefix(order.TransactionID, "RETURN_") {
			summary.ReturnsTotal += -order.Amount
			continue
		}
		summary.OrdersCount++
		summary.GrossSales += order.Amount
	}
	for shopperID := range s.shoppersByID {
		balance := ledger.Balance(s.duesByShopper[shopperID])
		summary.OutstandingDues += balance.DuesBalance
	}
	for _, item := range s.itemsByID {
		for _, size := range item.Sizes {
			if size.Stock <= lowStockThreshold {
				summary.LowStock = append(summary.LowStock, domain.LowStockSize{
					ItemID:    item.ID,
					ItemName:  item.Name,
					SizeLabel: size.SizeLabel,
					Stock:     size.Stock,
				})
			}
		}
	}
	slices.SortFunc(summary.LowStock, func(a, b domain.LowStockSize) int {
		if a.Stock != b.Stock {
			return a.Stock - b.Stock
		}
		return cmpString(a.ItemName, b.ItemName)
	})
	return summary, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || user.Password == "" {
		return store.ErrInvalidRequest
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidRequest
	}
	user.Username = username
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByUsername[strings.ToLower(strings.TrimSpace(username))]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyUser := user
	return &copyUser, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(username))
	user, exists := s.usersByUsername[key]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[key] = user
	return nil
}

// returnedQuantity sums the correction-type ledger rows pointing at one
// order line. Callers hold at least the read lock.
func (s *Store) returnedQuantity(orderItemID string) int {
	var total int
	for _, entry := range s.inventoryHistory {
		if entry.Type == domain.InventoryChangeCorrection && entry.OrderItemID == orderItemID {
			total += entry.Change
		}
	}
	return total
}

// nextNumericTransactionID returns the next integer strictly greater than
// max(999, highest purely-numeric transaction id). Return ids and other
// non-numeric ids are ignored. Callers hold the write lock.
func (s *Store) nextNumericTransactionID() int64 {
	var max int64 = 999
	for _, order := range s.ordersByID {
		n, err := strconv.ParseInt(order.TransactionID, 10, 64)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1
}

// returnSequence counts prior returns against an original transaction and
// returns the next sequence number. Callers hold the write lock.
func (s *Store) returnSequence(originalTransactionID string) int {
	prefix := fmt.Sprintf("RETURN_%s_", originalTransactionID)
	count := 0
	for _, order := range s.ordersByID {
		if strings.HasPrefix(order.TransactionID, prefix) {
			count++
		}
	}
	return count + 1
}

func checkBreakdownAgainstTotals(b domain.PaymentBreakdown, orderTotal float64, previousDues float64) error {
	expectedOrderBalance := orderTotal - b.OrderPayment - b.CreditUsed
	if expectedOrderBalance < 0 {
		expectedOrderBalance = 0
	}
	if math.Abs(expectedOrderBalance-b.RemainingOrderBalance) > ledger.BreakdownEpsilon {
		return store.ErrInconsistentPayment
	}
	expectedDues := previousDues - b.DuesPayment
	if math.Abs(expectedDues-b.RemainingDues) > ledger.BreakdownEpsilon {
		return store.ErrInconsistentPayment
	}
	return nil
}

func correctionDescription(previousStock int, change int, reason string) string {
	description := fmt.Sprintf("Correction: %s", strings.TrimSpace(reason))
	pct := 100.0
	if previousStock > 0 {
		pct = math.Abs(float64(change)) / float64(previousStock) * 100
	}
	if pct > 20 {
		description = fmt.Sprintf("LARGE ADJUSTMENT (%.1f%% change) - %s", pct, description)
	}
	return description
}

func cloneItem(item domain.Item) domain.Item {
	copyItem := item
	copyItem.Sizes = make([]domain.ItemSize, len(item.Sizes))
	copy(copyItem.Sizes, item.Sizes)
	return copyItem
}

func cloneOrder(order domain.Order) domain.Order {
	copyOrder := order
	copyOrder.Items = make([]domain.OrderItem, len(order.Items))
	copy(copyOrder.Items, order.Items)
	return copyOrder
}

func sortOrdersNewestFirst(orders []domain.Order) {
	slices.SortFunc(orders, func(a, b domain.Order) int {
		if a.Date.Equal(b.Date) {
			return cmpString(b.TransactionID, a.TransactionID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

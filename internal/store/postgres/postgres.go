package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tokopos/backend/internal/domain"
	"tokopos/backend/internal/ledger"
	"tokopos/backend/internal/pricing"
	"tokopos/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return nil, store.ErrInvalidRequest
	}
	if category.Discount != nil && (*category.Discount < 0 || *category.Discount > 100) {
		return nil, store.ErrInvalidRequest
	}
	if category.ID == "" {
		category.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, discount)
		VALUES ($1,$2,$3)
	`, category.ID, category.Name, nullFloat(category.Discount))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}

	created := category
	return &created, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, discount
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 16)
	for rows.Next() {
		var c domain.Category
		var discount sql.NullFloat64
		if err := rows.Scan(&c.ID, &c.Name, &discount); err != nil {
			return nil, err
		}
		if discount.Valid {
			d := discount.Float64
			c.Discount = &d
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return categories, nil
}

func (s *Store) GetCategory(ctx context.Context, categoryID string) (*domain.Category, error) {
	var c domain.Category
	var discount sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, discount
		FROM categories
		WHERE id = $1
	`, categoryID).Scan(&c.ID, &c.Name, &discount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if discount.Valid {
		d := discount.Float64
		c.Discount = &d
	}
	return &c, nil
}

func (s *Store) CreateItem(ctx context.Context, item domain.Item, performedByID string) (*domain.Item, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" || len(item.Sizes) == 0 {
		return nil, store.ErrInvalidRequest
	}
	labels := make(map[string]bool, len(item.Sizes))
	for i := range item.Sizes {
		label := strings.TrimSpace(item.Sizes[i].SizeLabel)
		if label == "" || item.Sizes[i].Price <= 0 || item.Sizes[i].Stock < 0 || labels[label] {
			return nil, store.ErrInvalidRequest
		}
		if item.Sizes[i].Discount != nil && (*item.Sizes[i].Discount < 0 || *item.Sizes[i].Discount > 100) {
			return nil, store.ErrInvalidRequest
		}
		labels[label] = true
		item.Sizes[i].SizeLabel = label
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.CreatedAt = now

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if item.CategoryID != "" {
		var exists bool
		err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)
		`, item.CategoryID).Scan(&exists)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, store.ErrNotFound
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO items (id, name, image_url, category_id, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, item.ID, item.Name, nullIfEmpty(item.ImageURL), nullIfEmpty(item.CategoryID), now)
	if err != nil {
		return nil, err
	}

	for i := range item.Sizes {
		item.Sizes[i].ID = uuid.NewString()
		item.Sizes[i].ItemID = item.ID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO item_sizes (id, item_id, size_label, price, discount, stock)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, item.Sizes[i].ID, item.ID, item.Sizes[i].SizeLabel, item.Sizes[i].Price,
			nullFloat(item.Sizes[i].Discount), item.Sizes[i].Stock)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, store.ErrInvalidRequest
			}
			return nil, err
		}
		if item.Sizes[i].Stock > 0 {
			if err := insertInventoryHistory(ctx, tx, domain.InventoryHistory{
				ItemID:        item.ID,
				Change:        item.Sizes[i].Stock,
				Type:          domain.InventoryChangeRestock,
				Description:   "Initial stock",
				PerformedByID: performedByID,
				Date:          now,
			}); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := item
	return &created, nil
}

func (s *Store) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	items, err := s.loadItems(ctx, `WHERE i.id = $1`, itemID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, store.ErrNotFound
	}
	return &items[0], nil
}

func (s *Store) ListItems(ctx context.Context, search string, categoryID string, limit int) ([]domain.Item, error) {
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(i.name) LIKE $%d", len(args)))
	}
	if categoryID != "" {
		args = append(args, categoryID)
		clauses = append(clauses, fmt.Sprintf("i.category_id = $%d", len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}

	items, err := s.loadItems(ctx, where, args...)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) loadItems(ctx context.Context, where string, args ...any) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT i.id, i.name, i.image_url, i.category_id, i.created_at
		FROM items i
		%s
		ORDER BY i.name
	`, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0, 32)
	itemIDs := make([]string, 0, 32)
	for rows.Next() {
		var item domain.Item
		var imageURL, catID sql.NullString
		if err := rows.Scan(&item.ID, &item.Name, &imageURL, &catID, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.ImageURL = imageURL.String
		item.CategoryID = catID.String
		item.Sizes = []domain.ItemSize{}
		items = append(items, item)
		itemIDs = append(itemIDs, item.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}

	sizeRows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, size_label, price, discount, stock
		FROM item_sizes
		WHERE item_id = ANY($1)
		ORDER BY size_label
	`, itemIDs)
	if err != nil {
		return nil, err
	}
	defer sizeRows.Close()

	sizesByItem := make(map[string][]domain.ItemSize, len(items))
	for sizeRows.Next() {
		var size domain.ItemSize
		var discount sql.NullFloat64
		if err := sizeRows.Scan(&size.ID, &size.ItemID, &size.SizeLabel, &size.Price, &discount, &size.Stock); err != nil {
			return nil, err
		}
		if discount.Valid {
			d := discount.Float64
			size.Discount = &d
		}
		sizesByItem[size.ItemID] = append(sizesByItem[size.ItemID], size)
	}
	if err := sizeRows.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		if sizes, ok := sizesByItem[items[i].ID]; ok {
			items[i].Sizes = sizes
		}
	}
	return items, nil
}

func (s *Store) UpdateItemSize(ctx context.Context, itemID string, sizeLabel string, update domain.ItemSizeUpdateRequest, performedByID string) (*domain.ItemSize, error) {
	if update.Price != nil && *update.Price <= 0 {
		return nil, store.ErrInvalidRequest
	}
	if update.Discount != nil && (*update.Discount < 0 || *update.Discount > 100) {
		return nil, store.ErrInvalidRequest
	}
	if update.Stock != nil && *update.Stock < 0 {
		return nil, store.ErrInvalidRequest
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var size domain.ItemSize
	var discount sql.NullFloat64
	err = tx.QueryRowContext(ctx, `
		SELECT id, item_id, size_label, price, discount, stock
		FROM item_sizes
		WHERE item_id = $1 AND size_label = $2
		FOR UPDATE
	`, itemID, sizeLabel).Scan(&size.ID, &size.ItemID, &size.SizeLabel, &size.Price, &discount, &size.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if discount.Valid {
		d := discount.Float64
		size.Discount = &d
	}

	if update.Price != nil {
		size.Price = *update.Price
	}
	if update.Discount != nil {
		size.Discount = update.Discount
	}
	if update.Stock != nil && *update.Stock != size.Stock {
		if strings.TrimSpace(update.CorrectionReason) == "" {
			return nil, store.ErrInvalidRequest
		}
		change := *update.Stock - size.Stock
		if err := insertInventoryHistory(ctx, tx, domain.InventoryHistory{
			ItemID:        itemID,
			Change:        change,
			Type:          domain.InventoryChangeCorrection,
			Description:   correctionDescription(size.Stock, change, update.CorrectionReason),
			PerformedByID: performedByID,
			Date:          time.Now().UTC(),
		}); err != nil {
			return nil, err
		}
		size.Stock = *update.Stock
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE item_sizes
		SET price = $2, discount = $3, stock = $4
		WHERE id = $1
	`, size.ID, size.Price, nullFloat(size.Discount), size.Stock)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &size, nil
}

func (s *Store) RestockItemSize(ctx context.Context, itemID string, sizeLabel string, quantity int, description string, performedByID string) (*domain.ItemSize, error) {
	if quantity <= 0 {
		return nil, store.ErrInvalidRequest
	}
	if strings.TrimSpace(description) == "" {
		description = "Restock"
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var size domain.ItemSize
	var discount sql.NullFloat64
	err = tx.QueryRowContext(ctx, `
		UPDATE item_sizes
		SET stock = stock + $3
		WHERE item_id = $1 AND size_label = $2
		RETURNING id, item_id, size_label, price, discount, stock
	`, itemID, sizeLabel, quantity).Scan(&size.ID, &size.ItemID, &size.SizeLabel, &size.Price, &discount, &size.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if discount.Valid {
		d := discount.Float64
		size.Discount = &d
	}

	if err := insertInventoryHistory(ctx, tx, domain.InventoryHistory{
		ItemID:        itemID,
		Change:        quantity,
		Type:          domain.InventoryChangeRestock,
		Description:   description,
		PerformedByID: performedByID,
		Date:          time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &size, nil
}

func (s *Store) ListInventoryHistory(ctx context.Context, itemID string, changeType string, limit int) ([]domain.InventoryHistory, error) {
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if itemID != "" {
		args = append(args, itemID)
		clauses = append(clauses, fmt.Sprintf("item_id = $%d", len(args)))
	}
	if changeType != "" {
		args = append(args, changeType)
		clauses = append(clauses, fmt.Sprintf("type = $%d", len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, item_id, change, type, description, order_item_id, performed_by_id, date
		FROM inventory_history
		%s
		ORDER BY date DESC, id DESC
		LIMIT $%d
	`, where, len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.InventoryHistory, 0, 32)
	for rows.Next() {
		var entry domain.InventoryHistory
		var description, orderItemID sql.NullString
		if err := rows.Scan(&entry.ID, &entry.ItemID, &entry.Change, &entry.Type, &description, &orderItemID, &entry.PerformedByID, &entry.Date); err != nil {
			return nil, err
		}
		entry.Description = description.String
		entry.OrderItemID = orderItemID.String
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.SaleInput) (*domain.Order, error) {
	if len(sale.Lines) == 0 || sale.CashierID == "" {
		return nil, store.ErrInvalidRequest
	}
	if sale.Breakdown != nil && sale.Shopper == nil {
		return nil, store.ErrInvalidRequest
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	type resolvedLine struct {
		itemID    string
		sizeLabel string
		quantity  int
		unitPrice float64
		discount  float64
	}
	resolved := make([]resolvedLine, 0, len(sale.Lines))
	lineTotals := make([]float64, 0, len(sale.Lines))
	// Lines may repeat the same size; the locked row reports the same stock
	// every time, so sufficiency is checked against the running request total.
	requested := make(map[string]int)
	for _, line := range sale.Lines {
		if line.Quantity <= 0 {
			return nil, store.ErrInvalidRequest
		}

		var sizeID string
		var price float64
		var sizeDiscount sql.NullFloat64
		var stock int
		var categoryID sql.NullString
		err := tx.QueryRowContext(ctx, `
			SELECT s.id, s.price, s.discount, s.stock, i.category_id
			FROM item_sizes s
			JOIN items i ON i.id = s.item_id
			WHERE s.item_id = $1 AND s.size_label = $2
			FOR UPDATE OF s
		`, line.ItemID, line.SizeLabel).Scan(&sizeID, &price, &sizeDiscount, &stock, &categoryID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, store.ErrNotFound
			}
			return nil, err
		}
		sizeKey := line.ItemID + "/" + line.SizeLabel
		if stock-requested[sizeKey] < line.Quantity {
			return nil, store.ErrInsufficientStock
		}
		requested[sizeKey] += line.Quantity

		size := domain.ItemSize{Price: price}
		if sizeDiscount.Valid {
			d := sizeDiscount.Float64
			size.Discount = &d
		}
		var category *domain.Category
		if categoryID.Valid {
			var catDiscount sql.NullFloat64
			err := tx.QueryRowContext(ctx, `
				SELECT discount FROM categories WHERE id = $1
			`, categoryID.String).Scan(&catDiscount)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, err
			}
			if err == nil && catDiscount.Valid {
				d := catDiscount.Float64
				category = &domain.Category{ID: categoryID.String, Discount: &d}
			}
		}

		discount := pricing.EffectiveDiscount(size, category)
		resolved = append(resolved, resolvedLine{
			itemID:    line.ItemID,
			sizeLabel: line.SizeLabel,
			quantity:  line.Quantity,
			unitPrice: price,
			discount:  discount,
		})
		lineTotals = append(lineTotals, pricing.LineTotal(price, discount, line.Quantity))
	}
	total := pricing.OrderTotal(lineTotals)

	var previousDues float64
	if sale.Shopper != nil {
		previousDues, err = lockShopperDuesBalance(ctx, tx, sale.Shopper.ID)
		if err != nil {
			return nil, err
		}
	}
	if sale.Breakdown != nil {
		if err := checkBreakdownAgainstTotals(*sale.Breakdown, total, positivePart(previousDues)); err != nil {
			return nil, err
		}
	}

	var nextID int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(transaction_id::bigint), 999)
		FROM orders
		WHERE transaction_id ~ '^[0-9]+$'
	`).Scan(&nextID)
	if err != nil {
		return nil, err
	}
	nextID++

	now := time.Now().UTC()
	order := domain.Order{
		ID:            uuid.NewString(),
		TransactionID: fmt.Sprintf("%d", nextID),
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

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, transaction_id, date, amount, details, cashier_id, shopper_id, is_paid, payment_amount)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, order.ID, order.TransactionID, order.Date, order.Amount, nullIfEmpty(order.Details),
		order.CashierID, nullIfEmpty(order.ShopperID), order.IsPaid, nullFloat(order.PaymentAmount))
	if err != nil {
		return nil, err
	}

	for _, line := range resolved {
		// The stock >= quantity guard keeps the column non-negative even if
		// the pre-checked value went stale.
		res, err := tx.ExecContext(ctx, `
			UPDATE item_sizes
			SET stock = stock - $1
			WHERE item_id = $2 AND size_label = $3 AND stock >= $1
		`, line.quantity, line.itemID, line.sizeLabel)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, store.ErrInsufficientStock
		}

		orderItem := domain.OrderItem{
			ID:              uuid.NewString(),
			OrderID:         order.ID,
			ItemID:          line.itemID,
			SizeLabel:       line.sizeLabel,
			Quantity:        line.quantity,
			PriceAtPurchase: line.unitPrice,
			DiscountApplied: line.discount,
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, item_id, size_label, quantity, price_at_purchase, discount_applied)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, orderItem.ID, orderItem.OrderID, orderItem.ItemID, orderItem.SizeLabel,
			orderItem.Quantity, orderItem.PriceAtPurchase, orderItem.DiscountApplied)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, orderItem)

		if err := insertInventoryHistory(ctx, tx, domain.InventoryHistory{
			ItemID:        line.itemID,
			Change:        -line.quantity,
			Type:          domain.InventoryChangeSale,
			Description:   "Sale via cashier",
			OrderItemID:   orderItem.ID,
			PerformedByID: sale.CashierID,
			Date:          now,
		}); err != nil {
			return nil, err
		}
	}

	if sale.Shopper != nil {
		if err := insertSaleDues(ctx, tx, sale, order, total, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &order, nil
}

func insertSaleDues(ctx context.Context, tx *sql.Tx, sale domain.SaleInput, order domain.Order, total float64, now time.Time) error {
	add := func(amount float64, orderID string, description string) error {
		if amount == 0 {
			return nil
		}
		return insertDue(ctx, tx, domain.Due{
			ShopperID:   sale.Shopper.ID,
			OrderID:     orderID,
			Amount:      amount,
			Description: description,
			CreatedAt:   now,
		})
	}

	if sale.Breakdown == nil {
		if !sale.IsPaid {
			return add(total, order.ID, fmt.Sprintf("Unpaid order %s", order.TransactionID))
		}
		return nil
	}

	b := sale.Breakdown
	if b.DuesPayment > 0 {
		if err := add(-b.DuesPayment, "", fmt.Sprintf("Payment toward previous dues with order %s", order.TransactionID)); err != nil {
			return err
		}
	}
	if b.RemainingOrderBalance > 0 {
		if err := add(b.RemainingOrderBalance, order.ID, fmt.Sprintf("Unpaid balance for order %s", order.TransactionID)); err != nil {
			return err
		}
	}
	if b.AdvancePayment > 0 {
		if err := add(-b.AdvancePayment, "", fmt.Sprintf("Advance credit stored with order %s", order.TransactionID)); err != nil {
			return err
		}
	}
	if b.CreditUsed > 0 {
		if err := add(b.CreditUsed, order.ID, fmt.Sprintf("Advance credit used for order %s", order.TransactionID)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) CreateReturn(ctx context.Context, ret domain.ReturnInput) (*domain.ReturnReceipt, error) {
	if !ret.ReturnFullOrder && len(ret.Lines) == 0 {
		return nil, store.ErrInvalidRequest
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Locking the original order row serializes concurrent returns against
	// the same order, so returned-quantity sums cannot race.
	var original domain.Order
	var details, shopperID sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT id, transaction_id, date, amount, details, cashier_id, shopper_id
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, ret.OrderID).Scan(&original.ID, &original.TransactionID, &original.Date, &original.Amount,
		&details, &original.CashierID, &shopperID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	original.Details = details.String
	original.ShopperID = shopperID.String
	if strings.HasPrefix(original.TransactionID, "RETURN_") {
		return nil, store.ErrInvalidRequest
	}

	itemRows, err := tx.QueryContext(ctx, `
		SELECT id, order_id, item_id, size_label, quantity, price_at_purchase, discount_applied
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, original.ID)
	if err != nil {
		return nil, err
	}
	for itemRows.Next() {
		var line domain.OrderItem
		if err := itemRows.Scan(&line.ID, &line.OrderID, &line.ItemID, &line.SizeLabel,
			&line.Quantity, &line.PriceAtPurchase, &line.DiscountApplied); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		original.Items = append(original.Items, line)
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return nil, err
	}
	_ = itemRows.Close()

	returnedByLine, err := returnedQuantities(ctx, tx, original.Items)
	if err != nil {
		return nil, err
	}

	type resolvedReturn struct {
		line     domain.OrderItem
		quantity int
	}
	var resolved []resolvedReturn
	if ret.ReturnFullOrder {
		for _, line := range original.Items {
			if line.Quantity <= 0 {
				continue
			}
			remaining := line.Quantity - returnedByLine[line.ID]
			if remaining <= 0 {
				continue
			}
			resolved = append(resolved, resolvedReturn{line: line, quantity: remaining})
		}
	} else {
		byID := make(map[string]domain.OrderItem, len(original.Items))
		for _, line := range original.Items {
			byID[line.ID] = line
		}
		// Requests may repeat an order line; the remaining returnable
		// quantity shrinks with every earlier entry of this request.
		pending := make(map[string]int)
		for _, req := range ret.Lines {
			if req.Quantity <= 0 {
				return nil, store.ErrInvalidRequest
			}
			line, exists := byID[req.OrderItemID]
			if !exists {
				return nil, store.ErrNotFound
			}
			if line.Quantity-returnedByLine[line.ID] <= 0 {
				return nil, store.ErrAlreadyReturned
			}
			remaining := line.Quantity - returnedByLine[line.ID] - pending[line.ID]
			if req.Quantity > remaining {
				return nil, store.ErrInvalidReturnQuantity
			}
			pending[line.ID] += req.Quantity
			resolved = append(resolved, resolvedReturn{line: line, quantity: req.Quantity})
		}
	}

	receipt := &domain.ReturnReceipt{ReturnedItems: []domain.OrderItem{}}
	if original.ShopperID != "" {
		balance, err := lockShopperDuesBalance(ctx, tx, original.ShopperID)
		if err != nil {
			return nil, err
		}
		before := balanceSummary(balance)
		receipt.BalanceBefore = &before
	}

	// Nothing left to return: a repeated full-order return is a safe no-op.
	if len(resolved) == 0 {
		if receipt.BalanceBefore != nil {
			after := *receipt.BalanceBefore
			receipt.BalanceAfter = &after
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return receipt, nil
	}

	now := time.Now().UTC()
	reason := strings.TrimSpace(ret.Reason)
	if reason == "" {
		reason = "Customer return"
	}

	var priorReturns int
	prefix := fmt.Sprintf("RETURN_%s_", original.TransactionID)
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM orders
		WHERE left(transaction_id, length($1)) = $1
	`, prefix).Scan(&priorReturns)
	if err != nil {
		return nil, err
	}

	returnOrder := domain.Order{
		ID:            uuid.NewString(),
		TransactionID: fmt.Sprintf("%s%d", prefix, priorReturns+1),
		Date:          now,
		Details:       reason,
		CashierID:     ret.CashierID,
		ShopperID:     original.ShopperID,
		IsPaid:        true,
	}

	var refundTotal float64
	returnItems := make([]domain.OrderItem, 0, len(resolved))
	for _, r := range resolved {
		res, err := tx.ExecContext(ctx, `
			UPDATE item_sizes
			SET stock = stock + $1
			WHERE item_id = $2 AND size_label = $3
		`, r.quantity, r.line.ItemID, r.line.SizeLabel)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, store.ErrNotFound
		}

		if err := insertInventoryHistory(ctx, tx, domain.InventoryHistory{
			ItemID:        r.line.ItemID,
			Change:        r.quantity,
			Type:          domain.InventoryChangeCorrection,
			Description:   fmt.Sprintf("Return: %s", reason),
			OrderItemID:   r.line.ID,
			PerformedByID: ret.CashierID,
			Date:          now,
		}); err != nil {
			return nil, err
		}

		refundTotal += pricing.LineRefund(r.line, r.quantity)
		returnItems = append(returnItems, domain.OrderItem{
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
	returnOrder.Items = returnItems

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, transaction_id, date, amount, details, cashier_id, shopper_id, is_paid, payment_amount)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, returnOrder.ID, returnOrder.TransactionID, returnOrder.Date, returnOrder.Amount,
		nullIfEmpty(returnOrder.Details), returnOrder.CashierID, nullIfEmpty(returnOrder.ShopperID),
		returnOrder.IsPaid, nil)
	if err != nil {
		return nil, err
	}
	for _, line := range returnItems {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, item_id, size_label, quantity, price_at_purchase, discount_applied)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, line.ID, line.OrderID, line.ItemID, line.SizeLabel, line.Quantity, line.PriceAtPurchase, line.DiscountApplied)
		if err != nil {
			return nil, err
		}
	}

	receipt.RefundTotal = refundTotal
	receipt.ReturnedItems = returnItems
	receipt.ReturnOrder = &returnOrder

	if original.ShopperID == "" {
		receipt.Allocation = domain.RefundAllocation{CashRefund: refundTotal}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return receipt, nil
	}

	alloc := ledger.AllocateRefund(receipt.BalanceBefore.DuesBalance, refundTotal, ret.RefundMethod)
	receipt.Allocation = alloc
	if alloc.AppliedToDues > 0 {
		if err := insertDue(ctx, tx, domain.Due{
			ShopperID:   original.ShopperID,
			OrderID:     returnOrder.ID,
			Amount:      -alloc.AppliedToDues,
			Description: fmt.Sprintf("Refund applied to dues for %s", returnOrder.TransactionID),
			CreatedAt:   now,
		}); err != nil {
			return nil, err
		}
	}
	if alloc.AddedToAdvance > 0 {
		if err := insertDue(ctx, tx, domain.Due{
			ShopperID:   original.ShopperID,
			OrderID:     returnOrder.ID,
			Amount:      -alloc.AddedToAdvance,
			Description: fmt.Sprintf("Refund stored as advance credit for %s", returnOrder.TransactionID),
			CreatedAt:   now,
		}); err != nil {
			return nil, err
		}
	}

	var afterSum float64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM dues WHERE shopper_id = $1
	`, original.ShopperID).Scan(&afterSum)
	if err != nil {
		return nil, err
	}
	after := balanceSummary(afterSum)
	receipt.BalanceAfter = &after

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return receipt, nil
}

func returnedQuantities(ctx context.Context, tx *sql.Tx, lines []domain.OrderItem) (map[string]int, error) {
	result := make(map[string]int, len(lines))
	if len(lines) == 0 {
		return result, nil
	}
	lineIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		lineIDs = append(lineIDs, line.ID)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT order_item_id, COALESCE(SUM(change), 0)
		FROM inventory_history
		WHERE type = $1 AND order_item_id = ANY($2)
		GROUP BY order_item_id
	`, domain.InventoryChangeCorrection, lineIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var lineID string
		var total int
		if err := rows.Scan(&lineID, &total); err != nil {
			return nil, err
		}
		result[lineID] = total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	orders, err := s.loadOrders(ctx, `WHERE o.id = $1`, 0, orderID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, store.ErrNotFound
	}
	return &orders[0], nil
}

func (s *Store) ListOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	return s.loadOrders(ctx, "", limit)
}

func (s *Store) ListOrdersByShopper(ctx context.Context, shopperID string) ([]domain.Order, error) {
	return s.loadOrders(ctx, `WHERE o.shopper_id = $1`, 0, shopperID)
}

func (s *Store) loadOrders(ctx context.Context, where string, limit int, args ...any) ([]domain.Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT o.id, o.transaction_id, o.date, o.amount, o.details, o.cashier_id, o.shopper_id, o.is_paid, o.payment_amount
		FROM orders o
		%s
		ORDER BY o.date DESC, o.transaction_id DESC
		LIMIT $%d
	`, where, len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, 32)
	orderIDs := make([]string, 0, 32)
	for rows.Next() {
		var order domain.Order
		var details, shopperID sql.NullString
		var paymentAmount sql.NullFloat64
		if err := rows.Scan(&order.ID, &order.TransactionID, &order.Date, &order.Amount,
			&details, &order.CashierID, &shopperID, &order.IsPaid, &paymentAmount); err != nil {
			return nil, err
		}
		order.Details = details.String
		order.ShopperID = shopperID.String
		if paymentAmount.Valid {
			p := paymentAmount.Float64
			order.PaymentAmount = &p
		}
		order.Items = []domain.OrderItem{}
		orders = append(orders, order)
		orderIDs = append(orderIDs, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, item_id, size_label, quantity, price_at_purchase, discount_applied
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	itemsByOrder := make(map[string][]domain.OrderItem, len(orders))
	for itemRows.Next() {
		var line domain.OrderItem
		if err := itemRows.Scan(&line.ID, &line.OrderID, &line.ItemID, &line.SizeLabel,
			&line.Quantity, &line.PriceAtPurchase, &line.DiscountApplied); err != nil {
			return nil, err
		}
		itemsByOrder[line.OrderID] = append(itemsByOrder[line.OrderID], line)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		if items, ok := itemsByOrder[orders[i].ID]; ok {
			orders[i].Items = items
		}
	}
	return orders, nil
}

func (s *Store) CreateShopper(ctx context.Context, shopper domain.Shopper) (*domain.Shopper, error) {
	shopper.CustomerCode = strings.TrimSpace(shopper.CustomerCode)
	shopper.Name = strings.TrimSpace(shopper.Name)
	if shopper.CustomerCode == "" || shopper.Name == "" {
		return nil, store.ErrInvalidRequest
	}
	if shopper.ID == "" {
		shopper.ID = uuid.NewString()
	}
	if shopper.CreatedAt.IsZero() {
		shopper.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shoppers (id, customer_code, name, phone_number, address, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, shopper.ID, shopper.CustomerCode, shopper.Name, nullIfEmpty(shopper.PhoneNumber),
		nullIfEmpty(shopper.Address), shopper.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}

	created := shopper
	return &created, nil
}

func (s *Store) ListShoppers(ctx context.Context) ([]domain.Shopper, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_code, name, phone_number, address, created_at
		FROM shoppers
		ORDER BY customer_code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shoppers := make([]domain.Shopper, 0, 32)
	for rows.Next() {
		shopper, err := scanShopper(rows)
		if err != nil {
			return nil, err
		}
		shoppers = append(shoppers, shopper)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shoppers, nil
}

func (s *Store) GetShopperByCode(ctx context.Context, customerCode string) (*domain.Shopper, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, customer_code, name, phone_number, address, created_at
		FROM shoppers
		WHERE customer_code = $1
	`, customerCode)
	shopper, err := scanShopper(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &shopper, nil
}

func (s *Store) CreateDue(ctx context.Context, due domain.Due) (*domain.Due, error) {
	if due.Amount == 0 {
		return nil, store.ErrInvalidRequest
	}
	if due.ID == "" {
		due.ID = uuid.NewString()
	}
	if due.CreatedAt.IsZero() {
		due.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dues (id, shopper_id, order_id, amount, description, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, due.ID, due.ShopperID, nullIfEmpty(due.OrderID), due.Amount, nullIfEmpty(due.Description), due.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	created := due
	return &created, nil
}

func (s *Store) ListDues(ctx context.Context, shopperID string) ([]domain.Due, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM shoppers WHERE id = $1)
	`, shopperID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shopper_id, order_id, amount, description, created_at
		FROM dues
		WHERE shopper_id = $1
		ORDER BY created_at, id
	`, shopperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dues := make([]domain.Due, 0, 16)
	for rows.Next() {
		var due domain.Due
		var orderID, description sql.NullString
		if err := rows.Scan(&due.ID, &due.ShopperID, &orderID, &due.Amount, &description, &due.CreatedAt); err != nil {
			return nil, err
		}
		due.OrderID = orderID.String
		due.Description = description.String
		dues = append(dues, due)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dues, nil
}

func (s *Store) GetDashboardSummary(ctx context.Context, from time.Time, to time.Time, lowStockThreshold int) (*domain.DashboardSummary, error) {
	summary := &domain.DashboardSummary{From: from, To: to, LowStock: []domain.LowStockSize{}}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE transaction_id NOT LIKE 'RETURN\_%'),
			COALESCE(SUM(amount) FILTER (WHERE transaction_id NOT LIKE 'RETURN\_%'), 0),
			COALESCE(SUM(-amount) FILTER (WHERE transaction_id LIKE 'RETURN\_%'), 0)
		FROM orders
		WHERE date >= $1 AND date <= $2
	`, from, to).Scan(&summary.OrdersCount, &summary.GrossSales, &summary.ReturnsTotal)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(balance), 0)
		FROM (
			SELECT SUM(amount) AS balance
			FROM dues
			GROUP BY shopper_id
		) b
		WHERE balance > 0
	`).Scan(&summary.OutstandingDues)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.name, s.size_label, s.stock
		FROM item_sizes s
		JOIN items i ON i.id = s.item_id
		WHERE s.stock <= $1
		ORDER BY s.stock, i.name, s.size_label
	`, lowStockThreshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var low domain.LowStockSize
		if err := rows.Scan(&low.ItemID, &low.ItemName, &low.SizeLabel, &low.Stock); err != nil {
			return nil, err
		}
		summary.LowStock = append(summary.LowStock, low)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidRequest
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, user.ID, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidRequest
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.ID, &user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password, role, active, created_at
		FROM users
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username))).Scan(
		&user.ID, &user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password = $2
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username)), password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// lockShopperDuesBalance locks the shopper's due rows and returns the
// signed sum, so concurrent sales and refunds against the same shopper
// serialize on the ledger.
func lockShopperDuesBalance(ctx context.Context, tx *sql.Tx, shopperID string) (float64, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT amount
		FROM dues
		WHERE shopper_id = $1
		FOR UPDATE
	`, shopperID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var sum float64
	for rows.Next() {
		var amount float64
		if err := rows.Scan(&amount); err != nil {
			return 0, err
		}
		sum += amount
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return sum, nil
}

func insertInventoryHistory(ctx context.Context, tx *sql.Tx, entry domain.InventoryHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO inventory_history (id, item_id, change, type, description, order_item_id, performed_by_id, date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ItemID, entry.Change, entry.Type, nullIfEmpty(entry.Description),
		nullIfEmpty(entry.OrderItemID), entry.PerformedByID, entry.Date)
	return err
}

func insertDue(ctx context.Context, tx *sql.Tx, due domain.Due) error {
	if due.ID == "" {
		due.ID = uuid.NewString()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO dues (id, shopper_id, order_id, amount, description, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, due.ID, due.ShopperID, nullIfEmpty(due.OrderID), due.Amount, nullIfEmpty(due.Description), due.CreatedAt)
	return err
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

func balanceSummary(sum float64) domain.BalanceSummary {
	if sum > 0 {
		return domain.BalanceSummary{DuesBalance: sum}
	}
	if sum < 0 {
		return domain.BalanceSummary{AdvanceBalance: -sum}
	}
	return domain.BalanceSummary{}
}

func positivePart(sum float64) float64 {
	if sum > 0 {
		return sum
	}
	return 0
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShopper(row rowScanner) (domain.Shopper, error) {
	var shopper domain.Shopper
	var phone, address sql.NullString
	err := row.Scan(&shopper.ID, &shopper.CustomerCode, &shopper.Name, &phone, &address, &shopper.CreatedAt)
	if err != nil {
		return domain.Shopper{}, err
	}
	shopper.PhoneNumber = phone.String
	shopper.Address = address.String
	return shopper, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	return val
}

func nullFloat(val *float64) any {
	if val == nil {
		return nil
	}
	return *val
}

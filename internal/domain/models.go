package domain

import "time"

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

const (
	InventoryChangeSale       = "sale"
	InventoryChangeRestock    = "restock"
	InventoryChangeCorrection = "correction"
)

const (
	RefundMethodCash    = "cash"
	RefundMethodAdvance = "advance"
)

type Category struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Discount *float64 `json:"discount,omitempty"`
}

type Item struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	ImageURL   string     `json:"image_url,omitempty"`
	CategoryID string     `json:"category_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	Sizes      []ItemSize `json:"sizes"`
}

type ItemSize struct {
	ID        string   `json:"id"`
	ItemID    string   `json:"item_id"`
	SizeLabel string   `json:"size_label"`
	Price     float64  `json:"price"`
	Discount  *float64 `json:"discount,omitempty"`
	Stock     int      `json:"stock"`
}

// InventoryHistory is append-only: stock never changes without a row here,
// and rows are never edited after the fact.
type InventoryHistory struct {
	ID            string    `json:"id"`
	ItemID        string    `json:"item_id"`
	Change        int       `json:"change"`
	Type          string    `json:"type"`
	Description   string    `json:"description,omitempty"`
	OrderItemID   string    `json:"order_item_id,omitempty"`
	PerformedByID string    `json:"performed_by_id"`
	Date          time.Time `json:"date"`
}

type Order struct {
	ID            string      `json:"id"`
	TransactionID string      `json:"transaction_id"`
	Date          time.Time   `json:"date"`
	Amount        float64     `json:"amount"`
	Details       string      `json:"details,omitempty"`
	CashierID     string      `json:"cashier_id"`
	ShopperID     string      `json:"shopper_id,omitempty"`
	IsPaid        bool        `json:"is_paid"`
	PaymentAmount *float64    `json:"payment_amount,omitempty"`
	Items         []OrderItem `json:"items"`
}

type OrderItem struct {
	ID              string  `json:"id"`
	OrderID         string  `json:"order_id"`
	ItemID          string  `json:"item_id"`
	SizeLabel       string  `json:"size_label"`
	Quantity        int     `json:"quantity"`
	PriceAtPurchase float64 `json:"price_at_purchase"`
	DiscountApplied float64 `json:"discount_applied"`
}

type Shopper struct {
	ID           string    `json:"id"`
	CustomerCode string    `json:"customer_code"`
	Name         string    `json:"name"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	Address      string    `json:"address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Due is a signed ledger entry: positive means the shopper owes the shop,
// negative means the shop owes the shopper (payment received or advance
// credit stored).
type Due struct {
	ID          string    `json:"id"`
	ShopperID   string    `json:"shopper_id"`
	OrderID     string    `json:"order_id,omitempty"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type UserAccount struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type Actor struct {
	Username string
	Role     string
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderLineRequest struct {
	ItemID    string `json:"item_id"`
	SizeLabel string `json:"size_label"`
	Quantity  int    `json:"quantity"`
}

// PaymentBreakdown describes how a single payment is split across the
// current order, previously accumulated dues, and advance credit.
type PaymentBreakdown struct {
	OrderPayment          float64 `json:"order_payment"`
	DuesPayment           float64 `json:"dues_payment"`
	AdvancePayment        float64 `json:"advance_payment"`
	CreditUsed            float64 `json:"credit_used"`
	RemainingDues         float64 `json:"remaining_dues"`
	RemainingOrderBalance float64 `json:"remaining_order_balance"`
	RemainingCredit       float64 `json:"remaining_credit"`
}

type OrderCreateRequest struct {
	Items            []OrderLineRequest `json:"items"`
	Details          string             `json:"details,omitempty"`
	CustomerCode     string             `json:"customer_code,omitempty"`
	IsPaid           bool               `json:"is_paid"`
	PaymentAmount    *float64           `json:"payment_amount,omitempty"`
	PaymentBreakdown *PaymentBreakdown  `json:"payment_breakdown,omitempty"`
}

type BalanceSummary struct {
	DuesBalance    float64 `json:"dues_balance"`
	AdvanceBalance float64 `json:"advance_balance"`
}

type OrderCreateResponse struct {
	Order   Order           `json:"order"`
	Shopper *Shopper        `json:"shopper,omitempty"`
	Balance *BalanceSummary `json:"balance,omitempty"`
}

type ReturnLineRequest struct {
	// ItemID addresses the order line (OrderItem.ID), not the catalog item.
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type ReturnRequest struct {
	ItemReturns     []ReturnLineRequest `json:"item_returns,omitempty"`
	Reason          string              `json:"reason,omitempty"`
	ReturnFullOrder bool                `json:"return_full_order"`
	RefundMethod    string              `json:"refund_method,omitempty"`
}

type RefundAllocation struct {
	AppliedToDues  float64 `json:"applied_to_dues"`
	CashRefund     float64 `json:"cash_refund"`
	AddedToAdvance float64 `json:"added_to_advance"`
}

type ReturnReceipt struct {
	ReturnOrder   *Order           `json:"return_order,omitempty"`
	ReturnedItems []OrderItem      `json:"returned_items"`
	RefundTotal   float64          `json:"refund_total"`
	Allocation    RefundAllocation `json:"allocation"`
	BalanceBefore *BalanceSummary  `json:"balance_before,omitempty"`
	BalanceAfter  *BalanceSummary  `json:"balance_after,omitempty"`
}

type ItemSizeCreateRequest struct {
	SizeLabel string   `json:"size_label"`
	Price     float64  `json:"price"`
	Discount  *float64 `json:"discount,omitempty"`
	Stock     int      `json:"stock"`
}

type ItemCreateRequest struct {
	Name       string                  `json:"name"`
	ImageURL   string                  `json:"image_url,omitempty"`
	CategoryID string                  `json:"category_id,omitempty"`
	Sizes      []ItemSizeCreateRequest `json:"sizes"`
}

type ItemSizeUpdateRequest struct {
	Price            *float64 `json:"price,omitempty"`
	Discount         *float64 `json:"discount,omitempty"`
	Stock            *int     `json:"stock,omitempty"`
	CorrectionReason string   `json:"correction_reason,omitempty"`
}

type RestockRequest struct {
	Quantity    int    `json:"quantity"`
	Description string `json:"description,omitempty"`
}

type CategoryCreateRequest struct {
	Name     string   `json:"name"`
	Discount *float64 `json:"discount,omitempty"`
}

type ShopperCreateRequest struct {
	CustomerCode string `json:"customer_code"`
	Name         string `json:"name"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	Address      string `json:"address,omitempty"`
}

// ShopperPaymentRequest records a manual ledger entry: a positive amount
// charges the shopper, a negative amount records a payment or credit.
type ShopperPaymentRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

type ShopperHistory struct {
	Shopper Shopper        `json:"shopper"`
	Orders  []Order        `json:"orders"`
	Dues    []Due          `json:"dues"`
	Balance BalanceSummary `json:"balance"`
}

// SaleInput is the resolved form of an OrderCreateRequest handed to the
// store: shopper and cashier references are already looked up, the payment
// breakdown already reconciled.
type SaleInput struct {
	Lines         []OrderLineRequest
	Details       string
	CashierID     string
	Shopper       *Shopper
	IsPaid        bool
	PaymentAmount *float64
	Breakdown     *PaymentBreakdown
}

// ReturnLine addresses one original order line by its OrderItem id.
type ReturnLine struct {
	OrderItemID string
	Quantity    int
}

type ReturnInput struct {
	OrderID         string
	Lines           []ReturnLine
	ReturnFullOrder bool
	Reason          string
	RefundMethod    string
	CashierID       string
}

type LowStockSize struct {
	ItemID    string `json:"item_id"`
	ItemName  string `json:"item_name"`
	SizeLabel string `json:"size_label"`
	Stock     int    `json:"stock"`
}

type DashboardSummary struct {
	From            time.Time      `json:"from"`
	To              time.Time      `json:"to"`
	OrdersCount     int            `json:"orders_count"`
	GrossSales      float64        `json:"gross_sales"`
	ReturnsTotal    float64        `json:"returns_total"`
	OutstandingDues float64        `json:"outstanding_dues"`
	LowStock        []LowStockSize `json:"low_stock"`
}

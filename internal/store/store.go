package store

import (
	"context"
	"errors"
	"time"

	"tokopos/backend/internal/domain"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrInvalidReturnQuantity = errors.New("return quantity exceeds remaining returnable amount")
	ErrAlreadyReturned       = errors.New("order already fully returned")
	ErrInconsistentPayment   = errors.New("payment breakdown does not reconcile")
	ErrInvalidRequest        = errors.New("invalid request")
)

type Repository interface {
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, categoryID string) (*domain.Category, error)

	CreateItem(ctx context.Context, item domain.Item, performedByID string) (*domain.Item, error)
	GetItem(ctx context.Context, itemID string) (*domain.Item, error)
	ListItems(ctx context.Context, search string, categoryID string, limit int) ([]domain.Item, error)
	UpdateItemSize(ctx context.Context, itemID string, sizeLabel string, update domain.ItemSizeUpdateRequest, performedByID string) (*domain.ItemSize, error)
	RestockItemSize(ctx context.Context, itemID string, sizeLabel string, quantity int, description string, performedByID string) (*domain.ItemSize, error)
	ListInventoryHistory(ctx context.Context, itemID string, changeType string, limit int) ([]domain.InventoryHistory, error)

	CreateSale(ctx context.Context, sale domain.SaleInput) (*domain.Order, error)
	CreateReturn(ctx context.Context, ret domain.ReturnInput) (*domain.ReturnReceipt, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context, limit int) ([]domain.Order, error)
	ListOrdersByShopper(ctx context.Context, shopperID string) ([]domain.Order, error)

	CreateShopper(ctx context.Context, shopper domain.Shopper) (*domain.Shopper, error)
	ListShoppers(ctx context.Context) ([]domain.Shopper, error)
	GetShopperByCode(ctx context.Context, customerCode string) (*domain.Shopper, error)
	CreateDue(ctx context.Context, due domain.Due) (*domain.Due, error)
	ListDues(ctx context.Context, shopperID string) ([]domain.Due, error)

	GetDashboardSummary(ctx context.Context, from time.Time, to time.Time, lowStockThreshold int) (*domain.DashboardSummary, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teamnishkar/nishkar-backend/pkg/db/models"
	"github.com/teamnishkar/nishkar-backend/pkg/pagination"
)

// Repository defines persistence operations for order and payment tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// CreateOrderWithItems inserts the assembled order and its items,
	// retrying with a fresh tracking code when the generated one collides.
	CreateOrderWithItems(ctx context.Context, assembly *Assembly, maxAttempts int) error
	FindOrder(ctx context.Context, orderID string) (*models.Order, error)
	FindOrderItem(ctx context.Context, itemID int64) (*models.OrderItem, error)
	FindItemsByOrder(ctx context.Context, orderID string) ([]models.OrderItem, error)
	FindVendorItemsByOrder(ctx context.Context, orderID string, vendorID uuid.UUID) ([]models.OrderItem, error)
	ListBuyerOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListVendorOrders(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*VendorOrderList, error)
	ListAdminOrders(ctx context.Context, params pagination.Params, filters AdminOrderFilters) (*OrderList, error)
	UpdateOrder(ctx context.Context, orderID string, updates map[string]any) error
	UpdateOrderItem(ctx context.Context, itemID int64, updates map[string]any) error
	UpdateItemsByOrder(ctx context.Context, orderID string, updates map[string]any) error
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindPaymentByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error)
}

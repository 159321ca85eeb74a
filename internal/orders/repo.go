package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/teamnishkar/nishkar-backend/pkg/db"
	"github.com/teamnishkar/nishkar-backend/pkg/db/models"
	"github.com/teamnishkar/nishkar-backend/pkg/enums"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
	"github.com/teamnishkar/nishkar-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrderWithItems(ctx context.Context, assembly *Assembly, maxAttempts int) error {
	if assembly == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "order assembly required")
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	db := r.db.WithContext(ctx)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		sp := fmt.Sprintf("sp_order_create_%d", attempt)
		db.SavePoint(sp)
		err := db.Create(&assembly.Order).Error
		if err == nil {
			if len(assembly.Items) > 0 {
				if err := db.Create(&assembly.Items).Error; err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order items")
				}
			}
			return nil
		}
		if !dbpkg.IsUniqueViolation(err, "orders_pkey") {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
		}
		db.RollbackTo(sp)
		if attempt+1 >= maxAttempts {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order tracking code already exists")
		}
		if err := assembly.Rekey(); err != nil {
			return err
		}
	}
	return pkgerrors.New(pkgerrors.CodeInternal, "tracking code allocation exhausted")
}

func (r *repository) FindOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderItem(ctx context.Context, itemID int64) (*models.OrderItem, error) {
	var item models.OrderItem
	err := r.db.WithContext(ctx).
		Where("id = ?", itemID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindItemsByOrder(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindVendorItemsByOrder(ctx context.Context, orderID string, vendorID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND vendor_id = ?", orderID, vendorID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

type orderSummaryRow struct {
	OrderID     string
	OrderDate   time.Time
	Status      enums.OrderStatus
	TotalAmount decimal.Decimal
	ItemCount   int
	CreatedAt   time.Time
}

const orderSummaryColumns = `orders.order_id, orders.order_date, orders.status, orders.total_amount, orders.created_at,
	(SELECT COUNT(*) FROM order_items oi WHERE oi.order_id = orders.order_id AND oi.deleted_at IS NULL) AS item_count`

func (r *repository) ListBuyerOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("orders.user_id = ?", userID)
	return r.listOrders(ctx, q, params)
}

func (r *repository) ListAdminOrders(ctx context.Context, params pagination.Params, filters AdminOrderFilters) (*OrderList, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.Status != nil {
		q = q.Where("orders.status = ?", *filters.Status)
	}
	if filters.UserID != nil {
		q = q.Where("orders.user_id = ?", *filters.UserID)
	}
	if filters.DateFrom != nil {
		q = q.Where("orders.order_date >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		q = q.Where("orders.order_date <= ?", *filters.DateTo)
	}
	return r.listOrders(ctx, q, params)
}

func (r *repository) listOrders(ctx context.Context, q *gorm.DB, params pagination.Params) (*OrderList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if cursor != nil {
		q = q.Where("(orders.created_at < ?) OR (orders.created_at = ? AND orders.order_id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []orderSummaryRow
	err = q.Select(orderSummaryColumns).
		Order("orders.created_at DESC, orders.order_id DESC").
		Limit(limit + 1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &OrderList{Orders: make([]OrderSummary, 0, len(rows))}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.OrderID,
		})
	}
	for _, row := range rows {
		list.Orders = append(list.Orders, OrderSummary{
			OrderID:     row.OrderID,
			OrderDate:   row.OrderDate,
			Status:      row.Status,
			TotalAmount: row.TotalAmount,
			ItemCount:   row.ItemCount,
			CreatedAt:   row.CreatedAt,
		})
	}
	return list, nil
}

func (r *repository) ListVendorOrders(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*VendorOrderList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	q := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Joins("JOIN order_items items ON items.order_id = orders.order_id").
		Where("items.vendor_id = ? AND items.deleted_at IS NULL", vendorID).
		Group("orders.order_id, orders.order_date, orders.created_at")
	if cursor != nil {
		q = q.Where("(orders.created_at < ?) OR (orders.created_at = ? AND orders.order_id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	type vendorOrderRow struct {
		OrderID   string
		OrderDate time.Time
		CreatedAt time.Time
	}
	var rows []vendorOrderRow
	err = q.Select("orders.order_id, orders.order_date, orders.created_at").
		Order("orders.created_at DESC, orders.order_id DESC").
		Limit(limit + 1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &VendorOrderList{Orders: make([]VendorOrderView, 0, len(rows))}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.OrderID,
		})
	}
	if len(rows) == 0 {
		return list, nil
	}

	orderIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		orderIDs = append(orderIDs, row.OrderID)
	}
	var items []models.OrderItem
	err = r.db.WithContext(ctx).
		Where("order_id IN ? AND vendor_id = ?", orderIDs, vendorID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	itemsByOrder := make(map[string][]ItemView, len(rows))
	for _, item := range items {
		if item.OrderID == nil {
			continue
		}
		itemsByOrder[*item.OrderID] = append(itemsByOrder[*item.OrderID], toItemView(item))
	}
	for _, row := range rows {
		list.Orders = append(list.Orders, VendorOrderView{
			OrderID:   row.OrderID,
			OrderDate: row.OrderDate,
			Items:     itemsByOrder[row.OrderID],
		})
	}
	return list, nil
}

func (r *repository) UpdateOrder(ctx context.Context, orderID string, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) UpdateOrderItem(ctx context.Context, itemID int64, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Updates(updates).Error
}

func (r *repository) UpdateItemsByOrder(ctx context.Context, orderID string, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *repository) FindPaymentByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("provider_ref = ?", providerRef).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

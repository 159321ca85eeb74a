package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teamnishkar/nishkar-backend/pkg/db/models"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
	"github.com/teamnishkar/nishkar-backend/pkg/outbox"
	"github.com/teamnishkar/nishkar-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes order reads plus the fulfillment state machine.
type Service interface {
	BuyerOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	BuyerOrderDetail(ctx context.Context, userID uuid.UUID, orderID string) (*OrderDetail, error)
	BuyerOrderStatus(ctx context.Context, userID uuid.UUID, orderID string) (*OrderStatusView, error)
	VendorOrders(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*VendorOrderList, error)
	VendorOrderDetail(ctx context.Context, vendorID uuid.UUID, orderID string) (*VendorOrderView, error)
	VendorItemStatus(ctx context.Context, vendorID uuid.UUID, itemID int64) (*ItemStatusView, error)
	AdminOrders(ctx context.Context, params pagination.Params, filters AdminOrderFilters) (*OrderList, error)
	AdminOrderDetail(ctx context.Context, orderID string) (*OrderDetail, error)
	VendorAdvanceItem(ctx context.Context, input VendorAdvanceInput) (*ItemStatusView, error)
	AdminAdvanceOrder(ctx context.Context, input AdminAdvanceInput) (*OrderStatusView, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds the orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

func (s *service) BuyerOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.repo.ListBuyerOrders(ctx, userID, params)
}

func (s *service) BuyerOrderDetail(ctx context.Context, userID uuid.UUID, orderID string) (*OrderDetail, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return toOrderDetail(order), nil
}

func (s *service) BuyerOrderStatus(ctx context.Context, userID uuid.UUID, orderID string) (*OrderStatusView, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return toOrderStatusView(order), nil
}

func (s *service) VendorOrders(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*VendorOrderList, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
	}
	return s.repo.ListVendorOrders(ctx, vendorID, params)
}

func (s *service) VendorOrderDetail(ctx context.Context, vendorID uuid.UUID, orderID string) (*VendorOrderView, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.FindVendorItemsByOrder(ctx, orderID, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor items")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	view := &VendorOrderView{
		OrderID:   order.OrderID,
		OrderDate: order.OrderDate,
		Items:     make([]ItemView, 0, len(items)),
	}
	for _, item := range items {
		view.Items = append(view.Items, toItemView(item))
	}
	return view, nil
}

func (s *service) VendorItemStatus(ctx context.Context, vendorID uuid.UUID, itemID int64) (*ItemStatusView, error) {
	item, err := s.repo.FindOrderItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
	}
	if item.VendorID != vendorID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
	}
	return toItemStatusView(item), nil
}

func (s *service) AdminOrders(ctx context.Context, params pagination.Params, filters AdminOrderFilters) (*OrderList, error) {
	return s.repo.ListAdminOrders(ctx, params, filters)
}

func (s *service) AdminOrderDetail(ctx context.Context, orderID string) (*OrderDetail, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return toOrderDetail(order), nil
}

func (s *service) loadOrder(ctx context.Context, orderID string) (*models.Order, error) {
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func toItemView(item models.OrderItem) ItemView {
	return ItemView{
		ID:               item.ID,
		ProductID:        item.ProductID,
		VendorID:         item.VendorID,
		ProductName:      item.ProductName,
		Size:             item.Size,
		Quantity:         item.Quantity,
		UnitPrice:        item.UnitPrice,
		SubTotal:         item.SubTotal,
		TotalPrice:       item.TotalPrice,
		VendorStatus:     item.VendorStatus,
		ReceivedAt:       item.ReceivedAt,
		ProcessingAt:     item.ProcessingAt,
		ShippedAt:        item.ShippedAt,
		OutForDeliveryAt: item.OutForDeliveryAt,
		DeliveredAt:      item.DeliveredAt,
	}
}

func toItemStatusView(item *models.OrderItem) *ItemStatusView {
	return &ItemStatusView{
		ItemID:           item.ID,
		OrderID:          item.OrderID,
		VendorStatus:     item.VendorStatus,
		ReceivedAt:       item.ReceivedAt,
		ProcessingAt:     item.ProcessingAt,
		ShippedAt:        item.ShippedAt,
		OutForDeliveryAt: item.OutForDeliveryAt,
		DeliveredAt:      item.DeliveredAt,
	}
}

func timelineFromOrder(order *models.Order) StatusTimeline {
	return StatusTimeline{
		PlacedAt:         order.PlacedAt,
		ProcessingAt:     order.ProcessingAt,
		ShippedAt:        order.ShippedAt,
		OutForDeliveryAt: order.OutForDeliveryAt,
		DeliveredAt:      order.DeliveredAt,
	}
}

func toOrderStatusView(order *models.Order) *OrderStatusView {
	return &OrderStatusView{
		OrderID:  order.OrderID,
		Status:   order.Status,
		Timeline: timelineFromOrder(order),
	}
}

func toOrderDetail(order *models.Order) *OrderDetail {
	detail := &OrderDetail{
		OrderID:          order.OrderID,
		UserID:           order.UserID,
		OrderDate:        order.OrderDate,
		Currency:         order.Currency,
		CGST:             order.CGST,
		SGST:             order.SGST,
		IGST:             order.IGST,
		Subtotal:         order.Subtotal,
		DiscountValue:    order.DiscountValue,
		DiscountedAmount: order.DiscountedAmount,
		TotalAmount:      order.TotalAmount,
		Status:           order.Status,
		Timeline:         timelineFromOrder(order),
		Items:            make([]ItemView, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		detail.Items = append(detail.Items, toItemView(item))
	}
	return detail
}

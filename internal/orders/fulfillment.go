package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teamnishkar/nishkar-backend/pkg/db/models"
	"github.com/teamnishkar/nishkar-backend/pkg/enums"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
	"github.com/teamnishkar/nishkar-backend/pkg/outbox"
	"github.com/teamnishkar/nishkar-backend/pkg/outbox/payloads"
)

// VendorAdvanceInput moves one of the vendor's items along the ladder.
type VendorAdvanceInput struct {
	ItemID        int64
	Target        enums.VendorStatus
	ActorUserID   uuid.UUID
	ActorVendorID uuid.UUID
	ActorRole     enums.ActorRole
}

// AdminAdvanceInput moves a whole order into an admin-managed stage.
type AdminAdvanceInput struct {
	OrderID     string
	Target      enums.OrderStatus
	ActorUserID uuid.UUID
	ActorRole   enums.ActorRole
}

func (s *service) VendorAdvanceItem(ctx context.Context, input VendorAdvanceInput) (*ItemStatusView, error) {
	if input.ItemID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ActorVendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid fulfillment stage")
	}

	var view *ItemStatusView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindOrderItem(ctx, input.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
		}
		if item.VendorID != input.ActorVendorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "item does not belong to vendor")
		}
		if input.Target == item.VendorStatus {
			view = toItemStatusView(item)
			return nil
		}
		if input.Target == enums.VendorStatusOutForDelivery {
			return pkgerrors.New(pkgerrors.CodeForbidden, "stage is managed by support")
		}
		if input.Target.Rank() != item.VendorStatus.Rank()+1 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "fulfillment stages cannot be skipped or reversed")
		}
		if input.Target.Rank() > enums.VendorStatusShipped.Rank() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "stage is managed by support")
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"vendor_status":                 input.Target,
			vendorStageColumn(input.Target): now,
		}
		if err := repo.UpdateOrderItem(ctx, item.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item status")
		}
		applyVendorStage(item, input.Target, now)

		if item.OrderID != nil {
			if err := s.syncOrderStatus(ctx, repo, *item.OrderID, now); err != nil {
				return err
			}
		}
		view = toItemStatusView(item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) AdminAdvanceOrder(ctx context.Context, input AdminAdvanceInput) (*OrderStatusView, error) {
	if input.OrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Target != enums.OrderStatusOutForDelivery && input.Target != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target stage must be out_for_delivery or delivered")
	}

	var view *OrderStatusView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == input.Target {
			view = toOrderStatusView(order)
			return nil
		}
		required := enums.OrderStatusShipped
		if input.Target == enums.OrderStatusDelivered {
			required = enums.OrderStatusOutForDelivery
		}
		if order.Status != required {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not ready for that stage")
		}

		now := time.Now().UTC()
		if err := repo.UpdateOrder(ctx, order.OrderID, map[string]any{
			"status":                       input.Target,
			orderStageColumn(input.Target): now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		itemStatus := enums.VendorStatusOutForDelivery
		if input.Target == enums.OrderStatusDelivered {
			itemStatus = enums.VendorStatusDelivered
		}
		if err := repo.UpdateItemsByOrder(ctx, order.OrderID, map[string]any{
			"vendor_status":              itemStatus,
			vendorStageColumn(itemStatus): now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item statuses")
		}

		order.Status = input.Target
		applyOrderStage(order, input.Target, now)
		view = toOrderStatusView(order)

		if input.Target != enums.OrderStatusDelivered {
			return nil
		}
		vendorIDs := distinctVendorIDs(order.Items)
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.OrderID,
			Version:       1,
			Actor: &outbox.ActorRef{
				UserID: input.ActorUserID,
				Role:   string(input.ActorRole),
			},
			Data: payloads.OrderDeliveredEvent{
				OrderID:     order.OrderID,
				UserID:      order.UserID,
				VendorIDs:   vendorIDs,
				DeliveredAt: now,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// syncOrderStatus re-derives the aggregate status from the item ladder and
// moves the order forward when every vendor has caught up. Admin-managed
// stages are never touched here.
func (s *service) syncOrderStatus(ctx context.Context, repo Repository, orderID string, now time.Time) error {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order for status sync")
	}
	if orderStatusRank(order.Status) >= orderStatusRank(enums.OrderStatusOutForDelivery) || order.Status == enums.OrderStatusCancelled {
		return nil
	}
	items, err := repo.FindItemsByOrder(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load items for status sync")
	}
	derived := deriveAggregateStatus(items)
	if orderStatusRank(derived) <= orderStatusRank(order.Status) {
		return nil
	}
	updates := map[string]any{"status": derived}
	if col := orderStageColumn(derived); col != "" {
		updates[col] = now
	}
	if err := repo.UpdateOrder(ctx, orderID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync order status")
	}
	return nil
}

// deriveAggregateStatus folds the item statuses into the order-level view:
// shipped once every item shipped, processing as soon as any vendor started.
func deriveAggregateStatus(items []models.OrderItem) enums.OrderStatus {
	if len(items) == 0 {
		return enums.OrderStatusPlaced
	}
	allShipped := true
	anyProcessing := false
	for _, item := range items {
		if !item.VendorStatus.AtLeast(enums.VendorStatusShipped) {
			allShipped = false
		}
		if item.VendorStatus.AtLeast(enums.VendorStatusProcessing) {
			anyProcessing = true
		}
	}
	if allShipped {
		return enums.OrderStatusShipped
	}
	if anyProcessing {
		return enums.OrderStatusProcessing
	}
	return enums.OrderStatusPlaced
}

func orderStatusRank(status enums.OrderStatus) int {
	switch status {
	case enums.OrderStatusPlaced:
		return 0
	case enums.OrderStatusProcessing:
		return 1
	case enums.OrderStatusShipped:
		return 2
	case enums.OrderStatusOutForDelivery:
		return 3
	case enums.OrderStatusDelivered:
		return 4
	default:
		return -1
	}
}

func vendorStageColumn(status enums.VendorStatus) string {
	switch status {
	case enums.VendorStatusReceived:
		return "received_at"
	case enums.VendorStatusProcessing:
		return "processing_at"
	case enums.VendorStatusShipped:
		return "shipped_at"
	case enums.VendorStatusOutForDelivery:
		return "out_for_delivery_at"
	case enums.VendorStatusDelivered:
		return "delivered_at"
	default:
		return ""
	}
}

func orderStageColumn(status enums.OrderStatus) string {
	switch status {
	case enums.OrderStatusPlaced:
		return "placed_at"
	case enums.OrderStatusProcessing:
		return "processing_at"
	case enums.OrderStatusShipped:
		return "shipped_at"
	case enums.OrderStatusOutForDelivery:
		return "out_for_delivery_at"
	case enums.OrderStatusDelivered:
		return "delivered_at"
	default:
		return ""
	}
}

func applyVendorStage(item *models.OrderItem, status enums.VendorStatus, now time.Time) {
	item.VendorStatus = status
	switch status {
	case enums.VendorStatusReceived:
		item.ReceivedAt = &now
	case enums.VendorStatusProcessing:
		item.ProcessingAt = &now
	case enums.VendorStatusShipped:
		item.ShippedAt = &now
	case enums.VendorStatusOutForDelivery:
		item.OutForDeliveryAt = &now
	case enums.VendorStatusDelivered:
		item.DeliveredAt = &now
	}
}

func applyOrderStage(order *models.Order, status enums.OrderStatus, now time.Time) {
	switch status {
	case enums.OrderStatusPlaced:
		order.PlacedAt = &now
	case enums.OrderStatusProcessing:
		order.ProcessingAt = &now
	case enums.OrderStatusShipped:
		order.ShippedAt = &now
	case enums.OrderStatusOutForDelivery:
		order.OutForDeliveryAt = &now
	case enums.OrderStatusDelivered:
		order.DeliveredAt = &now
	}
}

func distinctVendorIDs(items []models.OrderItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.VendorID]; ok {
			continue
		}
		seen[item.VendorID] = struct{}{}
		ids = append(ids, item.VendorID)
	}
	return ids
}

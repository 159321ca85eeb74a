package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/teamnishkar/nishkar-backend/pkg/db/models"
	"github.com/teamnishkar/nishkar-backend/pkg/enums"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
	"github.com/teamnishkar/nishkar-backend/pkg/outbox"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func newOrdersService(t *testing.T, db *gorm.DB) (Service, *stubOutboxPublisher) {
	t.Helper()

	publisher := &stubOutboxPublisher{}
	svc, err := NewService(NewRepository(db), testTxRunner{db: db}, publisher)
	require.NoError(t, err)
	return svc, publisher
}

func itemIDsForOrder(t *testing.T, db *gorm.DB, orderID string) []int64 {
	t.Helper()

	var ids []int64
	require.NoError(t, db.Model(&models.OrderItem{}).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Pluck("id", &ids).Error)
	require.NotEmpty(t, ids)
	return ids
}

func errCode(t *testing.T, err error) pkgerrors.Code {
	t.Helper()

	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	return coded.Code()
}

func TestVendorAdvanceItemStepwise(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, _ := newOrdersService(t, db)

	vendorID := uuid.New()
	order := seedOrder(t, db, "FUL900000001", uuid.New(), []uuid.UUID{vendorID}, time.Now().UTC())
	itemID := itemIDsForOrder(t, db, order.OrderID)[0]

	view, err := svc.VendorAdvanceItem(context.Background(), VendorAdvanceInput{
		ItemID:        itemID,
		Target:        enums.VendorStatusProcessing,
		ActorUserID:   uuid.New(),
		ActorVendorID: vendorID,
		ActorRole:     enums.ActorRoleVendor,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.VendorStatusProcessing, view.VendorStatus)
	assert.NotNil(t, view.ProcessingAt)

	var reloaded models.Order
	require.NoError(t, db.Where("order_id = ?", order.OrderID).First(&reloaded).Error)
	assert.Equal(t, enums.OrderStatusProcessing, reloaded.Status)
	assert.NotNil(t, reloaded.ProcessingAt)
}

func TestVendorAdvanceItemRejectsSkip(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, _ := newOrdersService(t, db)

	vendorID := uuid.New()
	order := seedOrder(t, db, "FUL900000002", uuid.New(), []uuid.UUID{vendorID}, time.Now().UTC())
	itemID := itemIDsForOrder(t, db, order.OrderID)[0]

	_, err := svc.VendorAdvanceItem(context.Background(), VendorAdvanceInput{
		ItemID:        itemID,
		Target:        enums.VendorStatusShipped,
		ActorUserID:   uuid.New(),
		ActorVendorID: vendorID,
		ActorRole:     enums.ActorRoleVendor,
	})
	assert.Equal(t, pkgerrors.CodeStateConflict, errCode(t, err))
}

func TestVendorAdvanceItemAdminStagesForbidden(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, _ := newOrdersService(t, db)

	vendorID := uuid.New()
	order := seedOrder(t, db, "FUL900000003", uuid.New(), []uuid.UUID{vendorID}, time.Now().UTC())
	itemID := itemIDsForOrder(t, db, order.OrderID)[0]
	require.NoError(t, db.Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Update("vendor_status", enums.VendorStatusShipped).Error)

	_, err := svc.VendorAdvanceItem(context.Background(), VendorAdvanceInput{
		ItemID:        itemID,
		Target:        enums.VendorStatusOutForDelivery,
		ActorUserID:   uuid.New(),
		ActorVendorID: vendorID,
		ActorRole:     enums.ActorRoleVendor,
	})
	assert.Equal(t, pkgerrors.CodeForbidden, errCode(t, err))
}

func TestVendorAdvanceItemSkipToDeliveredIsStateConflict(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, _ := newOrdersService(t, db)

	vendorID := uuid.New()
	order := seedOrder(t, db, "FUL900000011", uuid.New(), []uuid.UUID{vendorID}, time.Now().UTC())
	itemID := itemIDsForOrder(t, db, order.OrderID)[0]

	// delivered from received is a skipped transition before it is an
	// authority problem
	_, err := svc.VendorAdvanceItem(context.Background(), VendorAdvanceInput{
		ItemID:        itemID,
		Target:        enums.VendorStatusDelivered,
		ActorUserID:   uuid.New(),
		ActorVendorID: vendorID,
		ActorRole:     enums.ActorRoleVendor,
	})
	assert.Equal(t, pkgerrors.CodeStateConflict, errCode(t, err))
}

func TestVendorAdvanceItemDeliveredStaysForbidden(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, _ := newOrdersService(t, db)

	vendorID := uuid.New()
	order := seedOrder(t, db, "FUL900000012", uuid.New(), []uuid.UUID{vendorID}, time.Now().UTC())
	itemID := itemIDsForOrder(t, db, order.OrderID)[0]
	require.NoError(t, db.Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Update("vendor_status", enums.VendorStatusOutForDelivery).Error)

	_, err := svc.VendorAdvanceItem(context.Background(), VendorAdvanceInput{
		ItemID:        itemID,
		Target:        enums.VendorStatusDelivered,
		ActorUserID:   uuid.New(),
		ActorVendorID: vendorID,
		ActorRole:     enums.ActorRoleVendor,
	})
	assert.Equal(t, pkgerrors.CodeForbidden, errCode(t, err))
}

func TestVendorAdvanceItemWrongVendor(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, _ := newOrdersService(t, db)

	order := seedOrder(t, db, "FUL900000004", uuid.New(), []uuid.UUID{uuid.New()}, time.Now().UTC())
	itemID := itemIDsForOrder(t, db, order.OrderID)[0]

	_, err := svc.VendorAdvanceItem(context.Background(), VendorAdvanceInput{
		ItemID:        itemID,
		Target:        enums.VendorStatusProcessing,
		ActorUserID:   uuid.New(),
		ActorVendorID: uuid.New(),
		ActorRole:     enums.ActorRoleVendor,
	})
	assert.Equal(t, pkgerrors.CodeForbidden, errCode(t, err))
}

func TestVendorAdvanceItemIsIdempotent(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, _ := newOrdersService(t, db)

	vendorID := uuid.New()
	order := seedOrder(t, db, "FUL900000005", uuid.New(), []uuid.UUID{vendorID}, time.Now().UTC())
	itemID := itemIDsForOrder(t, db, order.OrderID)[0]

	view, err := svc.VendorAdvanceItem(context.Background(), VendorAdvanceInput{
		ItemID:        itemID,
		Target:        enums.VendorStatusReceived,
		ActorUserID:   uuid.New(),
		ActorVendorID: vendorID,
		ActorRole:     enums.ActorRoleVendor,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.VendorStatusReceived, view.VendorStatus)
}

func advanceToShipped(t *testing.T, svc Service, vendorID uuid.UUID, itemID int64) {
	t.Helper()

	for _, target := range []enums.VendorStatus{enums.VendorStatusProcessing, enums.VendorStatusShipped} {
		_, err := svc.VendorAdvanceItem(context.Background(), VendorAdvanceInput{
			ItemID:        itemID,
			Target:        target,
			ActorUserID:   uuid.New(),
			ActorVendorID: vendorID,
			ActorRole:     enums.ActorRoleVendor,
		})
		require.NoError(t, err)
	}
}

func TestAggregateStatusAcrossVendors(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, _ := newOrdersService(t, db)

	vendorA := uuid.New()
	vendorB := uuid.New()
	order := seedOrder(t, db, "FUL900000006", uuid.New(), []uuid.UUID{vendorA, vendorB}, time.Now().UTC())
	ids := itemIDsForOrder(t, db, order.OrderID)
	require.Len(t, ids, 2)

	advanceToShipped(t, svc, vendorA, ids[0])

	var reloaded models.Order
	require.NoError(t, db.Where("order_id = ?", order.OrderID).First(&reloaded).Error)
	assert.Equal(t, enums.OrderStatusProcessing, reloaded.Status)

	advanceToShipped(t, svc, vendorB, ids[1])

	require.NoError(t, db.Where("order_id = ?", order.OrderID).First(&reloaded).Error)
	assert.Equal(t, enums.OrderStatusShipped, reloaded.Status)
	assert.NotNil(t, reloaded.ShippedAt)
}

func TestAdminAdvanceOrderRequiresShipped(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, _ := newOrdersService(t, db)

	order := seedOrder(t, db, "FUL900000007", uuid.New(), []uuid.UUID{uuid.New()}, time.Now().UTC())

	_, err := svc.AdminAdvanceOrder(context.Background(), AdminAdvanceInput{
		OrderID:     order.OrderID,
		Target:      enums.OrderStatusOutForDelivery,
		ActorUserID: uuid.New(),
		ActorRole:   enums.ActorRoleAdmin,
	})
	assert.Equal(t, pkgerrors.CodeStateConflict, errCode(t, err))
}

func TestAdminAdvanceOrderDeliveredEmitsEvent(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, publisher := newOrdersService(t, db)

	vendorID := uuid.New()
	order := seedOrder(t, db, "FUL900000008", uuid.New(), []uuid.UUID{vendorID}, time.Now().UTC())
	advanceToShipped(t, svc, vendorID, itemIDsForOrder(t, db, order.OrderID)[0])

	admin := uuid.New()
	view, err := svc.AdminAdvanceOrder(context.Background(), AdminAdvanceInput{
		OrderID:     order.OrderID,
		Target:      enums.OrderStatusOutForDelivery,
		ActorUserID: admin,
		ActorRole:   enums.ActorRoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusOutForDelivery, view.Status)
	assert.Empty(t, publisher.events)

	view, err = svc.AdminAdvanceOrder(context.Background(), AdminAdvanceInput{
		OrderID:     order.OrderID,
		Target:      enums.OrderStatusDelivered,
		ActorUserID: admin,
		ActorRole:   enums.ActorRoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, view.Status)
	assert.NotNil(t, view.Timeline.DeliveredAt)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, enums.EventOrderDelivered, event.EventType)
	assert.Equal(t, order.OrderID, event.AggregateID)

	var item models.OrderItem
	require.NoError(t, db.Where("order_id = ?", order.OrderID).First(&item).Error)
	assert.Equal(t, enums.VendorStatusDelivered, item.VendorStatus)
	assert.NotNil(t, item.DeliveredAt)

	// Replaying the same target is a no-op and emits nothing further.
	_, err = svc.AdminAdvanceOrder(context.Background(), AdminAdvanceInput{
		OrderID:     order.OrderID,
		Target:      enums.OrderStatusDelivered,
		ActorUserID: admin,
		ActorRole:   enums.ActorRoleAdmin,
	})
	require.NoError(t, err)
	assert.Len(t, publisher.events, 1)
}

func TestBuyerOrderDetailHidesForeignOrders(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, _ := newOrdersService(t, db)

	owner := uuid.New()
	order := seedOrder(t, db, "FUL900000009", owner, []uuid.UUID{uuid.New()}, time.Now().UTC())

	detail, err := svc.BuyerOrderDetail(context.Background(), owner, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderID, detail.OrderID)
	require.Len(t, detail.Items, 1)

	_, err = svc.BuyerOrderDetail(context.Background(), uuid.New(), order.OrderID)
	assert.Equal(t, pkgerrors.CodeNotFound, errCode(t, err))
}

func TestVendorOrderDetailScopedToVendorItems(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, _ := newOrdersService(t, db)

	vendorA := uuid.New()
	vendorB := uuid.New()
	order := seedOrder(t, db, "FUL900000010", uuid.New(), []uuid.UUID{vendorA, vendorB}, time.Now().UTC())

	view, err := svc.VendorOrderDetail(context.Background(), vendorA, order.OrderID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, vendorA, view.Items[0].VendorID)

	_, err = svc.VendorOrderDetail(context.Background(), uuid.New(), order.OrderID)
	assert.Equal(t, pkgerrors.CodeNotFound, errCode(t, err))
}

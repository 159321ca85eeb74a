package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/teamnishkar/nishkar-backend/pkg/config"
	"github.com/teamnishkar/nishkar-backend/pkg/db/models"
	"github.com/teamnishkar/nishkar-backend/pkg/enums"
	"github.com/teamnishkar/nishkar-backend/pkg/outbox"
	"github.com/teamnishkar/nishkar-backend/pkg/outbox/idempotency"
	"github.com/teamnishkar/nishkar-backend/pkg/outbox/payloads"
)

var notificationsTestDDL = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  full_name TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'customer',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS vendors (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  shop_name TEXT NOT NULL,
  email TEXT NOT NULL,
  state TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  recipient TEXT NOT NULL,
  channels TEXT,
  payload TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT,
  sent_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
}

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	for _, ddl := range notificationsTestDDL {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

type stubNotifier struct {
	sent     []Message
	failures int
}

func (s *stubNotifier) Send(ctx context.Context, msg Message) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, msg)
	return nil
}

type fakeIdempotencyStore struct {
	firstDelivery bool
}

func (f *fakeIdempotencyStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeIdempotencyStore) SetNX(context.Context, string, any, time.Duration) (bool, error) {
	return f.firstDelivery, nil
}

func (f *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "nk:idempotency:" + scope + ":" + id
}

func (f *fakeIdempotencyStore) Del(context.Context, ...string) error {
	return nil
}

func seedRecipients(t *testing.T, db *gorm.DB, buyerID uuid.UUID, vendorIDs ...uuid.UUID) {
	t.Helper()

	require.NoError(t, db.Create(&models.User{
		ID:       buyerID,
		Email:    "buyer@example.com",
		FullName: "Asha Rao",
		Role:     enums.ActorRoleCustomer,
		IsActive: true,
	}).Error)
	for i, vendorID := range vendorIDs {
		require.NoError(t, db.Create(&models.Vendor{
			ID:       vendorID,
			UserID:   uuid.New(),
			ShopName: "Shop",
			Email:    "vendor" + string(rune('a'+i)) + "@example.com",
			State:    "Karnataka",
			IsActive: true,
		}).Error)
	}
}

func newTestWorker(t *testing.T, db *gorm.DB, notifier Notifier, idem *idempotency.Manager) *Worker {
	t.Helper()

	worker, err := NewWorker(WorkerParams{
		Config:      config.NotifyConfig{MaxAttempts: 3, FromAddress: "support@nishkar.com"},
		Repository:  NewRepository(db),
		Notifier:    notifier,
		Idempotency: idem,
	})
	require.NoError(t, err)
	return worker
}

func envelopeBytes(t *testing.T, data any) []byte {
	t.Helper()

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}
	payload, err := json.Marshal(envelope)
	require.NoError(t, err)
	return payload
}

func TestProcessOrderPlacedFansOut(t *testing.T) {
	db := setupNotificationsTestDB(t)
	notifier := &stubNotifier{}
	worker := newTestWorker(t, db, notifier, nil)

	buyerID := uuid.New()
	vendorA, vendorB := uuid.New(), uuid.New()
	seedRecipients(t, db, buyerID, vendorA, vendorB)

	payload := envelopeBytes(t, payloads.OrderPlacedEvent{
		OrderID:     "NTF900000001",
		UserID:      buyerID,
		VendorIDs:   []uuid.UUID{vendorA, vendorB, vendorA},
		TotalAmount: decimal.NewFromInt(1030),
		ItemCount:   2,
		PlacedAt:    time.Now().UTC(),
	})

	outcome := worker.Process(context.Background(), string(enums.EventOrderPlaced), payload)
	assert.Equal(t, outcomeProcessed, outcome)
	require.Len(t, notifier.sent, 3)
	assert.Equal(t, "buyer@example.com", notifier.sent[0].Recipient)
	assert.Contains(t, notifier.sent[0].Body, "1030.00")

	var rows []models.Notification
	require.NoError(t, db.Where("order_id = ?", "NTF900000001").Order("created_at").Find(&rows).Error)
	require.Len(t, rows, 3)
	kinds := map[enums.NotificationKind]int{}
	for _, row := range rows {
		kinds[row.Kind]++
		assert.Equal(t, enums.NotificationStatusSent, row.Status)
		assert.NotNil(t, row.SentAt)
		assert.Equal(t, 1, row.AttemptCount)
	}
	assert.Equal(t, 1, kinds[enums.NotificationOrderPlacedBuyer])
	assert.Equal(t, 2, kinds[enums.NotificationOrderPlacedVendor])
}

func TestProcessOrderDeliveredFansOut(t *testing.T) {
	db := setupNotificationsTestDB(t)
	notifier := &stubNotifier{}
	worker := newTestWorker(t, db, notifier, nil)

	buyerID := uuid.New()
	vendorID := uuid.New()
	seedRecipients(t, db, buyerID, vendorID)

	payload := envelopeBytes(t, payloads.OrderDeliveredEvent{
		OrderID:     "NTF900000002",
		UserID:      buyerID,
		VendorIDs:   []uuid.UUID{vendorID},
		DeliveredAt: time.Now().UTC(),
	})

	outcome := worker.Process(context.Background(), string(enums.EventOrderDelivered), payload)
	assert.Equal(t, outcomeProcessed, outcome)
	require.Len(t, notifier.sent, 2)

	var rows []models.Notification
	require.NoError(t, db.Where("order_id = ?", "NTF900000002").Find(&rows).Error)
	require.Len(t, rows, 2)
}

func TestProcessRetriesAreBounded(t *testing.T) {
	db := setupNotificationsTestDB(t)
	notifier := &stubNotifier{failures: 100}
	worker := newTestWorker(t, db, notifier, nil)

	buyerID := uuid.New()
	seedRecipients(t, db, buyerID)

	payload := envelopeBytes(t, payloads.OrderPlacedEvent{
		OrderID:     "NTF900000003",
		UserID:      buyerID,
		TotalAmount: decimal.NewFromInt(500),
		ItemCount:   1,
		PlacedAt:    time.Now().UTC(),
	})

	outcome := worker.Process(context.Background(), string(enums.EventOrderPlaced), payload)
	assert.Equal(t, outcomeProcessed, outcome, "delivery failures never fail the event")
	assert.Equal(t, 97, notifier.failures)

	var row models.Notification
	require.NoError(t, db.Where("order_id = ?", "NTF900000003").First(&row).Error)
	assert.Equal(t, enums.NotificationStatusFailed, row.Status)
	assert.Equal(t, 3, row.AttemptCount)
	require.NotNil(t, row.LastError)
	assert.Contains(t, *row.LastError, "smtp unavailable")
}

func TestProcessTransientFailureRecovers(t *testing.T) {
	db := setupNotificationsTestDB(t)
	notifier := &stubNotifier{failures: 1}
	worker := newTestWorker(t, db, notifier, nil)

	buyerID := uuid.New()
	seedRecipients(t, db, buyerID)

	payload := envelopeBytes(t, payloads.OrderPlacedEvent{
		OrderID:     "NTF900000004",
		UserID:      buyerID,
		TotalAmount: decimal.NewFromInt(500),
		ItemCount:   1,
		PlacedAt:    time.Now().UTC(),
	})

	outcome := worker.Process(context.Background(), string(enums.EventOrderPlaced), payload)
	assert.Equal(t, outcomeProcessed, outcome)

	var row models.Notification
	require.NoError(t, db.Where("order_id = ?", "NTF900000004").First(&row).Error)
	assert.Equal(t, enums.NotificationStatusSent, row.Status)
	assert.Equal(t, 2, row.AttemptCount)
}

func TestProcessMalformedEnvelope(t *testing.T) {
	db := setupNotificationsTestDB(t)
	worker := newTestWorker(t, db, &stubNotifier{}, nil)

	outcome := worker.Process(context.Background(), string(enums.EventOrderPlaced), []byte("{not json"))
	assert.Equal(t, outcomeInvalid, outcome)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestProcessUnsupportedEventType(t *testing.T) {
	db := setupNotificationsTestDB(t)
	worker := newTestWorker(t, db, &stubNotifier{}, nil)

	payload := envelopeBytes(t, map[string]string{"order_id": "NTF900000005"})
	outcome := worker.Process(context.Background(), "order.refunded", payload)
	assert.Equal(t, outcomeInvalid, outcome)
}

func TestProcessDuplicateEventSkipsFanOut(t *testing.T) {
	db := setupNotificationsTestDB(t)
	notifier := &stubNotifier{}

	idem, err := idempotency.NewManager(&fakeIdempotencyStore{firstDelivery: false}, time.Hour)
	require.NoError(t, err)
	worker := newTestWorker(t, db, notifier, idem)

	buyerID := uuid.New()
	seedRecipients(t, db, buyerID)

	payload := envelopeBytes(t, payloads.OrderPlacedEvent{
		OrderID:     "NTF900000006",
		UserID:      buyerID,
		TotalAmount: decimal.NewFromInt(500),
		ItemCount:   1,
		PlacedAt:    time.Now().UTC(),
	})

	outcome := worker.Process(context.Background(), string(enums.EventOrderPlaced), payload)
	assert.Equal(t, outcomeDuplicate, outcome)
	assert.Empty(t, notifier.sent)
}

func TestProcessMissingVendorSkipsOnlyThatTask(t *testing.T) {
	db := setupNotificationsTestDB(t)
	notifier := &stubNotifier{}
	worker := newTestWorker(t, db, notifier, nil)

	buyerID := uuid.New()
	seedRecipients(t, db, buyerID)

	payload := envelopeBytes(t, payloads.OrderPlacedEvent{
		OrderID:     "NTF900000007",
		UserID:      buyerID,
		VendorIDs:   []uuid.UUID{uuid.New()},
		TotalAmount: decimal.NewFromInt(500),
		ItemCount:   1,
		PlacedAt:    time.Now().UTC(),
	})

	outcome := worker.Process(context.Background(), string(enums.EventOrderPlaced), payload)
	assert.Equal(t, outcomeProcessed, outcome)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "buyer@example.com", notifier.sent[0].Recipient)
}

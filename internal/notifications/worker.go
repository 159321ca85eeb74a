package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/teamnishkar/nishkar-backend/pkg/config"
	"github.com/teamnishkar/nishkar-backend/pkg/db/models"
	"github.com/teamnishkar/nishkar-backend/pkg/enums"
	"github.com/teamnishkar/nishkar-backend/pkg/logger"
	"github.com/teamnishkar/nishkar-backend/pkg/metrics"
	"github.com/teamnishkar/nishkar-backend/pkg/outbox"
	"github.com/teamnishkar/nishkar-backend/pkg/outbox/idempotency"
	"github.com/teamnishkar/nishkar-backend/pkg/outbox/payloads"
)

const (
	consumerName = "notification-worker"
	jobName      = "notification_fanout"
)

type processOutcome string

const (
	outcomeProcessed processOutcome = "processed"
	outcomeDuplicate processOutcome = "duplicate"
	outcomeInvalid   processOutcome = "invalid"
)

// Worker consumes order events from the notification subscription and fans
// each one out to the buyer and every vendor with items in the order.
// Delivery failures are bounded, logged and counted, never propagated back
// to the subscription.
type Worker struct {
	cfg      config.NotifyConfig
	repo     Repository
	notifier Notifier
	idem     *idempotency.Manager
	metrics  *metrics.JobMetrics
	logg     *logger.Logger
}

// WorkerParams collects the worker dependencies. Idempotency and metrics
// are optional.
type WorkerParams struct {
	Config      config.NotifyConfig
	Repository  Repository
	Notifier    Notifier
	Idempotency *idempotency.Manager
	Metrics     *metrics.JobMetrics
	Logger      *logger.Logger
}

// NewWorker builds the notification fan-out worker.
func NewWorker(params WorkerParams) (*Worker, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Config.MaxAttempts <= 0 {
		params.Config.MaxAttempts = 1
	}
	return &Worker{
		cfg:      params.Config,
		repo:     params.Repository,
		notifier: params.Notifier,
		idem:     params.Idempotency,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Run blocks consuming the subscription until the context is cancelled.
func (w *Worker) Run(ctx context.Context, sub *pubsub.Subscriber) error {
	if sub == nil {
		return fmt.Errorf("subscriber required")
	}
	return sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		w.Process(ctx, msg.Attributes["event_type"], msg.Data)
		// Every outcome acks: replays are deduplicated and malformed
		// payloads would poison-loop on nack.
		msg.Ack()
	})
}

// Process handles one decoded subscription message.
func (w *Worker) Process(ctx context.Context, eventType string, data []byte) processOutcome {
	started := time.Now()
	defer func() {
		w.metrics.ObserveDuration(jobName, time.Since(started))
	}()

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		w.logError(ctx, "notification event payload malformed", err)
		w.metrics.IncFailure(jobName)
		return outcomeInvalid
	}

	if dup := w.alreadyProcessed(ctx, envelope.EventID); dup {
		return outcomeDuplicate
	}

	tasks, err := expandTasks(enums.OutboxEventType(eventType), envelope.Data)
	if err != nil {
		w.logError(ctx, "notification event not expandable", err)
		w.metrics.IncFailure(jobName)
		return outcomeInvalid
	}

	for _, task := range tasks {
		w.dispatch(ctx, task)
	}
	return outcomeProcessed
}

func (w *Worker) alreadyProcessed(ctx context.Context, rawEventID string) bool {
	if w.idem == nil {
		return false
	}
	eventID, err := uuid.Parse(rawEventID)
	if err != nil {
		return false
	}
	already, err := w.idem.CheckAndMarkProcessed(ctx, consumerName, eventID)
	if err != nil {
		// Redis being down must not block fan-out; the durable rows make
		// replays visible either way.
		if w.logg != nil {
			w.logg.Warn(ctx, "idempotency check unavailable, processing anyway")
		}
		return false
	}
	if already && w.logg != nil {
		w.logg.Info(w.logg.WithField(ctx, "event_id", rawEventID), "notification event already processed")
	}
	return already
}

// dispatchTask is one recipient-level notification derived from an event.
type dispatchTask struct {
	kind     enums.NotificationKind
	orderID  string
	userID   uuid.UUID
	vendorID uuid.UUID
	subject  string
	body     string
	payload  json.RawMessage
}

func expandTasks(eventType enums.OutboxEventType, data json.RawMessage) ([]dispatchTask, error) {
	switch eventType {
	case enums.EventOrderPlaced:
		var evt payloads.OrderPlacedEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return nil, err
		}
		if evt.OrderID == "" {
			return nil, fmt.Errorf("order placed event missing order id")
		}
		tasks := []dispatchTask{{
			kind:    enums.NotificationOrderPlacedBuyer,
			orderID: evt.OrderID,
			userID:  evt.UserID,
			subject: fmt.Sprintf("Order %s confirmed", evt.OrderID),
			body: fmt.Sprintf("Your order %s with %d item(s) totalling %s was placed successfully.",
				evt.OrderID, evt.ItemCount, evt.TotalAmount.StringFixed(2)),
			payload: data,
		}}
		for _, vendorID := range dedupe(evt.VendorIDs) {
			tasks = append(tasks, dispatchTask{
				kind:     enums.NotificationOrderPlacedVendor,
				orderID:  evt.OrderID,
				vendorID: vendorID,
				subject:  fmt.Sprintf("New order %s", evt.OrderID),
				body:     fmt.Sprintf("Order %s contains items from your shop. Please start fulfilment.", evt.OrderID),
				payload:  data,
			})
		}
		return tasks, nil

	case enums.EventOrderDelivered:
		var evt payloads.OrderDeliveredEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return nil, err
		}
		if evt.OrderID == "" {
			return nil, fmt.Errorf("order delivered event missing order id")
		}
		tasks := []dispatchTask{{
			kind:    enums.NotificationOrderDeliveredBuyer,
			orderID: evt.OrderID,
			userID:  evt.UserID,
			subject: fmt.Sprintf("Order %s delivered", evt.OrderID),
			body:    fmt.Sprintf("Your order %s was delivered on %s.", evt.OrderID, evt.DeliveredAt.Format("02 Jan 2006")),
			payload: data,
		}}
		for _, vendorID := range dedupe(evt.VendorIDs) {
			tasks = append(tasks, dispatchTask{
				kind:     enums.NotificationOrderDeliveredVendor,
				orderID:  evt.OrderID,
				vendorID: vendorID,
				subject:  fmt.Sprintf("Order %s completed", evt.OrderID),
				body:     fmt.Sprintf("All items of order %s reached the buyer.", evt.OrderID),
				payload:  data,
			})
		}
		return tasks, nil
	}
	return nil, fmt.Errorf("unsupported event type %q", eventType)
}

func (w *Worker) dispatch(ctx context.Context, task dispatchTask) {
	recipient, err := w.resolveRecipient(ctx, task)
	if err != nil {
		w.logError(ctx, "notification recipient unresolved", err)
		w.metrics.IncFailure(jobName)
		return
	}

	record := &models.Notification{
		ID:        uuid.New(),
		OrderID:   task.orderID,
		Kind:      task.kind,
		Recipient: recipient,
		Channels:  pq.StringArray{"email"},
		Payload:   task.payload,
		Status:    enums.NotificationStatusPending,
	}
	if err := w.repo.Insert(ctx, record); err != nil {
		w.logError(ctx, "notification task not persisted", err)
		w.metrics.IncFailure(jobName)
		return
	}

	msg := Message{
		OrderID:   task.orderID,
		Recipient: recipient,
		From:      w.cfg.FromAddress,
		Subject:   task.subject,
		Body:      task.body,
	}

	var lastErr error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		if lastErr = w.notifier.Send(ctx, msg); lastErr == nil {
			if err := w.repo.MarkSent(ctx, record.ID, attempt, time.Now().UTC()); err != nil {
				w.logError(ctx, "notification status not updated", err)
			}
			w.metrics.IncSuccess(jobName)
			return
		}
	}
	if err := w.repo.MarkFailed(ctx, record.ID, w.cfg.MaxAttempts, lastErr.Error()); err != nil {
		w.logError(ctx, "notification status not updated", err)
	}
	w.logError(ctx, "notification delivery exhausted retries", lastErr)
	w.metrics.IncFailure(jobName)
}

func (w *Worker) resolveRecipient(ctx context.Context, task dispatchTask) (string, error) {
	if task.vendorID != uuid.Nil {
		return w.repo.VendorEmail(ctx, task.vendorID)
	}
	if task.userID == uuid.Nil {
		return "", fmt.Errorf("task for order %s has no recipient", task.orderID)
	}
	email, err := w.repo.BuyerEmail(ctx, task.userID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(email) == "" {
		return "", fmt.Errorf("buyer %s has no email", task.userID)
	}
	return email, nil
}

func (w *Worker) logError(ctx context.Context, msg string, err error) {
	if w.logg == nil {
		return
	}
	w.logg.Error(ctx, msg, err)
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

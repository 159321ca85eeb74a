package payments

import (
	"context"
	"time"

	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
	"github.com/teamnishkar/nishkar-backend/pkg/redis"
)

const webhookGuardScope = "stripe_event"

// IdempotencyGuard deduplicates provider webhook deliveries by event ID.
// Stripe retries deliveries until acknowledged, so a replayed event must be
// recognized before the handler runs.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency store required")
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &IdempotencyGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark records the event ID and reports whether it was seen before.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	key := g.store.IdempotencyKey(webhookGuardScope, eventID)
	stored, err := g.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook idempotency check failed")
	}
	return !stored, nil
}

// Delete releases the mark so a failed delivery can be retried by the provider.
func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	return g.store.Del(ctx, g.store.IdempotencyKey(webhookGuardScope, eventID))
}

package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/teamnishkar/nishkar-backend/api/responses"
	"github.com/teamnishkar/nishkar-backend/internal/payments"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
	"github.com/teamnishkar/nishkar-backend/pkg/logger"
	"github.com/teamnishkar/nishkar-backend/pkg/metrics"
)

const eventCheckoutCompleted = "checkout.session.completed"

type StripeWebhookService interface {
	HandleCheckoutCompleted(ctx context.Context, sess *stripe.CheckoutSession) (*payments.Result, error)
}

type stripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type stripeClient interface {
	SigningSecret() string
}

// StripeWebhook verifies and reconciles Stripe checkout events. Replayed
// deliveries acknowledge without side effects; unrecognized event types
// acknowledge so Stripe stops retrying them.
func StripeWebhook(svc StripeWebhookService, client stripeClient, guard stripeWebhookGuard, wm *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe client unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			observe(wm, "unknown", "invalid", time.Time{})
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}

		event, err := webhook.ConstructEvent(payload, sigHeader, client.SigningSecret())
		if err != nil {
			observe(wm, "unknown", "invalid", time.Time{})
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "stripe signature invalid"))
			return
		}

		eventType := string(event.Type)
		started := time.Now()

		if eventType != eventCheckoutCompleted {
			if logg != nil {
				logg.Info(ctx, fmt.Sprintf("stripe event %s ignored (%s)", event.ID, eventType))
			}
			responses.WriteSuccess(w, nil)
			return
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			observe(wm, eventType, "failed", started)
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if alreadyProcessed {
			observe(wm, eventType, "duplicate", started)
			responses.WriteSuccess(w, nil)
			return
		}

		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			_ = guard.Delete(ctx, event.ID)
			observe(wm, eventType, "invalid", started)
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session payload"))
			return
		}

		result, err := svc.HandleCheckoutCompleted(ctx, &sess)
		if err != nil {
			_ = guard.Delete(ctx, event.ID)
			if pkgerrors.As(err) != nil && pkgerrors.As(err).Code() == pkgerrors.CodeValidation {
				observe(wm, eventType, "invalid", started)
			} else {
				observe(wm, eventType, "failed", started)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		outcome := "processed"
		if result != nil && result.Outcome == payments.OutcomeDuplicate {
			outcome = "duplicate"
		}
		observe(wm, eventType, outcome, started)
		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("stripe event %s %s", event.ID, outcome))
		}
		responses.WriteSuccess(w, nil)
	}
}

func observe(wm *metrics.WebhookMetrics, eventType, outcome string, started time.Time) {
	if wm == nil {
		return
	}
	wm.IncOutcome(eventType, outcome)
	if !started.IsZero() {
		wm.ObserveDuration(eventType, time.Since(started))
	}
}

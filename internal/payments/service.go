package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/teamnishkar/nishkar-backend/internal/address"
	"github.com/teamnishkar/nishkar-backend/internal/cart"
	"github.com/teamnishkar/nishkar-backend/internal/checkout"
	"github.com/teamnishkar/nishkar-backend/internal/coupons"
	"github.com/teamnishkar/nishkar-backend/internal/orders"
	"github.com/teamnishkar/nishkar-backend/internal/tax"
	"github.com/teamnishkar/nishkar-backend/pkg/config"
	"github.com/teamnishkar/nishkar-backend/pkg/db/models"
	"github.com/teamnishkar/nishkar-backend/pkg/enums"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
	"github.com/teamnishkar/nishkar-backend/pkg/logger"
	"github.com/teamnishkar/nishkar-backend/pkg/outbox"
	"github.com/teamnishkar/nishkar-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Outcome classifies how a gateway event was settled.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
)

// Result reports what reconciliation did with a completed session.
type Result struct {
	Outcome      Outcome
	TrackingCode string
}

// Service turns confirmed gateway sessions into orders. The deferred
// checkout reserved a tracking code; reconciliation claims that reservation
// exactly once and rebuilds the order from the cart as it stands now.
type Service interface {
	HandleCheckoutCompleted(ctx context.Context, sess *stripe.CheckoutSession) (*Result, error)
}

type service struct {
	cfg        config.CheckoutConfig
	tx         txRunner
	cartReader cart.Reader
	addresses  address.Repository
	coupons    coupons.Repository
	ordersRepo orders.Repository
	pending    checkout.PendingCheckoutRepository
	resolver   *tax.Resolver
	outbox     outboxPublisher
	logg       *logger.Logger
}

// ServiceParams collects the reconciliation service dependencies.
type ServiceParams struct {
	Config            config.CheckoutConfig
	TransactionRunner txRunner
	CartReader        cart.Reader
	Addresses         address.Repository
	Coupons           coupons.Repository
	OrdersRepo        orders.Repository
	Pending           checkout.PendingCheckoutRepository
	TaxResolver       *tax.Resolver
	Outbox            outboxPublisher
	Logger            *logger.Logger
}

// NewService builds the payment reconciliation service.
func NewService(params ServiceParams) (Service, error) {
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.CartReader == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if params.Addresses == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupons repository required")
	}
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Pending == nil {
		return nil, fmt.Errorf("pending checkout repository required")
	}
	if params.TaxResolver == nil {
		params.TaxResolver = tax.NewDefaultResolver()
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		cfg:        params.Config,
		tx:         params.TransactionRunner,
		cartReader: params.CartReader,
		addresses:  params.Addresses,
		coupons:    params.Coupons,
		ordersRepo: params.OrdersRepo,
		pending:    params.Pending,
		resolver:   params.TaxResolver,
		outbox:     params.Outbox,
		logg:       params.Logger,
	}, nil
}

func (s *service) HandleCheckoutCompleted(ctx context.Context, sess *stripe.CheckoutSession) (*Result, error) {
	if sess == nil || sess.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session payload missing")
	}
	orderID := strings.TrimSpace(sess.Metadata["order_id"])
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session metadata missing order id")
	}

	// The gateway redelivers until acknowledged, so lookups run under a
	// fixed budget rather than the request deadline.
	if s.cfg.WebhookLookupBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.WebhookLookupBudget)
		defer cancel()
	}

	var result *Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		pending := s.pending.WithTx(tx)

		claimed, err := pending.Claim(ctx, orderID)
		if err != nil {
			return err
		}
		if !claimed {
			// Either the reservation was already consumed (replay) or it
			// never existed (forged or stale metadata).
			if _, err := pending.FindByOrderID(ctx, orderID); err != nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "no checkout reservation for session")
			}
			result = &Result{Outcome: OutcomeDuplicate, TrackingCode: orderID}
			return nil
		}
		record, err := pending.FindByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		if record.SessionID != sess.ID {
			return pkgerrors.New(pkgerrors.CodeValidation, "session does not match reservation")
		}

		cartReader := s.cartReader.WithTx(tx)
		snapshot, err := cartReader.LoadActiveCart(ctx, record.UserID)
		if err != nil {
			// A captured payment with no cart to reconcile needs an
			// operator; the claim rolls back so redeliveries keep
			// surfacing it.
			if s.logg != nil {
				alertCtx := s.logg.WithFields(ctx, map[string]any{
					"order_id":   record.OrderID,
					"session_id": sess.ID,
					"user_id":    record.UserID.String(),
				})
				s.logg.Error(alertCtx, "paid session cannot be reconciled, cart unavailable", err)
			}
			return err
		}

		buyerRegion := s.buyerRegion(ctx, tx, record)
		coupon := s.redeemCoupon(ctx, tx, record, now)

		assembly, err := orders.Assemble(orders.AssembleInput{
			TrackingCode: record.OrderID,
			UserID:       record.UserID,
			AddressID:    record.AddressID,
			Coupon:       coupon,
			Currency:     enums.Currency(s.cfg.Currency),
			Lines:        s.priceLines(buyerRegion, snapshot.Lines),
			Now:          now,
		})
		if err != nil {
			return err
		}
		if err := s.ordersRepo.WithTx(tx).CreateOrderWithItems(ctx, assembly, 1); err != nil {
			return err
		}

		payment := &models.Payment{
			ID:          uuid.New(),
			OrderID:     record.OrderID,
			ProviderRef: sess.ID,
			Method:      "card",
			Amount:      assembly.Order.TotalAmount,
			Currency:    assembly.Order.Currency,
			Status:      enums.PaymentStatusPaid,
		}
		if _, err := s.ordersRepo.WithTx(tx).CreatePayment(ctx, payment); err != nil {
			return err
		}
		if err := cartReader.ClearCart(ctx, snapshot.CartID); err != nil {
			return err
		}

		event := orderPlacedEvent(assembly, snapshot.VendorIDs(), record.UserID, now)
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		result = &Result{Outcome: OutcomeProcessed, TrackingCode: record.OrderID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		octx := s.logg.WithOrderID(ctx, result.TrackingCode)
		switch result.Outcome {
		case OutcomeDuplicate:
			s.logg.Info(octx, "checkout session replayed, reservation already consumed")
		default:
			s.logg.Info(octx, "checkout session reconciled into order")
		}
	}
	return result, nil
}

// buyerRegion resolves the shipping region stored with the reservation. A
// deleted or reassigned address degrades to the user's default shipping
// address, and finally to a blank region, which routes the order tax into
// the review queue instead of failing a paid session.
func (s *service) buyerRegion(ctx context.Context, tx *gorm.DB, record *models.PendingCheckout) string {
	repo := s.addresses.WithTx(tx)
	if record.AddressID != nil {
		if addr, err := repo.FindForUser(ctx, *record.AddressID, record.UserID); err == nil {
			return addr.State
		}
	}
	if addr, err := repo.DefaultShipping(ctx, record.UserID); err == nil {
		return addr.State
	}
	if s.logg != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, record.OrderID), "no shipping address for paid session, tax flagged for review")
	}
	return ""
}

// redeemCoupon consumes the coupon reserved with the session. The payment is
// already captured at this point, so a coupon that expired or ran out since
// session creation is dropped with a warning rather than failing the order.
func (s *service) redeemCoupon(ctx context.Context, tx *gorm.DB, record *models.PendingCheckout, now time.Time) *models.Coupon {
	if record.CouponCode == nil || strings.TrimSpace(*record.CouponCode) == "" {
		return nil
	}
	repo := s.coupons.WithTx(tx)
	coupon, err := repo.FindByCode(ctx, *record.CouponCode)
	if err == nil {
		if err = coupons.Validate(coupon, now); err == nil {
			err = repo.Consume(ctx, coupon.ID.String())
		}
	}
	if err != nil {
		if s.logg != nil {
			octx := s.logg.WithField(s.logg.WithOrderID(ctx, record.OrderID), "coupon_code", *record.CouponCode)
			s.logg.Warn(octx, "coupon no longer redeemable, order placed without discount")
		}
		return nil
	}
	return coupon
}

func (s *service) priceLines(buyerRegion string, lines []cart.Line) []orders.LineInput {
	priced := make([]orders.LineInput, 0, len(lines))
	for _, line := range lines {
		priced = append(priced, orders.LineInput{
			ProductID:   line.ProductID,
			VendorID:    line.VendorID,
			ProductName: line.ProductName,
			Size:        line.Size,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Tax:         s.resolver.Resolve(buyerRegion, line.VendorRegion),
		})
	}
	return priced
}

func orderPlacedEvent(assembly *orders.Assembly, vendorIDs []uuid.UUID, userID uuid.UUID, now time.Time) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   assembly.Order.OrderID,
		Version:       1,
		Actor: &outbox.ActorRef{
			UserID: userID,
			Role:   string(enums.ActorRoleCustomer),
		},
		Data: payloads.OrderPlacedEvent{
			OrderID:     assembly.Order.OrderID,
			UserID:      userID,
			VendorIDs:   vendorIDs,
			TotalAmount: assembly.Order.TotalAmount,
			ItemCount:   len(assembly.Items),
			PlacedAt:    now,
		},
	}
}

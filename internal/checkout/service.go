package checkout

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

// Service executes checkout orchestration: the direct variant places the
// order inside one transaction, the deferred variant hands the cart to the
// payment gateway and reserves a tracking code for reconciliation.
type Service interface {
	OrderNow(ctx context.Context, userID uuid.UUID, input OrderNowInput) (*OrderReceipt, error)
	CreateSession(ctx context.Context, userID uuid.UUID, input SessionInput) (*SessionResult, error)
}

type service struct {
	cfg        config.CheckoutConfig
	tx         txRunner
	cartReader cart.Reader
	addresses  address.Repository
	coupons    coupons.Repository
	ordersRepo orders.Repository
	pending    PendingCheckoutRepository
	resolver   *tax.Resolver
	stripe     StripeSessionClient
	outbox     outboxPublisher
	logg       *logger.Logger
}

// ServiceParams collects the checkout service dependencies.
type ServiceParams struct {
	Config            config.CheckoutConfig
	TransactionRunner txRunner
	CartReader        cart.Reader
	Addresses         address.Repository
	Coupons           coupons.Repository
	OrdersRepo        orders.Repository
	Pending           PendingCheckoutRepository
	TaxResolver       *tax.Resolver
	Stripe            StripeSessionClient
	Outbox            outboxPublisher
	Logger            *logger.Logger
}

// NewService builds the checkout service.
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
	if params.Stripe == nil {
		return nil, fmt.Errorf("stripe session client required")
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
		stripe:     params.Stripe,
		outbox:     params.Outbox,
		logg:       params.Logger,
	}, nil
}

func (s *service) OrderNow(ctx context.Context, userID uuid.UUID, input OrderNowInput) (*OrderReceipt, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id required")
	}

	var receipt *OrderReceipt
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		cartReader := s.cartReader.WithTx(tx)

		snapshot, err := cartReader.LoadActiveCart(ctx, userID)
		if err != nil {
			return err
		}
		addr, err := s.addresses.WithTx(tx).FindForUser(ctx, input.AddressID, userID)
		if err != nil {
			return err
		}
		coupon, err := s.resolveCoupon(ctx, tx, input.CouponCode, now, true)
		if err != nil {
			return err
		}

		assembly, err := orders.Assemble(orders.AssembleInput{
			UserID:    userID,
			AddressID: &addr.ID,
			Coupon:    coupon,
			Currency:  enums.Currency(s.cfg.Currency),
			Lines:     s.priceLines(addr.State, snapshot.Lines),
			Now:       now,
		})
		if err != nil {
			return err
		}
		if err := s.ordersRepo.WithTx(tx).CreateOrderWithItems(ctx, assembly, s.cfg.TrackingCodeRetries); err != nil {
			return err
		}
		if err := cartReader.ClearCart(ctx, snapshot.CartID); err != nil {
			return err
		}

		event := orderPlacedEvent(assembly, snapshot.VendorIDs(), userID, now)
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		receipt = receiptFromAssembly(assembly)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, receipt.OrderID), "order placed")
	}
	return receipt, nil
}

func (s *service) CreateSession(ctx context.Context, userID uuid.UUID, input SessionInput) (*SessionResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id required")
	}

	now := time.Now().UTC()
	snapshot, err := s.cartReader.LoadActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	addr, err := s.addresses.FindForUser(ctx, input.AddressID, userID)
	if err != nil {
		return nil, err
	}
	// Budget is validated here but only consumed when the gateway confirms.
	if _, err := s.resolveCoupon(ctx, nil, input.CouponCode, now, false); err != nil {
		return nil, err
	}

	code, err := orders.NewTrackingCode()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate tracking code")
	}

	params := s.sessionParams(code, userID, addr.ID, input.CouponCode, snapshot.Lines)
	sess, err := s.stripe.CreateSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe checkout session")
	}

	record := &models.PendingCheckout{
		ID:         uuid.New(),
		OrderID:    code,
		SessionID:  sess.ID,
		UserID:     userID,
		AddressID:  &addr.ID,
		CouponCode: input.CouponCode,
	}
	if err := s.pending.Insert(ctx, record); err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, code), "checkout session reserved")
	}
	return &SessionResult{
		SessionID:    sess.ID,
		SessionURL:   sess.URL,
		TrackingCode: code,
	}, nil
}

// resolveCoupon validates the optional coupon; consume controls whether the
// redemption budget is decremented (direct checkout yes, session setup no).
func (s *service) resolveCoupon(ctx context.Context, tx *gorm.DB, code *string, now time.Time, consume bool) (*models.Coupon, error) {
	if code == nil || strings.TrimSpace(*code) == "" {
		return nil, nil
	}
	repo := s.coupons
	if tx != nil {
		repo = repo.WithTx(tx)
	}
	coupon, err := repo.FindByCode(ctx, *code)
	if err != nil {
		return nil, err
	}
	if err := coupons.Validate(coupon, now); err != nil {
		return nil, err
	}
	if consume {
		if err := repo.Consume(ctx, coupon.ID.String()); err != nil {
			return nil, err
		}
	}
	return coupon, nil
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

func (s *service) sessionParams(code string, userID, addressID uuid.UUID, couponCode *string, lines []cart.Line) *stripe.CheckoutSessionParams {
	currency := strings.ToLower(s.cfg.Currency)
	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(lines))
	for _, line := range lines {
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.ProductName),
				},
				// Gateway amounts are integral minor units (paise).
				UnitAmount: stripe.Int64(line.UnitPrice.Shift(2).Round(0).IntPart()),
			},
			Quantity: stripe.Int64(int64(line.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          items,
		SuccessURL:         stripe.String(s.cfg.SuccessURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripe.String(s.cfg.CancelURL),
	}
	params.AddMetadata("order_id", code)
	params.AddMetadata("user_id", userID.String())
	params.AddMetadata("address_id", addressID.String())
	if couponCode != nil {
		params.AddMetadata("coupon_code", *couponCode)
	}
	return params
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

func receiptFromAssembly(assembly *orders.Assembly) *OrderReceipt {
	order := assembly.Order
	return &OrderReceipt{
		OrderID:          order.OrderID,
		Status:           order.Status,
		Currency:         order.Currency,
		Subtotal:         order.Subtotal,
		DiscountValue:    order.DiscountValue,
		DiscountedAmount: order.DiscountedAmount,
		CGST:             order.CGST,
		SGST:             order.SGST,
		IGST:             order.IGST,
		TotalAmount:      order.TotalAmount,
		TaxReviewNeeded:  order.TaxReviewNeeded,
		ItemCount:        len(assembly.Items),
	}
}

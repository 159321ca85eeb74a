package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/teamnishkar/nishkar-backend/internal/coupons"
	"github.com/teamnishkar/nishkar-backend/internal/tax"
	"github.com/teamnishkar/nishkar-backend/pkg/db/models"
	"github.com/teamnishkar/nishkar-backend/pkg/enums"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
)

const (
	trackingCodePrefixChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	trackingCodeDigits      = "0123456789"
	trackingCodePrefixLen   = 3
	trackingCodeDigitLen    = 9
)

// NewTrackingCode generates a public order identifier: three uppercase
// alphanumerics followed by nine digits, from crypto/rand.
func NewTrackingCode() (string, error) {
	buf := make([]byte, 0, trackingCodePrefixLen+trackingCodeDigitLen)
	for i := 0; i < trackingCodePrefixLen; i++ {
		c, err := randomChar(trackingCodePrefixChars)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for i := 0; i < trackingCodeDigitLen; i++ {
		c, err := randomChar(trackingCodeDigits)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	return string(buf), nil
}

func randomChar(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, fmt.Errorf("generate tracking code: %w", err)
	}
	return alphabet[n.Int64()], nil
}

// LineInput is one priced cart line with its resolved tax split.
type LineInput struct {
	ProductID   uuid.UUID
	VendorID    uuid.UUID
	ProductName string
	Size        *string
	Quantity    int
	UnitPrice   decimal.Decimal
	Tax         tax.Split
}

// AssembleInput carries everything needed to build an order aggregate.
type AssembleInput struct {
	// TrackingCode, when set, pins the order identifier (deferred checkout
	// reserves it up front). Left empty, a fresh code is generated.
	TrackingCode string
	UserID       uuid.UUID
	AddressID    *uuid.UUID
	Coupon       *models.Coupon
	Currency     enums.Currency
	Lines        []LineInput
	Now          time.Time
}

// Assembly is the assembled but not yet persisted order aggregate.
type Assembly struct {
	Order models.Order
	Items []models.OrderItem
}

// Assemble prices the lines, applies the coupon, and builds the order row
// plus its item snapshots. Money is rounded half-up to two decimal places;
// the discount shrinks the taxable base proportionally across lines.
func Assemble(input AssembleInput) (*Assembly, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line")
	}
	now := input.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyINR
	}

	code := input.TrackingCode
	if code == "" {
		generated, err := NewTrackingCode()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate tracking code")
		}
		code = generated
	}

	hundred := decimal.NewFromInt(100)
	subtotal := decimal.Zero
	reviewNeeded := false
	items := make([]models.OrderItem, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line unit price must not be negative")
		}
		lineSubtotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		lineCGST := lineSubtotal.Mul(line.Tax.CGST).Div(hundred).Round(2)
		lineSGST := lineSubtotal.Mul(line.Tax.SGST).Div(hundred).Round(2)
		lineIGST := lineSubtotal.Mul(line.Tax.IGST).Div(hundred).Round(2)
		lineTotal := lineSubtotal.Add(lineCGST).Add(lineSGST).Add(lineIGST)
		if line.Tax.ReviewRequired {
			reviewNeeded = true
		}

		received := now
		items = append(items, models.OrderItem{
			ProductID:    line.ProductID,
			VendorID:     line.VendorID,
			ProductName:  line.ProductName,
			Size:         line.Size,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			CGST:         line.Tax.CGST,
			SGST:         line.Tax.SGST,
			IGST:         line.Tax.IGST,
			SubTotal:     lineSubtotal,
			TotalPrice:   lineTotal,
			VendorStatus: enums.VendorStatusReceived,
			ReceivedAt:   &received,
		})
		subtotal = subtotal.Add(lineSubtotal)
	}

	discount := coupons.Discount(input.Coupon, subtotal)
	discounted := subtotal.Sub(discount)

	// The coupon shrinks the taxable base, so scale each line's tax by the
	// discounted share of the subtotal before summing the components.
	ratio := decimal.NewFromInt(1)
	if subtotal.IsPositive() {
		ratio = discounted.Div(subtotal)
	}
	orderCGST := decimal.Zero
	orderSGST := decimal.Zero
	orderIGST := decimal.Zero
	for i := range items {
		base := items[i].SubTotal.Mul(ratio)
		orderCGST = orderCGST.Add(base.Mul(items[i].CGST).Div(hundred))
		orderSGST = orderSGST.Add(base.Mul(items[i].SGST).Div(hundred))
		orderIGST = orderIGST.Add(base.Mul(items[i].IGST).Div(hundred))
	}
	orderCGST = orderCGST.Round(2)
	orderSGST = orderSGST.Round(2)
	orderIGST = orderIGST.Round(2)
	total := discounted.Add(orderCGST).Add(orderSGST).Add(orderIGST)

	var couponID *uuid.UUID
	if input.Coupon != nil {
		id := input.Coupon.ID
		couponID = &id
	}

	placed := now
	order := models.Order{
		OrderID:          code,
		UserID:           input.UserID,
		AddressID:        input.AddressID,
		CouponID:         couponID,
		OrderDate:        now,
		Currency:         currency,
		CGST:             orderCGST,
		SGST:             orderSGST,
		IGST:             orderIGST,
		Subtotal:         subtotal,
		DiscountValue:    discount,
		DiscountedAmount: discounted,
		TotalAmount:      total,
		TaxReviewNeeded:  reviewNeeded,
		Status:           enums.OrderStatusPlaced,
		PlacedAt:         &placed,
	}

	assembly := &Assembly{Order: order, Items: items}
	assembly.bindItems()
	return assembly, nil
}

// bindItems points every item at the current tracking code.
func (a *Assembly) bindItems() {
	for i := range a.Items {
		a.Items[i].OrderID = &a.Order.OrderID
	}
}

// Rekey swaps in a fresh tracking code after a collision.
func (a *Assembly) Rekey() error {
	code, err := NewTrackingCode()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate tracking code")
	}
	a.Order.OrderID = code
	a.bindItems()
	return nil
}

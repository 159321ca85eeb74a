package orders

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamnishkar/nishkar-backend/internal/tax"
	"github.com/teamnishkar/nishkar-backend/pkg/db/models"
	"github.com/teamnishkar/nishkar-backend/pkg/enums"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
)

var trackingCodePattern = regexp.MustCompile(`^[A-Z0-9]{3}[0-9]{9}$`)

func intraSplit() tax.Split {
	return tax.Split{
		CGST: decimal.NewFromFloat(1.5),
		SGST: decimal.NewFromFloat(1.5),
		IGST: decimal.Zero,
	}
}

func fallbackSplit() tax.Split {
	return tax.Split{
		IGST:           decimal.NewFromInt(3),
		ReviewRequired: true,
	}
}

func twoLineInput() AssembleInput {
	return AssembleInput{
		UserID:   uuid.New(),
		Currency: enums.CurrencyINR,
		Now:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Lines: []LineInput{
			{
				ProductID:   uuid.New(),
				VendorID:    uuid.New(),
				ProductName: "Handloom Stole",
				Quantity:    2,
				UnitPrice:   decimal.NewFromInt(500),
				Tax:         intraSplit(),
			},
			{
				ProductID:   uuid.New(),
				VendorID:    uuid.New(),
				ProductName: "Brass Lamp",
				Quantity:    1,
				UnitPrice:   decimal.NewFromInt(1000),
				Tax:         intraSplit(),
			},
		},
	}
}

func TestNewTrackingCodeFormat(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		code, err := NewTrackingCode()
		require.NoError(t, err)
		assert.Regexp(t, trackingCodePattern, code)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}

func TestAssembleTotals(t *testing.T) {
	assembly, err := Assemble(twoLineInput())
	require.NoError(t, err)

	order := assembly.Order
	assert.Regexp(t, trackingCodePattern, order.OrderID)
	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(2000)), "subtotal %s", order.Subtotal)
	assert.True(t, order.CGST.Equal(decimal.NewFromInt(30)), "cgst %s", order.CGST)
	assert.True(t, order.SGST.Equal(decimal.NewFromInt(30)), "sgst %s", order.SGST)
	assert.True(t, order.IGST.IsZero())
	assert.True(t, order.DiscountValue.IsZero())
	assert.True(t, order.DiscountedAmount.Equal(decimal.NewFromInt(2000)))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(2060)), "total %s", order.TotalAmount)
	assert.False(t, order.TaxReviewNeeded)
	assert.Equal(t, enums.OrderStatusPlaced, order.Status)
	require.NotNil(t, order.PlacedAt)

	require.Len(t, assembly.Items, 2)
	for _, item := range assembly.Items {
		require.NotNil(t, item.OrderID)
		assert.Equal(t, order.OrderID, *item.OrderID)
		assert.Equal(t, enums.VendorStatusReceived, item.VendorStatus)
		require.NotNil(t, item.ReceivedAt)
	}
	assert.True(t, assembly.Items[0].SubTotal.Equal(decimal.NewFromInt(1000)))
	assert.True(t, assembly.Items[0].TotalPrice.Equal(decimal.NewFromInt(1030)))
	assert.True(t, assembly.Items[1].TotalPrice.Equal(decimal.NewFromInt(1030)))
}

func TestAssemblePercentageCouponShrinksTaxBase(t *testing.T) {
	input := twoLineInput()
	input.Coupon = &models.Coupon{
		ID:           uuid.New(),
		Code:         "FESTIVE10",
		DiscountType: enums.CouponTypePercentage,
		Value:        decimal.NewFromInt(10),
		MaximumUses:  100,
		Active:       true,
	}

	assembly, err := Assemble(input)
	require.NoError(t, err)

	order := assembly.Order
	assert.True(t, order.DiscountValue.Equal(decimal.NewFromInt(200)), "discount %s", order.DiscountValue)
	assert.True(t, order.DiscountedAmount.Equal(decimal.NewFromInt(1800)))
	assert.True(t, order.CGST.Equal(decimal.NewFromInt(27)), "cgst %s", order.CGST)
	assert.True(t, order.SGST.Equal(decimal.NewFromInt(27)), "sgst %s", order.SGST)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(1854)), "total %s", order.TotalAmount)
	require.NotNil(t, order.CouponID)
	assert.Equal(t, input.Coupon.ID, *order.CouponID)
}

func TestAssembleFlagsBlankRegionForReview(t *testing.T) {
	input := twoLineInput()
	input.Lines[0].Tax = fallbackSplit()

	assembly, err := Assemble(input)
	require.NoError(t, err)

	order := assembly.Order
	assert.True(t, order.TaxReviewNeeded)
	// 3% IGST on the first line's 1000, intra split on the rest.
	assert.True(t, order.IGST.Equal(decimal.NewFromInt(30)), "igst %s", order.IGST)
	assert.True(t, order.CGST.Equal(decimal.NewFromInt(15)))
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(2060)))
}

func TestAssemblePinnedTrackingCode(t *testing.T) {
	input := twoLineInput()
	input.TrackingCode = "XYZ123456789"

	assembly, err := Assemble(input)
	require.NoError(t, err)
	assert.Equal(t, "XYZ123456789", assembly.Order.OrderID)
	require.NotNil(t, assembly.Items[0].OrderID)
	assert.Equal(t, "XYZ123456789", *assembly.Items[0].OrderID)
}

func TestAssembleRejectsBadInput(t *testing.T) {
	empty := twoLineInput()
	empty.Lines = nil
	_, err := Assemble(empty)
	require.Error(t, err)
	require.NotNil(t, pkgerrors.As(err))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	badQty := twoLineInput()
	badQty.Lines[0].Quantity = 0
	_, err = Assemble(badQty)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestRekeySwapsCodeEverywhere(t *testing.T) {
	assembly, err := Assemble(twoLineInput())
	require.NoError(t, err)

	before := assembly.Order.OrderID
	require.NoError(t, assembly.Rekey())
	assert.NotEqual(t, before, assembly.Order.OrderID)
	for _, item := range assembly.Items {
		require.NotNil(t, item.OrderID)
		assert.Equal(t, assembly.Order.OrderID, *item.OrderID)
	}
}

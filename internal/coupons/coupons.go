package coupons

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/teamnishkar/nishkar-backend/pkg/db/models"
	"github.com/teamnishkar/nishkar-backend/pkg/enums"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
)

// Repository validates and consumes coupons inside the caller's transaction.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	// Consume decrements the remaining budget with a guarded UPDATE. It
	// returns CouponExhausted when no budget is left.
	Consume(ctx context.Context, couponID string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a coupons repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ? AND active = ?", strings.TrimSpace(code), true).
		First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is invalid")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	return &coupon, nil
}

func (r *repository) Consume(ctx context.Context, couponID string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ? AND used_count < maximum_uses", couponID).
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "consume coupon")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "coupon redemption budget exhausted")
	}
	return nil
}

// Discount computes the discount a coupon grants on the given subtotal.
// The result never exceeds the subtotal.
func Discount(coupon *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if coupon == nil {
		return decimal.Zero
	}
	var discount decimal.Decimal
	switch coupon.DiscountType {
	case enums.CouponTypePercentage:
		discount = subtotal.Mul(coupon.Value).Div(decimal.NewFromInt(100)).Round(2)
	case enums.CouponTypeFlat:
		discount = coupon.Value
	default:
		return decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		return subtotal
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}

// Validate checks a coupon is usable at the given time without consuming it.
func Validate(coupon *models.Coupon, now time.Time) error {
	if coupon == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon is invalid")
	}
	if !coupon.Active || coupon.Expired(now) {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon is invalid")
	}
	if coupon.Exhausted() {
		return pkgerrors.New(pkgerrors.CodeConflict, "coupon redemption budget exhausted")
	}
	return nil
}

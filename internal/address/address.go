package address

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teamnishkar/nishkar-backend/pkg/db/models"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
)

const shippingAddressType = "shipping"

// Repository reads shipping addresses for checkout and reconciliation.
// Address writes belong to the identity service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// FindForUser loads an address only when the user owns it.
	FindForUser(ctx context.Context, addressID, userID uuid.UUID) (*models.Address, error)
	// DefaultShipping resolves the user's shipping address, preferring the
	// one marked default.
	DefaultShipping(ctx context.Context, userID uuid.UUID) (*models.Address, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an address repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindForUser(ctx context.Context, addressID, userID uuid.UUID) (*models.Address, error) {
	var addr models.Address
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		First(&addr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is invalid")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	return &addr, nil
}

func (r *repository) DefaultShipping(ctx context.Context, userID uuid.UUID) (*models.Address, error) {
	var addr models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND address_type = ?", userID, shippingAddressType).
		Order("is_default DESC, created_at DESC").
		First(&addr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping address")
	}
	return &addr, nil
}

package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/teamnishkar/nishkar-backend/pkg/db/models"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
)

// Line is one priced cart entry joined with its catalog context. VendorRegion
// feeds the tax resolver downstream.
type Line struct {
	ProductID    uuid.UUID
	ProductName  string
	VendorID     uuid.UUID
	VendorRegion string
	Quantity     int
	UnitPrice    decimal.Decimal
	Size         *string
}

// Snapshot is the read-only view of a user's active cart at checkout time.
type Snapshot struct {
	CartID uuid.UUID
	UserID uuid.UUID
	Lines  []Line
}

// VendorIDs returns the distinct vendors represented in the snapshot.
func (s *Snapshot) VendorIDs() []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	var ids []uuid.UUID
	for _, line := range s.Lines {
		if _, ok := seen[line.VendorID]; ok {
			continue
		}
		seen[line.VendorID] = struct{}{}
		ids = append(ids, line.VendorID)
	}
	return ids
}

// Reader loads cart snapshots and clears consumed carts.
type Reader interface {
	WithTx(tx *gorm.DB) Reader
	LoadActiveCart(ctx context.Context, userID uuid.UUID) (*Snapshot, error)
	ClearCart(ctx context.Context, cartID uuid.UUID) error
}

type reader struct {
	db *gorm.DB
}

// NewReader builds a cart reader bound to the provided DB.
func NewReader(db *gorm.DB) Reader {
	return &reader{db: db}
}

func (r *reader) WithTx(tx *gorm.DB) Reader {
	if tx == nil {
		return r
	}
	return &reader{db: tx}
}

func (r *reader) LoadActiveCart(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
	var record models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	snapshot := &Snapshot{
		CartID: record.ID,
		UserID: record.UserID,
		Lines:  make([]Line, 0, len(record.Items)),
	}

	for _, item := range record.Items {
		var product models.Product
		if err := r.db.WithContext(ctx).First(&product, "id = ?", item.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart references a product that no longer exists")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart product")
		}
		var vendor models.Vendor
		if err := r.db.WithContext(ctx).First(&vendor, "id = ?", product.VendorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart references a vendor that no longer exists")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart vendor")
		}
		if !vendor.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart references an inactive vendor")
		}

		snapshot.Lines = append(snapshot.Lines, Line{
			ProductID:    product.ID,
			ProductName:  product.Name,
			VendorID:     vendor.ID,
			VendorRegion: vendor.State,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			Size:         item.Size,
		})
	}

	return snapshot, nil
}

func (r *reader) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart items")
	}
	return nil
}

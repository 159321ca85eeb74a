package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teamnishkar/nishkar-backend/pkg/db/models"
	"github.com/teamnishkar/nishkar-backend/pkg/enums"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
)

// Repository persists dispatch tasks and resolves recipient addresses.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, record *models.Notification) error
	MarkSent(ctx context.Context, id uuid.UUID, attempts int, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) error
	BuyerEmail(ctx context.Context, userID uuid.UUID) (string, error)
	VendorEmail(ctx context.Context, vendorID uuid.UUID) (string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a notifications repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, record *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert notification")
	}
	return nil
}

func (r *repository) MarkSent(ctx context.Context, id uuid.UUID, attempts int, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        string(enums.NotificationStatusSent),
			"attempt_count": attempts,
			"sent_at":       at,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification sent")
	}
	return nil
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) error {
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        string(enums.NotificationStatusFailed),
			"attempt_count": attempts,
			"last_error":    lastError,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification failed")
	}
	return nil
}

func (r *repository) BuyerEmail(ctx context.Context, userID uuid.UUID) (string, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "buyer not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer")
	}
	return user.Email, nil
}

func (r *repository) VendorEmail(ctx context.Context, vendorID uuid.UUID) (string, error) {
	var vendor models.Vendor
	err := r.db.WithContext(ctx).First(&vendor, "id = ?", vendorID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	return vendor.Email, nil
}

package checkout

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	dbpkg "github.com/teamnishkar/nishkar-backend/pkg/db"
	"github.com/teamnishkar/nishkar-backend/pkg/db/models"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
)

// PendingCheckoutRepository persists tracking-code reservations for deferred
// checkouts and claims them exactly once during reconciliation.
type PendingCheckoutRepository interface {
	WithTx(tx *gorm.DB) PendingCheckoutRepository
	Insert(ctx context.Context, record *models.PendingCheckout) error
	FindByOrderID(ctx context.Context, orderID string) (*models.PendingCheckout, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.PendingCheckout, error)
	// Claim consumes the reservation with a guarded UPDATE. It reports false
	// when the record was already consumed, which marks a replayed event.
	Claim(ctx context.Context, orderID string) (bool, error)
}

type pendingRepository struct {
	db *gorm.DB
}

// NewPendingCheckoutRepository builds the repository bound to the provided DB.
func NewPendingCheckoutRepository(db *gorm.DB) PendingCheckoutRepository {
	return &pendingRepository{db: db}
}

func (r *pendingRepository) WithTx(tx *gorm.DB) PendingCheckoutRepository {
	if tx == nil {
		return r
	}
	return &pendingRepository{db: tx}
}

func (r *pendingRepository) Insert(ctx context.Context, record *models.PendingCheckout) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		if dbpkg.IsUniqueViolation(err, "uniq_pending_checkouts_order") ||
			dbpkg.IsUniqueViolation(err, "uniq_pending_checkouts_session") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "checkout session already reserved")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert pending checkout")
	}
	return nil
}

func (r *pendingRepository) FindByOrderID(ctx context.Context, orderID string) (*models.PendingCheckout, error) {
	var record models.PendingCheckout
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pending checkout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending checkout")
	}
	return &record, nil
}

func (r *pendingRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.PendingCheckout, error) {
	var record models.PendingCheckout
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pending checkout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending checkout")
	}
	return &record, nil
}

func (r *pendingRepository) Claim(ctx context.Context, orderID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PendingCheckout{}).
		Where("order_id = ? AND consumed_at IS NULL", orderID).
		Update("consumed_at", time.Now().UTC())
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "claim pending checkout")
	}
	return res.RowsAffected > 0, nil
}

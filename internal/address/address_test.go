package address

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/teamnishkar/nishkar-backend/pkg/db/models"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
)

func setupAddressTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	addresses := `
CREATE TABLE IF NOT EXISTS addresses (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  line1 TEXT NOT NULL,
  line2 TEXT,
  city TEXT NOT NULL,
  state TEXT NOT NULL,
  postal_code TEXT NOT NULL,
  country TEXT NOT NULL DEFAULT 'IN',
  address_type TEXT NOT NULL DEFAULT 'home',
  is_default INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(addresses).Error)
	return db
}

func seedAddress(t *testing.T, db *gorm.DB, userID uuid.UUID, addrType string, isDefault bool) *models.Address {
	t.Helper()

	addr := &models.Address{
		ID:          uuid.New(),
		UserID:      userID,
		Line1:       "14 Weaver Lane",
		City:        "Mysuru",
		State:       "Karnataka",
		PostalCode:  "570001",
		Country:     "IN",
		AddressType: addrType,
		IsDefault:   isDefault,
	}
	require.NoError(t, db.Create(addr).Error)
	return addr
}

func TestFindForUser(t *testing.T) {
	db := setupAddressTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	addr := seedAddress(t, db, userID, "shipping", true)

	found, err := repo.FindForUser(context.Background(), addr.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, "Karnataka", found.State)

	_, err = repo.FindForUser(context.Background(), addr.ID, uuid.New())
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
}

func TestDefaultShippingPrefersDefault(t *testing.T) {
	db := setupAddressTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	seedAddress(t, db, userID, "shipping", false)
	preferred := seedAddress(t, db, userID, "shipping", true)
	seedAddress(t, db, userID, "home", true)

	found, err := repo.DefaultShipping(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, preferred.ID, found.ID)

	_, err = repo.DefaultShipping(context.Background(), uuid.New())
	require.Error(t, err)
}

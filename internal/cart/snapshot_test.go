package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/teamnishkar/nishkar-backend/pkg/db/models"
	pkgerrors "github.com/teamnishkar/nishkar-backend/pkg/errors"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL,
  size TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  name TEXT NOT NULL,
  selling_price NUMERIC NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS vendors (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  shop_name TEXT NOT NULL,
  email TEXT NOT NULL,
  state TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

type cartFixture struct {
	userID   uuid.UUID
	cartID   uuid.UUID
	vendorID uuid.UUID
}

func seedCart(t *testing.T, db *gorm.DB, region string) cartFixture {
	t.Helper()

	userID := uuid.New()
	vendorID := uuid.New()
	productID := uuid.New()
	cartID := uuid.New()

	require.NoError(t, db.Create(&models.Vendor{
		ID:       vendorID,
		UserID:   uuid.New(),
		ShopName: "Silk House",
		Email:    "vendor@example.com",
		State:    region,
		IsActive: true,
	}).Error)
	require.NoError(t, db.Create(&models.Product{
		ID:           productID,
		VendorID:     vendorID,
		Name:         "Silk Saree",
		SellingPrice: decimal.NewFromInt(500),
		IsActive:     true,
	}).Error)
	require.NoError(t, db.Create(&models.Cart{ID: cartID, UserID: userID}).Error)
	require.NoError(t, db.Create(&models.CartItem{
		ID:        uuid.New(),
		CartID:    cartID,
		ProductID: productID,
		Quantity:  2,
		UnitPrice: decimal.NewFromInt(500),
	}).Error)

	return cartFixture{userID: userID, cartID: cartID, vendorID: vendorID}
}

func TestLoadActiveCart(t *testing.T) {
	db := setupCartTestDB(t)
	reader := NewReader(db)
	ctx := context.Background()

	fx := seedCart(t, db, "Karnataka")

	snapshot, err := reader.LoadActiveCart(ctx, fx.userID)
	require.NoError(t, err)
	assert.Equal(t, fx.cartID, snapshot.CartID)
	require.Len(t, snapshot.Lines, 1)
	assert.Equal(t, "Karnataka", snapshot.Lines[0].VendorRegion)
	assert.Equal(t, 2, snapshot.Lines[0].Quantity)
	assert.Equal(t, []uuid.UUID{fx.vendorID}, snapshot.VendorIDs())
}

func TestLoadActiveCartNotFound(t *testing.T) {
	db := setupCartTestDB(t)
	reader := NewReader(db)

	_, err := reader.LoadActiveCart(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestLoadActiveCartEmpty(t *testing.T) {
	db := setupCartTestDB(t)
	reader := NewReader(db)
	userID := uuid.New()
	require.NoError(t, db.Create(&models.Cart{ID: uuid.New(), UserID: userID}).Error)

	_, err := reader.LoadActiveCart(context.Background(), userID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestLoadActiveCartInactiveVendor(t *testing.T) {
	db := setupCartTestDB(t)
	reader := NewReader(db)
	fx := seedCart(t, db, "Karnataka")

	require.NoError(t, db.Model(&models.Vendor{}).Where("id = ?", fx.vendorID).Update("is_active", false).Error)

	_, err := reader.LoadActiveCart(context.Background(), fx.userID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestClearCart(t *testing.T) {
	db := setupCartTestDB(t)
	reader := NewReader(db)
	ctx := context.Background()
	fx := seedCart(t, db, "Karnataka")

	require.NoError(t, reader.ClearCart(ctx, fx.cartID))

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("cart_id = ?", fx.cartID).Count(&count).Error)
	assert.Zero(t, count)
}

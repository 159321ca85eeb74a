package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/teamnishkar/nishkar-backend/api/controllers"
	orderssvc "github.com/teamnishkar/nishkar-backend/internal/orders"
	pkgauth "github.com/teamnishkar/nishkar-backend/pkg/auth"
	"github.com/teamnishkar/nishkar-backend/pkg/config"
	"github.com/teamnishkar/nishkar-backend/pkg/enums"
	"github.com/teamnishkar/nishkar-backend/pkg/logger"
	"github.com/teamnishkar/nishkar-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubOrdersService struct{}

func (stubOrdersService) BuyerOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*orderssvc.OrderList, error) {
	return &orderssvc.OrderList{}, nil
}

func (stubOrdersService) BuyerOrderDetail(ctx context.Context, userID uuid.UUID, orderID string) (*orderssvc.OrderDetail, error) {
	return &orderssvc.OrderDetail{OrderID: orderID}, nil
}

func (stubOrdersService) BuyerOrderStatus(ctx context.Context, userID uuid.UUID, orderID string) (*orderssvc.OrderStatusView, error) {
	return &orderssvc.OrderStatusView{OrderID: orderID}, nil
}

func (stubOrdersService) VendorOrders(ctx context.Context, vendorID uuid.UUID, params pagination.Params) (*orderssvc.VendorOrderList, error) {
	return &orderssvc.VendorOrderList{}, nil
}

func (stubOrdersService) VendorOrderDetail(ctx context.Context, vendorID uuid.UUID, orderID string) (*orderssvc.VendorOrderView, error) {
	return &orderssvc.VendorOrderView{OrderID: orderID}, nil
}

func (stubOrdersService) VendorItemStatus(ctx context.Context, vendorID uuid.UUID, itemID int64) (*orderssvc.ItemStatusView, error) {
	return &orderssvc.ItemStatusView{ItemID: itemID}, nil
}

func (stubOrdersService) AdminOrders(ctx context.Context, params pagination.Params, filters orderssvc.AdminOrderFilters) (*orderssvc.OrderList, error) {
	return &orderssvc.OrderList{}, nil
}

func (stubOrdersService) AdminOrderDetail(ctx context.Context, orderID string) (*orderssvc.OrderDetail, error) {
	return &orderssvc.OrderDetail{OrderID: orderID}, nil
}

func (stubOrdersService) VendorAdvanceItem(ctx context.Context, input orderssvc.VendorAdvanceInput) (*orderssvc.ItemStatusView, error) {
	return &orderssvc.ItemStatusView{ItemID: input.ItemID}, nil
}

func (stubOrdersService) AdminAdvanceOrder(ctx context.Context, input orderssvc.AdminAdvanceInput) (*orderssvc.OrderStatusView, error) {
	return &orderssvc.OrderStatusView{OrderID: input.OrderID}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080", LogLevel: "error"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "nishkar-test",
			ExpirationMinutes: 15,
		},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "router-test"})
	return NewRouter(
		cfg,
		logg,
		map[string]controllers.Pinger{"database": stubPinger{}},
		nil,
		nil,
		stubOrdersService{},
		nil,
		nil,
		nil,
		nil,
		nil,
	)
}

func mintToken(t *testing.T, cfg *config.Config, role enums.ActorRole, vendorID *uuid.UUID) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:   uuid.New(),
		Role:     role,
		VendorID: vendorID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func doRequest(router http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, testConfig())
	rec := doRequest(router, http.MethodGet, "/health/live", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Nishkar-Env") != "test" {
		t.Fatalf("expected env header on health response")
	}
}

func TestBuyerOrdersRequiresToken(t *testing.T) {
	router := newTestRouter(t, testConfig())
	rec := doRequest(router, http.MethodGet, "/api/v1/orders", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestBuyerOrdersWithToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)
	token := mintToken(t, cfg, enums.ActorRoleCustomer, nil)
	rec := doRequest(router, http.MethodGet, "/api/v1/orders", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestVendorRoutesNeedVendorContext(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	buyerToken := mintToken(t, cfg, enums.ActorRoleCustomer, nil)
	rec := doRequest(router, http.MethodGet, "/api/v1/vendor/orders", buyerToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without vendor context, got %d", rec.Code)
	}

	vendorID := uuid.New()
	vendorToken := mintToken(t, cfg, enums.ActorRoleVendor, &vendorID)
	rec = doRequest(router, http.MethodGet, "/api/v1/vendor/orders", vendorToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with vendor token, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestAdminRoutesNeedAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	buyerToken := mintToken(t, cfg, enums.ActorRoleCustomer, nil)
	rec := doRequest(router, http.MethodGet, "/api/admin/v1/orders", buyerToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}

	adminToken := mintToken(t, cfg, enums.ActorRoleAdmin, nil)
	rec = doRequest(router, http.MethodGet, "/api/admin/v1/orders", adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestWebhookRejectsUnsignedPayload(t *testing.T) {
	router := newTestRouter(t, testConfig())
	rec := doRequest(router, http.MethodPost, "/api/v1/webhooks/stripe", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 with unwired webhook deps, got %d", rec.Code)
	}
}

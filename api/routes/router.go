package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/teamnishkar/nishkar-backend/api/controllers"
	ordercontrollers "github.com/teamnishkar/nishkar-backend/api/controllers/orders"
	webhookcontrollers "github.com/teamnishkar/nishkar-backend/api/controllers/webhooks"
	"github.com/teamnishkar/nishkar-backend/api/middleware"
	checkoutsvc "github.com/teamnishkar/nishkar-backend/internal/checkout"
	orderssvc "github.com/teamnishkar/nishkar-backend/internal/orders"
	"github.com/teamnishkar/nishkar-backend/internal/payments"
	"github.com/teamnishkar/nishkar-backend/pkg/config"
	"github.com/teamnishkar/nishkar-backend/pkg/logger"
	"github.com/teamnishkar/nishkar-backend/pkg/metrics"
	"github.com/teamnishkar/nishkar-backend/pkg/redis"
	"github.com/teamnishkar/nishkar-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	redisClient *redis.Client,
	checkoutService checkoutsvc.Service,
	ordersService orderssvc.Service,
	paymentsService payments.Service,
	stripeClient *stripe.Client,
	webhookGuard *payments.IdempotencyGuard,
	webhookMetrics *metrics.WebhookMetrics,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(paymentsService, stripeClient, webhookGuard, webhookMetrics, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/order-now", controllers.CheckoutOrderNow(checkoutService, logg))
			r.Post("/session", controllers.CheckoutSession(checkoutService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.BuyerOrders(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.BuyerOrderDetail(ordersService, logg))
			r.Get("/{orderId}/status", ordercontrollers.OrderStatus(ordersService, logg))
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireVendorContext(logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.VendorOrders(ordersService, logg))
				r.Get("/{orderId}", ordercontrollers.VendorOrderDetail(ordersService, logg))
				r.Patch("/{orderId}/items/{itemId}/status", ordercontrollers.VendorAdvanceItem(ordersService, logg))
			})
			r.Get("/order-items/{itemId}/status", ordercontrollers.VendorItemStatus(ordersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.AdminOrders(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.AdminOrderDetail(ordersService, logg))
			r.Patch("/{orderId}/status", ordercontrollers.AdminAdvanceOrder(ordersService, logg))
		})
	})

	return r
}

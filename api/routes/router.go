package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amorize/checkout-backend/api/controllers"
	webhookcontrollers "github.com/amorize/checkout-backend/api/controllers/webhooks"
	"github.com/amorize/checkout-backend/api/middleware"
	"github.com/amorize/checkout-backend/internal/catalog"
	checkoutsvc "github.com/amorize/checkout-backend/internal/checkout"
	"github.com/amorize/checkout-backend/internal/orders"
	"github.com/amorize/checkout-backend/internal/payments"
	asaaswebhook "github.com/amorize/checkout-backend/internal/webhooks/asaas"
	"github.com/amorize/checkout-backend/pkg/config"
	"github.com/amorize/checkout-backend/pkg/logger"
)

// Deps carries the services the router wires into handlers.
type Deps struct {
	Catalog  catalog.Service
	Checkout checkoutsvc.Service
	Payments payments.Service
	Orders   orders.Service
	Webhook  *asaaswebhook.Service

	DBPinger    controllers.Pinger
	RedisPinger controllers.Pinger
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisPinger))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Get("/products", controllers.PublicProducts(deps.Catalog, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))
		r.Get("/payments/{paymentId}/status", controllers.PaymentStatus(deps.Payments, cfg.Checkout, logg))
		r.Post("/payments/installments", controllers.Installments(deps.Payments, logg))
		r.Post("/webhooks/asaas", webhookcontrollers.AsaasWebhook(deps.Webhook, cfg.Asaas.WebhookToken, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.AdminJWT, logg))
		r.Post("/products", controllers.AdminUpsertProduct(deps.Catalog, logg))
		r.Post("/coupons", controllers.AdminCreateCoupon(deps.Catalog, logg))
		r.Get("/orders", controllers.AdminListOrders(deps.Orders, logg))
	})

	return r
}

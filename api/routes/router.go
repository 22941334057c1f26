package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/osandoval-dev/storefront-backend/api/controllers"
	webhookcontrollers "github.com/osandoval-dev/storefront-backend/api/controllers/webhooks"
	"github.com/osandoval-dev/storefront-backend/api/middleware"
	"github.com/osandoval-dev/storefront-backend/internal/coupons"
	"github.com/osandoval-dev/storefront-backend/internal/ledger"
	"github.com/osandoval-dev/storefront-backend/internal/orders"
	"github.com/osandoval-dev/storefront-backend/internal/products"
	"github.com/osandoval-dev/storefront-backend/internal/settlement"
	"github.com/osandoval-dev/storefront-backend/pkg/config"
	"github.com/osandoval-dev/storefront-backend/pkg/db"
	"github.com/osandoval-dev/storefront-backend/pkg/logger"
	"github.com/osandoval-dev/storefront-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    redis.Pinger
	Products *products.Service
	Coupons  *coupons.Service
	Orders   *orders.Service
	Ledger   *ledger.Service
	Reviews  *settlement.ReviewService

	Reconciler webhookcontrollers.Reconciler
	Gateway    interface{ SigningSecret() string }
}

// NewRouter builds the chi handler tree.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/gateway", webhookcontrollers.GatewayWebhook(deps.Reconciler, deps.Gateway, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(deps.Products, logg))
			r.Get("/{productId}", controllers.ProductDetail(deps.Products, logg))
		})

		r.Post("/coupons/validate", controllers.ValidateCoupon(deps.Coupons, logg))

		r.Post("/checkout", controllers.Checkout(deps.Orders, logg))
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.Get("/by-number/{orderNumber}", controllers.OrderByNumber(deps.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Post("/products", controllers.AdminCreateProduct(deps.Products, logg))
		r.Route("/coupons", func(r chi.Router) {
			r.Get("/", controllers.AdminListCoupons(deps.Coupons, logg))
			r.Post("/", controllers.AdminCreateCoupon(deps.Coupons, logg))
			r.Delete("/{couponId}", controllers.AdminDeactivateCoupon(deps.Coupons, logg))
		})
		r.Patch("/orders/{orderId}/status", controllers.AdminUpdateOrderStatus(deps.Orders, logg))
		r.Post("/refunds", controllers.AdminRefund(deps.Ledger, logg))
		r.Route("/review-cases", func(r chi.Router) {
			r.Get("/", controllers.AdminListReviewCases(deps.Reviews, logg))
			r.Post("/{caseId}/resolve", controllers.AdminResolveReviewCase(deps.Reviews, logg))
		})
	})

	return r
}

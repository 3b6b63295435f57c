package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/filter"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// Dependencies groups what the router hands to controllers.
type Dependencies struct {
	Catalog  catalog.Service
	Sorter   *filter.Sorter
	Carts    controllers.CartOpener
	Checkout checkout.Service
	Gatherer prometheus.Gatherer
	Health   map[string]controllers.Pinger
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Health))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Notices())

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(deps.Catalog, deps.Sorter, logg))
			r.Get("/featured", controllers.ProductsFeatured(deps.Catalog, logg))
			r.Get("/search", controllers.ProductSearch(deps.Catalog, logg))
			r.Get("/categories", controllers.ProductCategories(deps.Catalog))
			r.Get("/categories/{category}", controllers.ProductsByCategory(deps.Catalog, logg))
			r.Get("/{productId}", controllers.ProductDetail(deps.Catalog, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(deps.Carts, logg))
				r.Delete("/", controllers.CartClear(deps.Carts, logg))
				r.Post("/items", controllers.CartAddItem(deps.Carts, deps.Catalog, logg))
				r.Patch("/items/{productId}", controllers.CartUpdateItem(deps.Carts, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(deps.Carts, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/shipping", controllers.CheckoutShipping(logg))
				r.Post("/payment", controllers.CheckoutPayment(logg))
				r.Get("/quote", controllers.CheckoutQuote(deps.Checkout, deps.Carts, logg))
				r.Post("/orders", controllers.CheckoutSubmit(deps.Checkout, deps.Carts, logg))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.Checkout, logg))
			r.Get("/{orderId}", controllers.OrderGet(deps.Checkout, logg))
			r.Patch("/{orderId}/status", controllers.OrderUpdateStatus(deps.Checkout, logg))
			r.Delete("/{orderId}", controllers.OrderDelete(deps.Checkout, logg))
		})
	})

	return r
}

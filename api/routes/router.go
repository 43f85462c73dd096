package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hariombakery/khakhra-backend/api/controllers"
	"github.com/hariombakery/khakhra-backend/api/middleware"
	cartsvc "github.com/hariombakery/khakhra-backend/internal/cart"
	checkoutsvc "github.com/hariombakery/khakhra-backend/internal/checkout"
	hampersvc "github.com/hariombakery/khakhra-backend/internal/hamper"
	orderssvc "github.com/hariombakery/khakhra-backend/internal/orders"
	productsvc "github.com/hariombakery/khakhra-backend/internal/products"
	userssvc "github.com/hariombakery/khakhra-backend/internal/users"
	"github.com/hariombakery/khakhra-backend/pkg/auth/session"
	"github.com/hariombakery/khakhra-backend/pkg/config"
	"github.com/hariombakery/khakhra-backend/pkg/enums"
	"github.com/hariombakery/khakhra-backend/pkg/logger"
	"github.com/hariombakery/khakhra-backend/pkg/redis"
)

// NewRouter wires the full HTTP surface: public catalog and auth, the
// authenticated storefront, and the admin panel.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	redisClient *redis.Client,
	sessionManager session.AccessSessionChecker,
	registry *prometheus.Registry,
	userService userssvc.Service,
	productService productsvc.Service,
	cartService cartsvc.Service,
	hamperService hampersvc.Service,
	checkoutService checkoutsvc.Service,
	orderService orderssvc.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.CORS(),
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	pingers := map[string]controllers.Pinger{}
	if dbPinger != nil {
		pingers["postgres"] = dbPinger
	}
	if redisClient != nil {
		pingers["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})

	metricsHandler := promhttp.Handler()
	if registry != nil {
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	idempotency := middleware.Idempotency(redisClient, cfg.Checkout, logg)
	authed := middleware.Auth(cfg.JWT, sessionManager, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(idempotency).Post("/register", controllers.Register(userService, logg))
			r.Post("/login", controllers.Login(userService, logg))
			r.Post("/refresh", controllers.Refresh(userService, logg))
			r.Post("/logout", controllers.Logout(userService, cfg.JWT, logg))
			r.Group(func(r chi.Router) {
				r.Use(authed)
				r.Get("/me", controllers.Profile(userService, logg))
			})
		})

		r.Get("/products", controllers.ListProducts(productService, logg))
		r.Get("/products/{productID}", controllers.GetProduct(productService, logg))

		r.Group(func(r chi.Router) {
			r.Use(authed, idempotency)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(cartService, logg))
				r.Delete("/", controllers.ClearCart(cartService, logg))
				r.Post("/items", controllers.AddCartItem(cartService, logg))
				r.Patch("/items/{productID}", controllers.UpdateCartItem(cartService, logg))
				r.Delete("/items/{productID}", controllers.RemoveCartItem(cartService, logg))
			})

			r.Route("/hamper", func(r chi.Router) {
				r.Post("/open", controllers.OpenHamper(hamperService, logg))
				r.Post("/update", controllers.UpdateHamper(hamperService, logg))
				r.Post("/commit", controllers.CommitHamper(hamperService, logg))
				r.Post("/add-to-cart", controllers.AddHamperToCart(hamperService, cartService, logg))
			})

			r.Post("/checkout", controllers.SubmitCheckout(checkoutService, logg))
			r.Post("/checkout/{orderID}/confirm", controllers.ConfirmCheckout(checkoutService, logg))
			r.Post("/checkout/{orderID}/cancel", controllers.CancelCheckout(checkoutService, logg))
			r.Post("/payment/create", controllers.CreatePaymentSession(checkoutService, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ListOrders(orderService, logg))
				r.Get("/{orderID}", controllers.GetOrder(orderService, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

				r.Route("/products", func(r chi.Router) {
					r.Get("/", controllers.AdminListProducts(productService, logg))
					r.Post("/", controllers.AdminCreateProduct(productService, logg))
					r.Patch("/{productID}", controllers.AdminUpdateProduct(productService, logg))
					r.Delete("/{productID}", controllers.AdminDeleteProduct(productService, logg))
					r.Post("/{productID}/stock", controllers.AdminAdjustStock(productService, logg))
				})

				r.Route("/orders", func(r chi.Router) {
					r.Get("/", controllers.AdminListOrders(orderService, logg))
					r.Get("/{orderID}", controllers.AdminGetOrder(orderService, logg))
					r.Patch("/{orderID}/status", controllers.AdminUpdateOrderStatus(orderService, logg))
				})
			})
		})
	})

	return r
}

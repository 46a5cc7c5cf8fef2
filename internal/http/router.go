package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Services groups the use cases exposed over HTTP.
type Services struct {
	Cart     CartEngine
	Checkout CheckoutWorkflow
	Catalog  Catalog
	Accounts Accounts
}

// NewRouter builds the storefront API. Every cart route and every catalog
// write requires a bearer token.
func NewRouter(svc Services, log *zap.Logger, timeout time.Duration) http.Handler {
	cartHandler := NewCartHandler(svc.Cart, log, timeout)
	checkoutHandler := NewCheckoutHandler(svc.Checkout, log, timeout)
	productHandler := NewProductHandler(svc.Catalog, log, timeout)
	userHandler := NewUserHandler(svc.Accounts, log, timeout)
	requireAuth := AuthMiddleware(svc.Accounts, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/user", func(r chi.Router) {
		r.Post("/register", userHandler.Register)
		r.Post("/login", userHandler.Login)
		r.With(requireAuth).Get("/my-orders", userHandler.MyOrders)
	})

	r.Route("/product", func(r chi.Router) {
		r.Get("/", productHandler.GetProducts)
		r.Get("/{id}", productHandler.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", productHandler.CreateProduct)
			r.Put("/{id}", productHandler.UpdateProduct)
			r.Delete("/{id}", productHandler.DeleteProduct)
		})
	})

	r.Route("/cart", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", cartHandler.GetCart)
		r.Delete("/", cartHandler.ClearCart)
		r.Post("/items", cartHandler.AddItem)
		r.Put("/items", cartHandler.UpdateItem)
		r.Delete("/items/{productId}", cartHandler.RemoveItem)
		r.Post("/checkout", checkoutHandler.Checkout)
	})

	return otelhttp.NewHandler(r, "storefront")
}

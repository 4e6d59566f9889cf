package rest

import (
	"context"
	"net/http"
	"time"

	"storefront-be/internal/cart"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/middleware"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"
	"storefront-be/internal/payment/webhook"
	"storefront-be/internal/product"
	"storefront-be/internal/transport"
	"storefront-be/internal/user"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps is everything the HTTP layer is built from.
type Deps struct {
	DB       Pinger
	Tokens   middleware.TokenParser
	Limiter  *middleware.RateLimiter
	Users    user.Service
	Products product.Service
	Carts    cart.Service
	Orders   order.Service
	Payments payment.Service

	WebhookSecret  string
	CORSOrigin     string
	RequestTimeout time.Duration
	VerboseErrors  bool
	SecureCookies  bool
}

func NewRouter(d Deps) http.Handler {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}

	users := &UserHandler{svc: d.Users, secureCookies: d.SecureCookies}
	products := &ProductHandler{svc: d.Products}
	carts := &CartHandler{svc: d.Carts}
	orders := &OrderHandler{svc: d.Orders}
	payments := &PaymentHandler{svc: d.Payments}

	r := chi.NewRouter()
	r.Use(logger.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(d.CORSOrigin))
	r.Use(transport.ErrorDetail(d.VerboseErrors))

	r.Get("/health", health(d.DB))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(d.RequestTimeout))
		r.Use(middleware.AuthMiddleware(d.Tokens, d.Users))
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", users.Register)
			r.Post("/login", users.Login)
			r.Post("/logout", users.Logout)
			r.With(middleware.RequireAuth).Get("/me", users.Me)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", products.List)
			r.Get("/category/{category}", products.ListByCategory)
			r.Get("/{id}", products.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth, middleware.RequireRole(utils.RoleAdmin))
				r.Post("/", products.Create)
				r.Put("/{id}", products.Update)
				r.Delete("/{id}", products.Delete)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/", carts.Get)
			r.Delete("/", carts.Clear)
			r.Get("/count", carts.Count)
			r.Post("/items", carts.AddItem)
			r.Put("/items/{productId}", carts.UpdateItem)
			r.Delete("/items/{productId}", carts.RemoveItem)
			r.Post("/cleanup", carts.Cleanup)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/", orders.Create)
			r.Get("/", orders.List)
			r.Get("/stats", orders.Stats)
			r.Get("/{id}", orders.Get)
			r.With(middleware.RequireRole(utils.RoleAdmin)).Put("/{id}/status", orders.UpdateStatus)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/initialize", payments.Initialize)
			r.Get("/verify/{reference}", payments.Verify)
			r.Method(http.MethodPost, "/webhook", webhook.NewHandler(d.WebhookSecret, d.Payments))
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		transport.WriteJSON(w, http.StatusNotFound, transport.Envelope{
			Status:  transport.StatusError,
			Message: "Route " + r.URL.Path + " not found",
		})
	})

	return r
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{"database": "up"}
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				logger.FromCtx(r.Context()).Warn("health check: database unreachable")
				data["database"] = "down"
				transport.WriteJSON(w, http.StatusServiceUnavailable, transport.Envelope{
					Status:  transport.StatusError,
					Message: "Service unavailable",
					Data:    data,
				})
				return
			}
		}
		transport.Success(w, http.StatusOK, "Server is running", data)
	}
}

func userID(r *http.Request) uint {
	id, _ := utils.GetUserIDFromContext(r.Context())
	return id
}

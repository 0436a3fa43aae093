package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_pos/internal/metrics"
	"github.com/fjod/go_pos/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	Products           repository.ProductRepository
	Sales              repository.SaleRepository
	Sessions           SessionStore
	Metrics            *metrics.Metrics
	Logger             zerolog.Logger
	RequestTimeout     time.Duration
	MaxRequestBodySize int64

	// HealthCheck reports whether the service can serve traffic. Nil means always healthy.
	HealthCheck func(ctx context.Context) error
}

func NewRouter(cfg RouterConfig) http.Handler {
	productHandler := NewProductHandler(cfg.Products, cfg.RequestTimeout)
	salesHandler := NewSalesHandler(cfg.Sales, cfg.Products, cfg.Metrics, cfg.RequestTimeout)
	sessionHandler := NewSessionHandler(cfg.Sessions, cfg.Products, cfg.Metrics, cfg.RequestTimeout)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(OperatorMiddleware)
	r.Use(RequestLogger(cfg.Logger, cfg.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))
	}
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.HealthCheck != nil {
			if err := cfg.HealthCheck(r.Context()); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Post("/", productHandler.Create)
			r.Get("/{id}", productHandler.Get)
			r.Put("/{id}", productHandler.Update)
			r.Delete("/{id}", productHandler.Delete)
		})
		r.Route("/sales", func(r chi.Router) {
			r.Get("/", salesHandler.List)
			r.Post("/", salesHandler.Create)
			r.Get("/{id}", salesHandler.Get)
		})
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			r.Route("/{sid}", func(r chi.Router) {
				r.Delete("/", sessionHandler.End)
				r.Route("/cart", func(r chi.Router) {
					r.Get("/", sessionHandler.GetCart)
					r.Delete("/", sessionHandler.ClearCart)
					r.Post("/items", sessionHandler.AddItem)
					r.Put("/items/{product_id}", sessionHandler.UpdateQuantity)
					r.Delete("/items/{product_id}", sessionHandler.RemoveItem)
				})
				r.Route("/checkout", func(r chi.Router) {
					r.Get("/", sessionHandler.GetCheckout)
					r.Post("/", sessionHandler.StartCheckout)
					r.Put("/payment-method", sessionHandler.SelectPaymentMethod)
					r.Post("/cancel", sessionHandler.CancelCheckout)
					r.Post("/confirm", sessionHandler.ConfirmCheckout)
				})
			})
		})
	})

	return r
}

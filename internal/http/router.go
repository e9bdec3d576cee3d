package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smarta/server/internal/auth"
	"github.com/smarta/server/internal/http/handlers"
	"github.com/smarta/server/internal/middleware"
)

// RouterConfig carries what NewRouter wires together
type RouterConfig struct {
	AuthHandler      *handlers.AuthHandler
	DashboardHandler *handlers.DashboardHandler
	Tokens           *auth.ClientTokens
	Registry         *auth.Registry
	// MintLimiter caps new client instances per IP; nil disables the cap
	MintLimiter      *middleware.RateLimiter
	AllowedOrigins   []string
	SecureCookies    bool
	Gatherer         prometheus.Gatherer
	Logger           *slog.Logger
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler()
	r.Get("/health", healthHandler.ServeHTTP)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// Everything below belongs to a client instance
	r.Group(func(r chi.Router) {
		if cfg.MintLimiter != nil {
			r.Use(middleware.RateLimitMiddleware(cfg.MintLimiter, middleware.ClientMintKey(cfg.Tokens)))
		}
		r.Use(middleware.ClientMiddleware(middleware.ClientOptions{
			Tokens:   cfg.Tokens,
			Registry: cfg.Registry,
			Secure:   cfg.SecureCookies,
			Logger:   cfg.Logger,
		}))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/sign_in", cfg.AuthHandler.HandleSignIn)
			r.Post("/verify", cfg.AuthHandler.HandleVerify)
			r.Post("/sign_out", cfg.AuthHandler.HandleSignOut)
			r.Get("/session", cfg.AuthHandler.HandleSession)
		})

		// Protected routes (require an active session)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession)
			r.Get("/home", cfg.DashboardHandler.HandleHome)
			r.Get("/bills", cfg.DashboardHandler.HandleBills)
			r.Get("/purchase", cfg.DashboardHandler.HandlePurchase)
			r.Post("/purchase/pay", cfg.DashboardHandler.HandlePay)
			r.Get("/payments/{id}/status", cfg.DashboardHandler.HandlePaymentStatus)
			r.Get("/profile", cfg.DashboardHandler.HandleProfile)
		})
	})

	return r
}

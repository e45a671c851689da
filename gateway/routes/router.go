// Package routes exposes the client screens as JSON resources for a browser
// front end.
package routes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"onecoupon/gateway/middleware"
	"onecoupon/observability/logging"
	"onecoupon/screens"
)

// Screens are the view-layer instances served by the router.
type Screens struct {
	Issue    *screens.IssueScreen
	Coupons  *screens.CouponsScreen
	Faucet   *screens.FaucetScreen
	Activity *screens.ActivityScreen
	Network  *screens.NetworkScreen
}

type Config struct {
	Screens       Screens
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	CORS          middleware.CORSConfig
	Logger        *slog.Logger
}

type api struct {
	screens Screens
	logger  *slog.Logger
}

// New builds the serve-mode router. Reads are open; every mutating route
// sits behind the authenticator when one is configured.
func New(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	a := &api{screens: cfg.Screens, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestIDs)
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Observability != nil {
		r.Use(cfg.Observability.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Observability != nil {
		r.Handle("/metrics", cfg.Observability.MetricsHandler())
	}

	r.Route("/api", func(sub chi.Router) {
		if cfg.RateLimiter != nil {
			sub.Use(cfg.RateLimiter.Middleware)
		}
		sub.Get("/network", a.network)
		sub.Get("/merchant", a.merchant)
		sub.Get("/coupons", a.coupons)
		sub.Get("/coupons/{id}/preview", a.preview)
		sub.Get("/faucet", a.faucet)
		sub.Get("/activity", a.activity)
		sub.Get("/activity/export", a.exportActivity)

		sub.Group(func(mut chi.Router) {
			if cfg.Authenticator != nil {
				mut.Use(cfg.Authenticator.Middleware)
			}
			mut.Post("/merchant/register", a.registerMerchant)
			mut.Post("/merchant/check", a.checkMerchant)
			mut.Post("/merchant/continue", a.continueMerchant)
			mut.Post("/coupons/issue", a.issue)
			mut.Post("/coupons/{id}/redeem", a.redeem)
			mut.Post("/faucet/request", a.requestFaucet)
		})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "route not found")
	})
	return r
}

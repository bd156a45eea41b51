package handler

import (
	"net/http"

	"github.com/wadjakorntonsri/linkbio/pkg/config"
	"github.com/wadjakorntonsri/linkbio/pkg/metrics"
	"github.com/wadjakorntonsri/linkbio/pkg/ports"
	"go.uber.org/zap"
)

// RouterDeps carries everything the router wires together. Limiter may be
// nil, in which case one is built from the config.
type RouterDeps struct {
	Config    *config.Config
	Links     ports.LinkService
	Analytics ports.AnalyticsService
	Recorder  ports.ClickRecorder
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Limiter   *RateLimiter
}

// NewRouter creates and configures the main application router
func NewRouter(deps RouterDeps) http.Handler {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	h := NewHTTPHandler(deps.Links, deps.Analytics, deps.Recorder, logger, deps.Metrics, cfg.TrustProxy)
	authHandler := NewAuthHandler(cfg, logger)
	mw := NewMiddleware(cfg, logger)

	limiter := deps.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(cfg.RedirectRateLimit, cfg.RedirectRateWindow, cfg.TrustProxy, logger, deps.Metrics)
	}

	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.Handle("GET /go/{slug}", limiter.Handler(http.HandlerFunc(h.Redirect)))
	mux.HandleFunc("GET /api/links", h.PublicLinks)
	mux.HandleFunc("GET /api/categories", h.PublicCategories)

	// Admin session
	mux.HandleFunc("POST /admin/api/login", authHandler.Login)
	mux.HandleFunc("POST /admin/api/logout", authHandler.Logout)
	if cfg.GoogleEnabled() {
		mux.HandleFunc("GET /auth/google/login", authHandler.GoogleLogin)
		mux.HandleFunc("GET /auth/google/callback", authHandler.GoogleCallback)
	}

	// Protected Routes
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("GET /admin/api/me", authHandler.Me)
	protectedMux.HandleFunc("GET /admin/api/stats/links/{id}", h.LinkStats)
	protectedMux.HandleFunc("GET /admin/api/stats/overview", h.Overview)
	mux.Handle("/admin/api/", mw.AuthMiddleware(protectedMux))

	if cfg.MetricsEnabled && deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	return mw.Recovery(mw.Logging(mux))
}

package handler

import (
	"context"
	"net/http"

	"github.com/wadjakorntonsri/linkbio/pkg/adapters/geo"
	"github.com/wadjakorntonsri/linkbio/pkg/adapters/handler"
	"github.com/wadjakorntonsri/linkbio/pkg/adapters/kv"
	"github.com/wadjakorntonsri/linkbio/pkg/adapters/repository/document"
	"github.com/wadjakorntonsri/linkbio/pkg/config"
	"github.com/wadjakorntonsri/linkbio/pkg/core/services"
	"github.com/wadjakorntonsri/linkbio/pkg/metrics"
	"github.com/wadjakorntonsri/linkbio/pkg/ports"
	"go.uber.org/zap"
)

var mux http.Handler

func init() {
	cfg := config.Load()

	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}

	// Note: On Vercel the file store is ephemeral; use STORE_DRIVER=sqlite with a
	// remote libsql URL, or STORE_DRIVER=redis.
	store, err := kv.Open(context.Background(), cfg)
	if err != nil {
		panic(err)
	}
	repo := document.NewRepository(store)

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New("linkbio")
	}

	var resolver ports.GeoResolver = geo.UnknownResolver{}
	if cfg.GeoIPDBPath != "" {
		if r, err := geo.OpenMaxMind(cfg.GeoIPDBPath, m); err == nil {
			resolver = r
		} else {
			logger.Warn("failed to open geoip database", zap.Error(err))
		}
	}

	analyticsService := services.NewAnalyticsService(repo, repo, cfg.HashSalt,
		services.WithGeo(resolver),
		services.WithCountryNames(geo.NewNames(cfg.CountryLocale)),
		services.WithLogger(logger),
		services.WithMetrics(m),
	)

	// The function may be frozen right after responding, so clicks are
	// recorded before the redirect is written.
	mux = handler.NewRouter(handler.RouterDeps{
		Config:    cfg,
		Links:     services.NewLinkService(repo),
		Analytics: analyticsService,
		Recorder:  services.NewSyncRecorder(analyticsService, logger),
		Logger:    logger,
		Metrics:   m,
	})
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}

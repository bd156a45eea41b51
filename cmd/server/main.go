package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

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

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}

	code := 0
	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", zap.Error(err))
		code = 1
	}
	_ = logger.Sync()
	os.Exit(code)
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Store
	store, err := kv.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	repo := document.NewRepository(store)
	logger.Info("store ready", zap.String("driver", cfg.StoreDriver))

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New("linkbio")
	}

	resolver, closeGeo := openGeo(cfg, logger, m)
	defer closeGeo()

	// Initialize Services
	linkService := services.NewLinkService(repo)
	analyticsService := services.NewAnalyticsService(repo, repo, cfg.HashSalt,
		services.WithGeo(resolver),
		services.WithCountryNames(geo.NewNames(cfg.CountryLocale)),
		services.WithLogger(logger),
		services.WithMetrics(m),
	)

	var recorder ports.ClickRecorder
	var queue *services.ClickQueue
	if cfg.AsyncClicks {
		queue = services.NewClickQueue(analyticsService, cfg.ClickQueueSize, logger, m)
		recorder = queue
	} else {
		recorder = services.NewSyncRecorder(analyticsService, logger)
	}

	limiter := handler.NewRateLimiter(cfg.RedirectRateLimit, cfg.RedirectRateWindow, cfg.TrustProxy, logger, m)
	sweeperStop := make(chan struct{})
	go limiter.RunSweeper(sweeperStop)
	defer close(sweeperStop)

	// Initialize Router
	mux := handler.NewRouter(handler.RouterDeps{
		Config:    cfg,
		Links:     linkService,
		Analytics: analyticsService,
		Recorder:  recorder,
		Logger:    logger,
		Metrics:   m,
		Limiter:   limiter,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.Bool("async_clicks", cfg.AsyncClicks))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if queue != nil {
		if err := queue.Close(shutdownCtx); err != nil {
			logger.Error("click queue did not drain", zap.Error(err))
		}
	}
	return nil
}

// openGeo returns the MaxMind resolver when a database is configured. A
// missing or unreadable database degrades to unknown countries.
func openGeo(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (ports.GeoResolver, func()) {
	if cfg.GeoIPDBPath == "" {
		logger.Info("geoip disabled, countries will be unknown")
		return geo.UnknownResolver{}, func() {}
	}
	r, err := geo.OpenMaxMind(cfg.GeoIPDBPath, m)
	if err != nil {
		logger.Warn("failed to open geoip database", zap.String("path", cfg.GeoIPDBPath), zap.Error(err))
		return geo.UnknownResolver{}, func() {}
	}
	return r, func() { _ = r.Close() }
}

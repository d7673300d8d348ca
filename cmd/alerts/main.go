package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"pricealert/internal/cache"
	"pricealert/internal/config"
	"pricealert/internal/database"
	"pricealert/internal/handlers"
	"pricealert/internal/logger"
	"pricealert/internal/prices"
	"pricealert/internal/rates"
	"pricealert/internal/tracing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	logger.InitLogger("info")
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Log.Fatal("Failed to load config", zap.Error(err))
	}
	logger.InitLogger(cfg.App.LogLevel)
	defer logger.Sync()
	log := logger.Log.With(zap.String("instance", cfg.App.Instance))

	if cfg.App.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracer(ctx, "price-alert-api", cfg.Tracing.Endpoint)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Error("Failed to shutdown tracer", zap.Error(err))
		}
	}()

	store, err := database.Open(ctx, cfg.Database.URL, log)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	rdb, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()

	up := prices.Upstreams{
		BinanceURL:     cfg.Upstream.BinanceURL,
		YahooURL:       cfg.Upstream.YahooURL,
		DomesticSuffix: cfg.Upstream.DomesticSuffix,
		Timeout:        cfg.Fetch.RequestTimeout,
	}
	opts := prices.FetchOptions{
		MaxConcurrency: cfg.Fetch.MaxConcurrency,
		RequestTimeout: cfg.Fetch.RequestTimeout,
		Limiter:        prices.NewRedisLimiter(rdb, cfg.Fetch.RatePerSecond),
	}
	fx := rates.NewCache(prices.NewFXSource(up), cfg.Rates.TTL)
	catalog := prices.DefaultCatalog()
	lookup := prices.NewLookup(prices.NewMarketFetchers(up, opts, fx, log), catalog)
	snapshots := cache.NewSnapshotStore(cache.New(rdb, "snapshot"), cfg.Snapshot.Key, cfg.Snapshot.TTL)

	router := handlers.NewRouter(
		handlers.NewAlertHandler(store, lookup, cache.New(rdb, "alert_lists"), cfg.Tiers.Policies(), log),
		handlers.NewPriceHandler(store, snapshots, lookup, catalog, log),
		handlers.NewUserHandler(store, log),
	)

	srv := &http.Server{Addr: ":" + cfg.App.Port, Handler: router}
	go func() {
		log.Info("Alerts service starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Alerts service stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shutdown alerts service", zap.Error(err))
	}
}

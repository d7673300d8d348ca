package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pricealert/internal/cache"
	"pricealert/internal/config"
	"pricealert/internal/database"
	"pricealert/internal/engine"
	"pricealert/internal/logger"
	"pricealert/internal/notify"
	"pricealert/internal/prices"
	"pricealert/internal/rates"
	"pricealert/internal/tracing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	metricsAddr := flag.String("metrics-addr", ":9102", "Address for the Prometheus metrics endpoint")
	runOnce := flag.Bool("once", false, "Run a single evaluation cycle and exit")
	flag.Parse()

	logger.InitLogger("info")
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Log.Fatal("Failed to load config", zap.Error(err))
	}
	logger.InitLogger(cfg.App.LogLevel)
	defer logger.Sync()
	log := logger.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracer(ctx, "price-alert-evaluator", cfg.Tracing.Endpoint)
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
	if err := store.Migrate(ctx); err != nil {
		log.Fatal("Failed to apply schema", zap.Error(err))
	}

	rdb, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()
	kv := cache.New(rdb, "snapshot")

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
	fetchers := prices.NewMarketFetchers(up, opts, fx, log)

	var dispatcher notify.Dispatcher
	switch cfg.Notify.Transport {
	case "redis":
		dispatcher = notify.NewRedisDispatcher(cache.New(rdb, "notify"), cfg.Notify.Channel)
	default:
		producer, err := notify.NewKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			log.Fatal("Failed to create Kafka producer", zap.Error(err))
		}
		kd := notify.NewKafkaDispatcher(producer, cfg.Kafka.Topic)
		defer kd.Close()
		dispatcher = kd
	}

	eng := engine.New(
		store,
		fetchers,
		cache.NewSnapshotStore(kv, cfg.Snapshot.Key, cfg.Snapshot.TTL),
		engine.NewEvaluator(dispatcher, cfg.Notify.Timeout, log),
		cfg.Tiers.Policies(),
		log,
	)

	if *runOnce {
		if _, err := eng.RunCycle(ctx); err != nil {
			log.Error("Evaluation cycle failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	metricsSrv := &http.Server{Addr: *metricsAddr, Handler: promhttp.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	scheduler, err := engine.Schedule(ctx, eng, cfg.Scheduler.Interval, log)
	if err != nil {
		log.Fatal("Failed to schedule evaluation cycle", zap.Error(err))
	}
	scheduler.StartAsync()
	log.Info("Evaluator started",
		zap.Duration("interval", cfg.Scheduler.Interval),
		zap.String("transport", cfg.Notify.Transport),
	)

	<-ctx.Done()
	log.Info("Shutting down evaluator")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shutdown metrics server", zap.Error(err))
	}
}

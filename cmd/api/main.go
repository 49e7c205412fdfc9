package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/db"
	"storefront/internal/infra/lock"
	"storefront/internal/infra/memstore"
	"storefront/internal/infra/messaging"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/jobs"
	"storefront/internal/logging"
	"storefront/internal/middleware"
	repo "storefront/internal/repository"
	"storefront/internal/server"
	"storefront/internal/telemetry"
	"storefront/internal/usecase"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const (
	serviceName    = "storefront"
	serviceVersion = "0.1.0"
)

func main() {
	//.envは無くてもよい（本番は環境変数）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid config")
	}

	env := cfg.GoEnv
	if cfg.IsProd() {
		env = "production"
	}
	log := logging.New(cfg.LogLevel, env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//トレース・メトリクス
	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, serviceName, serviceVersion)
	if err != nil {
		log.WithError(err).Fatal("init tracer")
	}
	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		log.WithError(err).Fatal("init meter")
	}

	//DB（postgres / memory）
	tx, closeStore := newStore(cfg, log)
	defer closeStore()

	//チェックアウトロック
	locker, closeLocker := newLocker(cfg, log)
	defer closeLocker()

	//注文イベント通知
	notifier, closeNotifier := newNotifier(cfg, log)
	defer closeNotifier()

	//Usecase生成
	cartUC := usecase.NewCartUsecase(tx)
	checkoutUC := usecase.NewCheckoutUsecase(tx, locker, notifier, log)
	orderUC := usecase.NewOrderUsecase(tx, notifier, log)
	catalogUC := usecase.NewCatalogUsecase(tx)

	//Handler生成
	handlers := server.Handlers{
		Product:  handler.NewProductHandler(catalogUC),
		Cart:     handler.NewCartHandler(cartUC),
		Checkout: handler.NewCheckoutHandler(checkoutUC),
		Order:    handler.NewOrderHandler(orderUC),
		Seller:   handler.NewSellerHandler(catalogUC, orderUC),
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	var origins []string
	if cfg.FEURL != "" {
		origins = []string{cfg.FEURL}
	}

	e := server.NewRouter(handlers, server.Options{
		JWTSecret:    cfg.JWTSecret,
		AllowOrigins: origins,
		Limiter:      limiter,
		Metrics:      metricsHandler,
		Log:          log,
	})

	//定期ジョブ（期限切れ注文・レートリミットの掃除）
	scheduler := jobs.NewScheduler(log)
	if err := scheduler.Add(cfg.ExpirySchedule, jobs.NewExpiryJob(orderUC, cfg.PendingOrderTTL, log)); err != nil {
		log.WithError(err).Fatal("schedule expiry job")
	}
	if err := scheduler.Add("@every 5m", cron.FuncJob(func() { limiter.Cleanup(time.Now()) })); err != nil {
		log.WithError(err).Fatal("schedule limiter cleanup")
	}
	scheduler.Start()

	srv := server.New(":"+cfg.Port, e, log)
	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Error("http server")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	scheduler.Stop(stopCtx)
	if err := shutdownMeter(stopCtx); err != nil {
		log.WithError(err).Warn("meter shutdown")
	}
	if err := shutdownTracer(stopCtx); err != nil {
		log.WithError(err).Warn("tracer shutdown")
	}
}

func newStore(cfg config.Config, log logrus.FieldLogger) (repo.TransactionManager, func()) {
	if cfg.StorageDriver == config.StorageMemory {
		log.Warn("using in-memory storage; data is lost on restart")
		return memstore.New(), func() {}
	}

	gormDB, err := db.Connect(db.Options{
		DSN:          cfg.DatabaseURL,
		Host:         cfg.PostgresHost,
		Port:         cfg.PostgresPort,
		User:         cfg.PostgresUser,
		Password:     cfg.PostgresPassword,
		Name:         cfg.PostgresDB,
		SSLMode:      cfg.PostgresSSLMode,
		MaxOpenConns: 20,
		MaxIdleConns: 5,
	})
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.WithError(err).Fatal("db handle")
	}
	return infraRepo.NewTxManagerGorm(gormDB), func() { _ = sqlDB.Close() }
}

func newLocker(cfg config.Config, log logrus.FieldLogger) (usecase.CheckoutLocker, func()) {
	if cfg.RedisURL == "" {
		return lock.NewLocalLocker(cfg.CheckoutLockTTL), func() {}
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Fatal("invalid REDIS_URL")
	}
	client := redis.NewClient(opt)
	rcfg := lock.DefaultRedisConfig()
	rcfg.TTL = cfg.CheckoutLockTTL
	return lock.NewRedisLocker(client, rcfg), func() { _ = client.Close() }
}

func newNotifier(cfg config.Config, log logrus.FieldLogger) (usecase.Notifier, func()) {
	var next usecase.Notifier = messaging.NewLogNotifier(log)
	closeFn := func() {}
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		next = producer
		closeFn = func() { _ = producer.Close() }
	}

	counting, err := telemetry.NewCountingNotifier(next, otel.Meter(serviceName))
	if err != nil {
		log.WithError(err).Fatal("notifier metrics")
	}
	return counting, closeFn
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/travel-storefront/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/travel-storefront/internal/adapters/mongo"
	"github.com/robertarktes/travel-storefront/internal/adapters/rabbit"
	redisadapter "github.com/robertarktes/travel-storefront/internal/adapters/redis"
	"github.com/robertarktes/travel-storefront/internal/auth"
	"github.com/robertarktes/travel-storefront/internal/booking"
	"github.com/robertarktes/travel-storefront/internal/catalog"
	"github.com/robertarktes/travel-storefront/internal/config"
	"github.com/robertarktes/travel-storefront/internal/contact"
	httphandler "github.com/robertarktes/travel-storefront/internal/http"
	"github.com/robertarktes/travel-storefront/internal/idempotency"
	"github.com/robertarktes/travel-storefront/internal/observability"
	"github.com/robertarktes/travel-storefront/internal/payment"
	"github.com/robertarktes/travel-storefront/internal/rateLimit"
	"github.com/robertarktes/travel-storefront/internal/session"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "storefront-api")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger(observability.LoggerOptions{Level: cfg.LogLevel, File: cfg.LogFile})
	observability.InitMetrics()

	state := &session.State{Config: cfg, Logger: logger}

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	state.OnClose(func(context.Context) error { pool.Close(); return nil })
	crdbRepo := crdb.NewRepository(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	state.OnClose(mongoClient.Disconnect)
	mongoDB := mongoClient.Database(cfg.MongoDB)
	catalogRepo := mongoadapter.NewCatalogRepository(mongoDB, logger)
	bookingRepo := mongoadapter.NewBookingRepository(mongoDB)
	if err := bookingRepo.EnsureIndexes(context.Background()); err != nil {
		logger.WithError(err).Warn("failed to ensure booking indexes")
	}

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	state.OnClose(func(context.Context) error { return redisClient.Close() })
	cache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), 24*time.Hour)
	rl, err := rateLimit.NewRedisRateLimiter(redisClient, cfg.RateLimit)
	if err != nil {
		log.Fatalf("failed to create rate limiter: %v", err)
	}

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	state.OnClose(func(context.Context) error { return rabbitConn.Close() })
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}
	state.OnClose(func(context.Context) error { return rabbitPub.Close() })

	state.Catalog = catalog.NewService(catalogRepo, cache, cfg.CatalogCacheTTL, logger)
	state.Bookings = booking.NewService(
		redisadapter.NewFlows(redisClient),
		state.Catalog,
		payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret),
		crdbRepo,
		bookingRepo,
		mongoadapter.NewAuditLogger(mongoDB, logger),
		logger,
		booking.Options{BaseRate: cfg.BaseRate, Currency: cfg.Currency, FlowTTL: cfg.FlowTTL},
	)
	state.Auth = auth.NewService(crdbRepo, redisadapter.NewRevocations(redisClient), cfg.JWTSecret, cfg.TokenTTL)
	state.Contact = contact.NewService(mongoadapter.NewContactRepository(mongoDB), rabbitPub, logger)
	state.Preferences = session.NewPreferences(redisadapter.NewPreferences(redisClient))

	checks := map[string]httphandler.ReadinessCheck{
		"crdb":  pool.Ping,
		"mongo": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
		"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		"rabbitmq": func(context.Context) error {
			if rabbitConn.IsClosed() {
				return amqp.ErrClosed
			}
			return nil
		},
	}

	handlers := httphandler.NewHandlers(state, checks)
	r := httphandler.SetupRouter(handlers, state, rl, idemp)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("storefront api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server shutdown failed")
	}
	if err := state.Close(ctx); err != nil {
		logger.WithError(err).Error("failed to release resources")
	}
	logger.Info("Server exiting")
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/travel-storefront/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/travel-storefront/internal/adapters/mongo"
	redisadapter "github.com/robertarktes/travel-storefront/internal/adapters/redis"
	"github.com/robertarktes/travel-storefront/internal/booking"
	"github.com/robertarktes/travel-storefront/internal/catalog"
	"github.com/robertarktes/travel-storefront/internal/config"
	"github.com/robertarktes/travel-storefront/internal/observability"
	"github.com/robertarktes/travel-storefront/internal/payment"
	"github.com/robertarktes/travel-storefront/internal/reconcile"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg, "storefront-reconciler")
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger(observability.LoggerOptions{Level: cfg.LogLevel, File: cfg.LogFile})
	observability.InitMetrics()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database(cfg.MongoDB)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	catalogSvc := catalog.NewService(mongoadapter.NewCatalogRepository(mongoDB, logger), redisadapter.NewCache(redisClient), cfg.CatalogCacheTTL, logger)
	bookings := booking.NewService(
		redisadapter.NewFlows(redisClient),
		catalogSvc,
		payment.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret),
		repo,
		mongoadapter.NewBookingRepository(mongoDB),
		mongoadapter.NewAuditLogger(mongoDB, logger),
		logger,
		booking.Options{BaseRate: cfg.BaseRate, Currency: cfg.Currency, FlowTTL: cfg.FlowTTL},
	)

	worker := reconcile.NewWorker(repo, bookings, logger, reconcile.Options{
		Grace:     cfg.ReconcileGrace,
		IntentTTL: cfg.IntentTTL,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.WithField("interval", cfg.ReconcileInterval.String()).Info("Reconciler started")
	go worker.Run(ctx, cfg.ReconcileInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown reconciler")
}

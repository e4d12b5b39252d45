package main

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/travel-storefront/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/travel-storefront/internal/adapters/mongo"
	redisadapter "github.com/robertarktes/travel-storefront/internal/adapters/redis"
	"github.com/robertarktes/travel-storefront/internal/booking"
	"github.com/robertarktes/travel-storefront/internal/catalog"
	"github.com/robertarktes/travel-storefront/internal/payment"
	"github.com/robertarktes/travel-storefront/internal/reconcile"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type reconcileOptions struct {
	noExpire bool
}

func newReconcileCmd(flags *rootFlags) *cobra.Command {
	opts := &reconcileOptions{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconcile pass over captured and stale payment intents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, flags, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.noExpire, "no-expire", false, "Skip expiring abandoned intents")

	return cmd
}

func runReconcile(cmd *cobra.Command, flags *rootFlags, opts *reconcileOptions) error {
	cfg, logger, err := loadEnv(flags)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	pool, err := pgxpool.New(ctx, cfg.CRDBDSN)
	if err != nil {
		return errors.Wrap(err, "connect to crdb")
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return errors.Wrap(err, "connect to mongo")
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database(cfg.MongoDB)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	catalogSvc := catalog.NewService(mongoadapter.NewCatalogRepository(mongoDB, logger), nil, cfg.CatalogCacheTTL, logger)
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

	wopts := reconcile.Options{Grace: cfg.ReconcileGrace, IntentTTL: cfg.IntentTTL}
	if opts.noExpire {
		wopts.IntentTTL = 0
	}
	res, err := reconcile.NewWorker(repo, bookings, logger, wopts).RunOnce(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "completed %d, failed %d, expired %d\n", res.Completed, res.Failed, res.Expired)
	return nil
}

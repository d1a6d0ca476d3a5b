package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	aggstore "github.com/aelharati/brandpulse-backend/internal/aggregation/store"
	"github.com/aelharati/brandpulse-backend/internal/community"
	"github.com/aelharati/brandpulse-backend/internal/consumers/invoicelinks"
	"github.com/aelharati/brandpulse-backend/pkg/config"
	"github.com/aelharati/brandpulse-backend/pkg/events/idempotency"
	"github.com/aelharati/brandpulse-backend/pkg/firestore"
	"github.com/aelharati/brandpulse-backend/pkg/logger"
	"github.com/aelharati/brandpulse-backend/pkg/pubsub"
	"github.com/aelharati/brandpulse-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "community-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "community-worker"

	logg = logger.New(logger.Options{
		ServiceName: "community-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	firestoreClient, err := firestore.NewClient(context.Background(), cfg.GCP, cfg.Firestore, logg)
	requireResource(ctx, logg, "firestore", err)
	defer func() {
		if err := firestoreClient.Close(); err != nil {
			logg.Error(ctx, "failed to close firestore client", err)
		}
	}()

	subscription := pubsubClient.InvoiceLinksSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "invoice links subscription", errors.New("subscription not configured"))
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	communityService, err := community.NewService(
		community.NewFirestoreStore(firestoreClient),
		aggstore.NewMerchants(firestoreClient),
		logg,
	)
	requireResource(ctx, logg, "community service", err)

	handler := invoicelinks.HandlerFunc(func(ctx context.Context, envelope invoicelinks.Envelope) error {
		return communityService.SyncMembership(ctx, envelope.MerchantID, envelope.CustomerID)
	})

	service, err := invoicelinks.NewService(subscription, handler, manager, logg)
	requireResource(ctx, logg, "invoice links worker service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "community worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "community worker failed", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

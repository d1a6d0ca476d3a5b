package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/genproto/googleapis/type/latlng"

	"github.com/aelharati/brandpulse-backend/internal/aggregation"
	aggstore "github.com/aelharati/brandpulse-backend/internal/aggregation/store"
	"github.com/aelharati/brandpulse-backend/internal/consumers/invoices"
	"github.com/aelharati/brandpulse-backend/pkg/config"
	"github.com/aelharati/brandpulse-backend/pkg/events/idempotency"
	"github.com/aelharati/brandpulse-backend/pkg/firestore"
	"github.com/aelharati/brandpulse-backend/pkg/logger"
	"github.com/aelharati/brandpulse-backend/pkg/metrics"
	"github.com/aelharati/brandpulse-backend/pkg/pubsub"
	"github.com/aelharati/brandpulse-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "aggregation-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "aggregation-worker"

	logg = logger.New(logger.Options{
		ServiceName: "aggregation-worker",
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

	subscription := pubsubClient.InvoicesSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "invoices subscription", errors.New("subscription not configured"))
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	pipelineMetrics := metrics.NewPipelineMetrics(prometheus.DefaultRegisterer)

	defaultLocation := &latlng.LatLng{
		Latitude:  cfg.Store.DefaultLatitude,
		Longitude: cfg.Store.DefaultLongitude,
	}

	aggService, err := aggregation.NewService(
		aggstore.NewCatalogs(firestoreClient),
		aggstore.NewMerchants(firestoreClient),
		aggstore.NewPerformance(firestoreClient),
		logg,
		pipelineMetrics,
		defaultLocation,
	)
	requireResource(ctx, logg, "aggregation service", err)

	handler := invoices.HandlerFunc(func(ctx context.Context, envelope invoices.Envelope) error {
		return aggService.ProcessInvoice(ctx, envelope.InvoiceID, envelope.Record)
	})

	service, err := invoices.NewService(subscription, handler, manager, logg)
	requireResource(ctx, logg, "invoices worker service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "aggregation worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "aggregation worker failed", err)
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

package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/aelharati/brandpulse-backend/api/controllers"
	"github.com/aelharati/brandpulse-backend/api/routes"
	"github.com/aelharati/brandpulse-backend/internal/extraction"
	"github.com/aelharati/brandpulse-backend/pkg/config"
	"github.com/aelharati/brandpulse-backend/pkg/firestore"
	"github.com/aelharati/brandpulse-backend/pkg/logger"
	"github.com/aelharati/brandpulse-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	firestoreClient, err := firestore.NewClient(context.Background(), cfg.GCP, cfg.Firestore, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap firestore", err)
		os.Exit(1)
	}
	defer func() {
		if err := firestoreClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing firestore", err)
		}
	}()

	model, err := extraction.NewVertexModel(context.Background(), cfg.GCP.ProjectID, cfg.Vertex.Location, cfg.Vertex.Model)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap vertex model", err)
		os.Exit(1)
	}
	defer func() {
		if err := model.Close(); err != nil {
			logg.Error(context.Background(), "error closing vertex model", err)
		}
	}()

	analyzer, err := extraction.NewService(model, cfg.Vertex.Model, cfg.Vertex.Location, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create extraction service", err)
		os.Exit(1)
	}

	readyChecks := map[string]controllers.Pinger{
		"redis":     redisClient,
		"firestore": firestoreClient,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, analyzer, readyChecks),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

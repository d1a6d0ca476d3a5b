package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aelharati/brandpulse-backend/api/controllers"
	"github.com/aelharati/brandpulse-backend/api/middleware"
	"github.com/aelharati/brandpulse-backend/pkg/config"
	"github.com/aelharati/brandpulse-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	analyzer controllers.Analyzer,
	readyChecks map[string]controllers.Pinger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyChecks))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/invoices", func(r chi.Router) {
		r.Post("/analyze", controllers.AnalyzeInvoice(analyzer, logg))
	})

	return r
}

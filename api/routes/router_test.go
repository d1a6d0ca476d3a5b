package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aelharati/brandpulse-backend/api/controllers"
	"github.com/aelharati/brandpulse-backend/internal/extraction"
	"github.com/aelharati/brandpulse-backend/pkg/config"
	"github.com/aelharati/brandpulse-backend/pkg/logger"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(context.Context, extraction.AnalyzeRequest) (*extraction.Extraction, error) {
	return &extraction.Extraction{RawText: "ok"}, nil
}

func newTestRouter(checks map[string]controllers.Pinger) http.Handler {
	cfg := &config.Config{}
	cfg.App.Env = config.AppEnvDev
	return NewRouter(cfg, logger.New(logger.Options{ServiceName: "router-test"}), stubAnalyzer{}, checks)
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health/live", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("X-BrandPulse-Env"); got != config.AppEnvDev {
		t.Fatalf("unexpected env header %q", got)
	}
}

func TestHealthReadyReportsDependencyFailure(t *testing.T) {
	router := newTestRouter(map[string]controllers.Pinger{
		"firestore": stubPinger{},
		"redis":     stubPinger{err: errors.New("connection refused")},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health/ready", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestHealthReadyAllHealthy(t *testing.T) {
	router := newTestRouter(map[string]controllers.Pinger{
		"firestore": stubPinger{},
		"redis":     stubPinger{},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health/ready", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAnalyzeRouteWired(t *testing.T) {
	router := newTestRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/v1/invoices/analyze",
		strings.NewReader(`{"imageBase64":"aGVsbG8="}`)))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestMetricsRouteWired(t *testing.T) {
	router := newTestRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

package aggregation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"google.golang.org/genproto/googleapis/type/latlng"

	pkgerrors "github.com/aelharati/brandpulse-backend/pkg/errors"
	"github.com/aelharati/brandpulse-backend/pkg/logger"
	"github.com/aelharati/brandpulse-backend/pkg/metrics"
)

// MerchantStore reads merchant documents. Absent merchants yield an empty map.
type MerchantStore interface {
	Merchant(ctx context.Context, merchantID string) (map[string]any, error)
}

// Service runs the whole aggregation pipeline for one invoice record.
type Service struct {
	catalog         CatalogStore
	merchants       MerchantStore
	upserter        *Upserter
	recomputer      *Recomputer
	logg            *logger.Logger
	pipelineMetrics *metrics.PipelineMetrics
	defaultLocation *latlng.LatLng
	now             func() time.Time
}

func NewService(
	catalog CatalogStore,
	merchants MerchantStore,
	performance PerformanceStore,
	logg *logger.Logger,
	pipelineMetrics *metrics.PipelineMetrics,
	defaultLocation *latlng.LatLng,
) (*Service, error) {
	if catalog == nil {
		return nil, errors.New("catalog store is required")
	}
	if merchants == nil {
		return nil, errors.New("merchant store is required")
	}
	if performance == nil {
		return nil, errors.New("performance store is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		catalog:         catalog,
		merchants:       merchants,
		upserter:        NewUpserter(performance),
		recomputer:      NewRecomputer(performance),
		logg:            logg,
		pipelineMetrics: pipelineMetrics,
		defaultLocation: defaultLocation,
		now:             time.Now,
	}, nil
}

// ProcessInvoice aggregates one invoice into per-(brand, store) performance
// records. Skippable input ends the run with no write; a failed upsert for one
// brand does not stop the others.
func (s *Service) ProcessInvoice(ctx context.Context, invoiceID string, record map[string]any) error {
	started := s.now()
	logCtx := s.logg.WithInvoiceID(ctx, invoiceID)

	merchantID := ResolveMerchantID(record)
	if merchantID == "" {
		s.logg.Warn(logCtx, "invoice missing merchantId")
		s.observeSkip(started, "no_merchant_id")
		return pkgerrors.New(pkgerrors.CodeSkippable, "invoice missing merchantId")
	}
	logCtx = s.logg.WithMerchantID(logCtx, merchantID)

	items := NormalizeItems(ResolveLineItems(record))
	if len(items) == 0 {
		s.logg.Info(logCtx, "invoice contains no recognizable items; skip aggregation")
		s.observeSkip(started, "no_items")
		return pkgerrors.New(pkgerrors.CodeSkippable, "invoice contains no recognizable items")
	}

	merchant, err := s.merchants.Merchant(ctx, merchantID)
	if err != nil {
		s.logg.Error(logCtx, "failed to read merchant", err)
		s.observeOutcome(started, "failed")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("read merchant %s", merchantID))
	}
	storeName := resolveStoreName(merchant, merchantID)
	storeLocation := resolveLocation(merchant["location"], s.defaultLocation)

	catalog, err := BuildCatalog(ctx, s.catalog, merchantID, items)
	if err != nil {
		s.logg.Error(logCtx, "failed to build product catalog", err)
		s.observeOutcome(started, "failed")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("build catalog for merchant %s", merchantID))
	}

	groups := BuildBrandGroups(items, catalog)
	if len(groups) == 0 {
		s.logg.Info(logCtx, "no branded products found for invoice")
		s.observeSkip(started, "no_branded_items")
		return pkgerrors.New(pkgerrors.CodeSkippable, "no branded products found for invoice")
	}

	meta := NewInvoiceMeta(ResolveTimestamp(record, s.now()), ResolveCustomerID(record))

	var errs error
	for brandID, group := range groups {
		brandCtx := s.logg.WithBrandID(logCtx, brandID)
		in := UpsertInput{
			StoreID:   merchantID,
			StoreName: storeName,
			Location:  storeLocation,
			Group:     group,
			Meta:      meta,
		}
		if err := s.upserter.UpsertBrand(ctx, brandID, in); err != nil {
			s.logg.Error(brandCtx, "failed to aggregate store performance", err)
			s.pipelineMetrics.IncUpsertFailure()
			errs = multierr.Append(errs, err)
			continue
		}
		// Stale market share self-heals on the next successful recompute for
		// this brand, so a failure here does not undo the upsert.
		if err := s.recomputer.Recompute(ctx, brandID); err != nil {
			s.logg.Error(brandCtx, "failed to recompute brand stats", err)
			s.pipelineMetrics.IncRecomputeFailure()
		}
	}
	if errs != nil {
		s.observeOutcome(started, "failed")
		return errs
	}

	s.pipelineMetrics.IncProcessed()
	s.observeOutcome(started, "processed")
	s.logg.Info(logCtx, "invoice aggregated")
	return nil
}

func (s *Service) observeSkip(started time.Time, reason string) {
	s.pipelineMetrics.IncSkipped(reason)
	s.pipelineMetrics.ObserveDuration("skipped", s.now().Sub(started))
}

func (s *Service) observeOutcome(started time.Time, outcome string) {
	s.pipelineMetrics.ObserveDuration(outcome, s.now().Sub(started))
}

func resolveStoreName(merchant map[string]any, merchantID string) string {
	for _, key := range []string{"name", "storeName"} {
		if name, ok := merchant[key].(string); ok && name != "" {
			return name
		}
	}
	return "Store " + merchantID
}

// resolveLocation accepts a native geo point or a {lat,lng}/{latitude,longitude}
// map; anything else falls back to the configured default.
func resolveLocation(raw any, fallback *latlng.LatLng) *latlng.LatLng {
	switch v := raw.(type) {
	case *latlng.LatLng:
		if v != nil {
			return v
		}
	case latlng.LatLng:
		return &v
	case map[string]any:
		lat, okLat := coerceNumber(firstPresent(v, "lat", "latitude"))
		lng, okLng := coerceNumber(firstPresent(v, "lng", "longitude"))
		if okLat && okLng {
			return &latlng.LatLng{Latitude: lat, Longitude: lng}
		}
	}
	return fallback
}

func firstPresent(record map[string]any, keys ...string) any {
	for _, key := range keys {
		if value, ok := record[key]; ok && value != nil {
			return value
		}
	}
	return nil
}

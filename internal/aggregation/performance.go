package aggregation

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"google.golang.org/genproto/googleapis/type/latlng"

	pkgerrors "github.com/aelharati/brandpulse-backend/pkg/errors"
)

const (
	defaultProductName = "منتج"
	defaultSeasonality = "evergreen"

	issueLowSales       = "المبيعات أقل من 500 د.ل وتتطلب تنشيطاً."
	issueNegativeGrowth = "معدل النمو سلبي خلال آخر دورة مبيعات."

	maxPeakValues = 5
)

// PerformanceStore persists StorePerformance documents. Upsert must run the
// mutate callback inside an atomic read-modify-write transaction so concurrent
// invoices for the same store serialize without lost updates.
type PerformanceStore interface {
	Upsert(ctx context.Context, docID string, mutate func(existing StorePerformance, exists bool) StorePerformance) error
	ListByBrand(ctx context.Context, brandID string) ([]PerformanceDoc, error)
	ApplyBrandStats(ctx context.Context, updates []BrandStatsUpdate) error
}

// UpsertInput is one brand group plus the invoice context it came from.
type UpsertInput struct {
	StoreID   string
	StoreName string
	Location  *latlng.LatLng
	Group     *BrandGroup
	Meta      InvoiceMeta
}

// Upserter merges brand groups into persisted performance records.
type Upserter struct {
	store PerformanceStore
}

func NewUpserter(store PerformanceStore) *Upserter {
	return &Upserter{store: store}
}

// PerformanceDocID keys the performance document for a (brand, store) pair.
func PerformanceDocID(brandID, storeID string) string {
	return brandID + "_" + storeID
}

// UpsertBrand transactionally merges one invoice's group for the given brand.
func (u *Upserter) UpsertBrand(ctx context.Context, brandID string, in UpsertInput) error {
	docID := PerformanceDocID(brandID, in.StoreID)
	err := u.store.Upsert(ctx, docID, func(existing StorePerformance, exists bool) StorePerformance {
		return applyInvoice(existing, brandID, in)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("upsert performance %s", docID))
	}
	return nil
}

// applyInvoice computes the next state of a performance record. It is pure:
// the transaction layer re-invokes it on contention retries.
func applyInvoice(existing StorePerformance, brandID string, in UpsertInput) StorePerformance {
	previousSales := existing.TotalSales
	totalSales := previousSales + in.Group.Revenue
	totalTransactions := existing.TotalTransactions + 1

	storeAverage := 0.0
	if totalTransactions > 0 {
		storeAverage = totalSales / float64(totalTransactions)
	}

	growthRate := 100.0
	if previousSales != 0 {
		growthRate = (totalSales - previousSales) / math.Max(previousSales, 1) * 100
	}

	return StorePerformance{
		StoreID:           in.StoreID,
		StoreName:         in.StoreName,
		BrandID:           brandID,
		Location:          in.Location,
		Products:          mergeProducts(existing.Products, in.Group.Products, in.Meta),
		TotalSales:        round2(totalSales),
		TotalTransactions: totalTransactions,
		GrowthRate:        round2(growthRate),
		MarketShare:       existing.MarketShare,
		LastSaleDate:      in.Meta.Timestamp,
		Rating:            selectRating(totalSales, growthRate),
		Issues:            mergeUnique(existing.Issues, deriveIssues(totalSales, growthRate)),
		Recommendations:   existing.Recommendations,
		StoreAverage:      round2(storeAverage),
		BrandAverage:      existing.BrandAverage,
		Difference:        existing.Difference,
	}
}

func mergeProducts(existing map[string]*ProductPerformance, incoming map[string]*ProductDelta, meta InvoiceMeta) map[string]*ProductPerformance {
	merged := make(map[string]*ProductPerformance, len(existing)+len(incoming))
	for key, perf := range existing {
		clone := *perf
		merged[key] = &clone
	}

	for key, delta := range incoming {
		current, ok := merged[key]
		if !ok {
			current = &ProductPerformance{
				ProductID:   key,
				ProductName: delta.Name,
				Seasonality: seasonalityOrDefault(delta.Seasonality),
			}
			merged[key] = current
		}

		previousRevenue := current.Revenue
		current.UnitsSold += delta.Units
		current.Revenue = round2(previousRevenue + delta.Revenue)
		// One invoice equals one customer touch; customer identity is not
		// threaded through at this layer.
		current.CustomerCount++
		if previousRevenue == 0 {
			current.GrowthRate = 100
		} else {
			current.GrowthRate = round2((current.Revenue - previousRevenue) / math.Max(previousRevenue, 1) * 100)
		}
		current.PeakDays = mergePeakValue(current.PeakDays, meta.DayLabel)
		current.PeakHours = mergePeakValue(current.PeakHours, meta.HourLabel)
	}
	return merged
}

// mergePeakValue keeps the first five distinct labels seen; later values are
// dropped, not rotated.
func mergePeakValue(existing []string, value string) []string {
	if value == "" {
		return existing
	}
	for _, have := range existing {
		if have == value {
			return existing
		}
	}
	if len(existing) >= maxPeakValues {
		return existing
	}
	return append(existing, value)
}

func deriveIssues(totalSales, growthRate float64) []string {
	var issues []string
	if totalSales < 500 {
		issues = append(issues, issueLowSales)
	}
	if growthRate < -10 {
		issues = append(issues, issueNegativeGrowth)
	}
	return issues
}

// mergeUnique unions additions into existing, preserving first-seen order.
// Issues accumulate and are never cleared here.
func mergeUnique(existing, additions []string) []string {
	merged := make([]string, 0, len(existing)+len(additions))
	seen := make(map[string]struct{}, len(existing)+len(additions))
	for _, value := range append(append([]string{}, existing...), additions...) {
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		merged = append(merged, value)
	}
	return merged
}

// selectRating picks the first matching band, evaluated in priority order.
func selectRating(totalSales, growthRate float64) string {
	switch {
	case totalSales >= 10000 || growthRate >= 20:
		return "excellent"
	case totalSales >= 5000 || growthRate >= 5:
		return "good"
	case totalSales <= 800 && growthRate <= -15:
		return "critical"
	case totalSales <= 1500:
		return "poor"
	default:
		return "average"
	}
}

func seasonalityOrDefault(value string) string {
	if value == "" {
		return defaultSeasonality
	}
	return value
}

// round2 rounds to two decimal places and clamps non-finite values to 0.
func round2(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	rounded, _ := decimal.NewFromFloat(value).Round(2).Float64()
	return rounded
}

package aggregation

import (
	"context"
	"fmt"

	pkgerrors "github.com/aelharati/brandpulse-backend/pkg/errors"
)

// Recomputer recalculates market share and brand averages across all stores
// of a brand. The pass spans many documents, so it runs outside the upsert
// transaction and is eventually consistent with it.
type Recomputer struct {
	store PerformanceStore
}

func NewRecomputer(store PerformanceStore) *Recomputer {
	return &Recomputer{store: store}
}

// Recompute fetches every performance record of the brand, sums total sales
// and writes each store's share of the brand back in one batch.
func (r *Recomputer) Recompute(ctx context.Context, brandID string) error {
	docs, err := r.store.ListByBrand(ctx, brandID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("list performance for brand %s", brandID))
	}
	if len(docs) == 0 {
		return nil
	}

	var totalRevenue float64
	for _, doc := range docs {
		totalRevenue += doc.Perf.TotalSales
	}
	average := totalRevenue / float64(len(docs))

	updates := make([]BrandStatsUpdate, 0, len(docs))
	for _, doc := range docs {
		sales := doc.Perf.TotalSales
		share := 0.0
		if totalRevenue > 0 {
			share = sales / totalRevenue * 100
		}
		updates = append(updates, BrandStatsUpdate{
			DocID:        doc.ID,
			MarketShare:  round2(share),
			BrandAverage: round2(average),
			Difference:   round2(sales - average),
		})
	}

	if err := r.store.ApplyBrandStats(ctx, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("apply brand stats for %s", brandID))
	}
	return nil
}

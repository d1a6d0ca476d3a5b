package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/multierr"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aelharati/brandpulse-backend/internal/aggregation"
	fs "github.com/aelharati/brandpulse-backend/pkg/firestore"
)

// Performance persists StorePerformance documents in Firestore.
type Performance struct {
	client *fs.Client
}

func NewPerformance(client *fs.Client) *Performance {
	return &Performance{client: client}
}

// Upsert runs the mutate callback inside a Firestore transaction. The client
// retries the callback on contention, so concurrent invoices for the same
// store serialize without lost updates.
func (p *Performance) Upsert(ctx context.Context, docID string, mutate func(existing aggregation.StorePerformance, exists bool) aggregation.StorePerformance) error {
	ref := p.client.Performance().Doc(docID)
	return p.client.Raw().RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return fmt.Errorf("reading %s: %w", docID, err)
		}

		var existing aggregation.StorePerformance
		exists := snap != nil && snap.Exists()
		if exists {
			if err := snap.DataTo(&existing); err != nil {
				return fmt.Errorf("decoding %s: %w", docID, err)
			}
		}

		return tx.Set(ref, mutate(existing, exists))
	})
}

// ListByBrand returns every performance record of the brand.
func (p *Performance) ListByBrand(ctx context.Context, brandID string) ([]aggregation.PerformanceDoc, error) {
	snaps, err := p.client.Performance().Where("brandId", "==", brandID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("querying brand %s: %w", brandID, err)
	}

	docs := make([]aggregation.PerformanceDoc, 0, len(snaps))
	for _, snap := range snaps {
		var perf aggregation.StorePerformance
		if err := snap.DataTo(&perf); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", snap.Ref.ID, err)
		}
		docs = append(docs, aggregation.PerformanceDoc{ID: snap.Ref.ID, Perf: perf})
	}
	return docs, nil
}

// ApplyBrandStats writes the recomputed stats across all records of a brand in
// one BulkWriter batch. The batch is unconditional; it is not transactional
// with the upsert that triggered it.
func (p *Performance) ApplyBrandStats(ctx context.Context, updates []aggregation.BrandStatsUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	bw := p.client.Raw().BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(updates))
	for _, update := range updates {
		ref := p.client.Performance().Doc(update.DocID)
		job, err := bw.Update(ref, []firestore.Update{
			{Path: "marketShare", Value: update.MarketShare},
			{Path: "brandAverage", Value: update.BrandAverage},
			{Path: "difference", Value: update.Difference},
		})
		if err != nil {
			bw.End()
			return fmt.Errorf("enqueueing stats for %s: %w", update.DocID, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	var errs error
	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("writing stats for %s: %w", updates[i].DocID, err))
		}
	}
	return errs
}

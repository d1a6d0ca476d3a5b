package aggregation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/genproto/googleapis/type/latlng"

	pkgerrors "github.com/aelharati/brandpulse-backend/pkg/errors"
)

func testMeta() InvoiceMeta {
	return NewInvoiceMeta(time.Date(2026, 3, 16, 14, 5, 0, 0, time.UTC), "cust-1")
}

func singleProductGroup(revenue, units float64) *BrandGroup {
	return &BrandGroup{
		Revenue: revenue,
		Units:   units,
		Products: map[string]*ProductDelta{
			"p-1": {Key: "p-1", Name: "Juice", Units: units, Revenue: revenue},
		},
	}
}

func TestApplyInvoiceFirstSale(t *testing.T) {
	loc := &latlng.LatLng{Latitude: 32.8872, Longitude: 13.1913}
	in := UpsertInput{
		StoreID:   "store-x",
		StoreName: "Store X",
		Location:  loc,
		Group:     singleProductGroup(100, 2),
		Meta:      testMeta(),
	}

	got := applyInvoice(StorePerformance{}, "b-1", in)

	if got.TotalSales != 100 {
		t.Fatalf("expected totalSales 100, got %v", got.TotalSales)
	}
	if got.TotalTransactions != 1 {
		t.Fatalf("expected 1 transaction, got %d", got.TotalTransactions)
	}
	if got.GrowthRate != 100 {
		t.Fatalf("first sale growth must be 100, got %v", got.GrowthRate)
	}
	// growthRate 100 >= 20 wins over the low-sales band.
	if got.Rating != "excellent" {
		t.Fatalf("expected excellent by growth priority, got %q", got.Rating)
	}
	if got.StoreAverage != 100 {
		t.Fatalf("expected store average 100, got %v", got.StoreAverage)
	}
	if len(got.Issues) != 1 || got.Issues[0] != issueLowSales {
		t.Fatalf("expected low-sales issue, got %v", got.Issues)
	}
	if got.BrandID != "b-1" || got.StoreID != "store-x" || got.StoreName != "Store X" {
		t.Fatalf("unexpected identity fields %+v", got)
	}
	if got.Location != loc {
		t.Fatalf("expected location carried through")
	}
	if !got.LastSaleDate.Equal(testMeta().Timestamp) {
		t.Fatalf("unexpected last sale date %v", got.LastSaleDate)
	}

	product := got.Products["p-1"]
	if product == nil {
		t.Fatalf("expected p-1 product entry")
	}
	if product.UnitsSold != 2 || product.Revenue != 100 || product.GrowthRate != 100 {
		t.Fatalf("unexpected product state %+v", product)
	}
	if product.CustomerCount != 1 {
		t.Fatalf("expected one customer touch, got %d", product.CustomerCount)
	}
	if product.Seasonality != defaultSeasonality {
		t.Fatalf("expected default seasonality, got %q", product.Seasonality)
	}
	if len(product.PeakDays) != 1 || product.PeakDays[0] != "Monday" {
		t.Fatalf("unexpected peak days %v", product.PeakDays)
	}
	if len(product.PeakHours) != 1 || product.PeakHours[0] != "14:00" {
		t.Fatalf("unexpected peak hours %v", product.PeakHours)
	}
}

func TestApplyInvoiceMergesIntoExisting(t *testing.T) {
	existing := StorePerformance{
		StoreID:           "store-x",
		BrandID:           "b-1",
		TotalSales:        1000,
		TotalTransactions: 4,
		MarketShare:       37.5,
		BrandAverage:      800,
		Difference:        200,
		Recommendations:   []string{"keep stock high"},
		Issues:            []string{issueLowSales},
		Products: map[string]*ProductPerformance{
			"p-1": {
				ProductID:     "p-1",
				ProductName:   "Juice",
				UnitsSold:     10,
				Revenue:       1000,
				CustomerCount: 4,
				Seasonality:   "summer",
				PeakDays:      []string{"Sunday"},
				PeakHours:     []string{"09:00"},
			},
		},
	}
	in := UpsertInput{
		StoreID: "store-x",
		Group:   singleProductGroup(500, 5),
		Meta:    testMeta(),
	}

	got := applyInvoice(existing, "b-1", in)

	if got.TotalSales != 1500 {
		t.Fatalf("expected additive revenue 1500, got %v", got.TotalSales)
	}
	if got.TotalTransactions != 5 {
		t.Fatalf("expected 5 transactions, got %d", got.TotalTransactions)
	}
	// (1500-1000)/1000*100
	if got.GrowthRate != 50 {
		t.Fatalf("expected growth 50, got %v", got.GrowthRate)
	}
	if got.StoreAverage != 300 {
		t.Fatalf("expected store average 300, got %v", got.StoreAverage)
	}
	if got.Rating != "excellent" {
		t.Fatalf("growth 50 should rate excellent, got %q", got.Rating)
	}
	if got.MarketShare != 37.5 || got.BrandAverage != 800 || got.Difference != 200 {
		t.Fatalf("recompute-owned fields must be preserved, got %+v", got)
	}
	if len(got.Recommendations) != 1 {
		t.Fatalf("recommendations must be preserved, got %v", got.Recommendations)
	}
	if len(got.Issues) != 1 || got.Issues[0] != issueLowSales {
		t.Fatalf("existing issues must persist without duplication, got %v", got.Issues)
	}

	product := got.Products["p-1"]
	if product.UnitsSold != 15 || product.Revenue != 1500 {
		t.Fatalf("unexpected merged product %+v", product)
	}
	if product.CustomerCount != 5 {
		t.Fatalf("customer count should increment per merge, got %d", product.CustomerCount)
	}
	if product.GrowthRate != 50 {
		t.Fatalf("expected product growth 50, got %v", product.GrowthRate)
	}
	if product.Seasonality != "summer" {
		t.Fatalf("existing seasonality must survive, got %q", product.Seasonality)
	}
	if len(product.PeakDays) != 2 || product.PeakDays[1] != "Monday" {
		t.Fatalf("expected Monday appended, got %v", product.PeakDays)
	}

	// The input document must not be mutated; the transaction may retry.
	if existing.Products["p-1"].UnitsSold != 10 {
		t.Fatalf("existing document mutated: %+v", existing.Products["p-1"])
	}
}

func TestApplyInvoiceNegativeGrowthIssue(t *testing.T) {
	existing := StorePerformance{TotalSales: 1000, TotalTransactions: 1}
	in := UpsertInput{
		StoreID: "store-x",
		Group:   singleProductGroup(-200, 1),
		Meta:    testMeta(),
	}

	got := applyInvoice(existing, "b-1", in)
	if got.GrowthRate != -20 {
		t.Fatalf("expected growth -20, got %v", got.GrowthRate)
	}
	found := false
	for _, issue := range got.Issues {
		if issue == issueNegativeGrowth {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected negative growth issue, got %v", got.Issues)
	}
}

func TestMergePeakValueCapsAtFive(t *testing.T) {
	peaks := []string{}
	for _, day := range []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Monday"} {
		peaks = mergePeakValue(peaks, day)
	}
	if len(peaks) != maxPeakValues {
		t.Fatalf("expected %d peaks, got %v", maxPeakValues, peaks)
	}
	// First five distinct labels stay; later ones are dropped.
	if peaks[0] != "Monday" || peaks[4] != "Friday" {
		t.Fatalf("unexpected peak ordering %v", peaks)
	}
	if got := mergePeakValue(peaks, ""); len(got) != maxPeakValues {
		t.Fatalf("empty label must be ignored")
	}
}

func TestSelectRatingBands(t *testing.T) {
	tests := []struct {
		totalSales float64
		growthRate float64
		want       string
	}{
		{10000, 0, "excellent"},
		{100, 100, "excellent"},
		{0, 20, "excellent"},
		{5000, 0, "good"},
		{0, 5, "good"},
		{800, -15, "critical"},
		{799, -20, "critical"},
		{1500, 0, "poor"},
		{801, -20, "poor"},
		{2000, 0, "average"},
		{4999, 4, "average"},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("sales=%v growth=%v", tc.totalSales, tc.growthRate), func(t *testing.T) {
			if got := selectRating(tc.totalSales, tc.growthRate); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRound2(t *testing.T) {
	if got := round2(10.005); got != 10.01 {
		t.Fatalf("expected 10.01, got %v", got)
	}
	if got := round2(1.0 / 3.0); got != 0.33 {
		t.Fatalf("expected 0.33, got %v", got)
	}
}

type fakePerformanceStore struct {
	docs       map[string]StorePerformance
	upsertErr  error
	failOn     map[string]error
	listErr    error
	applyErr   error
	upserts    int
	lists      int
	applied    [][]BrandStatsUpdate
	listResult []PerformanceDoc
}

func newFakePerformanceStore() *fakePerformanceStore {
	return &fakePerformanceStore{docs: make(map[string]StorePerformance)}
}

func (f *fakePerformanceStore) Upsert(_ context.Context, docID string, mutate func(existing StorePerformance, exists bool) StorePerformance) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if err, ok := f.failOn[docID]; ok {
		return err
	}
	f.upserts++
	existing, exists := f.docs[docID]
	f.docs[docID] = mutate(existing, exists)
	return nil
}

func (f *fakePerformanceStore) ListByBrand(_ context.Context, brandID string) ([]PerformanceDoc, error) {
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.listResult != nil {
		return f.listResult, nil
	}
	var docs []PerformanceDoc
	for id, perf := range f.docs {
		if perf.BrandID == brandID {
			docs = append(docs, PerformanceDoc{ID: id, Perf: perf})
		}
	}
	return docs, nil
}

func (f *fakePerformanceStore) ApplyBrandStats(_ context.Context, updates []BrandStatsUpdate) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, updates)
	for _, update := range updates {
		doc, ok := f.docs[update.DocID]
		if !ok {
			continue
		}
		doc.MarketShare = update.MarketShare
		doc.BrandAverage = update.BrandAverage
		doc.Difference = update.Difference
		f.docs[update.DocID] = doc
	}
	return nil
}

func TestUpserterWritesUnderCompositeDocID(t *testing.T) {
	store := newFakePerformanceStore()
	upserter := NewUpserter(store)

	in := UpsertInput{StoreID: "store-x", Group: singleProductGroup(100, 2), Meta: testMeta()}
	if err := upserter.UpsertBrand(context.Background(), "b-1", in); err != nil {
		t.Fatalf("UpsertBrand returned error: %v", err)
	}
	if _, ok := store.docs["b-1_store-x"]; !ok {
		t.Fatalf("expected document keyed b-1_store-x, have %v", store.docs)
	}
}

func TestUpserterWrapsStoreFailure(t *testing.T) {
	store := newFakePerformanceStore()
	store.upsertErr = errors.New("transaction aborted")
	upserter := NewUpserter(store)

	err := upserter.UpsertBrand(context.Background(), "b-1",
		UpsertInput{StoreID: "store-x", Group: singleProductGroup(1, 1), Meta: testMeta()})
	if err == nil {
		t.Fatalf("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

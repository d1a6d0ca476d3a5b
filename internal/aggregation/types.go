package aggregation

import (
	"time"

	"google.golang.org/genproto/googleapis/type/latlng"
)

// NormalizedItem is the canonical shape of one invoice line after sniffing the
// raw record. At least one of ProductID/ProductName is non-empty.
type NormalizedItem struct {
	ProductID   string
	ProductName string
	Quantity    float64
	Price       float64
}

// CatalogProduct is a read-only product catalog entry.
type CatalogProduct struct {
	ID          string `firestore:"-"`
	Name        string `firestore:"name"`
	Title       string `firestore:"title"`
	MerchantID  string `firestore:"merchantId"`
	BrandID     string `firestore:"brandId"`
	Seasonality string `firestore:"seasonality"`
}

// DisplayName prefers the catalog name over the legacy title field.
func (p CatalogProduct) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Title
}

// ProductDelta is one product's contribution within a single invoice.
type ProductDelta struct {
	Key         string
	Name        string
	Seasonality string
	Units       float64
	Revenue     float64
}

// BrandGroup aggregates one invoice's items for a single brand.
type BrandGroup struct {
	Revenue  float64
	Units    float64
	Products map[string]*ProductDelta
}

// ProductPerformance is the persisted per-product sub-record of a
// StorePerformance document.
type ProductPerformance struct {
	ProductID     string   `firestore:"productId"`
	ProductName   string   `firestore:"productName"`
	UnitsSold     float64  `firestore:"unitsSold"`
	Revenue       float64  `firestore:"revenue"`
	GrowthRate    float64  `firestore:"growthRate"`
	CustomerCount int64    `firestore:"customerCount"`
	Seasonality   string   `firestore:"seasonality"`
	PeakDays      []string `firestore:"peakDays"`
	PeakHours     []string `firestore:"peakHours"`
}

// StorePerformance is the persisted performance document for one
// (brand, store) pair, keyed `brandId_storeId`.
type StorePerformance struct {
	StoreID           string                         `firestore:"storeId"`
	StoreName         string                         `firestore:"storeName"`
	BrandID           string                         `firestore:"brandId"`
	Location          *latlng.LatLng                 `firestore:"location"`
	Products          map[string]*ProductPerformance `firestore:"products"`
	TotalSales        float64                        `firestore:"totalSales"`
	TotalTransactions int64                          `firestore:"totalTransactions"`
	GrowthRate        float64                        `firestore:"growthRate"`
	MarketShare       float64                        `firestore:"marketShare"`
	LastSaleDate      time.Time                      `firestore:"lastSaleDate"`
	Rating            string                         `firestore:"rating"`
	Issues            []string                       `firestore:"issues"`
	Recommendations   []string                       `firestore:"recommendations"`
	StoreAverage      float64                        `firestore:"storeAverage"`
	BrandAverage      float64                        `firestore:"brandAverage"`
	Difference        float64                        `firestore:"difference"`
}

// InvoiceMeta carries the per-invoice context threaded into every merge.
type InvoiceMeta struct {
	Timestamp  time.Time
	DayLabel   string
	HourLabel  string
	CustomerID string
}

// NewInvoiceMeta derives the peak labels from the invoice timestamp.
func NewInvoiceMeta(ts time.Time, customerID string) InvoiceMeta {
	return InvoiceMeta{
		Timestamp:  ts,
		DayLabel:   ts.Weekday().String(),
		HourLabel:  ts.Format("15") + ":00",
		CustomerID: customerID,
	}
}

// BrandStatsUpdate is one store's recomputed share of its brand's sales.
type BrandStatsUpdate struct {
	DocID        string
	MarketShare  float64
	BrandAverage float64
	Difference   float64
}

// PerformanceDoc pairs a performance record with its document id.
type PerformanceDoc struct {
	ID   string
	Perf StorePerformance
}

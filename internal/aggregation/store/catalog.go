package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/aelharati/brandpulse-backend/internal/aggregation"
	fs "github.com/aelharati/brandpulse-backend/pkg/firestore"
)

// Catalogs reads the product catalog from Firestore.
type Catalogs struct {
	client *fs.Client
}

func NewCatalogs(client *fs.Client) *Catalogs {
	return &Catalogs{client: client}
}

// ProductsByMerchant loads the merchant's entire product list.
func (c *Catalogs) ProductsByMerchant(ctx context.Context, merchantID string) ([]aggregation.CatalogProduct, error) {
	snaps, err := c.client.Products().Where("merchantId", "==", merchantID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("querying products for merchant %s: %w", merchantID, err)
	}
	return decodeProducts(snaps)
}

// ProductsByIDs point-reads the given product documents; missing ids are
// silently absent from the result.
func (c *Catalogs) ProductsByIDs(ctx context.Context, ids []string) ([]aggregation.CatalogProduct, error) {
	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, c.client.Products().Doc(id))
	}

	snaps, err := c.client.Raw().GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("reading %d products: %w", len(ids), err)
	}
	return decodeProducts(snaps)
}

func decodeProducts(snaps []*firestore.DocumentSnapshot) ([]aggregation.CatalogProduct, error) {
	products := make([]aggregation.CatalogProduct, 0, len(snaps))
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		var product aggregation.CatalogProduct
		if err := snap.DataTo(&product); err != nil {
			return nil, fmt.Errorf("decoding product %s: %w", snap.Ref.ID, err)
		}
		product.ID = snap.Ref.ID
		products = append(products, product)
	}
	return products, nil
}

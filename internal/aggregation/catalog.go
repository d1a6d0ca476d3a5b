package aggregation

import (
	"context"
	"strings"
	"unicode"
)

// CatalogStore provides read-only access to the product catalog.
type CatalogStore interface {
	ProductsByMerchant(ctx context.Context, merchantID string) ([]CatalogProduct, error)
	ProductsByIDs(ctx context.Context, ids []string) ([]CatalogProduct, error)
}

// Catalog is a per-run lookup structure over a merchant's products. Product
// data is not mutated by the pipeline, so no synchronization is needed.
type Catalog struct {
	byID   map[string]CatalogProduct
	byName map[string]CatalogProduct
}

// BuildCatalog fetches the products needed to resolve the given items. When
// any item must be matched by name the whole merchant list is loaded once;
// otherwise only the distinct ids are point-read.
func BuildCatalog(ctx context.Context, store CatalogStore, merchantID string, items []NormalizedItem) (*Catalog, error) {
	catalog := &Catalog{
		byID:   make(map[string]CatalogProduct),
		byName: make(map[string]CatalogProduct),
	}
	if len(items) == 0 {
		return catalog, nil
	}

	needsNameLookup := false
	for _, item := range items {
		if item.ProductID == "" && item.ProductName != "" {
			needsNameLookup = true
			break
		}
	}

	if needsNameLookup {
		products, err := store.ProductsByMerchant(ctx, merchantID)
		if err != nil {
			return nil, err
		}
		for _, product := range products {
			catalog.add(product)
		}
		return catalog, nil
	}

	seen := make(map[string]struct{})
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		if _, dup := seen[item.ProductID]; dup {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	if len(ids) == 0 {
		return catalog, nil
	}

	products, err := store.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, product := range products {
		catalog.add(product)
	}
	return catalog, nil
}

func (c *Catalog) add(product CatalogProduct) {
	if product.ID != "" {
		c.byID[product.ID] = product
	}
	if name := NormalizeName(product.DisplayName()); name != "" {
		c.byName[name] = product
	}
}

// Resolve looks an item up by id first, then by normalized name.
func (c *Catalog) Resolve(item NormalizedItem) (CatalogProduct, bool) {
	if c == nil {
		return CatalogProduct{}, false
	}
	if item.ProductID != "" {
		if product, ok := c.byID[item.ProductID]; ok {
			return product, true
		}
	}
	if name := NormalizeName(item.ProductName); name != "" {
		if product, ok := c.byName[name]; ok {
			return product, true
		}
	}
	return CatalogProduct{}, false
}

// NormalizeName lowercases, keeps Unicode letters/digits/spaces only and
// collapses runs of whitespace, so catalog names match loosely-typed invoice
// names.
func NormalizeName(value string) string {
	if value == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

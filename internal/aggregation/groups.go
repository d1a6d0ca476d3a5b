package aggregation

import "math"

// BuildBrandGroups aggregates normalized items by the brand owning their
// catalog product. Items whose product has no brand are skipped. An empty
// result map means the invoice has nothing to aggregate.
func BuildBrandGroups(items []NormalizedItem, catalog *Catalog) map[string]*BrandGroup {
	groups := make(map[string]*BrandGroup)
	for _, item := range items {
		product, ok := catalog.Resolve(item)
		if !ok || product.BrandID == "" {
			continue
		}

		// Zero or negative quantity marks a flat-amount line.
		revenue := item.Price
		if item.Quantity > 0 {
			revenue = item.Quantity * item.Price
		}
		if math.IsNaN(revenue) || math.IsInf(revenue, 0) {
			revenue = 0
		}
		quantity := item.Quantity
		if math.IsNaN(quantity) || math.IsInf(quantity, 0) {
			quantity = 0
		}

		group, ok := groups[product.BrandID]
		if !ok {
			group = &BrandGroup{Products: make(map[string]*ProductDelta)}
			groups[product.BrandID] = group
		}
		group.Revenue += revenue
		group.Units += quantity

		key := productKey(product, item)
		delta, ok := group.Products[key]
		if !ok {
			delta = &ProductDelta{
				Key:         key,
				Name:        productName(product, item),
				Seasonality: seasonalityOrDefault(product.Seasonality),
			}
			group.Products[key] = delta
		}
		delta.Units += quantity
		delta.Revenue += revenue
	}
	return groups
}

// productKey guarantees every delta has some key, falling back to the brand id
// itself when the item carries no usable identity.
func productKey(product CatalogProduct, item NormalizedItem) string {
	if product.ID != "" {
		return product.ID
	}
	if item.ProductID != "" {
		return item.ProductID
	}
	if name := NormalizeName(item.ProductName); name != "" {
		return name
	}
	return product.BrandID
}

func productName(product CatalogProduct, item NormalizedItem) string {
	if name := product.DisplayName(); name != "" {
		return name
	}
	if item.ProductName != "" {
		return item.ProductName
	}
	return defaultProductName
}

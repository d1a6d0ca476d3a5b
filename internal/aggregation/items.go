package aggregation

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

var itemIDKeys = []string{"productId", "product_id", "productID", "id", "productCode", "code", "sku", "barcode"}
var itemNameKeys = []string{"productName", "product_name", "name", "title", "description"}
var itemQuantityKeys = []string{"quantity", "qty", "count", "units", "amount", "qty_sold"}
var itemPriceKeys = []string{"price", "unitPrice", "unit_price", "unitCost", "total", "lineTotal", "amount", "subtotal"}

// NormalizeItems converts raw heterogeneous line items into the canonical
// shape, discarding entries that carry neither an id nor a name.
func NormalizeItems(rawItems []any) []NormalizedItem {
	items := make([]NormalizedItem, 0, len(rawItems))
	for _, raw := range rawItems {
		if item, ok := normalizeItem(raw); ok {
			items = append(items, item)
		}
	}
	return items
}

func normalizeItem(raw any) (NormalizedItem, bool) {
	record, ok := raw.(map[string]any)
	if !ok {
		return NormalizedItem{}, false
	}

	productID := pickFirstString(record, itemIDKeys)
	productName := pickFirstString(record, itemNameKeys)
	if productID == "" && productName == "" {
		return NormalizedItem{}, false
	}

	quantity, hasQuantity := pickFirstNumber(record, itemQuantityKeys)
	if !hasQuantity || quantity <= 0 {
		quantity = 1
	}
	price, hasPrice := pickFirstNumber(record, itemPriceKeys)
	if !hasPrice {
		price = 0
	}

	return NormalizedItem{
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		Price:       price,
	}, true
}

func pickFirstString(record map[string]any, keys []string) string {
	for _, key := range keys {
		value, ok := record[key]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func pickFirstNumber(record map[string]any, keys []string) (float64, bool) {
	for _, key := range keys {
		value, ok := record[key]
		if !ok || value == nil {
			continue
		}
		if n, ok := coerceNumber(value); ok {
			return n, true
		}
	}
	return 0, false
}

func coerceNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
		return 0, false
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
		return 0, false
	default:
		return 0, false
	}
}

package aggregation

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// fieldPath is one candidate location of a value inside a loosely-structured
// invoice record. Paths are evaluated in order; the first present, non-empty
// value wins.
type fieldPath []string

var merchantIDPaths = []fieldPath{
	{"merchantId"},
	{"merchant_id"},
	{"merchantID"},
	{"storeId"},
	{"store_id"},
	{"merchantUuid"},
	{"merchant_uuid"},
	{"merchant", "id"},
	{"invoice_payload", "merchantId"},
	{"invoice_payload", "merchant_id"},
	{"invoice_payload", "merchant_uuid"},
	{"invoicePayload", "merchantId"},
	{"invoicePayload", "merchant_id"},
}

var customerIDPaths = []fieldPath{
	{"customerId"},
	{"customer_id"},
	{"customerID"},
	{"userId"},
	{"user_id"},
	{"customerUid"},
	{"customer_uid"},
	{"user", "id"},
	{"customer", "id"},
	{"invoice_payload", "customerId"},
	{"invoice_payload", "customer_id"},
	{"invoice_payload", "user_id"},
	{"invoicePayload", "customerId"},
	{"invoicePayload", "userId"},
}

var timestampPaths = []fieldPath{
	{"createdAt"},
	{"created_at"},
	{"timestamp"},
	{"date"},
	{"invoiceDate"},
	{"invoice_payload", "createdAt"},
	{"invoice_payload", "date"},
	{"invoicePayload", "createdAt"},
}

var lineItemPaths = []fieldPath{
	{"items"},
	{"lineItems"},
	{"products"},
	{"invoice_payload", "items"},
	{"invoice_payload", "products"},
	{"invoicePayload", "items"},
	{"invoicePayload", "products"},
	{"payload", "items"},
	{"payload", "products"},
	{"invoice_details", "items"},
	{"invoice_details", "products"},
}

// ResolveMerchantID returns the invoice's merchant id, or "" when none of the
// candidate fields is set. Callers treat "" as "skip this invoice".
func ResolveMerchantID(record map[string]any) string {
	return resolveString(record, merchantIDPaths)
}

// ResolveCustomerID returns the invoice's customer id, or "".
func ResolveCustomerID(record map[string]any) string {
	return resolveString(record, customerIDPaths)
}

// ResolveTimestamp returns the invoice timestamp. Native times, epoch
// milliseconds and ISO-parseable strings are accepted; anything else yields
// the supplied fallback.
func ResolveTimestamp(record map[string]any, fallback time.Time) time.Time {
	for _, path := range timestampPaths {
		value, ok := lookup(record, path)
		if !ok {
			continue
		}
		if ts, ok := coerceTime(value); ok {
			return ts
		}
	}
	return fallback
}

// ResolveLineItems returns the first non-empty candidate item array.
func ResolveLineItems(record map[string]any) []any {
	for _, path := range lineItemPaths {
		value, ok := lookup(record, path)
		if !ok {
			continue
		}
		if items, ok := value.([]any); ok && len(items) > 0 {
			return items
		}
	}
	return nil
}

func resolveString(record map[string]any, paths []fieldPath) string {
	for _, path := range paths {
		value, ok := lookup(record, path)
		if !ok {
			continue
		}
		if s := stringify(value); s != "" {
			return s
		}
	}
	return ""
}

func lookup(record map[string]any, path fieldPath) (any, bool) {
	var current any = record
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok || current == nil {
			return nil, false
		}
	}
	return current, true
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func coerceTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case float64:
		return time.UnixMilli(int64(v)), true
	case int64:
		return time.UnixMilli(v), true
	case json.Number:
		if ms, err := v.Int64(); err == nil {
			return time.UnixMilli(ms), true
		}
		return time.Time{}, false
	case string:
		return parseTimeString(v)
	default:
		return time.Time{}, false
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimeString(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

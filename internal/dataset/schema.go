package dataset

import "strings"

// Logical table names. Each maps to <name>.csv under the data path.
const (
	TableOrders     = "orders"
	TableOrderItems = "order_items"
	TableProducts   = "products"
	TableCustomers  = "customers"
	TableReviews    = "order_reviews"
	TablePayments   = "order_payments"
)

// requiredColumns lists the columns each table must carry before any join
// runs. Missing columns fail fast with a SchemaError instead of surfacing as
// cryptic key errors downstream.
var requiredColumns = map[string][]string{
	TableOrders: {
		"order_id",
		"customer_id",
		"order_status",
		"order_purchase_timestamp",
		"order_delivered_customer_date",
		"order_estimated_delivery_date",
	},
	TableOrderItems: {
		"order_id",
		"order_item_id",
		"product_id",
		"price",
		"freight_value",
	},
	TableProducts: {
		"product_id",
		"product_category_name",
	},
	TableCustomers: {
		"customer_id",
		"customer_city",
		"customer_state",
	},
	TableReviews: {
		"order_id",
		"review_score",
	},
	TablePayments: {
		"order_id",
		"payment_type",
		"payment_installments",
		"payment_value",
	},
}

// RequiredColumns returns the required column set for a logical table.
func RequiredColumns(table string) []string {
	return requiredColumns[table]
}

// KeyColumn returns the primary identifier column for a logical table. A data
// row with an empty key can never join and is treated as malformed.
func KeyColumn(table string) string {
	cols := requiredColumns[table]
	if len(cols) == 0 {
		return ""
	}
	return cols[0]
}

// ValidateSchema checks that a header row carries every required column for
// the named table. Returns a *SchemaError naming all missing columns, or nil.
func ValidateSchema(table string, header []string) error {
	required := requiredColumns[table]
	if len(required) == 0 {
		return nil
	}

	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[normalizeHeader(h)] = true
	}

	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return &SchemaError{Table: table, Missing: missing}
	}
	return nil
}

// normalizeHeader lowercases and trims a raw header cell, stripping any
// surrounding quotes and a UTF-8 BOM if present.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Trim(h, "\"'")
}

// headerIndex resolves a header row into a column-name -> index map.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := normalizeHeader(h)
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	return idx
}

package dataset

import (
	"errors"
	"testing"
)

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name        string
		table       string
		header      []string
		wantMissing []string
	}{
		{
			name:  "orders complete",
			table: TableOrders,
			header: []string{
				"order_id", "customer_id", "order_status", "order_purchase_timestamp",
				"order_approved_at", "order_delivered_customer_date", "order_estimated_delivery_date",
			},
		},
		{
			name:        "orders missing status and delivery date",
			table:       TableOrders,
			header:      []string{"order_id", "customer_id", "order_purchase_timestamp", "order_estimated_delivery_date"},
			wantMissing: []string{"order_status", "order_delivered_customer_date"},
		},
		{
			name:   "header matching is case and whitespace insensitive",
			table:  TableProducts,
			header: []string{" Product_ID ", "PRODUCT_CATEGORY_NAME"},
		},
		{
			name:        "items missing price",
			table:       TableOrderItems,
			header:      []string{"order_id", "order_item_id", "product_id", "freight_value"},
			wantMissing: []string{"price"},
		},
		{
			name:   "unknown table passes",
			table:  "sellers",
			header: []string{"anything"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchema(tt.table, tt.header)
			if len(tt.wantMissing) == 0 {
				if err != nil {
					t.Fatalf("ValidateSchema() = %v, want nil", err)
				}
				return
			}

			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("ValidateSchema() = %v, want *SchemaError", err)
			}
			if schemaErr.Table != tt.table {
				t.Errorf("SchemaError.Table = %q, want %q", schemaErr.Table, tt.table)
			}
			if len(schemaErr.Missing) != len(tt.wantMissing) {
				t.Fatalf("SchemaError.Missing = %v, want %v", schemaErr.Missing, tt.wantMissing)
			}
			for i, col := range tt.wantMissing {
				if schemaErr.Missing[i] != col {
					t.Errorf("SchemaError.Missing[%d] = %q, want %q", i, schemaErr.Missing[i], col)
				}
			}
		})
	}
}

func TestSchemaErrorMessage(t *testing.T) {
	err := &SchemaError{Table: "orders", Missing: []string{"order_id", "order_status"}}
	want := `table "orders" is missing required columns: order_id, order_status`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

package sales

import (
	"time"

	"github.com/meridian/commerce-insights/internal/dataset"
)

// DeliverySpeed categorizes delivered-vs-estimated performance.
type DeliverySpeed string

const (
	DeliveryEarly   DeliverySpeed = "early"
	DeliveryOnTime  DeliverySpeed = "on_time"
	DeliveryLate    DeliverySpeed = "late"
	DeliveryUnknown DeliverySpeed = "unknown"
)

// UnknownCategory is the sentinel used when a left-join finds no match.
const UnknownCategory = "unknown"

// Record is one row of the denormalized sales dataset: one record per
// order item, carrying joined and derived attributes. Records are immutable
// after BuildDataset returns; filtering always produces a new slice.
type Record struct {
	OrderID      string `json:"order_id"`
	ItemSequence int    `json:"item_sequence"`
	ProductID    string `json:"product_id"`
	CustomerID   string `json:"customer_id"`
	OrderStatus  string `json:"order_status"`

	PurchaseTimestamp time.Time `json:"purchase_timestamp"`
	PurchaseYear      int       `json:"purchase_year"`
	PurchaseMonth     int       `json:"purchase_month"`

	Price          float64 `json:"price"`
	FreightValue   float64 `json:"freight_value"`
	TotalItemValue float64 `json:"total_item_value"`

	ProductCategory string `json:"product_category"`
	CustomerCity    string `json:"customer_city"`
	CustomerState   string `json:"customer_state"`

	// Per-order aggregates. ReviewScore is the average review score for the
	// order (nil when unreviewed); PaymentValue is the summed payment total
	// for the order (nil when no payment rows exist).
	ReviewScore  *float64 `json:"review_score"`
	PaymentValue *float64 `json:"payment_value"`
	PaymentTypes string   `json:"payment_types"`

	DeliverySpeed DeliverySpeed `json:"delivery_speed_category"`
}

// Filters selects which order items survive into the sales dataset.
type Filters struct {
	// Year matches purchase_year exactly. Required.
	Year int
	// Month optionally matches purchase_month (1-12).
	Month *int
	// Statuses is the order-status allow-list. Empty means
	// DefaultStatusAllowList.
	Statuses []string
}

// DefaultStatusAllowList returns the statuses counted as a completed
// commercial transaction: the order was at least approved and money moved.
// "created" orders never reached approval; "canceled" and "unavailable"
// represent transactions that did not complete.
func DefaultStatusAllowList() []string {
	return []string{
		dataset.StatusApproved,
		dataset.StatusInvoiced,
		dataset.StatusProcessing,
		dataset.StatusShipped,
		dataset.StatusDelivered,
	}
}

// Stats counts the soft issues and filter outcomes of one BuildDataset run.
type Stats struct {
	ItemsSeen         int `json:"items_seen"`
	RecordsProduced   int `json:"records_produced"`
	FilteredOut       int `json:"filtered_out"`
	UnknownProducts   int `json:"unknown_products"`
	UnknownCustomers  int `json:"unknown_customers"`
	MissingTimestamps int `json:"missing_timestamps"`
}

package dataset

import "time"

// Order statuses as they appear in the orders extract.
const (
	StatusCreated     = "created"
	StatusApproved    = "approved"
	StatusInvoiced    = "invoiced"
	StatusProcessing  = "processing"
	StatusShipped     = "shipped"
	StatusDelivered   = "delivered"
	StatusCanceled    = "canceled"
	StatusUnavailable = "unavailable"
)

// Order is one row of the orders extract. Timestamp fields are nil when the
// source value was empty or unparsable.
type Order struct {
	OrderID                    string
	CustomerID                 string
	Status                     string
	PurchaseTimestamp          *time.Time
	ApprovedTimestamp          *time.Time
	DeliveredTimestamp         *time.Time
	EstimatedDeliveryTimestamp *time.Time
}

// OrderItem is one row of the order_items extract. OrderID plus ItemSequence
// form the composite key; an order may have many items.
type OrderItem struct {
	OrderID      string
	ItemSequence int
	ProductID    string
	Price        *float64
	FreightValue *float64
}

// Product is one row of the products extract. Weight and dimensions are
// optional columns and nil when absent.
type Product struct {
	ProductID string
	Category  string
	WeightG   *float64
	LengthCM  *float64
	HeightCM  *float64
	WidthCM   *float64
}

// Customer is one row of the customers extract.
type Customer struct {
	CustomerID string
	City       string
	State      string
	ZipPrefix  string
}

// Review is one row of the order_reviews extract. Zero or more reviews may
// exist per order.
type Review struct {
	OrderID string
	Score   *float64
	Comment string
}

// Payment is one row of the order_payments extract. One or more payments may
// exist per order.
type Payment struct {
	OrderID      string
	Type         string
	Installments *float64
	Value        *float64
}

// Tables holds the six loaded logical tables. Immutable after LoadAll; safe
// to share read-only across callers.
type Tables struct {
	Orders     []Order
	OrderItems []OrderItem
	Products   []Product
	Customers  []Customer
	Reviews    []Review
	Payments   []Payment
}

// QualityStats counts soft data-quality issues absorbed during loading.
// These are diagnostics, never errors.
type QualityStats struct {
	UnparsableTimestamps int `json:"unparsable_timestamps"`
	UnparsableNumbers    int `json:"unparsable_numbers"`
	MalformedRows        int `json:"malformed_rows"`
	RowsRead             int `json:"rows_read"`
}

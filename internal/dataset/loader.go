package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/meridian/commerce-insights/internal/pkg/logger"
)

// Loader reads the six logical tables from a TableSource into typed in-memory
// slices. Unparsable timestamps and numbers become nil and are counted in
// QualityStats; missing files and missing columns are fatal.
type Loader struct {
	source TableSource
	stats  QualityStats
}

// NewLoader creates a loader over the given source.
func NewLoader(source TableSource) *Loader {
	return &Loader{source: source}
}

// Stats returns the soft-issue counters accumulated by Load* calls.
func (l *Loader) Stats() QualityStats { return l.stats }

// Source returns the underlying table source.
func (l *Loader) Source() TableSource { return l.source }

// LoadAll loads all six tables, validating each schema before parsing.
func (l *Loader) LoadAll(ctx context.Context) (*Tables, error) {
	orders, err := l.LoadOrders(ctx)
	if err != nil {
		return nil, err
	}
	items, err := l.LoadOrderItems(ctx)
	if err != nil {
		return nil, err
	}
	products, err := l.LoadProducts(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := l.LoadCustomers(ctx)
	if err != nil {
		return nil, err
	}
	reviews, err := l.LoadReviews(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := l.LoadPayments(ctx)
	if err != nil {
		return nil, err
	}

	if l.stats.UnparsableTimestamps > 0 || l.stats.UnparsableNumbers > 0 || l.stats.MalformedRows > 0 {
		logger.Warn("absorbed soft data-quality issues during load",
			"unparsable_timestamps", l.stats.UnparsableTimestamps,
			"unparsable_numbers", l.stats.UnparsableNumbers,
			"malformed_rows", l.stats.MalformedRows,
			"rows_read", l.stats.RowsRead,
		)
	}

	return &Tables{
		Orders:     orders,
		OrderItems: items,
		Products:   products,
		Customers:  customers,
		Reviews:    reviews,
		Payments:   payments,
	}, nil
}

// readTable opens a table file, validates its schema, and returns the header
// index plus all data rows.
func (l *Loader) readTable(ctx context.Context, table string) (map[string]int, [][]string, error) {
	filename := table + ".csv"

	rc, err := l.source.Open(ctx, filename)
	if err != nil {
		return nil, nil, &LoadError{Table: table, Path: l.source.Location() + "/" + filename, Err: err}
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1 // Allow variable fields
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil, &SchemaError{Table: table, Missing: RequiredColumns(table)}
		}
		return nil, nil, &LoadError{Table: table, Path: l.source.Location() + "/" + filename, Err: err}
	}

	if err := ValidateSchema(table, header); err != nil {
		return nil, nil, err
	}

	idx := headerIndex(header)
	key := KeyColumn(table)

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				// Reader failure, not a row problem: no further progress
				// is possible.
				return nil, nil, &LoadError{Table: table, Path: l.source.Location() + "/" + filename, Err: err}
			}
			l.stats.MalformedRows++
			continue
		}
		// A row without its key can never join; skip it and count it.
		if cell(row, idx, key) == "" {
			l.stats.MalformedRows++
			continue
		}
		rows = append(rows, row)
	}

	l.stats.RowsRead += len(rows)
	return idx, rows, nil
}

// cell returns the trimmed value of a named column in a row, or "" when the
// column is absent or the row is short.
func cell(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// LoadOrders reads the orders table.
func (l *Loader) LoadOrders(ctx context.Context) ([]Order, error) {
	idx, rows, err := l.readTable(ctx, TableOrders)
	if err != nil {
		return nil, err
	}

	orders := make([]Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, Order{
			OrderID:                    cell(row, idx, "order_id"),
			CustomerID:                 cell(row, idx, "customer_id"),
			Status:                     strings.ToLower(cell(row, idx, "order_status")),
			PurchaseTimestamp:          l.parseTimestamp(cell(row, idx, "order_purchase_timestamp")),
			ApprovedTimestamp:          l.parseTimestamp(cell(row, idx, "order_approved_at")),
			DeliveredTimestamp:         l.parseTimestamp(cell(row, idx, "order_delivered_customer_date")),
			EstimatedDeliveryTimestamp: l.parseTimestamp(cell(row, idx, "order_estimated_delivery_date")),
		})
	}
	logger.Debug("loaded table", "table", TableOrders, "rows", len(orders))
	return orders, nil
}

// LoadOrderItems reads the order_items table.
func (l *Loader) LoadOrderItems(ctx context.Context) ([]OrderItem, error) {
	idx, rows, err := l.readTable(ctx, TableOrderItems)
	if err != nil {
		return nil, err
	}

	items := make([]OrderItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, OrderItem{
			OrderID:      cell(row, idx, "order_id"),
			ItemSequence: l.parseSequence(cell(row, idx, "order_item_id")),
			ProductID:    cell(row, idx, "product_id"),
			Price:        l.parseNumber(cell(row, idx, "price")),
			FreightValue: l.parseNumber(cell(row, idx, "freight_value")),
		})
	}
	logger.Debug("loaded table", "table", TableOrderItems, "rows", len(items))
	return items, nil
}

// LoadProducts reads the products table.
func (l *Loader) LoadProducts(ctx context.Context) ([]Product, error) {
	idx, rows, err := l.readTable(ctx, TableProducts)
	if err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, Product{
			ProductID: cell(row, idx, "product_id"),
			Category:  strings.ToLower(cell(row, idx, "product_category_name")),
			WeightG:   l.parseNumber(cell(row, idx, "product_weight_g")),
			LengthCM:  l.parseNumber(cell(row, idx, "product_length_cm")),
			HeightCM:  l.parseNumber(cell(row, idx, "product_height_cm")),
			WidthCM:   l.parseNumber(cell(row, idx, "product_width_cm")),
		})
	}
	logger.Debug("loaded table", "table", TableProducts, "rows", len(products))
	return products, nil
}

// LoadCustomers reads the customers table.
func (l *Loader) LoadCustomers(ctx context.Context) ([]Customer, error) {
	idx, rows, err := l.readTable(ctx, TableCustomers)
	if err != nil {
		return nil, err
	}

	customers := make([]Customer, 0, len(rows))
	for _, row := range rows {
		customers = append(customers, Customer{
			CustomerID: cell(row, idx, "customer_id"),
			City:       strings.ToLower(cell(row, idx, "customer_city")),
			State:      strings.ToUpper(cell(row, idx, "customer_state")),
			ZipPrefix:  cell(row, idx, "customer_zip_code_prefix"),
		})
	}
	logger.Debug("loaded table", "table", TableCustomers, "rows", len(customers))
	return customers, nil
}

// LoadReviews reads the order_reviews table.
func (l *Loader) LoadReviews(ctx context.Context) ([]Review, error) {
	idx, rows, err := l.readTable(ctx, TableReviews)
	if err != nil {
		return nil, err
	}

	reviews := make([]Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, Review{
			OrderID: cell(row, idx, "order_id"),
			Score:   l.parseNumber(cell(row, idx, "review_score")),
			Comment: cell(row, idx, "review_comment_message"),
		})
	}
	logger.Debug("loaded table", "table", TableReviews, "rows", len(reviews))
	return reviews, nil
}

// LoadPayments reads the order_payments table.
func (l *Loader) LoadPayments(ctx context.Context) ([]Payment, error) {
	idx, rows, err := l.readTable(ctx, TablePayments)
	if err != nil {
		return nil, err
	}

	payments := make([]Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, Payment{
			OrderID:      cell(row, idx, "order_id"),
			Type:         strings.ToLower(cell(row, idx, "payment_type")),
			Installments: l.parseNumber(cell(row, idx, "payment_installments")),
			Value:        l.parseNumber(cell(row, idx, "payment_value")),
		})
	}
	logger.Debug("loaded table", "table", TablePayments, "rows", len(payments))
	return payments, nil
}

// timestampLayouts are tried in order when parsing timestamp columns.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTimestamp parses a timestamp cell. Empty or unparsable values become
// nil, never an error.
func (l *Loader) parseTimestamp(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	l.stats.UnparsableTimestamps++
	return nil
}

// parseNumber parses a numeric cell. Empty or unparsable values become nil.
func (l *Loader) parseNumber(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		l.stats.UnparsableNumbers++
		return nil
	}
	return &v
}

// parseSequence parses the order_item_id composite-key component. A bad value
// falls back to 0 and is counted; the row is kept because the (order, product)
// linkage is still usable.
func (l *Loader) parseSequence(raw string) int {
	if raw == "" {
		return 0
	}
	// Some extracts emit float-formatted sequences ("1.0")
	if i := strings.Index(raw, "."); i > 0 {
		raw = raw[:i]
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		l.stats.UnparsableNumbers++
		return 0
	}
	return n
}

// String implements fmt.Stringer for diagnostics.
func (q QualityStats) String() string {
	return fmt.Sprintf("rows=%d bad_timestamps=%d bad_numbers=%d malformed=%d",
		q.RowsRead, q.UnparsableTimestamps, q.UnparsableNumbers, q.MalformedRows)
}

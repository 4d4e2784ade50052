package sales

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/meridian/commerce-insights/internal/dataset"
	"github.com/meridian/commerce-insights/internal/pkg/logger"
)

// JoinIntegrityError indicates order items referencing orders that do not
// exist. This is referential corruption in the extracts, not a soft issue.
type JoinIntegrityError struct {
	OrderIDs []string
}

func (e *JoinIntegrityError) Error() string {
	shown := e.OrderIDs
	suffix := ""
	if len(shown) > 10 {
		suffix = fmt.Sprintf(" (and %d more)", len(shown)-10)
		shown = shown[:10]
	}
	return fmt.Sprintf("order items reference %d unknown orders: %s%s",
		len(e.OrderIDs), strings.Join(shown, ", "), suffix)
}

// BuildDataset merges the six tables into one row-per-order-item sales
// dataset, applies the year/month/status filters, and computes the derived
// columns. Output ordering is not guaranteed; callers needing a stable order
// must sort explicitly.
func BuildDataset(tables *dataset.Tables, f Filters) ([]Record, error) {
	records, _, err := BuildDatasetWithStats(tables, f)
	return records, err
}

// BuildDatasetWithStats is BuildDataset plus the soft-issue counters of the
// run, for diagnostic surfaces.
func BuildDatasetWithStats(tables *dataset.Tables, f Filters) ([]Record, Stats, error) {
	var stats Stats

	// Step 1: inner join order_items -> orders. An item without its order is
	// referential corruption and fails the whole build.
	ordersByID := make(map[string]*dataset.Order, len(tables.Orders))
	for i := range tables.Orders {
		ordersByID[tables.Orders[i].OrderID] = &tables.Orders[i]
	}

	orphanSet := make(map[string]bool)
	for _, item := range tables.OrderItems {
		if _, ok := ordersByID[item.OrderID]; !ok {
			orphanSet[item.OrderID] = true
		}
	}
	if len(orphanSet) > 0 {
		orphans := make([]string, 0, len(orphanSet))
		for id := range orphanSet {
			orphans = append(orphans, id)
		}
		sort.Strings(orphans)
		return nil, stats, &JoinIntegrityError{OrderIDs: orphans}
	}

	// Steps 2-3: left-join lookup maps for products and customers.
	productsByID := make(map[string]*dataset.Product, len(tables.Products))
	for i := range tables.Products {
		productsByID[tables.Products[i].ProductID] = &tables.Products[i]
	}
	customersByID := make(map[string]*dataset.Customer, len(tables.Customers))
	for i := range tables.Customers {
		customersByID[tables.Customers[i].CustomerID] = &tables.Customers[i]
	}

	// Step 4: aggregate reviews (average score) and payments (summed value,
	// de-duplicated type set) per order.
	reviewAgg := aggregateReviews(tables.Reviews)
	paymentAgg := aggregatePayments(tables.Payments)

	statuses := f.Statuses
	if len(statuses) == 0 {
		statuses = DefaultStatusAllowList()
	}
	allowed := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		allowed[strings.ToLower(s)] = true
	}

	records := make([]Record, 0, len(tables.OrderItems))
	for _, item := range tables.OrderItems {
		stats.ItemsSeen++
		order := ordersByID[item.OrderID]

		// An order without a purchase timestamp cannot be placed in any
		// year/month bucket; it can never match a filter.
		if order.PurchaseTimestamp == nil {
			stats.MissingTimestamps++
			stats.FilteredOut++
			continue
		}

		// Step 5: year/month/status filters.
		if !allowed[order.Status] {
			stats.FilteredOut++
			continue
		}
		year := order.PurchaseTimestamp.Year()
		month := int(order.PurchaseTimestamp.Month())
		if year != f.Year {
			stats.FilteredOut++
			continue
		}
		if f.Month != nil && month != *f.Month {
			stats.FilteredOut++
			continue
		}

		// Step 6: derived columns.
		rec := Record{
			OrderID:           item.OrderID,
			ItemSequence:      item.ItemSequence,
			ProductID:         item.ProductID,
			CustomerID:        order.CustomerID,
			OrderStatus:       order.Status,
			PurchaseTimestamp: *order.PurchaseTimestamp,
			PurchaseYear:      year,
			PurchaseMonth:     month,
			Price:             floatOrZero(item.Price),
			FreightValue:      floatOrZero(item.FreightValue),
			ProductCategory:   UnknownCategory,
			CustomerCity:      UnknownCategory,
			CustomerState:     UnknownCategory,
			PaymentTypes:      UnknownCategory,
			DeliverySpeed:     deliverySpeed(order),
		}
		rec.TotalItemValue = rec.Price + rec.FreightValue

		if p, ok := productsByID[item.ProductID]; ok {
			if p.Category != "" {
				rec.ProductCategory = p.Category
			}
		} else {
			stats.UnknownProducts++
		}

		if c, ok := customersByID[order.CustomerID]; ok {
			rec.CustomerCity = c.City
			rec.CustomerState = c.State
		} else {
			stats.UnknownCustomers++
		}

		if agg, ok := reviewAgg[item.OrderID]; ok && agg.count > 0 {
			avg := agg.sum / float64(agg.count)
			rec.ReviewScore = &avg
		}
		if agg, ok := paymentAgg[item.OrderID]; ok {
			total := agg.total
			rec.PaymentValue = &total
			if len(agg.types) > 0 {
				rec.PaymentTypes = joinTypeSet(agg.types)
			}
		}

		records = append(records, rec)
	}
	stats.RecordsProduced = len(records)

	if stats.UnknownProducts > 0 || stats.UnknownCustomers > 0 || stats.MissingTimestamps > 0 {
		logger.Warn("sales dataset built with soft join issues",
			"unknown_products", stats.UnknownProducts,
			"unknown_customers", stats.UnknownCustomers,
			"missing_purchase_timestamps", stats.MissingTimestamps,
		)
	}

	return records, stats, nil
}

type reviewAggregate struct {
	sum   float64
	count int
}

func aggregateReviews(reviews []dataset.Review) map[string]reviewAggregate {
	agg := make(map[string]reviewAggregate)
	for _, r := range reviews {
		if r.Score == nil {
			continue
		}
		a := agg[r.OrderID]
		a.sum += *r.Score
		a.count++
		agg[r.OrderID] = a
	}
	return agg
}

type paymentAggregate struct {
	total float64
	types map[string]bool
}

func aggregatePayments(payments []dataset.Payment) map[string]paymentAggregate {
	agg := make(map[string]paymentAggregate)
	for _, p := range payments {
		a, ok := agg[p.OrderID]
		if !ok {
			a = paymentAggregate{types: make(map[string]bool)}
		}
		if p.Value != nil {
			a.total += *p.Value
		}
		if p.Type != "" {
			a.types[p.Type] = true
		}
		agg[p.OrderID] = a
	}
	return agg
}

func joinTypeSet(types map[string]bool) string {
	names := make([]string, 0, len(types))
	for t := range types {
		names = append(names, t)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// deliverySpeed compares delivered vs. estimated delivery by calendar day.
// Either timestamp missing means unknown, never a default of on_time.
func deliverySpeed(order *dataset.Order) DeliverySpeed {
	if order.DeliveredTimestamp == nil || order.EstimatedDeliveryTimestamp == nil {
		return DeliveryUnknown
	}
	delivered := truncateToDay(*order.DeliveredTimestamp)
	estimated := truncateToDay(*order.EstimatedDeliveryTimestamp)
	switch {
	case delivered.Before(estimated):
		return DeliveryEarly
	case delivered.After(estimated):
		return DeliveryLate
	default:
		return DeliveryOnTime
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

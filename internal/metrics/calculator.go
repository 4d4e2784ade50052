package metrics

import (
	"github.com/meridian/commerce-insights/internal/sales"
)

// Calculator computes business KPIs over one sales dataset. It is constructed
// once per dataset and is pure with respect to its input: the records slice
// is never mutated and no state accumulates between calls.
type Calculator struct {
	records []sales.Record
}

// NewCalculator creates a calculator over the given sales records.
func NewCalculator(records []sales.Record) *Calculator {
	return &Calculator{records: records}
}

// filtered returns the records matching the optional year filter. A nil year
// means the whole dataset.
func (c *Calculator) filtered(year *int) []sales.Record {
	if year == nil {
		return c.records
	}
	out := make([]sales.Record, 0, len(c.records))
	for _, r := range c.records {
		if r.PurchaseYear == *year {
			out = append(out, r)
		}
	}
	return out
}

// ========== Revenue ==========

// RevenueMetrics holds the revenue KPI family.
type RevenueMetrics struct {
	TotalRevenue  float64  `json:"total_revenue"`
	OrderCount    int      `json:"order_count"`
	AvgOrderValue *float64 `json:"avg_order_value"` // nil when no orders
}

// Revenue computes total revenue, distinct order count, and average order
// value. AOV is nil (not infinity or NaN) when the filtered set has no orders.
func (c *Calculator) Revenue(year *int) RevenueMetrics {
	records := c.filtered(year)

	var m RevenueMetrics
	orders := make(map[string]bool)
	for _, r := range records {
		m.TotalRevenue += r.TotalItemValue
		orders[r.OrderID] = true
	}
	m.OrderCount = len(orders)
	if m.OrderCount > 0 {
		aov := m.TotalRevenue / float64(m.OrderCount)
		m.AvgOrderValue = &aov
	}
	return m
}

// ========== Customers ==========

// CustomerMetrics holds the customer KPI family.
type CustomerMetrics struct {
	DistinctCustomers int      `json:"distinct_customers"`
	RepeatRatio       *float64 `json:"repeat_customer_ratio"` // nil when no customers
}

// Customers computes distinct customer count and the share of customers with
// two or more distinct orders.
func (c *Calculator) Customers(year *int) CustomerMetrics {
	records := c.filtered(year)

	ordersByCustomer := make(map[string]map[string]bool)
	for _, r := range records {
		if ordersByCustomer[r.CustomerID] == nil {
			ordersByCustomer[r.CustomerID] = make(map[string]bool)
		}
		ordersByCustomer[r.CustomerID][r.OrderID] = true
	}

	var m CustomerMetrics
	m.DistinctCustomers = len(ordersByCustomer)
	if m.DistinctCustomers == 0 {
		return m
	}

	repeat := 0
	for _, orders := range ordersByCustomer {
		if len(orders) >= 2 {
			repeat++
		}
	}
	ratio := float64(repeat) / float64(m.DistinctCustomers)
	m.RepeatRatio = &ratio
	return m
}

// ========== Delivery ==========

// DeliveryMetrics holds per-category record proportions.
type DeliveryMetrics struct {
	Proportions map[sales.DeliverySpeed]float64 `json:"proportions"`
	SampleSize  int                             `json:"sample_size"`
}

// Delivery computes the proportion of sales records in each delivery speed
// category, including unknown.
func (c *Calculator) Delivery(year *int) DeliveryMetrics {
	records := c.filtered(year)

	m := DeliveryMetrics{
		Proportions: map[sales.DeliverySpeed]float64{
			sales.DeliveryEarly:   0,
			sales.DeliveryOnTime:  0,
			sales.DeliveryLate:    0,
			sales.DeliveryUnknown: 0,
		},
		SampleSize: len(records),
	}
	if len(records) == 0 {
		return m
	}

	counts := make(map[sales.DeliverySpeed]int)
	for _, r := range records {
		counts[r.DeliverySpeed]++
	}
	for cat := range m.Proportions {
		m.Proportions[cat] = float64(counts[cat]) / float64(len(records))
	}
	return m
}

// ========== Reviews ==========

// ReviewMetrics holds the review KPI family. The sample size is reported
// alongside the mean so that a 5.0 average over three reviews is not mistaken
// for a trend.
type ReviewMetrics struct {
	MeanScore  *float64 `json:"mean_score"` // nil when no scored records
	SampleSize int      `json:"sample_size"`
}

// Reviews computes the mean review score among records carrying a score.
func (c *Calculator) Reviews(year *int) ReviewMetrics {
	records := c.filtered(year)

	var m ReviewMetrics
	var sum float64
	for _, r := range records {
		if r.ReviewScore == nil {
			continue
		}
		sum += *r.ReviewScore
		m.SampleSize++
	}
	if m.SampleSize > 0 {
		mean := sum / float64(m.SampleSize)
		m.MeanScore = &mean
	}
	return m
}

// ========== Payments ==========

// PaymentMetrics holds revenue share by payment type.
type PaymentMetrics struct {
	RevenueShare map[string]float64 `json:"revenue_share"`
}

// Payments computes the distribution of payment types by share of revenue.
// A record's revenue is attributed to its order's de-duplicated payment type
// set label ("credit_card", "credit_card,voucher", ...); records whose order
// has no payment rows fall under "unknown".
func (c *Calculator) Payments(year *int) PaymentMetrics {
	records := c.filtered(year)

	m := PaymentMetrics{RevenueShare: make(map[string]float64)}
	var total float64
	byType := make(map[string]float64)
	for _, r := range records {
		byType[r.PaymentTypes] += r.TotalItemValue
		total += r.TotalItemValue
	}
	if total == 0 {
		return m
	}
	for t, v := range byType {
		m.RevenueShare[t] = v / total
	}
	return m
}

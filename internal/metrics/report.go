package metrics

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/meridian/commerce-insights/internal/sales"
)

// Report is the comprehensive KPI report consumed by the presentation layer.
// It is always well-formed: an empty dataset yields nil values and the
// insufficient_data flag rather than an error.
type Report struct {
	ReportID    string    `json:"report_id"`
	GeneratedAt time.Time `json:"generated_at"`

	CurrentYear  int  `json:"current_year"`
	PreviousYear *int `json:"previous_year"`

	InsufficientData bool `json:"insufficient_data"`

	// Metrics maps metric name to its value-with-comparison entry.
	Metrics map[string]Value `json:"metrics"`

	// MissingComparison names the entries lacking a previous-period value.
	MissingComparison []string `json:"missing_comparison"`

	// ReviewSampleSize accompanies the avg_review_score entry.
	ReviewSampleSize int `json:"review_sample_size"`
}

// GenerateComprehensiveReport runs every KPI family for the current year,
// optionally computes the same figures for a previous year from the same
// dataset, and merges everything into one report. Pure function of its
// inputs; caching, if any, wraps this from outside.
func (c *Calculator) GenerateComprehensiveReport(currentYear int, previousYear *int) *Report {
	report := &Report{
		ReportID:     uuid.NewString(),
		GeneratedAt:  time.Now().UTC(),
		CurrentYear:  currentYear,
		PreviousYear: previousYear,
		Metrics:      make(map[string]Value),
	}

	cur := c.yearSnapshot(&currentYear)
	var prev *yearSnapshot
	if previousYear != nil {
		p := c.yearSnapshot(previousYear)
		prev = &p
	}

	report.InsufficientData = cur.recordCount == 0

	add := func(name string, current *float64, previous func(*yearSnapshot) *float64) {
		if prev != nil {
			report.Metrics[name] = Compare(current, previous(prev))
		} else {
			report.Metrics[name] = Single(current)
		}
	}

	add("total_revenue", Float(cur.revenue.TotalRevenue), func(s *yearSnapshot) *float64 {
		return Float(s.revenue.TotalRevenue)
	})
	add("order_count", Float(float64(cur.revenue.OrderCount)), func(s *yearSnapshot) *float64 {
		return Float(float64(s.revenue.OrderCount))
	})
	add("avg_order_value", cur.revenue.AvgOrderValue, func(s *yearSnapshot) *float64 {
		return s.revenue.AvgOrderValue
	})
	add("distinct_customers", Float(float64(cur.customers.DistinctCustomers)), func(s *yearSnapshot) *float64 {
		return Float(float64(s.customers.DistinctCustomers))
	})
	add("repeat_customer_ratio", cur.customers.RepeatRatio, func(s *yearSnapshot) *float64 {
		return s.customers.RepeatRatio
	})
	add("avg_review_score", cur.reviews.MeanScore, func(s *yearSnapshot) *float64 {
		return s.reviews.MeanScore
	})
	report.ReviewSampleSize = cur.reviews.SampleSize

	for _, cat := range []sales.DeliverySpeed{
		sales.DeliveryEarly, sales.DeliveryOnTime, sales.DeliveryLate, sales.DeliveryUnknown,
	} {
		cat := cat
		name := fmt.Sprintf("delivery_%s_rate", cat)
		add(name, deliveryRate(cur, cat), func(s *yearSnapshot) *float64 {
			return deliveryRate(*s, cat)
		})
	}

	// Payment shares use the union of types seen in either year so that a
	// type present only previously still shows its decline.
	typeSet := make(map[string]bool)
	for t := range cur.payments.RevenueShare {
		typeSet[t] = true
	}
	if prev != nil {
		for t := range prev.payments.RevenueShare {
			typeSet[t] = true
		}
	}
	for t := range typeSet {
		t := t
		name := "payment_share_" + t
		add(name, shareOrNil(cur.payments, t), func(s *yearSnapshot) *float64 {
			return shareOrNil(s.payments, t)
		})
	}

	for name, v := range report.Metrics {
		if v.Previous == nil {
			report.MissingComparison = append(report.MissingComparison, name)
		}
	}
	sort.Strings(report.MissingComparison)

	return report
}

// yearSnapshot bundles every KPI family computed for one year.
type yearSnapshot struct {
	recordCount int
	revenue     RevenueMetrics
	customers   CustomerMetrics
	delivery    DeliveryMetrics
	reviews     ReviewMetrics
	payments    PaymentMetrics
}

func (c *Calculator) yearSnapshot(year *int) yearSnapshot {
	return yearSnapshot{
		recordCount: len(c.filtered(year)),
		revenue:     c.Revenue(year),
		customers:   c.Customers(year),
		delivery:    c.Delivery(year),
		reviews:     c.Reviews(year),
		payments:    c.Payments(year),
	}
}

// deliveryRate returns a category proportion, nil when the year has no
// records at all (a 0% late rate over nothing is not a statement).
func deliveryRate(s yearSnapshot, cat sales.DeliverySpeed) *float64 {
	if s.delivery.SampleSize == 0 {
		return nil
	}
	return Float(s.delivery.Proportions[cat])
}

func shareOrNil(p PaymentMetrics, paymentType string) *float64 {
	v, ok := p.RevenueShare[paymentType]
	if !ok {
		return nil
	}
	return Float(v)
}

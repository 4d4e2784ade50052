package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/commerce-insights/internal/sales"
)

func rec(orderID, customerID string, year int, total float64, mutate ...func(*sales.Record)) sales.Record {
	r := sales.Record{
		OrderID:           orderID,
		CustomerID:        customerID,
		OrderStatus:       "delivered",
		PurchaseTimestamp: time.Date(year, time.March, 15, 12, 0, 0, 0, time.UTC),
		PurchaseYear:      year,
		PurchaseMonth:     3,
		TotalItemValue:    total,
		PaymentTypes:      "credit_card",
		DeliverySpeed:     sales.DeliveryOnTime,
	}
	for _, m := range mutate {
		m(&r)
	}
	return r
}

func testRecords() []sales.Record {
	score4, score2 := 4.0, 2.0
	return []sales.Record{
		rec("o1", "c1", 2023, 110, func(r *sales.Record) { r.ReviewScore = &score4 }),
		rec("o2", "c1", 2023, 45, func(r *sales.Record) {
			r.ReviewScore = &score2
			r.DeliverySpeed = sales.DeliveryLate
			r.PaymentTypes = "boleto"
		}),
		rec("o2", "c1", 2023, 68, func(r *sales.Record) {
			r.ReviewScore = &score2
			r.DeliverySpeed = sales.DeliveryLate
			r.PaymentTypes = "boleto"
		}),
		rec("o3", "c2", 2023, 77, func(r *sales.Record) { r.DeliverySpeed = sales.DeliveryUnknown }),
		rec("o4", "c3", 2022, 200),
	}
}

func TestRevenue(t *testing.T) {
	c := NewCalculator(testRecords())
	year := 2023

	m := c.Revenue(&year)
	assert.Equal(t, 300.0, m.TotalRevenue)
	assert.Equal(t, 3, m.OrderCount, "o2's two items are one order")
	require.NotNil(t, m.AvgOrderValue)
	assert.InDelta(t, 100.0, *m.AvgOrderValue, 1e-9)
}

func TestRevenueAOVInvariant(t *testing.T) {
	c := NewCalculator(testRecords())

	for _, year := range []int{2022, 2023} {
		year := year
		m := c.Revenue(&year)
		require.NotNil(t, m.AvgOrderValue)
		assert.InDelta(t, m.TotalRevenue/float64(m.OrderCount), *m.AvgOrderValue, 1e-9)
	}
}

func TestRevenueEmptyYear(t *testing.T) {
	c := NewCalculator(testRecords())
	year := 2019

	m := c.Revenue(&year)
	assert.Equal(t, 0.0, m.TotalRevenue)
	assert.Equal(t, 0, m.OrderCount)
	assert.Nil(t, m.AvgOrderValue, "AOV must be nil, not infinity or NaN")
}

func TestRevenueNoYearFilter(t *testing.T) {
	c := NewCalculator(testRecords())
	m := c.Revenue(nil)
	assert.Equal(t, 500.0, m.TotalRevenue)
	assert.Equal(t, 4, m.OrderCount)
}

func TestCustomers(t *testing.T) {
	c := NewCalculator(testRecords())
	year := 2023

	m := c.Customers(&year)
	assert.Equal(t, 2, m.DistinctCustomers)
	require.NotNil(t, m.RepeatRatio)
	// c1 has orders o1 and o2; c2 only o3
	assert.InDelta(t, 0.5, *m.RepeatRatio, 1e-9)
}

func TestCustomersEmpty(t *testing.T) {
	c := NewCalculator(nil)
	m := c.Customers(nil)
	assert.Equal(t, 0, m.DistinctCustomers)
	assert.Nil(t, m.RepeatRatio)
}

func TestDelivery(t *testing.T) {
	c := NewCalculator(testRecords())
	year := 2023

	m := c.Delivery(&year)
	assert.Equal(t, 4, m.SampleSize)
	assert.InDelta(t, 0.25, m.Proportions[sales.DeliveryOnTime], 1e-9)
	assert.InDelta(t, 0.5, m.Proportions[sales.DeliveryLate], 1e-9)
	assert.InDelta(t, 0.25, m.Proportions[sales.DeliveryUnknown], 1e-9)
	assert.InDelta(t, 0.0, m.Proportions[sales.DeliveryEarly], 1e-9)
}

func TestReviews(t *testing.T) {
	c := NewCalculator(testRecords())
	year := 2023

	m := c.Reviews(&year)
	assert.Equal(t, 3, m.SampleSize, "o3 has no score and is excluded")
	require.NotNil(t, m.MeanScore)
	assert.InDelta(t, (4.0+2.0+2.0)/3.0, *m.MeanScore, 1e-9)
}

func TestReviewsNoScores(t *testing.T) {
	c := NewCalculator([]sales.Record{rec("o1", "c1", 2023, 10)})
	m := c.Reviews(nil)
	assert.Nil(t, m.MeanScore)
	assert.Equal(t, 0, m.SampleSize)
}

func TestPayments(t *testing.T) {
	c := NewCalculator(testRecords())
	year := 2023

	m := c.Payments(&year)
	// credit_card: o1 110 + o3 77 = 187; boleto: 45 + 68 = 113; total 300
	assert.InDelta(t, 187.0/300.0, m.RevenueShare["credit_card"], 1e-9)
	assert.InDelta(t, 113.0/300.0, m.RevenueShare["boleto"], 1e-9)

	var sum float64
	for _, share := range m.RevenueShare {
		sum += share
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestPaymentsEmpty(t *testing.T) {
	c := NewCalculator(nil)
	m := c.Payments(nil)
	assert.Empty(t, m.RevenueShare)
}

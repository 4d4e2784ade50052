package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/commerce-insights/internal/sales"
)

func TestGenerateComprehensiveReportYoY(t *testing.T) {
	c := NewCalculator(testRecords())
	prev := 2022

	report := c.GenerateComprehensiveReport(2023, &prev)

	assert.NotEmpty(t, report.ReportID)
	assert.Equal(t, 2023, report.CurrentYear)
	require.NotNil(t, report.PreviousYear)
	assert.Equal(t, 2022, *report.PreviousYear)
	assert.False(t, report.InsufficientData)

	revenue, ok := report.Metrics["total_revenue"]
	require.True(t, ok)
	require.NotNil(t, revenue.Current)
	assert.Equal(t, 300.0, *revenue.Current)
	require.NotNil(t, revenue.Previous)
	assert.Equal(t, 200.0, *revenue.Previous)
	require.NotNil(t, revenue.PercentChange)
	assert.InDelta(t, 0.5, *revenue.PercentChange, 1e-9)
	assert.Equal(t, TrendUp, revenue.Trend)

	orders, ok := report.Metrics["order_count"]
	require.True(t, ok)
	assert.Equal(t, 3.0, *orders.Current)
	assert.Equal(t, 1.0, *orders.Previous)

	aov, ok := report.Metrics["avg_order_value"]
	require.True(t, ok)
	require.NotNil(t, aov.Current)
	assert.InDelta(t, 100.0, *aov.Current, 1e-9)

	assert.Equal(t, 3, report.ReviewSampleSize)

	// 2022 has no boleto revenue, so its share lacks a previous value and
	// must be listed as missing a comparison.
	boleto, ok := report.Metrics["payment_share_boleto"]
	require.True(t, ok)
	assert.Nil(t, boleto.Previous)
	assert.Contains(t, report.MissingComparison, "payment_share_boleto")

	// Delivery rates are present for all four categories
	for _, name := range []string{
		"delivery_early_rate", "delivery_on_time_rate", "delivery_late_rate", "delivery_unknown_rate",
	} {
		_, ok := report.Metrics[name]
		assert.True(t, ok, "missing %s", name)
	}
}

func TestGenerateComprehensiveReportDoubledRevenue(t *testing.T) {
	records := []sales.Record{
		rec("o1", "c1", 2023, 1000),
		rec("o2", "c2", 2022, 500),
	}
	prev := 2022

	report := NewCalculator(records).GenerateComprehensiveReport(2023, &prev)

	revenue := report.Metrics["total_revenue"]
	require.NotNil(t, revenue.PercentChange)
	assert.InDelta(t, 1.0, *revenue.PercentChange, 1e-9, "doubling is a 100% increase")
	assert.Equal(t, TrendUp, revenue.Trend)
}

func TestGenerateComprehensiveReportEmptyCurrentYear(t *testing.T) {
	// No records match 2023; report must still be well-formed.
	records := []sales.Record{rec("o1", "c1", 2021, 500)}
	report := NewCalculator(records).GenerateComprehensiveReport(2023, nil)

	assert.True(t, report.InsufficientData)

	revenue := report.Metrics["total_revenue"]
	require.NotNil(t, revenue.Current)
	assert.Equal(t, 0.0, *revenue.Current)

	aov := report.Metrics["avg_order_value"]
	assert.Nil(t, aov.Current, "AOV is nil with zero orders")

	for name, v := range report.Metrics {
		assert.Equal(t, TrendNotApplicable, v.Trend, "metric %s has no comparison year", name)
		assert.Nil(t, v.PercentChange, "metric %s", name)
	}
}

func TestGenerateComprehensiveReportNoPreviousYear(t *testing.T) {
	report := NewCalculator(testRecords()).GenerateComprehensiveReport(2023, nil)

	assert.Nil(t, report.PreviousYear)
	for name, v := range report.Metrics {
		assert.Nil(t, v.Previous, "metric %s", name)
		assert.Equal(t, TrendNotApplicable, v.Trend, "metric %s", name)
		assert.Contains(t, report.MissingComparison, name)
	}
}

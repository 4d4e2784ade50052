package metrics

import "math"

// Trend is the direction of a year-over-year comparison.
type Trend string

const (
	TrendUp            Trend = "up"
	TrendDown          Trend = "down"
	TrendFlat          Trend = "flat"
	TrendNotApplicable Trend = "not_applicable"
)

// trendEpsilon is the relative change below which a comparison counts as flat.
const trendEpsilon = 1e-9

// Value is one report entry: a current value with an optional prior-period
// comparison. Current is nil when the metric itself is undefined for the
// period (e.g. AOV with zero orders). PercentChange is nil whenever the
// previous value is nil or zero; division by zero is avoided, not replaced
// with an error value.
type Value struct {
	Current       *float64 `json:"current_value"`
	Previous      *float64 `json:"previous_value"`
	PercentChange *float64 `json:"percent_change"`
	Trend         Trend    `json:"trend_direction"`
}

// Compare builds a Value from independently computed current and previous
// figures. percent_change = (current - previous) / previous.
func Compare(current, previous *float64) Value {
	v := Value{Current: current, Previous: previous, Trend: TrendNotApplicable}
	if current == nil || previous == nil || *previous == 0 {
		return v
	}

	change := (*current - *previous) / *previous
	v.PercentChange = &change

	switch {
	case math.Abs(change) <= trendEpsilon:
		v.Trend = TrendFlat
	case change > 0:
		v.Trend = TrendUp
	default:
		v.Trend = TrendDown
	}
	return v
}

// Single builds a Value with no comparison period.
func Single(current *float64) Value {
	return Value{Current: current, Trend: TrendNotApplicable}
}

// Float is a convenience for taking the address of a computed float.
func Float(v float64) *float64 { return &v }

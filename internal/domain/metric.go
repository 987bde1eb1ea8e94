package domain

// Metric identifies a tracked campaign performance column.
type Metric string

const (
	MetricImpressions      Metric = "impressions"
	MetricClicks           Metric = "clicks"
	MetricClicksAll        Metric = "clicks_all"
	MetricSpend            Metric = "spend"
	MetricActions          Metric = "actions"
	MetricCPA              Metric = "cpa"
	MetricCPM              Metric = "cpm"
	MetricCostPer1000Reach Metric = "cost_per_1000_reach"
	MetricCTRLink          Metric = "ctr_link"
	MetricCTRAll           Metric = "ctr_all"
	MetricCPCLink          Metric = "cpc_link"
	MetricCPCAll           Metric = "cpc_all"
)

// BaseMetrics is the fixed, ordered candidate list of metrics that feature
// derivation operates over. At runtime it is restricted to the columns
// actually present in the input table.
var BaseMetrics = []Metric{
	MetricImpressions,
	MetricClicks,
	MetricClicksAll,
	MetricSpend,
	MetricActions,
	MetricCPA,
	MetricCPM,
	MetricCostPer1000Reach,
	MetricCTRLink,
	MetricCTRAll,
	MetricCPCLink,
	MetricCPCAll,
}

// SumMetrics are volume counters aggregated by summation.
var SumMetrics = []Metric{
	MetricImpressions,
	MetricClicks,
	MetricClicksAll,
	MetricSpend,
	MetricActions,
}

// MeanMetrics are upstream-reported rates carried through by averaging.
// They are fallback display values only; rates that can be recomputed from
// aggregated sums are always recomputed instead.
var MeanMetrics = []Metric{
	MetricCPA,
	MetricCPM,
	MetricCostPer1000Reach,
}

// HasMetric reports whether m is present in the ordered column set.
func HasMetric(set []Metric, m Metric) bool {
	for _, c := range set {
		if c == m {
			return true
		}
	}
	return false
}

// Float returns a pointer to v. Convenience for building nullable cells.
func Float(v float64) *float64 {
	return &v
}

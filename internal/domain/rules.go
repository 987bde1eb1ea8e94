package domain

// Direction states which way a metric's deviation is adverse.
type Direction string

const (
	// DirectionDown means lower-than-baseline predictions are bad (CTR).
	DirectionDown Direction = "down"
	// DirectionUp means higher-than-baseline predictions are bad (CPC, CPA).
	DirectionUp Direction = "up"
)

// Rule configures anomaly evaluation for one monitored metric.
type Rule struct {
	Direction Direction
	// Threshold is the ratio cutoff for the binary alert flag:
	// ratio < Threshold for down metrics, ratio > Threshold for up metrics.
	Threshold float64
	// BaselineWindow selects which trailing rolling mean (7, 14 or 28) is
	// treated as ground truth when forming the deviation ratio.
	BaselineWindow int
}

// RuleTable maps monitored metrics to their evaluation rules. It is
// immutable configuration: built once at startup and passed explicitly into
// the signal engine.
type RuleTable map[Metric]Rule

// DefaultRuleTable returns the built-in per-metric rule set.
func DefaultRuleTable() RuleTable {
	return RuleTable{
		// Lower is bad
		MetricCTRLink: {Direction: DirectionDown, Threshold: 0.85, BaselineWindow: 7},
		MetricCTRAll:  {Direction: DirectionDown, Threshold: 0.85, BaselineWindow: 7},

		// Higher is bad
		MetricCPCLink:          {Direction: DirectionUp, Threshold: 1.20, BaselineWindow: 7},
		MetricCPCAll:           {Direction: DirectionUp, Threshold: 1.20, BaselineWindow: 7},
		MetricCPA:              {Direction: DirectionUp, Threshold: 1.25, BaselineWindow: 7},
		MetricCPM:              {Direction: DirectionUp, Threshold: 1.15, BaselineWindow: 7},
		MetricCostPer1000Reach: {Direction: DirectionUp, Threshold: 1.15, BaselineWindow: 7},
	}
}

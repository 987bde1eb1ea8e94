package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"campaign-signal-lab/internal/domain"
)

// ruleEntry is the TOML shape of one metric rule.
type ruleEntry struct {
	Direction string  `toml:"direction" validate:"required,oneof=down up"`
	Threshold float64 `toml:"threshold" validate:"required,gt=0"`
	Baseline  string  `toml:"baseline" validate:"required,oneof=roll_7 roll_14 roll_28"`
}

type ruleFile struct {
	Rules map[string]ruleEntry `toml:"rules" validate:"required,dive"`
}

var baselineWindows = map[string]int{
	"roll_7":  7,
	"roll_14": 14,
	"roll_28": 28,
}

// LoadRules reads a rule table from a TOML file. An empty path returns the
// built-in rules.
//
// File shape:
//
//	[rules.ctr_link]
//	direction = "down"
//	threshold = 0.85
//	baseline = "roll_7"
func LoadRules(path string) (domain.RuleTable, error) {
	if path == "" {
		return domain.DefaultRuleTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules parses a TOML rule table.
func ParseRules(data []byte) (domain.RuleTable, error) {
	var f ruleFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := validator.New().Struct(&f); err != nil {
		return nil, fmt.Errorf("validate rules: %w", err)
	}

	table := make(domain.RuleTable, len(f.Rules))
	for name, e := range f.Rules {
		m := domain.Metric(name)
		if !domain.HasMetric(domain.BaseMetrics, m) {
			return nil, fmt.Errorf("rules: unknown metric %q", name)
		}
		table[m] = domain.Rule{
			Direction:      domain.Direction(e.Direction),
			Threshold:      e.Threshold,
			BaselineWindow: baselineWindows[e.Baseline],
		}
	}
	return table, nil
}

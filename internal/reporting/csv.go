package reporting

import (
	"fmt"
	"strconv"
	"strings"

	"campaign-signal-lab/internal/domain"
)

// RenderSignalsCSV renders a signal table as a wide CSV string: key columns,
// base metric values, then ratio/severity/flag triples for every evaluated
// metric, then the summary columns. Undefined cells render as empty fields.
func RenderSignalsCSV(t *domain.SignalTable) string {
	var sb strings.Builder

	// Header
	sb.WriteString("date,campaign_id")
	if t.HasCampaignName {
		sb.WriteString(",campaign_name")
	}
	for _, m := range t.Metrics {
		sb.WriteString(",")
		sb.WriteString(string(m))
	}
	for _, m := range t.Evaluated {
		sb.WriteString(fmt.Sprintf(",pred_%s,%s_ratio,%s_severity,%s_flag", m, m, m, m))
	}
	sb.WriteString(",signal_count,max_severity\n")

	// Rows
	for _, row := range t.Rows {
		sb.WriteString(row.Date.String())
		sb.WriteString(",")
		sb.WriteString(csvField(row.CampaignID))
		if t.HasCampaignName {
			sb.WriteString(",")
			if row.CampaignName != nil {
				sb.WriteString(csvField(*row.CampaignName))
			}
		}
		for _, m := range t.Metrics {
			sb.WriteString(",")
			sb.WriteString(floatField(row.Values[m]))
		}
		for _, m := range t.Evaluated {
			sig := row.SignalOf(m)
			sb.WriteString(",")
			sb.WriteString(floatField(row.Prediction(m)))
			if sig != nil {
				sb.WriteString(fmt.Sprintf(",%s,%s,%d", floatField(sig.Ratio), sig.Severity, sig.Flag))
			} else {
				sb.WriteString(fmt.Sprintf(",,%s,0", domain.SeverityUnknown))
			}
		}
		sb.WriteString(fmt.Sprintf(",%d,%s\n", row.SignalCount, row.MaxSeverity))
	}

	return sb.String()
}

// floatField formats a nullable float for CSV; nil renders as empty.
func floatField(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 6, 64)
}

// csvField quotes a value when it contains a delimiter or quote.
func csvField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}

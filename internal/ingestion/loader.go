// Package ingestion loads analytics export files into the raw row store.
// No aggregation, no joins, no derived metrics: rows pass through with
// canonical column names and safe type coercion only.
package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"campaign-signal-lab/internal/domain"
)

// ErrMissingKeyColumns is returned when an export lacks the date or
// campaign_id column. Group keys are a hard schema requirement; their
// absence means the producer and consumer disagree about the contract.
var ErrMissingKeyColumns = errors.New("export is missing required date/campaign_id columns")

// headerAliases maps export header spellings to canonical column names.
// Exports arrive either with platform display headers or already canonical.
var headerAliases = map[string]string{
	"Date": "date",

	"Campaign ID":         "campaign_id",
	"Campaign name":       "campaign_name",
	"Campaign start date": "campaign_start_date",
	"Campaign end date":   "campaign_end_date",
	"Campaign status":     "campaign_status",
	"Campaign objective":  "campaign_objective",

	"Impressions":  "impressions",
	"Cost":         "spend",
	"Link clicks":  "clicks",
	"Clicks (all)": "clicks_all",
	"Actions":      "actions",

	"Cost per action (CPA)":           "cpa",
	"CPM (cost per 1000 impressions)": "cpm",
	"Cost per 1000 people reached":    "cost_per_1000_reach",
	"CPC (cost per link click)":       "cpc_link",
	"CPC (all)":                       "cpc_all",
}

// canonicalMetrics maps canonical column names to metrics.
var canonicalMetrics = map[string]domain.Metric{
	"impressions":         domain.MetricImpressions,
	"clicks":              domain.MetricClicks,
	"clicks_all":          domain.MetricClicksAll,
	"spend":               domain.MetricSpend,
	"actions":             domain.MetricActions,
	"cpa":                 domain.MetricCPA,
	"cpm":                 domain.MetricCPM,
	"cost_per_1000_reach": domain.MetricCostPer1000Reach,
	"ctr_link":            domain.MetricCTRLink,
	"ctr_all":             domain.MetricCTRAll,
	"cpc_link":            domain.MetricCPCLink,
	"cpc_all":             domain.MetricCPCAll,
}

// LoadResult is the outcome of parsing one export.
type LoadResult struct {
	Table *domain.RawTable
	// SkippedRows counts rows dropped for an unparseable or empty date or
	// a missing campaign id. Skips are data quality degradations, not
	// errors.
	SkippedRows int
}

// LoadExportFile parses a CSV export file into a raw table.
func LoadExportFile(path string) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	res, err := ParseExportCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse export %s: %w", path, err)
	}
	return res, nil
}

// ParseExportCSV parses a CSV export into a raw table. The header row is
// mapped to canonical names; unknown columns are ignored. Returns
// ErrMissingKeyColumns when date or campaign_id cannot be located.
func ParseExportCSV(r io.Reader) (*LoadResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // ragged exports happen; validate per cell instead

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrMissingKeyColumns
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := canonicalizeHeader(header)
	dateIdx, dateOK := cols["date"]
	idIdx, idOK := cols["campaign_id"]
	if !dateOK || !idOK {
		return nil, ErrMissingKeyColumns
	}

	table := &domain.RawTable{}
	_, table.HasCampaignName = cols["campaign_name"]
	for _, m := range domain.BaseMetrics {
		if _, ok := cols[string(m)]; ok {
			table.Metrics = append(table.Metrics, m)
		}
	}

	res := &LoadResult{Table: table}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		row, ok := parseRow(record, cols, dateIdx, idIdx, table.Metrics)
		if !ok {
			res.SkippedRows++
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	return res, nil
}

func canonicalizeHeader(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if canonical, ok := headerAliases[h]; ok {
			h = canonical
		}
		if _, exists := cols[h]; !exists && h != "" {
			cols[h] = i
		}
	}
	return cols
}

func parseRow(record []string, cols map[string]int, dateIdx, idIdx int, metrics []domain.Metric) (*domain.RawRecord, bool) {
	date, err := domain.ParseDate(cell(record, dateIdx))
	if err != nil {
		return nil, false
	}
	campaignID := cell(record, idIdx)
	if campaignID == "" {
		return nil, false
	}

	row := &domain.RawRecord{
		Date:       date,
		CampaignID: campaignID,
		Values:     make(map[domain.Metric]*float64, len(metrics)),
	}

	row.CampaignName = textCell(record, cols, "campaign_name")
	row.CampaignStatus = textCell(record, cols, "campaign_status")
	row.CampaignObjective = textCell(record, cols, "campaign_objective")
	row.CampaignStartDate = dateCell(record, cols, "campaign_start_date")
	row.CampaignEndDate = dateCell(record, cols, "campaign_end_date")

	for _, m := range metrics {
		row.Values[m] = numericCell(cell(record, cols[string(m)]))
	}

	return row, true
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func textCell(record []string, cols map[string]int, name string) *string {
	idx, ok := cols[name]
	if !ok {
		return nil
	}
	v := cell(record, idx)
	if v == "" {
		return nil
	}
	return &v
}

func dateCell(record []string, cols map[string]int, name string) *domain.Date {
	idx, ok := cols[name]
	if !ok {
		return nil
	}
	v := cell(record, idx)
	if v == "" {
		return nil
	}
	d, err := domain.ParseDate(v)
	if err != nil {
		return nil
	}
	return &d
}

// numericCell coerces a cell to a nullable float. Blank and malformed cells
// become undefined rather than zero; thousands separators are tolerated.
func numericCell(s string) *float64 {
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

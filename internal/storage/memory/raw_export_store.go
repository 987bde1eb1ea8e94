package memory

import (
	"context"
	"sort"
	"sync"

	"campaign-signal-lab/internal/domain"
	"campaign-signal-lab/internal/storage"
)

// RawExportStore is an in-memory implementation of storage.RawExportStore.
type RawExportStore struct {
	mu   sync.RWMutex
	rows []*domain.RawRecord
}

// NewRawExportStore creates a new in-memory raw export store.
func NewRawExportStore() *RawExportStore {
	return &RawExportStore{}
}

// Compile-time interface check.
var _ storage.RawExportStore = (*RawExportStore)(nil)

// InsertBulk appends export rows.
func (s *RawExportStore) InsertBulk(_ context.Context, rows []*domain.RawRecord) error {
	if len(rows) == 0 {
		return nil
	}

	for _, r := range rows {
		if r == nil || r.CampaignID == "" || r.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		cp := *r
		cp.Values = cloneValues(r.Values)
		s.rows = append(s.rows, &cp)
	}
	return nil
}

// GetByDateRange retrieves rows with date in [start, end], ordered by
// (campaign_id, date).
func (s *RawExportStore) GetByDateRange(_ context.Context, start, end domain.Date) ([]*domain.RawRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.RawRecord
	for _, r := range s.rows {
		if r.Date.Compare(start) >= 0 && r.Date.Compare(end) <= 0 {
			cp := *r
			cp.Values = cloneValues(r.Values)
			out = append(out, &cp)
		}
	}
	sortRawRecords(out)
	return out, nil
}

// GetAll retrieves every stored row, ordered by (campaign_id, date).
func (s *RawExportStore) GetAll(_ context.Context) ([]*domain.RawRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.RawRecord, 0, len(s.rows))
	for _, r := range s.rows {
		cp := *r
		cp.Values = cloneValues(r.Values)
		out = append(out, &cp)
	}
	sortRawRecords(out)
	return out, nil
}

func sortRawRecords(rows []*domain.RawRecord) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CampaignID != rows[j].CampaignID {
			return rows[i].CampaignID < rows[j].CampaignID
		}
		return rows[i].Date.Before(rows[j].Date)
	})
}

// cloneValues copies a nullable cell map so stored data is isolated from
// caller mutation.
func cloneValues(values map[domain.Metric]*float64) map[domain.Metric]*float64 {
	if values == nil {
		return nil
	}
	out := make(map[domain.Metric]*float64, len(values))
	for m, v := range values {
		if v == nil {
			out[m] = nil
			continue
		}
		c := *v
		out[m] = &c
	}
	return out
}

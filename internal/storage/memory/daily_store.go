package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"campaign-signal-lab/internal/domain"
	"campaign-signal-lab/internal/storage"
)

// DailyStore is an in-memory implementation of storage.DailyStore.
type DailyStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DailyRecord // keyed by (campaign_id, date, campaign_name)
}

// NewDailyStore creates a new in-memory daily store.
func NewDailyStore() *DailyStore {
	return &DailyStore{data: make(map[string]*domain.DailyRecord)}
}

// Compile-time interface check.
var _ storage.DailyStore = (*DailyStore)(nil)

// grainKey generates a unique key for the daily × campaign grain.
func grainKey(campaignID string, date domain.Date, name *string) string {
	n := ""
	if name != nil {
		n = *name
	}
	return fmt.Sprintf("%s|%s|%s", campaignID, date, n)
}

// InsertBulk adds records. Fails the entire batch on any duplicate.
func (s *DailyStore) InsertBulk(_ context.Context, recs []*domain.DailyRecord) error {
	if len(recs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[string]struct{}, len(recs))
	for _, r := range recs {
		if r == nil || r.CampaignID == "" || r.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := grainKey(r.CampaignID, r.Date, r.CampaignName)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[key]; exists {
			return storage.ErrDuplicateKey
		}
		batch[key] = struct{}{}
	}

	for _, r := range recs {
		cp := *r
		cp.Values = cloneValues(r.Values)
		s.data[grainKey(r.CampaignID, r.Date, r.CampaignName)] = &cp
	}
	return nil
}

// GetByCampaignID retrieves records for a campaign, ordered by date ASC.
func (s *DailyStore) GetByCampaignID(_ context.Context, campaignID string) ([]*domain.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.DailyRecord
	for _, r := range s.data {
		if r.CampaignID == campaignID {
			cp := *r
			cp.Values = cloneValues(r.Values)
			out = append(out, &cp)
		}
	}
	sortDailyRecords(out)
	return out, nil
}

// GetAll retrieves all records, ordered by (campaign_id, date).
func (s *DailyStore) GetAll(_ context.Context) ([]*domain.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.DailyRecord, 0, len(s.data))
	for _, r := range s.data {
		cp := *r
		cp.Values = cloneValues(r.Values)
		out = append(out, &cp)
	}
	sortDailyRecords(out)
	return out, nil
}

// TruncateAll removes every record.
func (s *DailyStore) TruncateAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]*domain.DailyRecord)
	return nil
}

func sortDailyRecords(rows []*domain.DailyRecord) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CampaignID != rows[j].CampaignID {
			return rows[i].CampaignID < rows[j].CampaignID
		}
		return rows[i].Date.Before(rows[j].Date)
	})
}

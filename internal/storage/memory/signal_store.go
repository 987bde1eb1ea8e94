package memory

import (
	"context"
	"sort"
	"sync"

	"campaign-signal-lab/internal/domain"
	"campaign-signal-lab/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SignalRecord
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{data: make(map[string]*domain.SignalRecord)}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// InsertBulk adds records. Fails the entire batch on any duplicate.
func (s *SignalStore) InsertBulk(_ context.Context, recs []*domain.SignalRecord) error {
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
		s.data[grainKey(r.CampaignID, r.Date, r.CampaignName)] = cloneSignalRecord(r)
	}
	return nil
}

// GetByCampaignID retrieves records for a campaign, ordered by date ASC.
func (s *SignalStore) GetByCampaignID(_ context.Context, campaignID string) ([]*domain.SignalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.SignalRecord
	for _, r := range s.data {
		if r.CampaignID == campaignID {
			out = append(out, cloneSignalRecord(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// GetByDate retrieves records for one day, ordered by campaign_id.
func (s *SignalStore) GetByDate(_ context.Context, date domain.Date) ([]*domain.SignalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.SignalRecord
	for _, r := range s.data {
		if r.Date.Compare(date) == 0 {
			out = append(out, cloneSignalRecord(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CampaignID < out[j].CampaignID
	})
	return out, nil
}

// TruncateAll removes every record.
func (s *SignalStore) TruncateAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]*domain.SignalRecord)
	return nil
}

func cloneSignalRecord(r *domain.SignalRecord) *domain.SignalRecord {
	cp := *r
	fc := cloneFeatureRecord(&r.FeatureRecord)
	cp.FeatureRecord = *fc
	if r.Signals != nil {
		cp.Signals = make(map[domain.Metric]*domain.MetricSignal, len(r.Signals))
		for m, sig := range r.Signals {
			if sig == nil {
				cp.Signals[m] = nil
				continue
			}
			sc := *sig
			cp.Signals[m] = &sc
		}
	}
	return &cp
}

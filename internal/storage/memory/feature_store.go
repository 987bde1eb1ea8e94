package memory

import (
	"context"
	"sort"
	"sync"

	"campaign-signal-lab/internal/domain"
	"campaign-signal-lab/internal/storage"
)

// FeatureStore is an in-memory implementation of storage.FeatureStore.
type FeatureStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FeatureRecord
}

// NewFeatureStore creates a new in-memory feature store.
func NewFeatureStore() *FeatureStore {
	return &FeatureStore{data: make(map[string]*domain.FeatureRecord)}
}

// Compile-time interface check.
var _ storage.FeatureStore = (*FeatureStore)(nil)

// InsertBulk adds records. Fails the entire batch on any duplicate.
func (s *FeatureStore) InsertBulk(_ context.Context, recs []*domain.FeatureRecord) error {
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
		s.data[grainKey(r.CampaignID, r.Date, r.CampaignName)] = cloneFeatureRecord(r)
	}
	return nil
}

// GetByCampaignID retrieves records for a campaign, ordered by date ASC.
func (s *FeatureStore) GetByCampaignID(_ context.Context, campaignID string) ([]*domain.FeatureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.FeatureRecord
	for _, r := range s.data {
		if r.CampaignID == campaignID {
			out = append(out, cloneFeatureRecord(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// TruncateAll removes every record.
func (s *FeatureStore) TruncateAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]*domain.FeatureRecord)
	return nil
}

func cloneFeatureRecord(r *domain.FeatureRecord) *domain.FeatureRecord {
	cp := *r
	cp.Values = cloneValues(r.Values)
	cp.Predictions = cloneValues(r.Predictions)
	if r.Features != nil {
		cp.Features = make(map[domain.Metric]*domain.MetricFeatures, len(r.Features))
		for m, f := range r.Features {
			if f == nil {
				cp.Features[m] = nil
				continue
			}
			fc := *f
			cp.Features[m] = &fc
		}
	}
	if r.RetargetingPool != nil {
		v := *r.RetargetingPool
		cp.RetargetingPool = &v
	}
	return &cp
}

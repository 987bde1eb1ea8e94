package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-signal-lab/internal/domain"
	"campaign-signal-lab/internal/storage"
)

func testSignalRecord(day int, id string) *domain.SignalRecord {
	return &domain.SignalRecord{
		FeatureRecord: domain.FeatureRecord{
			DailyRecord: domain.DailyRecord{
				Date:       domain.NewDate(2025, 6, day),
				CampaignID: id,
			},
			RetargetingPool: domain.Float(120),
			DayOfWeek:       2,
			WeekNumber:      24,
			Predictions: map[domain.Metric]*float64{
				domain.MetricCTRLink: domain.Float(0.009),
			},
		},
		Signals: map[domain.Metric]*domain.MetricSignal{
			domain.MetricCTRLink: {
				Ratio:    domain.Float(0.75),
				Severity: domain.SeverityWarning,
				Flag:     1,
			},
		},
		SignalCount: 1,
		MaxSeverity: domain.SeverityWarning,
	}
}

func TestSignalStore_RoundTrip(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSignalStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.SignalRecord{testSignalRecord(10, "cmp-001")}))

	got, err := store.GetByCampaignID(ctx, "cmp-001")
	require.NoError(t, err)
	require.Len(t, got, 1)

	r := got[0]
	assert.Equal(t, 1, r.SignalCount)
	assert.Equal(t, domain.SeverityWarning, r.MaxSeverity)
	assert.Equal(t, 120.0, *r.RetargetingPool)

	sig := r.SignalOf(domain.MetricCTRLink)
	require.NotNil(t, sig)
	assert.Equal(t, 0.75, *sig.Ratio)
	assert.Equal(t, domain.SeverityWarning, sig.Severity)
	assert.Equal(t, 1, sig.Flag)

	pred := r.Prediction(domain.MetricCTRLink)
	require.NotNil(t, pred)
	assert.Equal(t, 0.009, *pred)
}

func TestSignalStore_ZeroEvaluableRowKeepsSummary(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSignalStore(conn)
	ctx := context.Background()

	rec := &domain.SignalRecord{
		FeatureRecord: domain.FeatureRecord{
			DailyRecord: domain.DailyRecord{
				Date:       domain.NewDate(2025, 6, 10),
				CampaignID: "cmp-002",
			},
		},
		MaxSeverity: domain.SeverityNormal,
	}
	require.NoError(t, store.InsertBulk(ctx, []*domain.SignalRecord{rec}))

	got, err := store.GetByDate(ctx, domain.NewDate(2025, 6, 10))
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, 0, got[0].SignalCount)
	assert.Equal(t, domain.SeverityNormal, got[0].MaxSeverity)
	assert.Empty(t, got[0].Signals)
}

func TestSignalStore_GetByDateOrder(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSignalStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.SignalRecord{
		testSignalRecord(10, "cmp-002"),
		testSignalRecord(10, "cmp-001"),
		testSignalRecord(11, "cmp-001"),
	}))

	got, err := store.GetByDate(ctx, domain.NewDate(2025, 6, 10))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "cmp-001", got[0].CampaignID)
	assert.Equal(t, "cmp-002", got[1].CampaignID)
}

func TestSignalStore_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSignalStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.SignalRecord{testSignalRecord(10, "cmp-001")}))

	err := store.InsertBulk(ctx, []*domain.SignalRecord{testSignalRecord(10, "cmp-001")})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSignalStore_TruncateAll(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSignalStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.SignalRecord{testSignalRecord(10, "cmp-001")}))
	require.NoError(t, store.TruncateAll(ctx))

	got, err := store.GetByCampaignID(ctx, "cmp-001")
	require.NoError(t, err)
	assert.Empty(t, got)
}

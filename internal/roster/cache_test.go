package roster

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitalwatch/platform/internal/shared/types"
	"github.com/vitalwatch/platform/internal/triage"
)

func setupTestCache(t *testing.T) (*miniredis.Miniredis, *Cache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return mr, NewCache(client, 30*time.Second, zap.NewNop())
}

func testSnapshot() *Snapshot {
	return &Snapshot{
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
		Entries: []Entry{
			{
				PatientMetric: triage.PatientMetric{
					ID:             types.NewID(),
					Name:           "Test Patient",
					StabilityIndex: 45,
					News2Score:     2,
					Trend:          triage.TrendDown,
					Sector:         "north",
				},
				Category: triage.StatusMajor,
				Policy: triage.SyncPolicy{
					Mode:     triage.ModeEmergency,
					Interval: triage.Duration(15 * time.Second),
				},
			},
		},
		Shortages: []triage.ShortageReport{
			{Sector: "north", PatientsAtRisk: 1, Severity: triage.ShortageModerate},
		},
		Totals: map[triage.StatusCategory]int{triage.StatusMajor: 1},
	}
}

func TestCacheRoundTrip(t *testing.T) {
	_, cache := setupTestCache(t)
	ctx := context.Background()

	snap := testSnapshot()
	require.NoError(t, cache.Set(ctx, snap))

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, len(snap.Entries), len(got.Entries))
	assert.Equal(t, snap.Entries[0].Name, got.Entries[0].Name)
	assert.Equal(t, triage.StatusMajor, got.Entries[0].Category)
	assert.Equal(t, triage.ModeEmergency, got.Entries[0].Policy.Mode)
	assert.Equal(t, snap.Shortages, got.Shortages)
}

func TestCacheMiss(t *testing.T) {
	_, cache := setupTestCache(t)

	got, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheExpiry(t *testing.T) {
	mr, cache := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, testSnapshot()))

	mr.FastForward(31 * time.Second)

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheInvalidate(t *testing.T) {
	_, cache := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, testSnapshot()))
	require.NoError(t, cache.Invalidate(ctx))

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCacheCorruptEntryTreatedAsMiss(t *testing.T) {
	mr, cache := setupTestCache(t)

	mr.Set(snapshotKey, "{not json")

	got, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

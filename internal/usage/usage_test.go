package usage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemoshq/mnemos/internal/config"
	"github.com/mnemoshq/mnemos/internal/embedding"
	"github.com/mnemoshq/mnemos/internal/index"
	"github.com/mnemoshq/mnemos/internal/memerr"
	"github.com/mnemoshq/mnemos/internal/model"
	"github.com/mnemoshq/mnemos/internal/store"
)

const testOwner = "11111111-1111-1111-1111-111111111111"

func newTestMeter(t *testing.T, quota config.QuotaConfig) (*Meter, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), config.MemoryConfig{
		STMTTL: time.Hour,
		ITMTTL: 7 * 24 * time.Hour,
	}, embedding.NewMockEmbedder(32), index.NewChromemIndex(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewMeter(s, quota), s
}

func TestLimitBytes(t *testing.T) {
	m, _ := newTestMeter(t, config.QuotaConfig{FreeGB: 1, BasicGB: 10, ProGB: -1})

	assert.Equal(t, int64(1<<30), m.LimitBytes("free"))
	assert.Equal(t, int64(10<<30), m.LimitBytes("basic"))
	assert.Equal(t, int64(-1), m.LimitBytes("pro"), "negative config means unlimited")
	assert.Equal(t, int64(1<<30), m.LimitBytes("enterprise"), "unknown plans fall back to free")
	assert.Equal(t, int64(1<<30), m.LimitBytes("FREE"))
}

func TestRecordSize(t *testing.T) {
	size := SizeOf("hello", "world", 384)
	assert.Equal(t, int64(10+384*4+perRecordOverhead), size.Bytes())

	noVec := SizeOf("hello", "", 0)
	assert.Equal(t, int64(5+perRecordOverhead), noVec.Bytes())
}

func TestCheckWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("within quota passes", func(t *testing.T) {
		m, _ := newTestMeter(t, config.QuotaConfig{FreeGB: 1})
		assert.NoError(t, m.CheckWrite(ctx, testOwner, "free", SizeOf("small", "", 0)))
	})

	t.Run("over quota rejected", func(t *testing.T) {
		m, _ := newTestMeter(t, config.QuotaConfig{FreeGB: 0})
		err := m.CheckWrite(ctx, testOwner, "free", SizeOf("anything", "", 0))
		assert.True(t, memerr.IsQuotaExceeded(err))
	})

	t.Run("unlimited plan never rejected", func(t *testing.T) {
		m, _ := newTestMeter(t, config.QuotaConfig{FreeGB: 0, ProGB: -1})
		assert.NoError(t, m.CheckWrite(ctx, testOwner, "pro", SizeOf("anything", "", 0)))
	})
}

func TestReport(t *testing.T) {
	ctx := context.Background()
	m, s := newTestMeter(t, config.QuotaConfig{FreeGB: 1})

	_, err := s.Store(ctx, store.StoreParams{
		OwnerID: testOwner, Kind: model.KindLesson,
		InputContext: "vault tokens expire after 24h",
		PolicyValid:  true, Tier: model.TierITM,
	})
	require.NoError(t, err)

	report, err := m.Report(ctx, testOwner, "free")
	require.NoError(t, err)
	assert.Equal(t, testOwner, report.OwnerID)
	assert.Equal(t, "free", report.Plan)
	assert.Greater(t, report.UsedBytes, int64(0))
	assert.Equal(t, int64(1<<30), report.LimitBytes)
	assert.Greater(t, report.UsedPercent, 0.0)
	assert.Equal(t, 1, report.Tiers[model.TierITM].Count)
}

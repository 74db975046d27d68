package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemoshq/mnemos/internal/config"
	"github.com/mnemoshq/mnemos/internal/embedding"
	"github.com/mnemoshq/mnemos/internal/index"
	"github.com/mnemoshq/mnemos/internal/memerr"
	"github.com/mnemoshq/mnemos/internal/model"
)

const testOwner = "11111111-1111-1111-1111-111111111111"

func testMemoryConfig() config.MemoryConfig {
	return config.MemoryConfig{
		STMTTL:             time.Hour,
		ITMTTL:             7 * 24 * time.Hour,
		PromotionThreshold: 3,
		STMMaxSize:         20,
		ITMMaxSize:         100,
		SessionCacheMB:     16,
	}
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"), testMemoryConfig(),
		embedding.NewMockEmbedder(32), index.NewChromemIndex(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func storeOne(t *testing.T, s *SQLiteStore, p StoreParams) *model.Memory {
	t.Helper()
	if p.OwnerID == "" {
		p.OwnerID = testOwner
	}
	if p.Kind == "" {
		p.Kind = model.KindConversation
	}
	if p.InputContext == "" {
		p.InputContext = "how do I rotate the api keys"
	}
	p.PolicyValid = true
	m, err := s.Store(context.Background(), p)
	require.NoError(t, err)
	return m
}

func TestStoreComputesTierTTL(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("stm gets one hour", func(t *testing.T) {
		m := storeOne(t, s, StoreParams{Tier: model.TierSTM})
		require.NotNil(t, m.ExpiresAt)
		assert.WithinDuration(t, time.Now().Add(time.Hour), *m.ExpiresAt, 5*time.Second)
	})

	t.Run("itm gets seven days", func(t *testing.T) {
		m := storeOne(t, s, StoreParams{Tier: model.TierITM})
		require.NotNil(t, m.ExpiresAt)
		assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), *m.ExpiresAt, 5*time.Second)
	})

	t.Run("ltm is permanent and embedded", func(t *testing.T) {
		m := storeOne(t, s, StoreParams{Tier: model.TierLTM})
		assert.Nil(t, m.ExpiresAt)
		assert.NotEmpty(t, m.Embedding)

		got, err := s.Peek(ctx, testOwner, m.ID)
		require.NoError(t, err)
		assert.Len(t, got.Embedding, 32)
	})

	t.Run("empty tier defaults to stm", func(t *testing.T) {
		m := storeOne(t, s, StoreParams{})
		assert.Equal(t, model.TierSTM, m.Tier)
	})
}

func TestStoreValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Store(ctx, StoreParams{OwnerID: testOwner, Kind: "dream", InputContext: "x", PolicyValid: true})
	assert.True(t, memerr.IsValidation(err))

	_, err = s.Store(ctx, StoreParams{OwnerID: testOwner, Kind: model.KindTask, PolicyValid: true})
	assert.True(t, memerr.IsValidation(err), "empty input_context must fail")

	bad := 1.5
	_, err = s.Store(ctx, StoreParams{
		OwnerID: testOwner, Kind: model.KindTask, InputContext: "x",
		EmotionalWeight: &bad, PolicyValid: true,
	})
	assert.True(t, memerr.IsValidation(err))
}

func TestDirectLTMStoreRejectsPolicyInvalid(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Store(context.Background(), StoreParams{
		OwnerID: testOwner, Kind: model.KindLesson, InputContext: "x",
		Tier: model.TierLTM, PolicyValid: false,
	})
	assert.True(t, memerr.IsPolicyRejected(err))
}

func TestRetrieveIncrementsAccessCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := storeOne(t, s, StoreParams{})

	got, err := s.Retrieve(ctx, testOwner, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AccessCount)
	require.NotNil(t, got.LastAccessedAt)

	got, err = s.Retrieve(ctx, testOwner, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AccessCount)

	peeked, err := s.Peek(ctx, testOwner, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, peeked.AccessCount, "peek must not bump the count")
}

func TestConcurrentRetrievesLoseNoIncrements(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := storeOne(t, s, StoreParams{})

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := s.Retrieve(ctx, testOwner, m.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Peek(ctx, testOwner, m.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.AccessCount)
}

func TestRetrieveScopesByOwner(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := storeOne(t, s, StoreParams{})

	_, err := s.Retrieve(ctx, "22222222-2222-2222-2222-222222222222", m.ID)
	assert.True(t, memerr.IsNotFound(err), "other owners see NotFound, not a hint the id exists")
}

func TestPromoteOneTierForward(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := storeOne(t, s, StoreParams{})

	for i := 0; i < 3; i++ {
		_, err := s.Retrieve(ctx, testOwner, m.ID)
		require.NoError(t, err)
	}

	promoted, err := s.Promote(ctx, testOwner, m.ID, model.TierITM)
	require.NoError(t, err)
	assert.Equal(t, model.TierITM, promoted.Tier)
	assert.Equal(t, 3, promoted.AccessCount, "access count survives promotion")
	require.NotNil(t, promoted.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), *promoted.ExpiresAt, 5*time.Second,
		"itm ttl restarts at promotion time")

	final, err := s.Promote(ctx, testOwner, m.ID, model.TierLTM)
	require.NoError(t, err)
	assert.Equal(t, model.TierLTM, final.Tier)
	assert.Nil(t, final.ExpiresAt)
	assert.NotEmpty(t, final.Embedding, "promotion to ltm embeds")
}

func TestPromoteRejectsIllegalTransitions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("skipping a tier", func(t *testing.T) {
		m := storeOne(t, s, StoreParams{})
		_, err := s.Promote(ctx, testOwner, m.ID, model.TierLTM)
		assert.True(t, memerr.IsInvalidTransition(err))
	})

	t.Run("demotion", func(t *testing.T) {
		m := storeOne(t, s, StoreParams{Tier: model.TierITM})
		_, err := s.Promote(ctx, testOwner, m.ID, model.TierSTM)
		assert.True(t, memerr.IsInvalidTransition(err))
	})

	t.Run("ltm is terminal", func(t *testing.T) {
		m := storeOne(t, s, StoreParams{Tier: model.TierLTM})
		_, err := s.Promote(ctx, testOwner, m.ID, model.TierLTM)
		assert.True(t, memerr.IsInvalidTransition(err))
	})
}

func TestPromoteRejectsPolicyInvalid(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	m, err := s.Store(ctx, StoreParams{
		OwnerID: testOwner, Kind: model.KindError, InputContext: "bad content",
		PolicyValid: false,
	})
	require.NoError(t, err, "policy-invalid records may still be stored short-term for audit")

	_, err = s.Promote(ctx, testOwner, m.ID, model.TierITM)
	assert.True(t, memerr.IsPolicyRejected(err))
}

func TestExpireIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := storeOne(t, s, StoreParams{})

	require.NoError(t, s.Expire(ctx, testOwner, m.ID))

	_, err := s.Retrieve(ctx, testOwner, m.ID)
	assert.True(t, memerr.IsNotFound(err))

	// Second expiry is a no-op, not an error.
	require.NoError(t, s.Expire(ctx, testOwner, m.ID))
}

func TestExpiredRecordNotPromotable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := storeOne(t, s, StoreParams{})

	require.NoError(t, s.Expire(ctx, testOwner, m.ID))

	_, err := s.Promote(ctx, testOwner, m.ID, model.TierITM)
	assert.True(t, memerr.IsNotFound(err))
}

func TestUpdateContentAndMetadata(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := storeOne(t, s, StoreParams{})

	newContent := "rotate keys quarterly via the vault cli"
	conf := 0.9
	outcome := model.OutcomeSuccess
	got, err := s.Update(ctx, testOwner, m.ID, UpdateParams{
		InputContext:    &newContent,
		ConfidenceScore: &conf,
		Outcome:         &outcome,
		Tags:            []string{"ops", "security"},
	})
	require.NoError(t, err)
	assert.Equal(t, newContent, got.InputContext)
	assert.Equal(t, model.OutcomeSuccess, got.Outcome)
	assert.Equal(t, []string{"ops", "security"}, got.Tags)
	require.NotNil(t, got.ConfidenceScore)
	assert.Equal(t, 0.9, *got.ConfidenceScore)

	bad := 2.0
	_, err = s.Update(ctx, testOwner, m.ID, UpdateParams{ConfidenceScore: &bad})
	assert.True(t, memerr.IsValidation(err))
}

func TestListPagination(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 7; i++ {
		storeOne(t, s, StoreParams{})
		time.Sleep(2 * time.Millisecond) // distinct created_at for stable keyset order
	}

	page1, err := s.List(ctx, ListParams{OwnerID: testOwner, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page1.Memories, 3)
	require.NotEmpty(t, page1.NextCursor)

	page2, err := s.List(ctx, ListParams{OwnerID: testOwner, Limit: 3, Cursor: page1.NextCursor})
	require.NoError(t, err)
	assert.Len(t, page2.Memories, 3)
	require.NotEmpty(t, page2.NextCursor)

	page3, err := s.List(ctx, ListParams{OwnerID: testOwner, Limit: 3, Cursor: page2.NextCursor})
	require.NoError(t, err)
	assert.Len(t, page3.Memories, 1)
	assert.Empty(t, page3.NextCursor)

	seen := map[string]bool{}
	for _, p := range [][]model.Memory{page1.Memories, page2.Memories, page3.Memories} {
		for _, m := range p {
			assert.False(t, seen[m.ID], "no duplicates across pages")
			seen[m.ID] = true
		}
	}

	_, err = s.List(ctx, ListParams{OwnerID: testOwner, Cursor: "not base64"})
	assert.True(t, memerr.IsValidation(err))
}

func TestListTierFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	storeOne(t, s, StoreParams{Tier: model.TierSTM})
	storeOne(t, s, StoreParams{Tier: model.TierITM})
	storeOne(t, s, StoreParams{Tier: model.TierLTM})

	page, err := s.List(ctx, ListParams{OwnerID: testOwner, Tier: model.TierITM})
	require.NoError(t, err)
	require.Len(t, page.Memories, 1)
	assert.Equal(t, model.TierITM, page.Memories[0].Tier)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	storeOne(t, s, StoreParams{Tier: model.TierSTM})
	storeOne(t, s, StoreParams{Tier: model.TierSTM})
	storeOne(t, s, StoreParams{Tier: model.TierLTM})

	stats, err := s.Stats(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Tiers[model.TierSTM].Count)
	assert.Equal(t, 0, stats.Tiers[model.TierITM].Count)
	assert.Equal(t, 1, stats.Tiers[model.TierLTM].Count)
	assert.Equal(t, 3, stats.Total)
	assert.Greater(t, stats.StorageBytes, int64(0))
	assert.Greater(t, stats.Tiers[model.TierLTM].Bytes, stats.Tiers[model.TierITM].Bytes,
		"ltm rows carry the embedding blob")
}

func TestRecentReflectionsSkipsPolicyInvalid(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	valid := storeOne(t, s, StoreParams{Kind: model.KindReflection, Tier: model.TierSTM})
	_, err := s.Store(ctx, StoreParams{
		OwnerID:      testOwner,
		Kind:         model.KindReflection,
		InputContext: "post-task reflection",
		PolicyValid:  false,
		Tier:         model.TierSTM,
	})
	require.NoError(t, err)
	storeOne(t, s, StoreParams{Kind: model.KindConversation, Tier: model.TierSTM})

	got, err := s.RecentReflections(ctx, testOwner, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1, "only policy-valid reflections feed distillation")
	assert.Equal(t, valid.ID, got[0].ID)
}

func TestKnowledgeDedup(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	k := &model.DistilledKnowledge{
		ID:                  "01K0000000000000000000000A",
		OwnerID:             testOwner,
		SourceReflectionIDs: []string{"b", "a"},
		Topic:               "debugging",
		Principle:           "For debugging: reproduce before patching.",
		Confidence:          0.8,
		CreatedAt:           time.Now().UTC(),
	}
	inserted, err := s.InsertKnowledge(ctx, k)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same sources in a different order is the same distillation.
	dup := *k
	dup.ID = "01K0000000000000000000000B"
	dup.SourceReflectionIDs = []string{"a", "b"}
	inserted, err = s.InsertKnowledge(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	listed, err := s.ListKnowledge(ctx, testOwner, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "debugging", listed[0].Topic)
}

func TestVectorRoundTrip(t *testing.T) {
	v := embedding.Vector{0.1, -0.5, 3.25, 0}
	got := decodeVector(encodeVector(v))
	assert.Equal(t, v, got)
	assert.Nil(t, encodeVector(nil))
	assert.Nil(t, decodeVector(nil))
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := storeOne(t, s, StoreParams{Tier: model.TierLTM})
	_, err := s.Retrieve(ctx, testOwner, m.ID)
	require.NoError(t, err)

	exported, err := s.ExportAll(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, exported, 1)

	dst := newTestStore(t)
	imported, err := dst.Import(ctx, exported)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)

	got, err := dst.Peek(ctx, testOwner, m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TierLTM, got.Tier)
	assert.Equal(t, 1, got.AccessCount, "counters survive import")
	assert.Equal(t, m.Embedding, got.Embedding)

	// Importing again skips the existing id.
	imported, err = dst.Import(ctx, exported)
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
}

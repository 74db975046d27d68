package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/mnemoshq/mnemos/internal/config"
	"github.com/mnemoshq/mnemos/internal/embedding"
	"github.com/mnemoshq/mnemos/internal/index"
	"github.com/mnemoshq/mnemos/internal/memerr"
	"github.com/mnemoshq/mnemos/internal/model"
)

// SQLiteStore implements TierStore using SQLite. It owns tier TTL
// computation, the promotion state machine, synchronous embedding of LTM
// writes, and keeps the semantic index in sync with record lifecycle.
type SQLiteStore struct {
	db       *sql.DB
	cfg      config.MemoryConfig
	embedder embedding.Embedder
	index    index.SemanticIndex
	log      *slog.Logger
	entropy  *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
// embedder and idx may be nil; LTM writes then fail validation since the
// embedding contract cannot be met.
func NewSQLiteStore(dbPath string, cfg config.MemoryConfig, embedder embedding.Embedder, idx index.SemanticIndex, log *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}

	s := &SQLiteStore{
		db:       db,
		cfg:      cfg,
		embedder: embedder,
		index:    idx,
		log:      log.With("component", "store"),
		entropy:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id               TEXT PRIMARY KEY,
		owner_id         TEXT NOT NULL,
		session_id       TEXT,
		kind             TEXT NOT NULL,
		input_context    TEXT NOT NULL,
		output_response  TEXT,
		outcome          TEXT NOT NULL DEFAULT 'neutral',
		emotional_weight REAL,
		confidence_score REAL,
		policy_valid     INTEGER NOT NULL DEFAULT 1,
		tags             TEXT,
		tier             TEXT NOT NULL DEFAULT 'stm',
		access_count     INTEGER NOT NULL DEFAULT 0,
		last_accessed_at TEXT,
		created_at       TEXT NOT NULL,
		expires_at       TEXT,
		expired_at       TEXT,
		embedding        BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_memories_owner ON memories(owner_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_memories_owner_tier ON memories(owner_id, tier);
	CREATE INDEX IF NOT EXISTS idx_memories_kind_created ON memories(kind, created_at);
	CREATE INDEX IF NOT EXISTS idx_memories_expires ON memories(expires_at);
	CREATE INDEX IF NOT EXISTS idx_memories_access ON memories(owner_id, tier, access_count DESC);

	CREATE TABLE IF NOT EXISTS distilled_knowledge (
		id                    TEXT PRIMARY KEY,
		owner_id              TEXT NOT NULL,
		source_reflection_ids TEXT NOT NULL,
		source_key            TEXT NOT NULL,
		topic                 TEXT NOT NULL,
		principle             TEXT NOT NULL,
		embedding             BLOB,
		confidence            REAL NOT NULL,
		created_at            TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_knowledge_owner ON distilled_knowledge(owner_id, created_at DESC);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_knowledge_dedup ON distilled_knowledge(owner_id, topic, source_key);
	`
	_, err := s.db.Exec(schema)
	return err
}

const memoryCols = `id, owner_id, session_id, kind, input_context, output_response,
	outcome, emotional_weight, confidence_score, policy_valid, tags, tier,
	access_count, last_accessed_at, created_at, expires_at, expired_at, embedding`

// Store validates the record, computes its TTL from the target tier and
// commits it. Direct LTM creation embeds synchronously and indexes.
func (s *SQLiteStore) Store(ctx context.Context, p StoreParams) (*model.Memory, error) {
	now := time.Now().UTC()

	if p.Tier == "" {
		p.Tier = model.TierSTM
	}
	if p.Outcome == "" {
		p.Outcome = model.OutcomeNeutral
	}

	m := &model.Memory{
		ID:              s.newID(),
		OwnerID:         p.OwnerID,
		SessionID:       p.SessionID,
		Kind:            p.Kind,
		InputContext:    p.InputContext,
		OutputResponse:  p.OutputResponse,
		Outcome:         p.Outcome,
		EmotionalWeight: p.EmotionalWeight,
		ConfidenceScore: p.ConfidenceScore,
		PolicyValid:     p.PolicyValid,
		Tags:            p.Tags,
		Tier:            p.Tier,
		CreatedAt:       now,
	}
	if err := m.Validate(); err != nil {
		return nil, memerr.Validation(err.Error())
	}

	switch p.Tier {
	case model.TierSTM:
		exp := now.Add(s.cfg.STMTTL)
		m.ExpiresAt = &exp
	case model.TierITM:
		exp := now.Add(s.cfg.ITMTTL)
		m.ExpiresAt = &exp
	case model.TierLTM:
		// Permanent tier: the embedding contract must hold at commit.
		if !p.PolicyValid {
			return nil, memerr.PolicyRejected(m.ID)
		}
		if s.embedder == nil {
			return nil, memerr.Validation("ltm record requires an embedding and no embedding provider is configured")
		}
		vec, err := embedding.EmbedText(ctx, s.embedder, embedInput(m))
		if err != nil {
			return nil, memerr.Unavailable("embedding provider", err)
		}
		m.Embedding = vec
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (`+memoryCols+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, ?, ?, NULL, ?)`,
		m.ID, m.OwnerID, nullStr(m.SessionID), string(m.Kind), m.InputContext, nullStr(m.OutputResponse),
		string(m.Outcome), m.EmotionalWeight, m.ConfidenceScore, boolInt(m.PolicyValid),
		tagsJSON(m.Tags), string(m.Tier),
		fmtTime(m.CreatedAt), fmtTimePtr(m.ExpiresAt), encodeVector(m.Embedding))
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}

	if m.Tier == model.TierLTM && s.index != nil {
		if err := s.index.Index(ctx, m); err != nil {
			s.log.Warn("index ltm record", "id", m.ID, "error", err)
		}
	}

	return m, nil
}

// Retrieve returns a record and bumps access_count in the same statement,
// so concurrent retrievals never lose increments.
func (s *SQLiteStore) Retrieve(ctx context.Context, ownerID, id string) (*model.Memory, error) {
	now := time.Now().UTC()

	row := s.db.QueryRowContext(ctx,
		`UPDATE memories
		 SET access_count = access_count + 1, last_accessed_at = ?
		 WHERE id = ? AND owner_id = ? AND expired_at IS NULL
		   AND (expires_at IS NULL OR expires_at > ?)
		 RETURNING `+memoryCols,
		fmtTime(now), id, ownerID, fmtTime(now))

	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, memerr.NotFound("memory", id)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Peek reads a record without incrementing access_count. Expired records
// are not returned.
func (s *SQLiteStore) Peek(ctx context.Context, ownerID, id string) (*model.Memory, error) {
	now := fmtTime(time.Now().UTC())

	row := s.db.QueryRowContext(ctx,
		`SELECT `+memoryCols+` FROM memories
		 WHERE id = ? AND owner_id = ? AND expired_at IS NULL
		   AND (expires_at IS NULL OR expires_at > ?)`,
		id, ownerID, now)

	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, memerr.NotFound("memory", id)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Update mutates content, tags and quality metadata. Tier is not mutable
// here; that path is Promote.
func (s *SQLiteStore) Update(ctx context.Context, ownerID, id string, p UpdateParams) (*model.Memory, error) {
	set := []string{}
	args := []interface{}{}

	if p.InputContext != nil {
		if *p.InputContext == "" {
			return nil, memerr.Validation("input_context cannot be empty")
		}
		set = append(set, "input_context = ?")
		args = append(args, *p.InputContext)
	}
	if p.OutputResponse != nil {
		set = append(set, "output_response = ?")
		args = append(args, nullStr(*p.OutputResponse))
	}
	if p.Outcome != nil {
		if !model.ValidOutcomes[*p.Outcome] {
			return nil, memerr.Validation(fmt.Sprintf("invalid outcome %q", *p.Outcome))
		}
		set = append(set, "outcome = ?")
		args = append(args, string(*p.Outcome))
	}
	if p.EmotionalWeight != nil {
		if *p.EmotionalWeight < -1 || *p.EmotionalWeight > 1 {
			return nil, memerr.Validation("emotional_weight must be between -1 and 1")
		}
		set = append(set, "emotional_weight = ?")
		args = append(args, *p.EmotionalWeight)
	}
	if p.ConfidenceScore != nil {
		if *p.ConfidenceScore < 0 || *p.ConfidenceScore > 1 {
			return nil, memerr.Validation("confidence_score must be between 0 and 1")
		}
		set = append(set, "confidence_score = ?")
		args = append(args, *p.ConfidenceScore)
	}
	if p.Tags != nil {
		set = append(set, "tags = ?")
		args = append(args, tagsJSON(p.Tags))
	}

	if len(set) == 0 {
		return s.Peek(ctx, ownerID, id)
	}

	now := fmtTime(time.Now().UTC())
	args = append(args, id, ownerID, now)

	res, err := s.db.ExecContext(ctx,
		`UPDATE memories SET `+strings.Join(set, ", ")+`
		 WHERE id = ? AND owner_id = ? AND expired_at IS NULL
		   AND (expires_at IS NULL OR expires_at > ?)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("update memory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, memerr.NotFound("memory", id)
	}

	m, err := s.Peek(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	// Content changes invalidate a stale LTM vector entry.
	if m.Tier == model.TierLTM && (p.InputContext != nil || p.OutputResponse != nil) {
		if err := s.reembed(ctx, m); err != nil {
			s.log.Warn("re-embed updated record", "id", m.ID, "error", err)
		}
	}
	return m, nil
}

// reembed recomputes and persists the vector after a content change.
func (s *SQLiteStore) reembed(ctx context.Context, m *model.Memory) error {
	if s.embedder == nil {
		return nil
	}
	vec, err := embedding.EmbedText(ctx, s.embedder, embedInput(m))
	if err != nil {
		return err
	}
	m.Embedding = vec
	if _, err := s.db.ExecContext(ctx,
		`UPDATE memories SET embedding = ? WHERE id = ?`, encodeVector(vec), m.ID); err != nil {
		return err
	}
	if s.index != nil {
		return s.index.Index(ctx, m)
	}
	return nil
}

// Promote moves a record exactly one tier forward. The eligibility
// predicate is re-checked by the WHERE clause of the committing statement,
// so a racing expiry or earlier promotion makes this a clean failure
// instead of a lost update.
func (s *SQLiteStore) Promote(ctx context.Context, ownerID, id string, target model.Tier) (*model.Memory, error) {
	cur, err := s.Peek(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if !cur.Tier.CanPromoteTo(target) {
		return nil, memerr.InvalidTransition(string(cur.Tier), string(target))
	}
	if !cur.PolicyValid {
		return nil, memerr.PolicyRejected(id)
	}

	now := time.Now().UTC()
	var newExpires *time.Time
	var vec embedding.Vector

	switch target {
	case model.TierITM:
		exp := now.Add(s.cfg.ITMTTL)
		newExpires = &exp
	case model.TierLTM:
		if len(cur.Embedding) == 0 {
			if s.embedder == nil {
				return nil, memerr.Validation("promotion to ltm requires an embedding and no embedding provider is configured")
			}
			vec, err = embedding.EmbedText(ctx, s.embedder, embedInput(cur))
			if err != nil {
				return nil, memerr.Unavailable("embedding provider", err)
			}
		}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE memories
		 SET tier = ?, expires_at = ?, embedding = COALESCE(?, embedding)
		 WHERE id = ? AND owner_id = ? AND tier = ? AND policy_valid = 1
		   AND expired_at IS NULL AND (expires_at IS NULL OR expires_at > ?)`,
		string(target), fmtTimePtr(newExpires), encodeVector(vec),
		id, ownerID, string(cur.Tier), fmtTime(now))
	if err != nil {
		return nil, fmt.Errorf("promote memory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// The snapshot went stale between peek and commit.
		return nil, memerr.InvalidTransition(string(cur.Tier), string(target))
	}

	m, err := s.Peek(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if target == model.TierLTM && s.index != nil {
		if err := s.index.Index(ctx, m); err != nil {
			s.log.Warn("index promoted record", "id", m.ID, "error", err)
		}
	}
	return m, nil
}

// Expire marks a record expired. Idempotent: the first expiry timestamp is
// kept on repeat calls and re-expiring is a no-op.
func (s *SQLiteStore) Expire(ctx context.Context, ownerID, id string) error {
	now := fmtTime(time.Now().UTC())

	res, err := s.db.ExecContext(ctx,
		`UPDATE memories SET expired_at = COALESCE(expired_at, ?)
		 WHERE id = ? AND owner_id = ?`,
		now, id, ownerID)
	if err != nil {
		return fmt.Errorf("expire memory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return memerr.NotFound("memory", id)
	}

	if s.index != nil {
		if err := s.index.Remove(ctx, ownerID, id); err != nil {
			s.log.Warn("remove expired record from index", "id", id, "error", err)
		}
	}
	return nil
}

// TopAccessed returns the owner's most-retrieved non-expired records of a
// tier. Metadata surface: access counts are not incremented.
func (s *SQLiteStore) TopAccessed(ctx context.Context, ownerID string, tier model.Tier, limit int) ([]model.Memory, error) {
	if limit <= 0 {
		limit = 10
	}
	now := fmtTime(time.Now().UTC())

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryCols+` FROM memories
		 WHERE owner_id = ? AND tier = ? AND expired_at IS NULL
		   AND (expires_at IS NULL OR expires_at > ?)
		 ORDER BY access_count DESC, created_at DESC
		 LIMIT ?`,
		ownerID, string(tier), now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMemories(rows)
}

// RecentReflections returns reflection records inside the lookback
// window. Policy-invalid records stay out of distillation, same as
// promotion.
func (s *SQLiteStore) RecentReflections(ctx context.Context, ownerID string, since time.Time) ([]model.Memory, error) {
	now := fmtTime(time.Now().UTC())
	where := []string{
		"kind = ?", "created_at >= ?", "policy_valid = 1", "expired_at IS NULL",
		"(expires_at IS NULL OR expires_at > ?)",
	}
	args := []interface{}{string(model.KindReflection), fmtTime(since.UTC()), now}

	if ownerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, ownerID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryCols+` FROM memories
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY created_at DESC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMemories(rows)
}

// PromotionCandidates returns stm/itm records that cleared the access
// threshold and are still eligible at query time. The caller re-checks
// through Promote, which guards the predicate inside the commit.
func (s *SQLiteStore) PromotionCandidates(ctx context.Context, ownerID string, threshold int) ([]model.Memory, error) {
	now := fmtTime(time.Now().UTC())
	where := []string{
		"tier IN ('stm', 'itm')", "access_count >= ?", "policy_valid = 1",
		"expired_at IS NULL", "(expires_at IS NULL OR expires_at > ?)",
	}
	args := []interface{}{threshold, now}

	if ownerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, ownerID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryCols+` FROM memories
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY created_at ASC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMemories(rows)
}

// ExpiryCandidates returns stm/itm records past their TTL that still lack
// the terminal expired flag.
func (s *SQLiteStore) ExpiryCandidates(ctx context.Context, ownerID string, now time.Time) ([]model.Memory, error) {
	where := []string{
		"tier != 'ltm'", "expired_at IS NULL",
		"expires_at IS NOT NULL", "expires_at <= ?",
	}
	args := []interface{}{fmtTime(now.UTC())}

	if ownerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, ownerID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryCols+` FROM memories
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY expires_at ASC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMemories(rows)
}

// InsertKnowledge persists a distilled-knowledge record. A rerun over the
// same reflection set for the same topic is a no-op, keeping the nightly
// job idempotent.
func (s *SQLiteStore) InsertKnowledge(ctx context.Context, k *model.DistilledKnowledge) (bool, error) {
	ids, _ := json.Marshal(k.SourceReflectionIDs)

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO distilled_knowledge
		 (id, owner_id, source_reflection_ids, source_key, topic, principle, embedding, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		k.ID, k.OwnerID, string(ids), sourceKey(k.SourceReflectionIDs), k.Topic,
		k.Principle, encodeVector(k.Embedding), k.Confidence, fmtTime(k.CreatedAt.UTC()))
	if err != nil {
		return false, fmt.Errorf("insert knowledge: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListKnowledge returns an owner's distilled knowledge, newest first.
func (s *SQLiteStore) ListKnowledge(ctx context.Context, ownerID string, limit int) ([]model.DistilledKnowledge, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, source_reflection_ids, topic, principle, embedding, confidence, created_at
		 FROM distilled_knowledge
		 WHERE owner_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DistilledKnowledge
	for rows.Next() {
		var k model.DistilledKnowledge
		var ids, createdAt string
		var emb []byte
		if err := rows.Scan(&k.ID, &k.OwnerID, &ids, &k.Topic, &k.Principle, &emb, &k.Confidence, &createdAt); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(ids), &k.SourceReflectionIDs)
		k.Embedding = decodeVector(emb)
		k.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ReindexLTM rebuilds the semantic index from durable LTM records. Called
// at startup when the index is in-memory.
func (s *SQLiteStore) ReindexLTM(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryCols+` FROM memories
		 WHERE tier = 'ltm' AND expired_at IS NULL AND embedding IS NOT NULL`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	memories, err := collectMemories(rows)
	if err != nil {
		return 0, err
	}

	indexed := 0
	for i := range memories {
		if err := s.index.Index(ctx, &memories[i]); err != nil {
			s.log.Warn("reindex ltm record", "id", memories[i].ID, "error", err)
			continue
		}
		indexed++
	}
	return indexed, nil
}

// --- scanning and encoding helpers ---

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanner) (model.Memory, error) {
	var m model.Memory
	var sessionID, outputResponse, lastAccessed, expiresAt, expiredAt, tagsStr sql.NullString
	var emotionalWeight, confidenceScore sql.NullFloat64
	var policyValid int
	var createdAt string
	var emb []byte

	err := row.Scan(
		&m.ID, &m.OwnerID, &sessionID, &m.Kind, &m.InputContext, &outputResponse,
		&m.Outcome, &emotionalWeight, &confidenceScore, &policyValid, &tagsStr, &m.Tier,
		&m.AccessCount, &lastAccessed, &createdAt, &expiresAt, &expiredAt, &emb,
	)
	if err != nil {
		return m, err
	}

	m.SessionID = sessionID.String
	m.OutputResponse = outputResponse.String
	m.PolicyValid = policyValid != 0
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if emotionalWeight.Valid {
		v := emotionalWeight.Float64
		m.EmotionalWeight = &v
	}
	if confidenceScore.Valid {
		v := confidenceScore.Float64
		m.ConfidenceScore = &v
	}
	if tagsStr.Valid && tagsStr.String != "" {
		json.Unmarshal([]byte(tagsStr.String), &m.Tags)
	}
	if lastAccessed.Valid {
		t, _ := time.Parse(time.RFC3339Nano, lastAccessed.String)
		m.LastAccessedAt = &t
	}
	if expiresAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, expiresAt.String)
		m.ExpiresAt = &t
	}
	if expiredAt.Valid {
		t, _ := time.Parse(time.RFC3339Nano, expiredAt.String)
		m.ExpiredAt = &t
	}
	m.Embedding = decodeVector(emb)

	return m, nil
}

func collectMemories(rows *sql.Rows) ([]model.Memory, error) {
	var memories []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// embedInput is the text embedded for a record: input plus response.
func embedInput(m *model.Memory) string {
	if m.OutputResponse == "" {
		return m.InputContext
	}
	return m.InputContext + "\n" + m.OutputResponse
}

// encodeVector packs a float32 vector as little-endian bytes; nil in,
// nil out so the column stays NULL.
func encodeVector(v embedding.Vector) []byte {
	if len(v) == 0 {
		return nil
	}
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

func decodeVector(b []byte) embedding.Vector {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make(embedding.Vector, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func sourceKey(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func fmtTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func tagsJSON(tags []string) interface{} {
	if len(tags) == 0 {
		return nil
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func nullStr(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

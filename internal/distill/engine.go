// Package distill implements the nightly consolidation job: it groups
// recent reflections by topic, extracts durable principles from the
// groups that carry enough signal, advances frequently used memories one
// tier, and expires records past their TTL.
package distill

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mnemoshq/mnemos/internal/chunker"
	"github.com/mnemoshq/mnemos/internal/config"
	"github.com/mnemoshq/mnemos/internal/embedding"
	"github.com/mnemoshq/mnemos/internal/model"
	"github.com/mnemoshq/mnemos/internal/store"
)

// Run statuses. A run is failed only when the initial fetch fails;
// individual unit failures degrade it to partial.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

const (
	// fallbackTopic groups reflections that carry no topical tags.
	fallbackTopic = "general"

	maxPrincipleLen = 500
)

// housekeepingTags mark the record's role, not its subject, and never
// form topic groups on their own.
var housekeepingTags = map[string]bool{
	"reflection":      true,
	"self-assessment": true,
	"alignment":       true,
}

// Report summarizes one distillation run.
type Report struct {
	OwnerID              string    `json:"owner_id,omitempty"`
	ReflectionsProcessed int       `json:"reflections_processed"`
	KnowledgeDistilled   int       `json:"knowledge_distilled"`
	MemoriesPromoted     int       `json:"memories_promoted"`
	MemoriesExpired      int       `json:"memories_expired"`
	Errors               []string  `json:"errors,omitempty"`
	Status               string    `json:"status"`
	StartedAt            time.Time `json:"started_at"`
	CompletedAt          time.Time `json:"completed_at"`
}

// Engine runs distillation. Safe for concurrent use; overlapping runs on
// the same scope are rejected rather than queued.
type Engine struct {
	store    store.TierStore
	embedder embedding.Embedder
	cfg      config.DistillConfig
	mem      config.MemoryConfig
	log      *slog.Logger
	locks    scopeLocks
}

func NewEngine(ts store.TierStore, e embedding.Embedder, cfg config.DistillConfig, mem config.MemoryConfig, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:    ts,
		embedder: e,
		cfg:      cfg,
		mem:      mem,
		log:      log.With("component", "distill"),
	}
}

// Run executes one distillation pass for an owner (empty = all owners).
// The pass is resumable in effect: distillations are deduplicated by
// source set, promotion and expiry are both idempotent, so a rerun after
// a partial failure converges without double-applying anything.
func (e *Engine) Run(ctx context.Context, ownerID string) (*Report, error) {
	if !e.locks.tryLock(ownerID) {
		return nil, errRunInProgress(ownerID)
	}
	defer e.locks.unlock(ownerID)

	started := time.Now().UTC()
	report := &Report{OwnerID: ownerID, StartedAt: started, Status: StatusSuccess}
	e.log.Info("distillation run started", "owner", ownerID)

	reflections, err := e.store.RecentReflections(ctx, ownerID, started.Add(-e.cfg.Lookback))
	if err != nil {
		report.Status = StatusFailed
		report.Errors = append(report.Errors, fmt.Sprintf("fetch reflections: %v", err))
		report.CompletedAt = time.Now().UTC()
		e.log.Error("distillation run failed", "owner", ownerID, "error", err)
		return report, nil
	}
	report.ReflectionsProcessed = len(reflections)

	e.distillGroups(ctx, reflections, report)
	e.promote(ctx, ownerID, report)
	e.expire(ctx, ownerID, report)

	if len(report.Errors) > 0 {
		report.Status = StatusPartial
	}
	report.CompletedAt = time.Now().UTC()

	e.log.Info("distillation run completed",
		"owner", ownerID,
		"status", report.Status,
		"reflections", report.ReflectionsProcessed,
		"distilled", report.KnowledgeDistilled,
		"promoted", report.MemoriesPromoted,
		"expired", report.MemoriesExpired,
		"errors", len(report.Errors),
		"duration", report.CompletedAt.Sub(report.StartedAt))
	return report, nil
}

// distillGroups scores each topic group and persists a principle for the
// ones that clear every signal threshold. A failing group is recorded and
// skipped; later groups still run.
func (e *Engine) distillGroups(ctx context.Context, reflections []model.Memory, report *Report) {
	grouped := groupByOwnerTopic(reflections)

	// Deterministic unit order regardless of map iteration.
	keys := make([]ownerTopic, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].owner != keys[j].owner {
			return keys[i].owner < keys[j].owner
		}
		return keys[i].topic < keys[j].topic
	})

	for _, key := range keys {
		if ctx.Err() != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("run cancelled: %v", ctx.Err()))
			return
		}

		group := grouped[key]
		stats := scoreGroup(group)
		if !stats.eligible(e.cfg) {
			continue
		}

		inserted, err := e.distillOne(ctx, key.owner, key.topic, group, stats)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("distill %s/%s: %v", key.owner, key.topic, err))
			continue
		}
		if inserted {
			report.KnowledgeDistilled++
		}
	}
}

func (e *Engine) distillOne(ctx context.Context, ownerID, topic string, group []model.Memory, stats groupStats) (bool, error) {
	principle := synthesizePrinciple(topic, group)

	var vec embedding.Vector
	if e.embedder != nil {
		v, err := embedding.EmbedText(ctx, e.embedder, principle)
		if err != nil {
			return false, fmt.Errorf("embed principle: %w", err)
		}
		vec = v
	}

	ids := make([]string, len(group))
	for i := range group {
		ids[i] = group[i].ID
	}

	k := &model.DistilledKnowledge{
		ID:                  ulid.Make().String(),
		OwnerID:             ownerID,
		SourceReflectionIDs: ids,
		Topic:               topic,
		Principle:           principle,
		Embedding:           vec,
		Confidence:          stats.avgConfidence,
		CreatedAt:           time.Now().UTC(),
	}
	return e.store.InsertKnowledge(ctx, k)
}

// promote advances each eligible record exactly one tier. A record that
// became ineligible since the candidate query (raced expiry, concurrent
// promotion) fails its own unit only.
func (e *Engine) promote(ctx context.Context, ownerID string, report *Report) {
	candidates, err := e.store.PromotionCandidates(ctx, ownerID, e.mem.PromotionThreshold)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("promotion candidates: %v", err))
		return
	}

	for i := range candidates {
		if ctx.Err() != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("run cancelled: %v", ctx.Err()))
			return
		}
		m := &candidates[i]
		next, ok := m.Tier.Next()
		if !ok {
			continue
		}
		if _, err := e.store.Promote(ctx, m.OwnerID, m.ID, next); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("promote %s: %v", m.ID, err))
			continue
		}
		report.MemoriesPromoted++
	}
}

func (e *Engine) expire(ctx context.Context, ownerID string, report *Report) {
	candidates, err := e.store.ExpiryCandidates(ctx, ownerID, time.Now().UTC())
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("expiry candidates: %v", err))
		return
	}

	for i := range candidates {
		if ctx.Err() != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("run cancelled: %v", ctx.Err()))
			return
		}
		m := &candidates[i]
		if err := e.store.Expire(ctx, m.OwnerID, m.ID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("expire %s: %v", m.ID, err))
			continue
		}
		report.MemoriesExpired++
	}
}

// --- grouping and scoring ---

type ownerTopic struct {
	owner string
	topic string
}

// groupByOwnerTopic assigns each reflection to every topic group its tags
// name, so a reflection tagged with two topics contributes signal to
// both. Housekeeping tags are skipped; a reflection with no topical tags
// joins the fallback group.
func groupByOwnerTopic(reflections []model.Memory) map[ownerTopic][]model.Memory {
	grouped := make(map[ownerTopic][]model.Memory)
	for i := range reflections {
		m := &reflections[i]
		topical := false
		for _, tag := range m.Tags {
			if tag == "" || housekeepingTags[tag] {
				continue
			}
			topical = true
			key := ownerTopic{owner: m.OwnerID, topic: tag}
			grouped[key] = append(grouped[key], *m)
		}
		if !topical {
			key := ownerTopic{owner: m.OwnerID, topic: fallbackTopic}
			grouped[key] = append(grouped[key], *m)
		}
	}
	return grouped
}

type groupStats struct {
	avgEmotionalWeight float64
	avgConfidence      float64
	successRate        float64
	size               int
	confScored         int
}

// scoreGroup computes group signal. A missing weight contributes zero to
// the weight average; records without a confidence score are left out of
// the confidence mean entirely. A neutral outcome counts against the
// success rate.
func scoreGroup(group []model.Memory) groupStats {
	stats := groupStats{size: len(group)}
	if len(group) == 0 {
		return stats
	}

	var ewSum, confSum float64
	successes := 0
	for i := range group {
		m := &group[i]
		if m.EmotionalWeight != nil {
			ewSum += *m.EmotionalWeight
		}
		if m.ConfidenceScore != nil {
			confSum += *m.ConfidenceScore
			stats.confScored++
		}
		if m.Outcome == model.OutcomeSuccess {
			successes++
		}
	}

	n := float64(len(group))
	stats.avgEmotionalWeight = ewSum / n
	if stats.confScored > 0 {
		stats.avgConfidence = confSum / float64(stats.confScored)
	}
	stats.successRate = float64(successes) / n
	return stats
}

// eligible is the distillation predicate: strong signal in either
// direction, high confidence, a majority of successes and enough
// corroborating records. All four must hold. A group where no record
// carries a confidence score is skipped outright.
func (g groupStats) eligible(cfg config.DistillConfig) bool {
	return g.confScored > 0 &&
		math.Abs(g.avgEmotionalWeight) > cfg.EmotionalWeightThreshold &&
		g.avgConfidence > cfg.ConfidenceThreshold &&
		g.successRate >= cfg.MinSuccessRate &&
		g.size >= cfg.MinGroupSize
}

// synthesizePrinciple builds the principle text from the group's three
// most confident reflections, one leading sentence each.
func synthesizePrinciple(topic string, group []model.Memory) string {
	ranked := make([]model.Memory, len(group))
	copy(ranked, group)
	sort.SliceStable(ranked, func(i, j int) bool {
		return confOf(&ranked[i]) > confOf(&ranked[j])
	})
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}

	principle := "For " + topic + ":"
	for i := range ranked {
		text := ranked[i].OutputResponse
		if text == "" {
			text = ranked[i].InputContext
		}
		sentence := chunker.FirstSentence(text, 160)
		if sentence == "" {
			continue
		}
		principle += " " + sentence
	}
	return chunker.Truncate(principle, maxPrincipleLen)
}

func confOf(m *model.Memory) float64 {
	if m.ConfidenceScore == nil {
		return 0
	}
	return *m.ConfidenceScore
}

// Package usage computes per-owner storage consumption and enforces plan
// quotas on durable writes.
package usage

import (
	"context"
	"fmt"
	"strings"

	"github.com/mnemoshq/mnemos/internal/config"
	"github.com/mnemoshq/mnemos/internal/memerr"
	"github.com/mnemoshq/mnemos/internal/model"
	"github.com/mnemoshq/mnemos/internal/store"
)

// Plans. Unknown plan strings fall back to free.
const (
	PlanFree  = "free"
	PlanBasic = "basic"
	PlanPro   = "pro"
)

// perRecordOverhead approximates row metadata (ids, timestamps, counters)
// beyond the text and vector payload.
const perRecordOverhead = 256

// Usage is the /usage surface: consumption against the plan limit.
type Usage struct {
	OwnerID      string                        `json:"owner_id"`
	Plan         string                        `json:"plan"`
	UsedBytes    int64                         `json:"used_bytes"`
	LimitBytes   int64                         `json:"limit_bytes"` // -1 = unlimited
	UsedPercent  float64                       `json:"used_percent"`
	Tiers        map[model.Tier]store.TierStats `json:"tiers"`
	Knowledge    int                           `json:"distilled_knowledge"`
}

// Meter reads usage and answers quota checks.
type Meter struct {
	store store.TierStore
	cfg   config.QuotaConfig
}

func NewMeter(ts store.TierStore, cfg config.QuotaConfig) *Meter {
	return &Meter{store: ts, cfg: cfg}
}

// LimitBytes returns the byte budget for a plan; -1 means unlimited.
func (m *Meter) LimitBytes(plan string) int64 {
	var gb float64
	switch strings.ToLower(plan) {
	case PlanPro:
		gb = m.cfg.ProGB
	case PlanBasic:
		gb = m.cfg.BasicGB
	default:
		gb = m.cfg.FreeGB
	}
	if gb < 0 {
		return -1
	}
	return int64(gb * (1 << 30))
}

// Report returns an owner's current consumption.
func (m *Meter) Report(ctx context.Context, ownerID, plan string) (*Usage, error) {
	stats, err := m.store.Stats(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	u := &Usage{
		OwnerID:    ownerID,
		Plan:       normalizePlan(plan),
		UsedBytes:  stats.StorageBytes,
		LimitBytes: m.LimitBytes(plan),
		Tiers:      stats.Tiers,
		Knowledge:  stats.Knowledge,
	}
	if u.LimitBytes > 0 {
		u.UsedPercent = float64(u.UsedBytes) / float64(u.LimitBytes) * 100
	}
	return u, nil
}

// CheckWrite rejects a durable write that would push the owner over their
// plan limit. Short-term records are TTL-bounded and never charged, so
// callers only invoke this for itm/ltm writes.
func (m *Meter) CheckWrite(ctx context.Context, ownerID, plan string, incoming RecordSize) error {
	limit := m.LimitBytes(plan)
	if limit < 0 {
		return nil
	}

	stats, err := m.store.Stats(ctx, ownerID)
	if err != nil {
		return err
	}

	if stats.StorageBytes+incoming.Bytes() > limit {
		return memerr.QuotaExceeded(fmt.Sprintf(
			"storage quota exceeded for plan %s: %d of %d bytes used",
			normalizePlan(plan), stats.StorageBytes, limit))
	}
	return nil
}

// RecordSize estimates what a record will occupy once stored.
type RecordSize struct {
	TextBytes     int
	EmbeddingDims int
}

func (r RecordSize) Bytes() int64 {
	return int64(r.TextBytes) + int64(r.EmbeddingDims)*4 + perRecordOverhead
}

// SizeOf estimates the stored size of a prospective record.
func SizeOf(inputContext, outputResponse string, embeddingDims int) RecordSize {
	return RecordSize{
		TextBytes:     len(inputContext) + len(outputResponse),
		EmbeddingDims: embeddingDims,
	}
}

func normalizePlan(plan string) string {
	switch strings.ToLower(plan) {
	case PlanPro:
		return PlanPro
	case PlanBasic:
		return PlanBasic
	default:
		return PlanFree
	}
}

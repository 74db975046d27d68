// Package store provides the tiered memory storage interface and its
// SQLite implementation, plus the ephemeral session store.
package store

import (
	"context"
	"time"

	"github.com/mnemoshq/mnemos/internal/model"
)

// StoreParams holds parameters for storing a memory.
type StoreParams struct {
	OwnerID         string
	SessionID       string
	Kind            model.Kind
	InputContext    string
	OutputResponse  string
	Outcome         model.Outcome
	EmotionalWeight *float64
	ConfidenceScore *float64
	PolicyValid     bool
	Tags            []string
	Tier            model.Tier
}

// UpdateParams holds the mutable fields for an update. Nil pointers leave
// the field unchanged; tier is deliberately absent (promotion only).
type UpdateParams struct {
	InputContext    *string
	OutputResponse  *string
	Outcome         *model.Outcome
	EmotionalWeight *float64
	ConfidenceScore *float64
	Tags            []string
}

// ListParams holds parameters for listing memories.
type ListParams struct {
	OwnerID string
	Tier    model.Tier // empty = all tiers
	Cursor  string
	Limit   int
}

// ListPage is one page of a restartable listing.
type ListPage struct {
	Memories   []model.Memory `json:"memories"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// TierStats holds per-tier counts and storage size.
type TierStats struct {
	Count int   `json:"count"`
	Bytes int64 `json:"bytes"`
}

// Stats holds per-owner memory statistics.
type Stats struct {
	OwnerID      string                    `json:"owner_id"`
	Tiers        map[model.Tier]TierStats  `json:"tiers"`
	Total        int                       `json:"total_memories"`
	StorageBytes int64                     `json:"storage_bytes"`
	Knowledge    int                       `json:"distilled_knowledge"`
}

// TierStore is the tiered memory storage contract. All operations are
// scoped by owner; tier TTL and transition mechanics are the store's
// responsibility, not the caller's.
type TierStore interface {
	// Store validates tier invariants, computes expires_at and commits a
	// new record. LTM writes embed synchronously and are indexed.
	Store(ctx context.Context, p StoreParams) (*model.Memory, error)

	// Retrieve returns a record and increments access_count atomically
	// with the read.
	Retrieve(ctx context.Context, ownerID, id string) (*model.Memory, error)

	// Peek returns a record without touching access_count. Used by the
	// batch engine and metadata-only surfaces.
	Peek(ctx context.Context, ownerID, id string) (*model.Memory, error)

	// List returns a page of non-expired records, restartable via cursor.
	List(ctx context.Context, p ListParams) (*ListPage, error)

	// Update mutates content/tags/metadata only.
	Update(ctx context.Context, ownerID, id string, p UpdateParams) (*model.Memory, error)

	// Promote moves a record one tier forward. The transition predicate is
	// re-checked inside the committing statement.
	Promote(ctx context.Context, ownerID, id string, target model.Tier) (*model.Memory, error)

	// Expire idempotently marks a record expired (soft).
	Expire(ctx context.Context, ownerID, id string) error

	// TopAccessed returns non-expired records of a tier ordered by
	// access_count descending. Does not increment access counts.
	TopAccessed(ctx context.Context, ownerID string, tier model.Tier, limit int) ([]model.Memory, error)

	// Stats returns per-tier counts and storage size for an owner.
	Stats(ctx context.Context, ownerID string) (*Stats, error)

	// RecentReflections returns non-expired reflection records created at
	// or after since. Empty ownerID spans all owners.
	RecentReflections(ctx context.Context, ownerID string, since time.Time) ([]model.Memory, error)

	// PromotionCandidates returns non-expired, policy-valid stm/itm records
	// with access_count at or above threshold.
	PromotionCandidates(ctx context.Context, ownerID string, threshold int) ([]model.Memory, error)

	// ExpiryCandidates returns stm/itm records past their TTL that have not
	// been soft-expired yet.
	ExpiryCandidates(ctx context.Context, ownerID string, now time.Time) ([]model.Memory, error)

	// InsertKnowledge persists a distilled-knowledge record. Returns false
	// without error when an identical distillation already exists.
	InsertKnowledge(ctx context.Context, k *model.DistilledKnowledge) (bool, error)

	// ListKnowledge returns distilled knowledge for an owner, newest first.
	ListKnowledge(ctx context.Context, ownerID string, limit int) ([]model.DistilledKnowledge, error)

	// Close closes the store.
	Close() error
}

// SessionStore is the ephemeral short-term interaction log, keyed by
// owner and session. It is a soft dependency: callers degrade when it
// fails rather than failing the whole request.
type SessionStore interface {
	Append(ctx context.Context, ownerID, sessionID string, in model.Interaction) error
	Interactions(ctx context.Context, ownerID, sessionID string, limit int) ([]model.Interaction, error)
	Clear(ctx context.Context, ownerID, sessionID string) error
	Ping(ctx context.Context) error
	Close() error
}

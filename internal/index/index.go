// Package index provides nearest-neighbor search over embedded memory
// records.
package index

import (
	"context"
	"time"

	"github.com/mnemoshq/mnemos/internal/embedding"
	"github.com/mnemoshq/mnemos/internal/model"
)

// Query is a vector search request scoped to one owner.
type Query struct {
	OwnerID string
	Vector  embedding.Vector
	Limit   int
	Tier    model.Tier // empty = all tiers
}

// Match is one ranked search hit. It carries record metadata only; the
// caller fetches content through the tier store if it needs it.
type Match struct {
	ID         string     `json:"id"`
	Tier       model.Tier `json:"tier"`
	Kind       model.Kind `json:"kind"`
	Confidence float64    `json:"confidence,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	Similarity float64    `json:"similarity"`
}

// SemanticIndex maintains the vector entries for embedded records.
type SemanticIndex interface {
	// Index inserts or replaces the entry for a record. No-op when the
	// record has no embedding.
	Index(ctx context.Context, m *model.Memory) error

	// Remove drops a record from the index so expired or deleted records
	// never surface in results.
	Remove(ctx context.Context, ownerID, id string) error

	// Search returns at most q.Limit matches ranked by similarity, ties
	// broken by higher confidence then more recent creation. Zero matches
	// yields an empty slice, never an error.
	Search(ctx context.Context, q Query) ([]Match, error)
}

package index

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/mnemoshq/mnemos/internal/model"
)

// ChromemIndex implements SemanticIndex on chromem-go, an embedded pure-Go
// vector database. Each owner gets its own collection for tenant isolation.
type ChromemIndex struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
}

// NewChromemIndex creates an in-memory index. Entries are rebuilt from the
// durable store at startup.
func NewChromemIndex() *ChromemIndex {
	return &ChromemIndex{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}
}

// NewPersistentChromemIndex creates an index persisted under dir.
func NewPersistentChromemIndex(dir string) (*ChromemIndex, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open vector db: %w", err)
	}
	return &ChromemIndex{
		db:          db,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

func (x *ChromemIndex) collection(ownerID string) (*chromem.Collection, error) {
	x.mu.RLock()
	col, ok := x.collections[ownerID]
	x.mu.RUnlock()
	if ok {
		return col, nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if col, ok := x.collections[ownerID]; ok {
		return col, nil
	}

	col, err := x.db.GetOrCreateCollection("owner_"+ownerID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	x.collections[ownerID] = col
	return col, nil
}

// Index inserts or replaces the vector entry for a record.
func (x *ChromemIndex) Index(ctx context.Context, m *model.Memory) error {
	if len(m.Embedding) == 0 {
		return nil
	}

	col, err := x.collection(m.OwnerID)
	if err != nil {
		return err
	}

	// Replace any stale entry so re-indexing is an upsert.
	_ = col.Delete(ctx, nil, nil, m.ID)

	confidence := ""
	if m.ConfidenceScore != nil {
		confidence = strconv.FormatFloat(*m.ConfidenceScore, 'f', -1, 64)
	}

	doc := chromem.Document{
		ID:        m.ID,
		Content:   m.InputContext,
		Embedding: m.Embedding,
		Metadata: map[string]string{
			"tier":       string(m.Tier),
			"kind":       string(m.Kind),
			"confidence": confidence,
			"created_at": m.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Remove drops a record from the owner's collection.
func (x *ChromemIndex) Remove(ctx context.Context, ownerID, id string) error {
	col, err := x.collection(ownerID)
	if err != nil {
		return err
	}
	return col.Delete(ctx, nil, nil, id)
}

// Search performs nearest-neighbor lookup constrained to one owner and an
// optional tier.
func (x *ChromemIndex) Search(ctx context.Context, q Query) ([]Match, error) {
	if q.Limit <= 0 {
		q.Limit = 10
	}

	col, err := x.collection(q.OwnerID)
	if err != nil {
		return nil, err
	}

	var where map[string]string
	if q.Tier != "" {
		where = map[string]string{"tier": string(q.Tier)}
	}

	// chromem rejects nResults larger than the collection, so clamp.
	n := q.Limit
	if count := col.Count(); count < n {
		n = count
	}
	if n == 0 {
		return []Match{}, nil
	}

	results, err := col.QueryEmbedding(ctx, q.Vector, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		m := Match{
			ID:         r.ID,
			Tier:       model.Tier(r.Metadata["tier"]),
			Kind:       model.Kind(r.Metadata["kind"]),
			Similarity: float64(r.Similarity),
		}
		if c := r.Metadata["confidence"]; c != "" {
			m.Confidence, _ = strconv.ParseFloat(c, 64)
		}
		if ts := r.Metadata["created_at"]; ts != "" {
			m.CreatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		}
		matches = append(matches, m)
	}

	// chromem orders by similarity; re-sort to apply the documented
	// tie-breaks: confidence, then recency.
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	if len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}
